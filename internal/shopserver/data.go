package shopserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"petshop/internal/types"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	errNotFound      = errors.New("not found")
	errInvalidInput  = errors.New("invalid input")
	errNotEnough     = errors.New("not enough stock")
	errEmailTaken    = errors.New("Email already in use")
	errForbiddenItem = errors.New("access denied")
)

type account struct {
	user     types.User
	password []byte
	role     types.Role
}

type cartEntry struct {
	productID int64
	quantity  int
}

// state is the in-memory catalogue, carts, wishlists and orders.
type state struct {
	mu sync.Mutex

	nextID     int64
	accounts   map[string]*account // by email
	categories map[int64]types.Category
	products   map[int64]types.Product
	carts      map[string][]cartEntry
	wishlists  map[string][]int64
	orders     map[int64]types.Order
	now        func() time.Time
}

func newState() *state {
	return &state{
		nextID:     100,
		accounts:   make(map[string]*account),
		categories: make(map[int64]types.Category),
		products:   make(map[int64]types.Product),
		carts:      make(map[string][]cartEntry),
		wishlists:  make(map[string][]int64),
		orders:     make(map[int64]types.Order),
		now:        time.Now,
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// =============================================================================
// SEED DATA
// =============================================================================

// Seed accounts created by New when seeding is enabled.
const (
	SeedAdminEmail    = "admin@petshop.local"
	SeedAdminPassword = "admin123"
	SeedUserEmail     = "user@petshop.local"
	SeedUserPassword  = "user123"
)

func (s *state) seed() error {
	if _, err := s.addAccount("Admin", SeedAdminEmail, SeedAdminPassword, types.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.addAccount("Test User", SeedUserEmail, SeedUserPassword, types.RoleUser); err != nil {
		return err
	}

	s.categories[1] = types.Category{ID: 1, Name: "Корм"}
	s.categories[2] = types.Category{ID: 2, Name: "Игрушки"}
	s.categories[3] = types.Category{ID: 3, Name: "Аксессуары"}

	products := []types.Product{
		{ID: 1, Name: "Корм для кошек", Description: "Сухой корм для взрослых кошек.\n\n* 2 кг\n* курица", Price: decimal.RequireFromString("450.00"), CategoryID: 1, Stock: 20},
		{ID: 2, Name: "Корм для собак", Description: "Полнорационный корм **для собак** всех пород.", Price: decimal.RequireFromString("820.50"), CategoryID: 1, Stock: 15},
		{ID: 3, Name: "Мяч с пищалкой", Description: "Резиновый мяч.", Price: decimal.RequireFromString("199.99"), CategoryID: 2, Stock: 40},
		{ID: 4, Name: "Когтеточка", Description: "Сизаль, 60 см.", Price: decimal.RequireFromString("1290.00"), CategoryID: 2, Stock: 5},
		{ID: 5, Name: "Ошейник", Description: "Регулируемый нейлоновый ошейник.", Price: decimal.RequireFromString("350.00"), CategoryID: 3, Stock: 30},
		{ID: 6, Name: "Поводок-рулетка", Description: "5 м, до 20 кг.", Price: decimal.RequireFromString("990.00"), CategoryID: 3, Stock: 8},
	}
	for _, p := range products {
		p.ImageURL = "/img/products/" + types.FormatID(p.ID) + ".jpg"
		s.products[p.ID] = s.withCategory(p)
	}
	return nil
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *state) addAccount(name, email, password string, role types.Role) (*account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.accounts[email]; ok {
		return nil, errEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	a := &account{
		user:     types.User{ID: s.id(), FullName: name, Email: email},
		password: hash,
		role:     role,
	}
	s.accounts[email] = a
	return a, nil
}

func (s *state) authenticate(email, password string) (*account, bool) {
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword(a.password, []byte(password)) != nil {
		return nil, false
	}
	return a, true
}

// =============================================================================
// CATALOG
// =============================================================================

func (s *state) withCategory(p types.Product) types.Product {
	if c, ok := s.categories[p.CategoryRef()]; ok {
		cat := c
		p.Category = &cat
		p.CategoryID = c.ID
	}
	return p
}

func (s *state) listProducts(match func(types.Product) bool) []types.Product {
	out := make([]types.Product, 0, len(s.products))
	for _, p := range s.products {
		if match == nil || match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) listCategories() []types.Category {
	out := make([]types.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *state) saveProduct(id int64, in types.ProductInput) (types.Product, error) {
	if strings.TrimSpace(in.Name) == "" || in.Price.IsNegative() || in.Stock < 0 {
		return types.Product{}, errInvalidInput
	}
	if _, ok := s.categories[in.CategoryID]; !ok {
		return types.Product{}, errNotFound
	}
	if id == 0 {
		id = s.id()
	} else if _, ok := s.products[id]; !ok {
		return types.Product{}, errNotFound
	}
	p := s.withCategory(types.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		ImageURL:    in.ImageURL,
		CategoryID:  in.CategoryID,
		Stock:       in.Stock,
	})
	s.products[id] = p
	return p, nil
}

// =============================================================================
// CART
// =============================================================================

func (s *state) cartView(email string) types.Cart {
	cart := types.Cart{Items: []types.CartLine{}}
	for _, e := range s.carts[email] {
		p := s.products[e.productID]
		cart.Items = append(cart.Items, types.CartLine{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ImageURL:     p.ImageURL,
			Quantity:     e.quantity,
			PricePerUnit: p.Price,
		})
	}
	cart.TotalPrice = cart.ComputeTotal()
	return cart
}

func (s *state) addToCart(email string, productID int64, qty int) error {
	p, ok := s.products[productID]
	if !ok {
		return errNotFound
	}
	if qty < 1 {
		return errInvalidInput
	}
	entries := s.carts[email]
	for i := range entries {
		if entries[i].productID == productID {
			if entries[i].quantity+qty > p.Stock {
				return errNotEnough
			}
			entries[i].quantity += qty
			return nil
		}
	}
	if qty > p.Stock {
		return errNotEnough
	}
	s.carts[email] = append(entries, cartEntry{productID: productID, quantity: qty})
	return nil
}

func (s *state) setCartQuantity(email string, productID int64, qty int) error {
	p, ok := s.products[productID]
	if !ok {
		return errNotFound
	}
	if qty < 1 {
		return errInvalidInput
	}
	if qty > p.Stock {
		return errNotEnough
	}
	for i, e := range s.carts[email] {
		if e.productID == productID {
			s.carts[email][i].quantity = qty
			return nil
		}
	}
	return errNotFound
}

func (s *state) removeFromCart(email string, productID int64) error {
	entries := s.carts[email]
	for i, e := range entries {
		if e.productID == productID {
			s.carts[email] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

// =============================================================================
// ORDERS
// =============================================================================

func (s *state) placeOrder(a *account, req types.CreateOrderRequest) (types.Order, error) {
	if len(req.Items) == 0 || strings.TrimSpace(req.Phone) == "" || strings.TrimSpace(req.Address) == "" {
		return types.Order{}, errInvalidInput
	}
	// Validate everything before touching stock.
	for _, it := range req.Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			return types.Order{}, errNotFound
		}
		if it.Quantity < 1 {
			return types.Order{}, errInvalidInput
		}
		if it.Quantity > p.Stock {
			return types.Order{}, errNotEnough
		}
	}

	order := types.Order{
		ID:        s.id(),
		Status:    types.OrderCreated,
		CreatedAt: s.now().UTC().Truncate(time.Second),
		UserEmail: a.user.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Comment:   req.Comment,
	}
	total := decimal.Zero
	for _, it := range req.Items {
		p := s.products[it.ProductID]
		p.Stock -= it.Quantity
		s.products[p.ID] = p
		order.Items = append(order.Items, types.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			Price:       p.Price,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	order.TotalAmount = total
	s.orders[order.ID] = order
	delete(s.carts, a.user.Email)
	return order, nil
}

func (s *state) listOrders(email string) []types.Order {
	out := []types.Order{}
	for _, o := range s.orders {
		if email == "" || o.UserEmail == email {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// =============================================================================
// WISHLIST
// =============================================================================

func (s *state) wishlistProducts(email string) []types.Product {
	out := []types.Product{}
	for _, id := range s.wishlists[email] {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *state) inWishlist(email string, productID int64) bool {
	for _, id := range s.wishlists[email] {
		if id == productID {
			return true
		}
	}
	return false
}
