// Package shopserver is an in-memory implementation of the petshop backend
// REST surface. It backs the `petshop mock-server` command and the client
// packages' tests.
package shopserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"petshop/internal/logging"
	"petshop/internal/types"

	"github.com/gin-gonic/gin"
)

// Config tunes the mock backend.
type Config struct {
	// Secret signs JWTs.
	Secret []byte
	// TokenTTL bounds issued token lifetime.
	TokenTTL time.Duration
	// Seed loads the demo catalogue and the two seed accounts.
	Seed bool
	// CartBodies makes cart mutations answer with the updated cart instead
	// of an empty 200.
	CartBodies bool
}

// DefaultConfig returns a seeded backend with empty-body cart mutations.
func DefaultConfig() Config {
	return Config{
		Secret:   []byte("petshop-dev-secret"),
		TokenTTL: 24 * time.Hour,
		Seed:     true,
	}
}

type fault struct {
	status int
	body   string
}

// Server wraps the gin engine and its state.
type Server struct {
	engine *gin.Engine
	state  *state
	cfg    Config

	mu       sync.Mutex
	faults   map[string][]fault
	requests map[string]int
}

// New builds a server. It fails only if seeding fails.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		cfg.Secret = DefaultConfig().Secret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}

	r := gin.New()
	s := &Server{
		engine:   r,
		state:    newState(),
		cfg:      cfg,
		faults:   make(map[string][]fault),
		requests: make(map[string]int),
	}
	if cfg.Seed {
		if err := s.state.seed(); err != nil {
			return nil, err
		}
		logging.ServerDebug("Seeded %d products in %d categories", len(s.state.products), len(s.state.categories))
	}
	r.Use(gin.Recovery(), s.trace())
	s.registerRoutes()
	return s, nil
}

// Engine exposes the gin engine (serve with http.Server or httptest).
func (s *Server) Engine() *gin.Engine { return s.engine }

// FailNext makes the next request matching method and path (e.g.
// "/api/cart/add") answer with status and body instead of being handled.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.faults[key] = append(s.faults[key], fault{status: status, body: body})
}

// Requests counts requests received for method and path.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+path]
}

// TotalRequests counts every request received.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.requests {
		n += v
	}
	return n
}

// trace counts requests, applies injected faults and logs each call.
func (s *Server) trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		key := c.Request.Method + " " + c.Request.URL.Path

		s.mu.Lock()
		s.requests[key]++
		var f *fault
		if queued := s.faults[key]; len(queued) > 0 {
			f = &queued[0]
			s.faults[key] = queued[1:]
		}
		s.mu.Unlock()

		if f != nil {
			logging.Server("Injected fault %d for %s", f.status, key)
			c.Data(f.status, "text/plain; charset=utf-8", []byte(f.body))
			c.Abort()
			return
		}

		c.Next()
		logging.WithRequestID(logging.CategoryServer, c.GetHeader("X-Request-ID")).
			WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start).String()).
			Info("%s", key)
	}
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", s.login)
		auth.POST("/register", s.register)
		auth.POST("/logout", s.logout)
	}

	api.GET("/categories", s.listCategories)

	products := api.Group("/products")
	{
		products.GET("", s.listProducts)
		products.GET("/search", s.searchProducts)
		products.GET("/category/:id", s.productsByCategory)
		products.GET("/:id", s.getProduct)
	}

	cart := api.Group("/cart", s.requireRole())
	{
		cart.GET("", s.getCart)
		cart.POST("/add", s.addToCart)
		cart.PUT("", s.updateCart)
		cart.DELETE("/:id", s.removeFromCart)
		cart.DELETE("", s.clearCart)
	}

	orders := api.Group("/orders", s.requireRole(types.RoleUser))
	{
		orders.POST("", s.placeOrder)
		orders.GET("/history", s.orderHistory)
		orders.GET("/:id", s.getOrder)
	}

	wishlist := api.Group("/wishlist", s.requireRole())
	{
		wishlist.GET("", s.getWishlist)
		wishlist.GET("/check/:id", s.checkWishlist)
		wishlist.POST("/add/:id", s.addToWishlist)
		wishlist.DELETE("/remove/:id", s.removeFromWishlist)
		wishlist.DELETE("/clear", s.clearWishlist)
	}

	user := api.Group("/user", s.requireRole(types.RoleUser))
	{
		user.GET("/me", s.getMe)
		user.PUT("/me", s.updateMe)
	}

	admin := api.Group("/admin", s.requireRole(types.RoleAdmin))
	{
		admin.GET("/products", s.listProducts)
		admin.POST("/products", s.createProduct)
		admin.PUT("/products/:id", s.updateProduct)
		admin.DELETE("/products/:id", s.deleteProduct)

		admin.POST("/categories", s.createCategory)
		admin.DELETE("/categories/:id", s.deleteCategory)

		admin.GET("/orders", s.adminOrders)
		admin.GET("/orders/:id", s.adminOrder)
		admin.PUT("/orders/:id/status", s.updateOrderStatus)
		admin.DELETE("/orders/:id", s.deleteOrder)
	}
}

// =============================================================================
// AUTH
// =============================================================================

func (s *Server) login(c *gin.Context) {
	var req types.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	s.state.mu.Lock()
	a, ok := s.state.authenticate(req.Email, req.Password)
	s.state.mu.Unlock()
	if !ok {
		c.String(http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.respondToken(c, a)
}

func (s *Server) register(c *gin.Context) {
	var req types.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "name, email and a 6+ character password are required"})
		return
	}
	s.state.mu.Lock()
	a, err := s.state.addAccount(req.Name, req.Email, req.Password, types.RoleUser)
	s.state.mu.Unlock()
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"message": err.Error()})
		return
	}
	s.respondToken(c, a)
}

func (s *Server) respondToken(c *gin.Context, a *account) {
	token, err := s.issueToken(a)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	logging.Server("Issued token for %s role=%s", a.user.Email, a.role)
	c.JSON(http.StatusOK, types.AuthResponse{Token: token, Role: a.role.String()})
}

func (s *Server) logout(c *gin.Context) {
	c.String(http.StatusOK, "Logged out")
}

// =============================================================================
// CATALOG
// =============================================================================

func (s *Server) listCategories(c *gin.Context) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.listCategories())
}

func (s *Server) listProducts(c *gin.Context) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.listProducts(nil))
}

func (s *Server) searchProducts(c *gin.Context) {
	name := strings.ToLower(strings.TrimSpace(c.Query("name")))
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.listProducts(func(p types.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), name)
	}))
}

func (s *Server) productsByCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.listProducts(func(p types.Product) bool {
		return p.CategoryRef() == id
	}))
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	p, found := s.state.products[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// =============================================================================
// CART
// =============================================================================

func (s *Server) getCart(c *gin.Context) {
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.cartView(a.user.Email))
}

func (s *Server) addToCart(c *gin.Context) {
	var req types.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	s.mutateCart(c, func(email string) error {
		return s.state.addToCart(email, req.ProductID, req.Quantity)
	})
}

func (s *Server) updateCart(c *gin.Context) {
	var req types.CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	s.mutateCart(c, func(email string) error {
		return s.state.setCartQuantity(email, req.ProductID, req.Quantity)
	})
}

func (s *Server) removeFromCart(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mutateCart(c, func(email string) error {
		return s.state.removeFromCart(email, id)
	})
}

func (s *Server) clearCart(c *gin.Context) {
	s.mutateCart(c, func(email string) error {
		delete(s.state.carts, email)
		return nil
	})
}

// mutateCart runs fn under the state lock and answers with either an empty
// 200 or the updated cart, depending on Config.CartBodies.
func (s *Server) mutateCart(c *gin.Context, fn func(email string) error) {
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if err := fn(a.user.Email); err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"message": err.Error()})
		return
	}
	if s.cfg.CartBodies {
		c.JSON(http.StatusOK, s.state.cartView(a.user.Email))
		return
	}
	c.Status(http.StatusOK)
}

// =============================================================================
// ORDERS
// =============================================================================

func (s *Server) placeOrder(c *gin.Context) {
	var req types.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	order, err := s.state.placeOrder(a, req)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"message": err.Error()})
		return
	}
	logging.Server("Order %d placed by %s total=%s", order.ID, a.user.Email, order.TotalAmount)
	c.JSON(http.StatusOK, order)
}

func (s *Server) orderHistory(c *gin.Context) {
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.listOrders(a.user.Email))
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	o, found := s.state.orders[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
		return
	}
	if o.UserEmail != a.user.Email {
		c.JSON(http.StatusForbidden, gin.H{"message": errForbiddenItem.Error()})
		return
	}
	c.JSON(http.StatusOK, o)
}

// =============================================================================
// WISHLIST
// =============================================================================

func (s *Server) getWishlist(c *gin.Context) {
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.wishlistProducts(a.user.Email))
}

func (s *Server) checkWishlist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, types.WishlistCheck{InWishlist: s.state.inWishlist(a.user.Email, id)})
}

func (s *Server) addToWishlist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, found := s.state.products[id]; !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	if !s.state.inWishlist(a.user.Email, id) {
		s.state.wishlists[a.user.Email] = append(s.state.wishlists[a.user.Email], id)
	}
	c.Status(http.StatusOK)
}

func (s *Server) removeFromWishlist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	ids := s.state.wishlists[a.user.Email]
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	s.state.wishlists[a.user.Email] = out
	c.Status(http.StatusOK)
}

func (s *Server) clearWishlist(c *gin.Context) {
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	delete(s.state.wishlists, a.user.Email)
	c.Status(http.StatusOK)
}

// =============================================================================
// PROFILE
// =============================================================================

func (s *Server) getMe(c *gin.Context) {
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, a.user)
}

func (s *Server) updateMe(c *gin.Context) {
	var req types.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	a := currentAccount(c)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if req.FullName != "" {
		a.user.FullName = req.FullName
	}
	a.user.Address = req.Address
	a.user.Phone = req.Phone
	c.Status(http.StatusOK)
}

// =============================================================================
// ADMIN
// =============================================================================

func (s *Server) createProduct(c *gin.Context) {
	var req types.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	p, err := s.state.saveProduct(0, req)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req types.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json"})
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	p, err := s.state.saveProduct(id, req)
	if err != nil {
		c.JSON(mapErrorToStatus(err), gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, found := s.state.products[id]; !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	delete(s.state.products, id)
	for email := range s.state.carts {
		_ = s.state.removeFromCart(email, id)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) createCategory(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "category name required"})
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	cat := types.Category{ID: s.state.id(), Name: strings.TrimSpace(req.Name)}
	s.state.categories[cat.ID] = cat
	c.JSON(http.StatusCreated, cat)
}

func (s *Server) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, found := s.state.categories[id]; !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "category not found"})
		return
	}
	for _, p := range s.state.products {
		if p.CategoryRef() == id {
			c.JSON(http.StatusConflict, gin.H{"message": "category has products"})
			return
		}
	}
	delete(s.state.categories, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) adminOrders(c *gin.Context) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.listOrders(""))
}

func (s *Server) adminOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	o, found := s.state.orders[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	status, valid := types.ParseOrderStatus(c.Query("status"))
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid status"})
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	o, found := s.state.orders[id]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
		return
	}
	o.Status = status
	s.state.orders[id] = o
	c.Status(http.StatusOK)
}

func (s *Server) deleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, found := s.state.orders[id]; !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "order not found"})
		return
	}
	delete(s.state.orders, id)
	c.Status(http.StatusOK)
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid id"})
		return 0, false
	}
	return id, true
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, errInvalidInput), errors.Is(err, errNotEnough):
		return http.StatusBadRequest
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	case errors.Is(err, errEmailTaken):
		return http.StatusConflict
	case errors.Is(err, errForbiddenItem):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
