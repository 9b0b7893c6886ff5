package shop

import (
	"petshop/internal/admin"
	"petshop/internal/logging"
	"petshop/internal/routing"
	"petshop/internal/types"

	tea "github.com/charmbracelet/bubbletea"
)

// handleKey routes a key press: ctrl+c always quits, an active form or the
// search box captures input, then page keys, then global navigation.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.deps.Nav.Cancel()
		return m, tea.Quit
	}

	if m.form != nil {
		switch key {
		case "esc":
			if m.isAdminForm() {
				m.form = nil
				return m, nil
			}
			return m.enter(m.deps.Nav.Back())
		case "enter":
			cmd := m.submit()
			return m, m.track(cmd)
		}
		return m, m.form.Update(msg)
	}

	if m.searching {
		return m.handleSearchKey(msg)
	}

	if m.view.Decision == routing.Allow {
		if next, cmd, handled := m.handlePageKey(key); handled {
			return next, cmd
		}
	}
	return m.handleGlobalKey(key)
}

func (m Model) handleGlobalKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		m.deps.Nav.Cancel()
		return m, tea.Quit
	case "esc", "backspace":
		return m.enter(m.deps.Nav.Back())
	case "1":
		return m.navigate(routing.At(routing.Products))
	case "2":
		return m.navigate(routing.At(routing.Cart))
	case "3":
		return m.navigate(routing.At(routing.OrderHistory))
	case "4":
		return m.navigate(routing.At(routing.Wishlist))
	case "5":
		return m.navigate(routing.At(routing.Profile))
	case "6":
		return m.navigate(routing.At(routing.Admin))
	case "L":
		if m.session.Authenticated() {
			ctx, acc := m.ctx, m.deps.Account
			return m, m.track(func() tea.Msg { return doneMsg{err: acc.Logout(ctx)} })
		}
		return m.navigate(routing.At(routing.Login))
	case "R":
		return m.navigate(routing.At(routing.Register))
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if text := m.search.Value(); text != before {
		// Debounced; the result arrives as a catalogMsg.
		m.deps.Catalog.SetSearch(m.ctx, text)
	}
	return m, cmd
}

// handlePageKey handles keys specific to the current page.
func (m Model) handlePageKey(key string) (Model, tea.Cmd, bool) {
	switch m.view.Location.Route {
	case routing.Home, routing.Products:
		return m.productsKey(key)
	case routing.ProductDetails:
		return m.detailsKey(key)
	case routing.Cart:
		return m.cartKey(key)
	case routing.OrderHistory:
		return m.listKey(key, len(m.orders), func(i int) (Model, tea.Cmd) {
			return m.navigate(routing.OrderAt(m.orders[i].ID))
		})
	case routing.Wishlist:
		return m.wishlistKey(key)
	case routing.Admin:
		switch key {
		case "p":
			next, cmd := m.navigate(routing.At(routing.AdminProducts))
			return next, cmd, true
		case "o":
			next, cmd := m.navigate(routing.At(routing.AdminOrders))
			return next, cmd, true
		case "c":
			next, cmd := m.navigate(routing.At(routing.AdminCategories))
			return next, cmd, true
		}
	case routing.AdminProducts:
		return m.adminProductsKey(key)
	case routing.AdminOrders:
		return m.adminOrdersKey(key)
	case routing.AdminCategories:
		return m.adminCategoriesKey(key)
	}
	return m, nil, false
}

// listKey moves the cursor over n rows and opens a row on enter.
func (m Model) listKey(key string, n int, open func(i int) (Model, tea.Cmd)) (Model, tea.Cmd, bool) {
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil, true
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
		return m, nil, true
	case "enter":
		if n == 0 || open == nil {
			return m, nil, true
		}
		next, cmd := open(m.cursor)
		return next, cmd, true
	}
	return m, nil, false
}

func (m Model) productsKey(key string) (Model, tea.Cmd, bool) {
	products := m.products.Products
	switch key {
	case "/":
		m.searching = true
		return m, m.search.Focus(), true
	case "left", "right":
		if len(m.categories) == 0 {
			return m, nil, true
		}
		step := 1
		if key == "left" {
			step = -1
		}
		n := len(m.categories)
		m.catIndex = ((m.catIndex+step)%n + n) % n
		id := m.categories[m.catIndex].ID
		ctx, c := m.ctx, m.deps.Catalog
		return m, m.track(func() tea.Msg {
			c.SetCategory(ctx, id)
			return doneMsg{}
		}), true
	case "a", "+":
		if len(products) == 0 {
			return m, nil, true
		}
		return m, m.addToCart(products[m.cursor].ID), true
	}
	return m.listKey(key, len(products), func(i int) (Model, tea.Cmd) {
		return m.navigate(routing.ProductAt(products[i].ID))
	})
}

func (m Model) detailsKey(key string) (Model, tea.Cmd, bool) {
	if m.product.ID == 0 {
		return m, nil, false
	}
	switch key {
	case "a", "+":
		return m, m.addToCart(m.product.ID), true
	case "f":
		ctx, w, id := m.ctx, m.deps.Wishlist, m.product.ID
		return m, m.track(func() tea.Msg {
			saved, err := w.Toggle(ctx, id)
			return wishlistToggledMsg{productID: id, saved: saved, err: err}
		}), true
	case "up", "k":
		m.details.SetYOffset(m.details.YOffset - 1)
		return m, nil, true
	case "down", "j":
		m.details.SetYOffset(m.details.YOffset + 1)
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) addToCart(productID int64) tea.Cmd {
	ctx, c := m.ctx, m.deps.Cart
	return m.track(func() tea.Msg {
		return doneMsg{err: c.AddItem(ctx, productID, 1)}
	})
}

func (m Model) cartKey(key string) (Model, tea.Cmd, bool) {
	items := m.cart.Items
	ctx, c := m.ctx, m.deps.Cart
	selected := func() (int64, bool) {
		if len(items) == 0 {
			return 0, false
		}
		return items[clampCursor(m.cursor, len(items))].ProductID, true
	}

	switch key {
	case "+", "=":
		if id, ok := selected(); ok {
			return m, m.track(func() tea.Msg { return doneMsg{err: c.Increment(ctx, id)} }), true
		}
		return m, nil, true
	case "-":
		if id, ok := selected(); ok {
			return m, m.track(func() tea.Msg { return doneMsg{err: c.Decrement(ctx, id)} }), true
		}
		return m, nil, true
	case "d", "x":
		if id, ok := selected(); ok {
			return m, m.track(func() tea.Msg { return doneMsg{err: c.RemoveItem(ctx, id)} }), true
		}
		return m, nil, true
	case "c", "enter":
		next, cmd := m.navigate(routing.At(routing.Checkout))
		return next, cmd, true
	}
	return m.listKey(key, len(items), nil)
}

func (m Model) wishlistKey(key string) (Model, tea.Cmd, bool) {
	items := m.wishlist
	ctx, w := m.ctx, m.deps.Wishlist
	switch key {
	case "d":
		if len(items) == 0 {
			return m, nil, true
		}
		id := items[m.cursor].ID
		return m, m.track(func() tea.Msg {
			err := w.Remove(ctx, id)
			return wishlistMsg{items: w.Items(), err: err}
		}), true
	case "x":
		return m, m.track(func() tea.Msg {
			err := w.Clear(ctx)
			return wishlistMsg{items: w.Items(), err: err}
		}), true
	case "a", "+":
		if len(items) == 0 {
			return m, nil, true
		}
		return m, m.addToCart(items[m.cursor].ID), true
	}
	return m.listKey(key, len(items), func(i int) (Model, tea.Cmd) {
		return m.navigate(routing.ProductAt(items[i].ID))
	})
}

func (m Model) filteredAdminProducts() []types.Product {
	return admin.FilterProducts(m.adminProducts, "", m.adminFilter)
}

func (m Model) adminProductsKey(key string) (Model, tea.Cmd, bool) {
	products := m.filteredAdminProducts()
	ctx, a := m.ctx, m.deps.Admin
	switch key {
	case "n":
		m.adminEditing = 0
		m.form = productForm(types.Product{})
		return m, nil, true
	case "e", "enter":
		if len(products) == 0 {
			return m, nil, true
		}
		p := products[m.cursor]
		m.adminEditing = p.ID
		m.form = productForm(p)
		return m, nil, true
	case "d":
		if len(products) == 0 {
			return m, nil, true
		}
		id := products[m.cursor].ID
		return m, m.track(func() tea.Msg { return adminChangedMsg{err: a.DeleteProduct(ctx, id)} }), true
	case "left", "right":
		ids := []int64{0}
		for _, c := range m.adminCategories {
			ids = append(ids, c.ID)
		}
		i := 0
		for j, id := range ids {
			if id == m.adminFilter {
				i = j
			}
		}
		if key == "left" {
			i = (i - 1 + len(ids)) % len(ids)
		} else {
			i = (i + 1) % len(ids)
		}
		m.adminFilter = ids[i]
		m.cursor = 0
		return m, nil, true
	}
	return m.listKey(key, len(products), nil)
}

func (m Model) adminOrdersKey(key string) (Model, tea.Cmd, bool) {
	orders := m.adminOrders
	ctx, a := m.ctx, m.deps.Admin
	switch key {
	case "s":
		if len(orders) == 0 {
			return m, nil, true
		}
		o := orders[m.cursor]
		next := nextStatus(o.Status)
		return m, m.track(func() tea.Msg {
			_, err := a.SetOrderStatus(ctx, o.ID, string(next))
			return adminChangedMsg{err: err}
		}), true
	case "d":
		if len(orders) == 0 {
			return m, nil, true
		}
		id := orders[m.cursor].ID
		return m, m.track(func() tea.Msg { return adminChangedMsg{err: a.DeleteOrder(ctx, id)} }), true
	}
	return m.listKey(key, len(orders), nil)
}

// nextStatus cycles through the order statuses in declaration order.
func nextStatus(s types.OrderStatus) types.OrderStatus {
	all := types.OrderStatuses
	for i, st := range all {
		if st == s {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

func (m Model) adminCategoriesKey(key string) (Model, tea.Cmd, bool) {
	cats := m.adminCategories
	ctx, a := m.ctx, m.deps.Admin
	switch key {
	case "n":
		m.form = categoryForm()
		return m, nil, true
	case "d":
		if len(cats) == 0 {
			return m, nil, true
		}
		id := cats[m.cursor].ID
		return m, m.track(func() tea.Msg { return adminChangedMsg{err: a.DeleteCategory(ctx, id)} }), true
	}
	return m.listKey(key, len(cats), nil)
}

func (m Model) isAdminForm() bool {
	return m.form != nil && (m.form.kind == formProduct || m.form.kind == formCategory)
}

// submit returns the request for the active form.
func (m *Model) submit() tea.Cmd {
	f, ctx, d := m.form, m.ctx, m.deps
	f.errors = nil

	switch f.kind {
	case formLogin:
		creds := types.Credentials{Email: f.Value("email"), Password: f.Value("password")}
		return func() tea.Msg {
			_, err := d.Account.Login(ctx, creds)
			return doneMsg{err: err}
		}

	case formRegister:
		reg := types.Registration{Name: f.Value("name"), Email: f.Value("email"), Password: f.Value("password")}
		return func() tea.Msg {
			_, err := d.Account.Register(ctx, reg)
			return doneMsg{err: err}
		}

	case formCheckout:
		ship := types.ShippingDetails{Phone: f.Value("phone"), Address: f.Value("address"), Comment: f.Value("comment")}
		return func() tea.Msg {
			_, err := d.Checkout.Place(ctx, d.Cart.Cart(), ship)
			if err == nil {
				// The backend empties the cart once the order exists.
				if lerr := d.Cart.Load(ctx); lerr != nil {
					logging.CartWarn("Cart refresh after order failed: %v", lerr)
				}
			}
			return doneMsg{err: err}
		}

	case formProfile:
		update := types.ProfileUpdate{
			FullName: f.Value("fullName"),
			Email:    f.Value("email"),
			Address:  f.Value("address"),
			Phone:    f.Value("phone"),
		}
		return func() tea.Msg { return doneMsg{err: d.Account.UpdateProfile(ctx, update)} }

	case formProduct:
		id, in := m.adminEditing, f.productInput()
		return func() tea.Msg {
			_, err := d.Admin.SaveProduct(ctx, id, in)
			return adminChangedMsg{err: err}
		}

	case formCategory:
		name := f.Value("name")
		return func() tea.Msg {
			_, err := d.Admin.CreateCategory(ctx, name)
			return adminChangedMsg{err: err}
		}
	}
	return nil
}
