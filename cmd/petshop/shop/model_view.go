package shop

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"petshop/cmd/petshop/ui"
	"petshop/internal/api"
	"petshop/internal/routing"
	"petshop/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// View renders the storefront.
func (m Model) View() string {
	s := m.deps.Styles
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	sb.WriteString(s.Content.Render(m.renderPage()))
	sb.WriteString("\n")
	if m.toast != nil {
		sb.WriteString(s.Toast(m.toast.Message, m.toast.IsError))
		sb.WriteString("\n")
	}
	sb.WriteString(m.renderFooter())
	return sb.String()
}

func (m Model) renderHeader() string {
	s := m.deps.Styles
	title := s.Header.Render("🐾 Pet Shop")

	items := []struct {
		key   string
		route routing.Route
	}{
		{"1", routing.Products},
		{"2", routing.Cart},
		{"3", routing.OrderHistory},
		{"4", routing.Wishlist},
		{"5", routing.Profile},
	}
	if m.session.Role == types.RoleAdmin {
		items = append(items, struct {
			key   string
			route routing.Route
		}{"6", routing.Admin})
	}

	var nav []string
	for _, it := range items {
		label := it.key + " " + it.route.Title()
		if it.route == routing.Cart && len(m.cart.Items) > 0 {
			label += fmt.Sprintf(" (%d)", totalQuantity(m.cart))
		}
		if it.route == m.view.Location.Route {
			nav = append(nav, s.NavItem.Render(label))
		} else {
			nav = append(nav, s.Nav.Render(label))
		}
	}

	who := s.Muted.Render("guest · L login · R register")
	if m.session.Authenticated() {
		who = s.Badge.Render(roleLabel(m.session.Role)) + " " + s.Muted.Render("L logout")
	}
	spin := ""
	if m.busy() {
		spin = " " + m.spinner.View()
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, title, " ", strings.Join(nav, ""), "  ", who, spin)
}

func (m Model) renderFooter() string {
	s := m.deps.Styles
	var help string
	switch m.view.Location.Route {
	case routing.Home, routing.Products:
		help = "/ search · ←/→ category · ↑/↓ select · enter details · a add to cart"
	case routing.ProductDetails:
		help = "a add to cart · f wishlist · esc back"
	case routing.Cart:
		help = "+/- quantity · d remove · c checkout"
	case routing.Wishlist:
		help = "enter details · a add to cart · d remove · x clear"
	case routing.Admin:
		help = "p products · o orders · c categories"
	case routing.AdminProducts:
		help = "n new · e edit · d delete · ←/→ category"
	case routing.AdminOrders:
		help = "s next status · d delete"
	case routing.AdminCategories:
		help = "n new · d delete"
	default:
		help = "esc back"
	}
	if m.form != nil {
		help = ""
	}
	return s.Footer.Render(strings.TrimPrefix(help+" · q quit", " · "))
}

func (m Model) renderPage() string {
	s := m.deps.Styles
	if m.view.Decision == routing.Forbidden {
		return s.Title.Render("Access denied") + "\n" +
			s.Error.Render(m.view.Location.Route.Title()+" is only available to administrators.")
	}
	if m.form != nil {
		out := m.form.View(s)
		if m.view.Location.Route == routing.Checkout {
			out = m.renderCartSummary() + "\n\n" + out
		}
		if m.view.Requested != m.view.Location && m.view.Decision == routing.RedirectLogin {
			out = s.Warning.Render("Log in to open "+m.view.Requested.Route.Title()) + "\n\n" + out
		}
		return out
	}
	if m.err != nil {
		return s.Error.Render(api.UserMessage(m.err))
	}

	switch m.view.Location.Route {
	case routing.Home, routing.Products:
		return m.renderProducts()
	case routing.ProductDetails:
		return m.details.View()
	case routing.Cart:
		return m.renderCart()
	case routing.OrderHistory:
		return m.renderOrders()
	case routing.OrderDetails:
		return m.renderOrder()
	case routing.Wishlist:
		return m.renderWishlist()
	case routing.Admin:
		return m.renderDashboard()
	case routing.AdminProducts:
		return m.renderAdminProducts()
	case routing.AdminOrders:
		return m.renderAdminOrders()
	case routing.AdminCategories:
		return m.renderAdminCategories()
	}
	return ""
}

// renderRows renders lines with a cursor marker on the selected one.
func (m Model) renderRows(rows []string) string {
	s := m.deps.Styles
	var sb strings.Builder
	for i, r := range rows {
		if i == m.cursor {
			sb.WriteString(s.Selected.Render("› " + r))
		} else {
			sb.WriteString(s.Body.Render("  " + r))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderProducts() string {
	s := m.deps.Styles
	var sb strings.Builder
	sb.WriteString(m.search.View())
	sb.WriteString("\n")

	var cats []string
	for i, c := range m.categories {
		if i == m.catIndex {
			cats = append(cats, s.Selected.Render("["+c.Name+"]"))
		} else {
			cats = append(cats, s.Muted.Render(c.Name))
		}
	}
	sb.WriteString(strings.Join(cats, "  "))
	sb.WriteString("\n\n")

	st := m.products
	switch {
	case st.Message != "":
		sb.WriteString(s.Error.Render(st.Message))
	case len(st.Products) == 0 && st.Loading:
		sb.WriteString(s.Muted.Render("Loading…"))
	case len(st.Products) == 0:
		sb.WriteString(s.Muted.Render("No products found"))
	default:
		rows := make([]string, len(st.Products))
		for i, p := range st.Products {
			rows[i] = fmt.Sprintf("%-40s %14s", ui.Truncate(p.Name, 40), ui.Money(p.Price))
		}
		sb.WriteString(m.renderRows(rows))
	}
	return sb.String()
}

// renderDetails renders the selected product as markdown into the viewport.
func (m *Model) renderDetails() {
	p := m.product
	if p.ID == 0 {
		m.details.SetContent("")
		return
	}
	var md strings.Builder
	fmt.Fprintf(&md, "# %s\n\n**%s**\n\n", p.Name, ui.Money(p.Price))
	if p.Category != nil {
		fmt.Fprintf(&md, "Category: *%s*\n\n", p.Category.Name)
	}
	if p.Stock > 0 {
		fmt.Fprintf(&md, "In stock: %d\n\n", p.Stock)
	} else {
		md.WriteString("Out of stock\n\n")
	}
	if d := strings.TrimSpace(p.Description); d != "" {
		md.WriteString(d + "\n\n")
	}
	if m.inWishlist {
		md.WriteString("> ♥ In your wishlist\n")
	}

	style := "light"
	if m.deps.Styles.Theme.IsDark {
		style = "dark"
	}
	content := md.String()
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(20, m.details.Width-2)),
	)
	if err == nil {
		if out, err := r.Render(content); err == nil {
			content = out
		}
	}
	m.details.SetContent(content)
	m.details.GotoTop()
}

func (m Model) renderCartSummary() string {
	s := m.deps.Styles
	if m.cart.IsEmpty() {
		return s.Muted.Render("Your cart is empty")
	}
	return fmt.Sprintf("%d items · %s", totalQuantity(m.cart), s.Price.Render(ui.Money(m.cart.TotalPrice)))
}

func (m Model) renderCart() string {
	s := m.deps.Styles
	if m.cart.IsEmpty() {
		return s.Title.Render("Cart") + "\n" + s.Muted.Render("Your cart is empty")
	}
	rows := make([]string, len(m.cart.Items))
	for i, l := range m.cart.Items {
		rows[i] = fmt.Sprintf("%-32s %12s × %-3d %14s",
			ui.Truncate(l.ProductName, 32), ui.Money(l.PricePerUnit), l.Quantity, ui.Money(l.LineTotal()))
	}
	return s.Title.Render("Cart") + "\n" + m.renderRows(rows) + "\n" +
		"Total: " + s.Price.Render(ui.Money(m.cart.TotalPrice))
}

func (m Model) renderOrders() string {
	s := m.deps.Styles
	if len(m.orders) == 0 {
		return s.Title.Render("Orders") + "\n" + s.Muted.Render("No orders yet")
	}
	rows := make([]string, len(m.orders))
	for i, o := range m.orders {
		rows[i] = fmt.Sprintf("#%-6d %s  %-10s %14s",
			o.ID, o.CreatedAt.Local().Format("2006-01-02"), ui.StatusLabel(o.Status), ui.Money(o.TotalAmount))
	}
	return s.Title.Render("Orders") + "\n" + m.renderRows(rows)
}

func (m Model) renderOrder() string {
	s := m.deps.Styles
	o := m.order
	if o.ID == 0 {
		return s.Muted.Render("Loading…")
	}
	t := ui.NewTable(fmt.Sprintf("Order #%d · %s", o.ID, ui.StatusLabel(o.Status)), "Product", "Price", "Qty")
	for _, it := range o.Items {
		t.AddRow(ui.Truncate(it.ProductName, 40), ui.Money(it.Price), strconv.Itoa(it.Quantity))
	}
	var sb strings.Builder
	sb.WriteString(t.View(s))
	if o.Address != "" {
		sb.WriteString(s.Muted.Render("Address: ") + o.Address + "\n")
	}
	if o.Phone != "" {
		sb.WriteString(s.Muted.Render("Phone: ") + o.Phone + "\n")
	}
	sb.WriteString("Total: " + s.Price.Render(ui.Money(o.TotalAmount)))
	return sb.String()
}

func (m Model) renderWishlist() string {
	s := m.deps.Styles
	if len(m.wishlist) == 0 {
		return s.Title.Render("Wishlist") + "\n" + s.Muted.Render("Your wishlist is empty")
	}
	rows := make([]string, len(m.wishlist))
	for i, p := range m.wishlist {
		rows[i] = fmt.Sprintf("%-40s %14s", ui.Truncate(p.Name, 40), ui.Money(p.Price))
	}
	return s.Title.Render("Wishlist") + "\n" + m.renderRows(rows)
}

func (m Model) renderDashboard() string {
	s := m.deps.Styles
	d := m.dashboard
	var sb strings.Builder
	sb.WriteString(s.Title.Render("Dashboard"))
	sb.WriteString("\n")
	cards := []string{
		s.Card.Render(fmt.Sprintf("Products\n%d", d.Products)),
		s.Card.Render(fmt.Sprintf("Categories\n%d", d.Categories)),
		s.Card.Render(fmt.Sprintf("Orders\n%d", d.Orders)),
		s.Card.Render("Revenue\n" + ui.Money(d.Revenue)),
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	sb.WriteString("\n")

	statuses := make([]string, 0, len(d.ByStatus))
	for st := range d.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(&sb, "%-12s %d\n", ui.StatusLabel(types.OrderStatus(st)), d.ByStatus[types.OrderStatus(st)])
	}
	if len(d.LowStock) > 0 {
		sb.WriteString("\n" + s.Warning.Render("Low stock") + "\n")
		for _, p := range d.LowStock {
			fmt.Fprintf(&sb, "  %s (%d)\n", p.Name, p.Stock)
		}
	}
	return sb.String()
}

func (m Model) renderAdminProducts() string {
	s := m.deps.Styles
	filter := "All categories"
	for _, c := range m.adminCategories {
		if c.ID == m.adminFilter {
			filter = c.Name
		}
	}
	products := m.filteredAdminProducts()
	head := s.Title.Render("Products") + "\n" + s.Muted.Render(filter) + "\n"
	if len(products) == 0 {
		return head + s.Muted.Render("No products")
	}
	rows := make([]string, len(products))
	for i, p := range products {
		rows[i] = fmt.Sprintf("#%-4d %-32s %12s  stock %d", p.ID, ui.Truncate(p.Name, 32), ui.Money(p.Price), p.Stock)
	}
	return head + m.renderRows(rows)
}

func (m Model) renderAdminOrders() string {
	s := m.deps.Styles
	if len(m.adminOrders) == 0 {
		return s.Title.Render("All orders") + "\n" + s.Muted.Render("No orders yet")
	}
	rows := make([]string, len(m.adminOrders))
	for i, o := range m.adminOrders {
		rows[i] = fmt.Sprintf("#%-5d %-24s %-10s %14s",
			o.ID, ui.Truncate(o.UserEmail, 24), ui.StatusLabel(o.Status), ui.Money(o.TotalAmount))
	}
	return s.Title.Render("All orders") + "\n" + m.renderRows(rows)
}

func (m Model) renderAdminCategories() string {
	s := m.deps.Styles
	if len(m.adminCategories) == 0 {
		return s.Title.Render("Categories") + "\n" + s.Muted.Render("No categories")
	}
	rows := make([]string, len(m.adminCategories))
	for i, c := range m.adminCategories {
		rows[i] = fmt.Sprintf("#%-4d %s", c.ID, c.Name)
	}
	return s.Title.Render("Categories") + "\n" + m.renderRows(rows)
}

func totalQuantity(c types.Cart) int {
	n := 0
	for _, l := range c.Items {
		n += l.Quantity
	}
	return n
}

func roleLabel(r types.Role) string {
	if r == types.RoleNone {
		return "signed in"
	}
	return r.String()
}
