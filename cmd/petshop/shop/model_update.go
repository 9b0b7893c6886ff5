package shop

import (
	"petshop/internal/account"
	"petshop/internal/api"
	"petshop/internal/catalog"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/routing"
	"petshop/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if err := resultErr(msg); api.IsSessionRejected(err) {
		return m.sessionRejected(err)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.details.Width = max(20, msg.Width-4)
		m.details.Height = max(5, msg.Height-8)
		m.renderDetails()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	// Subscriptions
	case noticeMsg:
		n := msg.Notification
		switch msg.Kind {
		case notify.EventShown:
			m.toast = &n
		case notify.EventDismissed:
			if m.toast != nil && m.toast.ID == n.ID {
				m.toast = nil
			}
		}
		return m, m.listenNotices()

	case viewMsg:
		v := routing.View(msg)
		if v == m.view {
			return m, m.listenViews()
		}
		next, cmd := m.enter(v)
		return next, tea.Batch(cmd, next.listenViews())

	case catalogMsg:
		m.products = catalog.State(msg)
		m.cursor = clampCursor(m.cursor, len(m.products.Products))
		return m, m.listenCatalog()

	case cartMsg:
		m.cart = types.Cart(msg)
		if m.view.Location.Route == routing.Cart {
			m.cursor = clampCursor(m.cursor, len(m.cart.Items))
		}
		return m, m.listenCart()

	case sessionMsg:
		m.session = types.Session(msg)
		if !m.session.Authenticated() {
			m.deps.Cart.Reset()
			m.cart = types.Cart{}
		}
		next, cmd := m, tea.Cmd(nil)
		if v := m.deps.Nav.Revalidate(); v != m.view {
			next, cmd = m.enter(v)
		}
		return next, tea.Batch(cmd, next.listenSession())

	// Request results
	case bootMsg:
		m.err = msg.err
		if msg.categories != nil {
			m.categories = msg.categories
		}
		m.products = msg.state
		m.cursor = clampCursor(m.cursor, len(m.products.Products))
		return m, nil

	case productMsg:
		m.err = msg.err
		if msg.err == nil {
			m.product = msg.product
			m.inWishlist = msg.inWishlist
			m.renderDetails()
		}
		return m, nil

	case wishlistToggledMsg:
		if msg.err == nil && msg.productID == m.product.ID {
			m.inWishlist = msg.saved
			m.renderDetails()
		}
		return m, nil

	case ordersMsg:
		m.err = msg.err
		m.orders = msg.orders
		m.cursor = clampCursor(m.cursor, len(m.orders))
		return m, nil

	case orderMsg:
		m.err = msg.err
		m.order = msg.order
		return m, nil

	case wishlistMsg:
		m.err = msg.err
		m.wishlist = msg.items
		m.cursor = clampCursor(m.cursor, len(m.wishlist))
		return m, nil

	case profileMsg:
		m.err = msg.err
		if msg.err == nil && m.form != nil && m.form.kind == formProfile {
			m.form = profileForm(msg.user)
		}
		return m, nil

	case dashboardMsg:
		m.err = msg.err
		m.dashboard = msg.dashboard
		return m, nil

	case adminCatalogMsg:
		m.err = msg.err
		m.adminProducts = msg.products
		m.adminCategories = msg.categories
		m.cursor = clampCursor(m.cursor, m.adminListLen())
		return m, nil

	case adminOrdersMsg:
		m.err = msg.err
		m.adminOrders = msg.orders
		m.cursor = clampCursor(m.cursor, len(m.adminOrders))
		return m, nil

	case adminChangedMsg:
		if msg.err != nil {
			if m.form != nil {
				m.form.errors = account.FieldErrors(msg.err)
			}
			return m, nil
		}
		m.form = nil
		return m.reload()

	case doneMsg:
		if m.form != nil {
			m.form.errors = account.FieldErrors(msg.err)
		}
		return m, nil
	}
	return m, nil
}

// resultErr extracts the error carried by a request result.
func resultErr(msg tea.Msg) error {
	switch msg := msg.(type) {
	case doneMsg:
		return msg.err
	case wishlistToggledMsg:
		return msg.err
	case ordersMsg:
		return msg.err
	case orderMsg:
		return msg.err
	case wishlistMsg:
		return msg.err
	case profileMsg:
		return msg.err
	case dashboardMsg:
		return msg.err
	case adminCatalogMsg:
		return msg.err
	case adminOrdersMsg:
		return msg.err
	case adminChangedMsg:
		return msg.err
	}
	return nil
}

// sessionRejected drops a token the backend refused and sends the user to
// log in, keeping the page they asked for so login can return there.
func (m Model) sessionRejected(err error) (tea.Model, tea.Cmd) {
	logging.SessionWarn("Backend rejected the session: %v", err)
	if cerr := m.deps.Sessions.Clear(); cerr != nil {
		logging.SessionWarn("Failed to clear rejected session: %v", cerr)
	}
	m.deps.Cart.Reset()
	m.cart = types.Cart{}
	m.session = m.deps.Sessions.Get()
	m.deps.Notices.Show(api.UserMessage(err), true)

	loc := m.view.Requested
	if routing.Guard(loc.Route, m.session) == routing.Allow {
		loc = routing.At(routing.Login)
	}
	return m.enter(m.deps.Nav.Go(loc))
}

// track counts cmd as in flight until it returns its message.
func (m Model) track(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	inflight := m.inflight
	inflight.Add(1)
	return func() tea.Msg {
		defer inflight.Add(-1)
		return cmd()
	}
}

// busy reports whether any request is in flight.
func (m Model) busy() bool {
	return m.inflight.Load() > 0
}

// reload runs the current page's load again.
func (m Model) reload() (Model, tea.Cmd) {
	cmd := m.track(m.load(m.view))
	return m, cmd
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

func (m Model) adminListLen() int {
	if m.view.Location.Route == routing.AdminCategories {
		return len(m.adminCategories)
	}
	return len(m.filteredAdminProducts())
}
