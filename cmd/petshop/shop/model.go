package shop

import (
	"context"
	"sync/atomic"

	"petshop/internal/catalog"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/routing"
	"petshop/internal/types"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// New builds the storefront model at the navigator's current view.
func New(deps Deps) Model {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}

	search := textinput.New()
	search.Placeholder = "Search products"
	search.Prompt = "/ "
	search.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Styles.Spinner

	m := Model{
		deps:     deps,
		ctx:      ctx,
		width:    80,
		height:   24,
		view:     deps.Nav.Current(),
		session:  deps.Sessions.Get(),
		spinner:  sp,
		search:   search,
		details:  viewport.New(76, 16),
		cart:     deps.Cart.Cart(),
		inflight: new(atomic.Int32),
		subs: subscriptions{
			notices: deps.Notices.Subscribe(),
			views:   deps.Nav.Subscribe(),
			catalog: deps.Catalog.Subscribe(),
			cart:    deps.Cart.Subscribe(),
			session: deps.Sessions.Subscribe(),
		},
	}
	m.prepare(m.view)
	return m
}

// Run starts the storefront on the alternate screen and blocks until quit.
func Run(deps Deps) error {
	m := New(deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	return err
}

// Init arms the subscriptions, starts the spinner and loads the first page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.listenNotices(),
		m.listenViews(),
		m.listenCatalog(),
		m.listenCart(),
		m.listenSession(),
		m.spinner.Tick,
		m.track(m.load(m.view)),
	)
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// listen waits for one value on ch. The handler re-arms it after each message.
func listen[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil // Channel closed
		}
		return wrap(v)
	}
}

func (m Model) listenNotices() tea.Cmd {
	return listen(m.subs.notices, func(e notify.Event) tea.Msg { return noticeMsg(e) })
}

func (m Model) listenViews() tea.Cmd {
	return listen(m.subs.views, func(v routing.View) tea.Msg { return viewMsg(v) })
}

func (m Model) listenCatalog() tea.Cmd {
	return listen(m.subs.catalog, func(s catalog.State) tea.Msg { return catalogMsg(s) })
}

func (m Model) listenCart() tea.Cmd {
	return listen(m.subs.cart, func(c types.Cart) tea.Msg { return cartMsg(c) })
}

func (m Model) listenSession() tea.Cmd {
	return listen(m.subs.session, func(s types.Session) tea.Msg { return sessionMsg(s) })
}

// =============================================================================
// PAGE LOADING
// =============================================================================

// prepare resets page-local state when a view is entered.
func (m *Model) prepare(v routing.View) {
	m.cursor = 0
	m.err = nil
	m.form = nil
	if v.Decision == routing.Forbidden {
		return
	}
	switch v.Location.Route {
	case routing.Login:
		m.form = loginForm()
	case routing.Register:
		m.form = registerForm()
	case routing.Checkout:
		m.form = checkoutForm()
	case routing.Profile:
		m.form = profileForm(types.User{})
	}
}

// load returns the request that fills the page for v, or nil.
func (m Model) load(v routing.View) tea.Cmd {
	if v.Decision == routing.Forbidden {
		return nil
	}
	ctx, d := m.ctx, m.deps
	loc := v.Location

	switch loc.Route {
	case routing.Home, routing.Products:
		if len(m.categories) > 0 {
			return nil
		}
		q := d.Catalog.Query()
		return func() tea.Msg {
			cats, st, err := d.Catalog.Bootstrap(ctx, q)
			return bootMsg{categories: cats, state: st, err: err}
		}

	case routing.ProductDetails:
		id := loc.ID
		return func() tea.Msg {
			var msg productMsg
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				p, err := d.Catalog.Product(gctx, id)
				msg.product = p
				return err
			})
			g.Go(func() error {
				// Membership is advisory; a failed check leaves the flag off.
				in, err := d.Wishlist.Contains(gctx, id)
				if err == nil {
					msg.inWishlist = in
				}
				return nil
			})
			msg.err = g.Wait()
			return msg
		}

	case routing.Cart, routing.Checkout:
		return func() tea.Msg { return doneMsg{err: d.Cart.Load(ctx)} }

	case routing.OrderHistory:
		return func() tea.Msg {
			orders, err := d.Checkout.History(ctx)
			return ordersMsg{orders: orders, err: err}
		}

	case routing.OrderDetails:
		id := loc.ID
		return func() tea.Msg {
			o, err := d.Checkout.Get(ctx, id)
			return orderMsg{order: o, err: err}
		}

	case routing.Wishlist:
		return func() tea.Msg {
			items, err := d.Wishlist.List(ctx)
			return wishlistMsg{items: items, err: err}
		}

	case routing.Profile:
		return func() tea.Msg {
			u, err := d.Account.Profile(ctx)
			return profileMsg{user: u, err: err}
		}

	case routing.Admin:
		return func() tea.Msg {
			db, err := d.Admin.Dashboard(ctx)
			return dashboardMsg{dashboard: db, err: err}
		}

	case routing.AdminProducts, routing.AdminCategories:
		return func() tea.Msg {
			var msg adminCatalogMsg
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				msg.products, err = d.Admin.Products(gctx)
				return err
			})
			g.Go(func() error {
				var err error
				msg.categories, err = d.Admin.Categories(gctx)
				return err
			})
			msg.err = g.Wait()
			return msg
		}

	case routing.AdminOrders:
		return func() tea.Msg {
			orders, err := d.Admin.Orders(ctx)
			return adminOrdersMsg{orders: orders, err: err}
		}
	}
	return nil
}

// enter switches to v and starts its load.
func (m Model) enter(v routing.View) (Model, tea.Cmd) {
	m.view = v
	m.prepare(v)
	logging.UIDebug("Enter %s (%s)", v.Location, v.Decision)
	cmd := m.track(m.load(v))
	return m, cmd
}

// navigate moves to loc through the navigator.
func (m Model) navigate(loc routing.Location) (Model, tea.Cmd) {
	return m.enter(m.deps.Nav.Go(loc))
}
