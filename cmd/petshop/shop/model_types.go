// Package shop implements the interactive terminal storefront.
//
// The model never blocks on the backend: every request runs as a tea.Cmd and
// reports back with a message. Long-lived state (session, location, product
// list, cart, toast) lives in the internal services and reaches the model
// through their subscription channels.
package shop

import (
	"context"
	"sync/atomic"

	"petshop/cmd/petshop/ui"
	"petshop/internal/account"
	"petshop/internal/admin"
	"petshop/internal/cart"
	"petshop/internal/catalog"
	"petshop/internal/checkout"
	"petshop/internal/notify"
	"petshop/internal/routing"
	"petshop/internal/session"
	"petshop/internal/types"
	"petshop/internal/wishlist"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
)

// Deps are the services the storefront drives. All of them must share the
// same notifier (Notices) and navigator.
type Deps struct {
	Context  context.Context
	Sessions *session.Manager
	Nav      *routing.Navigator
	Notices  *notify.Center
	Catalog  *catalog.Catalog
	Cart     *cart.Reconciler
	Checkout *checkout.Service
	Account  *account.Service
	Wishlist *wishlist.Service
	Admin    *admin.Service
	Styles   ui.Styles
}

// subscriptions are the service channels the model listens on. Each is
// re-armed after every message it delivers.
type subscriptions struct {
	notices <-chan notify.Event
	views   <-chan routing.View
	catalog <-chan catalog.State
	cart    <-chan types.Cart
	session <-chan types.Session
}

// Model is the bubbletea model.
type Model struct {
	deps Deps
	ctx  context.Context
	subs subscriptions

	width  int
	height int

	view    routing.View
	session types.Session
	toast   *notify.Notification
	spinner spinner.Model
	err     error
	// inflight is shared by every copy of the model.
	inflight *atomic.Int32

	// Products page
	search     textinput.Model
	searching  bool
	categories []types.Category
	catIndex   int
	products   catalog.State
	cursor     int

	// Product details
	product    types.Product
	inWishlist bool
	details    viewport.Model

	// Cart
	cart types.Cart

	// Lists
	orders    []types.Order
	order     types.Order
	wishlist  []types.Product
	dashboard admin.Dashboard

	// Admin
	adminProducts   []types.Product
	adminCategories []types.Category
	adminOrders     []types.Order
	adminEditing    int64
	adminFilter     int64

	// Active form (login, register, checkout, profile, admin edits)
	form *form
}

// =============================================================================
// MESSAGES
// =============================================================================

type (
	noticeMsg  notify.Event
	viewMsg    routing.View
	catalogMsg catalog.State
	cartMsg    types.Cart
	sessionMsg types.Session

	// doneMsg ends a request whose result arrives through a subscription.
	doneMsg struct{ err error }

	bootMsg struct {
		categories []types.Category
		state      catalog.State
		err        error
	}
	productMsg struct {
		product    types.Product
		inWishlist bool
		err        error
	}
	wishlistToggledMsg struct {
		productID int64
		saved     bool
		err       error
	}
	ordersMsg struct {
		orders []types.Order
		err    error
	}
	orderMsg struct {
		order types.Order
		err   error
	}
	wishlistMsg struct {
		items []types.Product
		err   error
	}
	profileMsg struct {
		user types.User
		err  error
	}
	dashboardMsg struct {
		dashboard admin.Dashboard
		err       error
	}
	adminCatalogMsg struct {
		products   []types.Product
		categories []types.Category
		err        error
	}
	adminOrdersMsg struct {
		orders []types.Order
		err    error
	}
	// adminChangedMsg ends an admin mutation; the page reloads on success.
	adminChangedMsg struct{ err error }
)
