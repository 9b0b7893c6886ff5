package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"petshop/internal/api"
	"petshop/internal/notify"
	"petshop/internal/routing"
	"petshop/internal/session"
	"petshop/internal/shopserver"
	"petshop/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fixture struct {
	srv     *shopserver.Server
	client  *api.Client
	session *session.Manager
	nav     *routing.Navigator
	rec     *notify.Recorder
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv, err := shopserver.New(shopserver.DefaultConfig())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)

	sm, err := session.NewManager(session.NewMemoryBackend())
	require.NoError(t, err)
	client := api.NewClient(ts.URL+"/api", 5*time.Second, sm)
	nav := routing.NewNavigator(sm)
	t.Cleanup(nav.Cancel)
	rec := &notify.Recorder{}

	return &fixture{
		srv:     srv,
		client:  client,
		session: sm,
		nav:     nav,
		rec:     rec,
		svc:     New(client, rec, nav, 10*time.Millisecond),
	}
}

func (f *fixture) login(t *testing.T, email, password string) {
	t.Helper()
	auth, err := f.client.Login(context.Background(), types.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	require.NoError(t, f.session.Set(auth.Token, types.ParseRole(auth.Role)))
}

func (f *fixture) cartWith(t *testing.T, productID int64, qty int) types.Cart {
	t.Helper()
	ctx := context.Background()
	_, err := f.client.AddToCart(ctx, productID, qty)
	require.NoError(t, err)
	c, err := f.client.Cart(ctx)
	require.NoError(t, err)
	return c
}

var ship = types.ShippingDetails{Phone: "+7 900 000-00-00", Address: "Moscow, Lenina 1"}

func TestPlaceOrderRedirectsToDetails(t *testing.T) {
	f := newFixture(t)
	f.login(t, shopserver.SeedUserEmail, shopserver.SeedUserPassword)
	cart := f.cartWith(t, 2, 2)

	out, err := f.svc.Place(context.Background(), cart, ship)
	require.NoError(t, err)
	assert.NotZero(t, out.Order.ID)
	assert.True(t, decimal.RequireFromString("1641").Equal(out.Order.TotalAmount))
	assert.Equal(t, routing.OrderAt(out.Order.ID), out.Redirect)

	last, _ := f.rec.Last()
	assert.Equal(t, MsgPlaced, last.Message)
	require.Eventually(t, func() bool {
		return f.nav.Current().Location == routing.OrderAt(out.Order.ID)
	}, time.Second, 5*time.Millisecond)

	// The server empties the cart once the order exists.
	after, err := f.client.Cart(context.Background())
	require.NoError(t, err)
	assert.True(t, after.IsEmpty())
}

func TestEmptyCartSendsNothing(t *testing.T) {
	f := newFixture(t)
	f.login(t, shopserver.SeedUserEmail, shopserver.SeedUserPassword)
	before := f.srv.TotalRequests()

	_, err := f.svc.Place(context.Background(), types.Cart{}, ship)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrEmptyCart)
	var ve *api.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "cart", ve.Field)
	assert.Equal(t, before, f.srv.TotalRequests())

	errs := f.rec.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, MsgEmptyCart, errs[0].Message)
	assert.False(t, f.nav.Pending())
}

func TestShippingFieldsRequired(t *testing.T) {
	f := newFixture(t)
	f.login(t, shopserver.SeedUserEmail, shopserver.SeedUserPassword)
	cart := f.cartWith(t, 1, 1)
	before := f.srv.TotalRequests()

	_, err := f.svc.Place(context.Background(), cart, types.ShippingDetails{Address: "x"})
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "phone", ve.Field)

	_, err = f.svc.Place(context.Background(), cart, types.ShippingDetails{Phone: "1", Address: "  "})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "address", ve.Field)
	assert.Equal(t, before, f.srv.TotalRequests())
}

func TestNoSessionRedirectsToLogin(t *testing.T) {
	f := newFixture(t)
	cart := types.Cart{Items: []types.CartLine{{ProductID: 1, Quantity: 1}}}

	out, err := f.svc.Place(context.Background(), cart, ship)
	assert.ErrorIs(t, err, api.ErrLoginRequired)
	assert.Equal(t, routing.RedirectLogin, out.Decision)
	assert.Zero(t, f.srv.TotalRequests())

	require.Eventually(t, func() bool {
		return f.nav.Current().Location.Route == routing.Login
	}, time.Second, 5*time.Millisecond)
}

func TestFailureIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.login(t, shopserver.SeedUserEmail, shopserver.SeedUserPassword)
	cart := f.cartWith(t, 1, 1)
	f.srv.FailNext(http.MethodPost, "/api/orders", http.StatusConflict, "Not enough stock")

	_, err := f.svc.Place(context.Background(), cart, ship)
	require.Error(t, err)
	assert.Equal(t, 1, f.srv.Requests(http.MethodPost, "/api/orders"))

	errs := f.rec.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Not enough stock", errs[0].Message)
	assert.False(t, f.nav.Pending())
}

func TestAdminCannotPlaceOrders(t *testing.T) {
	f := newFixture(t)
	f.login(t, shopserver.SeedAdminEmail, shopserver.SeedAdminPassword)
	cart := types.Cart{Items: []types.CartLine{{ProductID: 1, Quantity: 1}}}

	_, err := f.svc.Place(context.Background(), cart, ship)
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

func TestHistoryAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.History(ctx)
	assert.ErrorIs(t, err, api.ErrLoginRequired)

	f.login(t, shopserver.SeedUserEmail, shopserver.SeedUserPassword)
	out, err := f.svc.Place(ctx, f.cartWith(t, 3, 1), ship)
	require.NoError(t, err)

	orders, err := f.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, out.Order.ID, orders[0].ID)

	got, err := f.svc.Get(ctx, out.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderCreated, got.Status)
	assert.Equal(t, ship.Address, got.Address)

	_, err = f.svc.Get(ctx, 99999)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestRequestCopiesLines(t *testing.T) {
	cart := types.Cart{Items: []types.CartLine{{ProductID: 1, Quantity: 2}, {ProductID: 4, Quantity: 1}}}
	req := Request(cart, types.ShippingDetails{Phone: " 1 ", Address: "a", Comment: " ring twice "})
	assert.Equal(t, []types.CartItemRequest{{ProductID: 1, Quantity: 2}, {ProductID: 4, Quantity: 1}}, req.Items)
	assert.Equal(t, "1", req.Phone)
	assert.Equal(t, "ring twice", req.Comment)
}
