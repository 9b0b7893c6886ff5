package cart

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"petshop/internal/api"
	"petshop/internal/notify"
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

type token struct{ v string }

func (t *token) Token() string { return t.v }

// setup starts a backend, logs the seed user in and returns a reconciler
// wired to it.
func setup(t *testing.T, cfg shopserver.Config, strict bool) (*shopserver.Server, *Reconciler, *notify.Recorder, *token) {
	t.Helper()
	srv, err := shopserver.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)

	tok := &token{}
	client := api.NewClient(ts.URL+"/api", 5*time.Second, tok)
	auth, err := client.Login(context.Background(), types.Credentials{
		Email:    shopserver.SeedUserEmail,
		Password: shopserver.SeedUserPassword,
	})
	require.NoError(t, err)
	tok.v = auth.Token

	rec := &notify.Recorder{}
	return srv, New(client, rec, Options{StrictOrdering: strict}), rec, tok
}

func TestAddRefetchesWhenBodyIsEmpty(t *testing.T) {
	srv, r, rec, _ := setup(t, shopserver.DefaultConfig(), true)
	ctx := context.Background()

	require.NoError(t, r.AddItem(ctx, 1, 2))
	c := r.Cart()
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(900).Equal(c.TotalPrice))
	assert.Equal(t, 1, srv.Requests(http.MethodGet, "/api/cart"), "empty body triggers exactly one refetch")

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "Added to cart", last.Message)
	assert.False(t, last.IsError)
	assert.True(t, r.Loaded())
	assert.False(t, r.Pending())
}

func TestAddAdoptsReturnedCart(t *testing.T) {
	cfg := shopserver.DefaultConfig()
	cfg.CartBodies = true
	srv, r, _, _ := setup(t, cfg, true)

	require.NoError(t, r.AddItem(context.Background(), 3, 1))
	assert.Len(t, r.Cart().Items, 1)
	assert.Zero(t, srv.Requests(http.MethodGet, "/api/cart"))
}

func TestTotalIsSumOfLines(t *testing.T) {
	_, r, _, _ := setup(t, shopserver.DefaultConfig(), true)
	ctx := context.Background()

	require.NoError(t, r.AddItem(ctx, 1, 2))
	require.NoError(t, r.AddItem(ctx, 2, 1))
	require.NoError(t, r.Increment(ctx, 2))

	c := r.Cart()
	sum := decimal.Zero
	for _, l := range c.Items {
		sum = sum.Add(l.PricePerUnit.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	assert.True(t, sum.Equal(c.TotalPrice), "total %s != sum %s", c.TotalPrice, sum)
	assert.True(t, decimal.RequireFromString("2541").Equal(c.TotalPrice))
}

func TestDecrementAtOneSendsNothing(t *testing.T) {
	srv, r, rec, _ := setup(t, shopserver.DefaultConfig(), true)
	ctx := context.Background()
	require.NoError(t, r.AddItem(ctx, 5, 1))
	rec.Reset()

	before := srv.TotalRequests()
	require.NoError(t, r.Decrement(ctx, 5))
	assert.Equal(t, before, srv.TotalRequests())
	assert.Empty(t, rec.All())

	line, ok := r.Cart().Line(5)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
}

func TestDecrementLowersQuantity(t *testing.T) {
	_, r, rec, _ := setup(t, shopserver.DefaultConfig(), true)
	ctx := context.Background()
	require.NoError(t, r.AddItem(ctx, 5, 3))

	require.NoError(t, r.Decrement(ctx, 5))
	line, _ := r.Cart().Line(5)
	assert.Equal(t, 2, line.Quantity)
	last, _ := rec.Last()
	assert.Equal(t, "Quantity updated", last.Message)
}

func TestFailedMutationKeepsViewAndNotifiesOnce(t *testing.T) {
	srv, r, rec, _ := setup(t, shopserver.DefaultConfig(), true)
	ctx := context.Background()
	require.NoError(t, r.AddItem(ctx, 1, 2))
	before := r.Cart()
	rec.Reset()

	srv.FailNext(http.MethodPut, "/api/cart", http.StatusInternalServerError, `{"message":"db down"}`)
	err := r.UpdateQuantity(ctx, 1, 5)
	require.Error(t, err)
	var se *api.StatusError
	assert.True(t, errors.As(err, &se))

	assert.Equal(t, before, r.Cart())
	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Failed to update quantity", errs[0].Message)
	assert.Len(t, rec.All(), 1)
}

func TestServerRejectionKeepsView(t *testing.T) {
	_, r, rec, _ := setup(t, shopserver.DefaultConfig(), true)
	ctx := context.Background()
	require.NoError(t, r.AddItem(ctx, 4, 1))
	rec.Reset()

	// Product 4 has only 5 in stock.
	require.Error(t, r.UpdateQuantity(ctx, 4, 50))
	line, _ := r.Cart().Line(4)
	assert.Equal(t, 1, line.Quantity)
	assert.Len(t, rec.Errors(), 1)
}

func TestRemoveItem(t *testing.T) {
	_, r, rec, _ := setup(t, shopserver.DefaultConfig(), true)
	ctx := context.Background()
	require.NoError(t, r.AddItem(ctx, 1, 1))
	require.NoError(t, r.AddItem(ctx, 3, 1))

	require.NoError(t, r.RemoveItem(ctx, 1))
	c := r.Cart()
	require.Len(t, c.Items, 1)
	assert.EqualValues(t, 3, c.Items[0].ProductID)
	last, _ := rec.Last()
	assert.Equal(t, "Item removed from cart", last.Message)
}

func TestNoTokenSendsNothing(t *testing.T) {
	srv, r, rec, tok := setup(t, shopserver.DefaultConfig(), true)
	tok.v = ""
	before := srv.TotalRequests()

	err := r.AddItem(context.Background(), 1, 1)
	assert.ErrorIs(t, err, api.ErrLoginRequired)
	assert.ErrorIs(t, r.Load(context.Background()), api.ErrLoginRequired)
	assert.Equal(t, before, srv.TotalRequests())
	assert.Len(t, rec.Errors(), 1)
}

func TestIncrementUnknownLine(t *testing.T) {
	_, r, _, _ := setup(t, shopserver.DefaultConfig(), true)
	assert.ErrorIs(t, r.Increment(context.Background(), 42), api.ErrNotFound)
}

func TestLoadFailureNotifies(t *testing.T) {
	srv, r, rec, _ := setup(t, shopserver.DefaultConfig(), true)
	srv.FailNext(http.MethodGet, "/api/cart", http.StatusBadGateway, "<html>bad gateway</html>")

	require.Error(t, r.Load(context.Background()))
	errs := rec.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "Failed to load cart", errs[0].Message)
	assert.False(t, r.Loaded())
}

// gatedBackend blocks Cart until released and answers mutations with a
// body, so a slow load can finish after a newer mutation.
type gatedBackend struct {
	mu    sync.Mutex
	gate  chan struct{}
	loads int
	stale types.Cart
	fresh types.Cart
}

func (b *gatedBackend) HasToken() bool { return true }

func (b *gatedBackend) Cart(ctx context.Context) (types.Cart, error) {
	b.mu.Lock()
	b.loads++
	b.mu.Unlock()
	<-b.gate
	return b.stale, nil
}

func (b *gatedBackend) Loads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

func (b *gatedBackend) AddToCart(ctx context.Context, productID int64, quantity int) (*types.Cart, error) {
	c := b.fresh
	return &c, nil
}

func (b *gatedBackend) UpdateCartQuantity(ctx context.Context, productID int64, quantity int) (*types.Cart, error) {
	c := b.fresh
	return &c, nil
}

func (b *gatedBackend) RemoveFromCart(ctx context.Context, productID int64) (*types.Cart, error) {
	c := b.fresh
	return &c, nil
}

func raceLoadAgainstAdd(t *testing.T, strict bool) types.Cart {
	t.Helper()
	b := &gatedBackend{
		gate: make(chan struct{}),
		stale: types.Cart{Items: []types.CartLine{
			{ProductID: 1, Quantity: 1, PricePerUnit: decimal.NewFromInt(450)},
		}},
		fresh: types.Cart{Items: []types.CartLine{
			{ProductID: 1, Quantity: 2, PricePerUnit: decimal.NewFromInt(450)},
		}},
	}
	r := New(b, &notify.Recorder{}, Options{StrictOrdering: strict})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- r.Load(ctx) }()
	require.Eventually(t, func() bool { return b.Loads() == 1 }, time.Second, time.Millisecond)
	assert.True(t, r.Pending())

	require.NoError(t, r.AddItem(ctx, 1, 1))
	close(b.gate)
	require.NoError(t, <-done)
	return r.Cart()
}

func TestStaleLoadDiscardedWhenStrict(t *testing.T) {
	c := raceLoadAgainstAdd(t, true)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestStaleLoadWinsWhenLenient(t *testing.T) {
	c := raceLoadAgainstAdd(t, false)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestSubscribeAndReset(t *testing.T) {
	_, r, _, _ := setup(t, shopserver.DefaultConfig(), true)
	ch := r.Subscribe()
	require.NoError(t, r.AddItem(context.Background(), 2, 1))

	select {
	case c := <-ch:
		assert.Len(t, c.Items, 1)
	default:
		t.Fatal("no cart published")
	}

	r.Reset()
	assert.True(t, r.Cart().IsEmpty())
	assert.False(t, r.Loaded())
}
