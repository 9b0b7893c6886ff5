package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"petshop/internal/api"
	"petshop/internal/shopserver"
	"petshop/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeFetcher records requests. A gate registered for a request blocks
// that request until the gate is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	gates   map[string]chan struct{}
	results map[string][]types.Product
	err     error
}

func newFake() *fakeFetcher {
	return &fakeFetcher{gates: map[string]chan struct{}{}, results: map[string][]types.Product{}}
}

func (f *fakeFetcher) Categories(ctx context.Context) ([]types.Category, error) {
	return []types.Category{{ID: 1, Name: "Корм"}, {ID: 3, Name: "Аксессуары"}}, nil
}

func (f *fakeFetcher) Products(ctx context.Context, req api.ProductsRequest) ([]types.Product, error) {
	key := req.String()
	f.mu.Lock()
	f.calls = append(f.calls, key)
	gate := f.gates[key]
	res, err := f.results[key], f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return res, err
}

func (f *fakeFetcher) Product(ctx context.Context, id int64) (types.Product, error) {
	return types.Product{ID: id}, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestResolveSearchOverridesCategory(t *testing.T) {
	req := Resolve(Query{CategoryID: All, Search: "Корм"})
	assert.Equal(t, "/products/search", req.Path)
	assert.Equal(t, "Корм", req.Query.Get("name"))

	req = Resolve(Query{CategoryID: 3, Search: "Корм"})
	assert.Equal(t, "/products/search", req.Path, "search wins even with a category selected")
}

func TestResolveCategory(t *testing.T) {
	req := Resolve(Query{CategoryID: 3})
	assert.Equal(t, "/products/category/3", req.Path)
	assert.Empty(t, req.Query)

	req = Resolve(Query{CategoryID: 3, Search: "   "})
	assert.Equal(t, "/products/category/3", req.Path, "blank search is ignored")

	assert.Equal(t, "/products", Resolve(Query{}).String())
}

func TestSearchIsDebounced(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFake()
	c := New(f, Options{Debounce: 40 * time.Millisecond, StrictOrdering: true})
	defer c.Close()
	ctx := context.Background()

	for _, text := range []string{"К", "Ко", "Кор", "Корм"} {
		c.SetSearch(ctx, text)
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, c.SearchPending())
	assert.Empty(t, f.Calls(), "nothing is fetched inside the window")

	require.Eventually(t, func() bool { return len(f.Calls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, Resolve(Query{Search: "Корм"}).String(), calls[0])
}

func TestCategoryCancelsPendingSearch(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFake()
	c := New(f, Options{Debounce: 40 * time.Millisecond})
	ctx := context.Background()

	c.SetSearch(ctx, "мяч")
	c.SetSearch(ctx, "")
	st := c.SetCategory(ctx, 3)
	assert.Equal(t, Query{CategoryID: 3}, st.Query)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"/products/category/3"}, f.Calls())
	c.Close()
}

func TestLoadFailureClearsProducts(t *testing.T) {
	f := newFake()
	f.results["/products"] = []types.Product{{ID: 1}}
	c := New(f, Options{})
	ctx := context.Background()

	st := c.Load(ctx, Query{})
	require.Len(t, st.Products, 1)

	f.err = &api.ContentTypeError{Path: "/products", ContentType: "text/html"}
	st = c.Load(ctx, Query{})
	assert.Nil(t, st.Products)
	assert.Equal(t, LoadFailedMessage, st.Message)
	var ce *api.ContentTypeError
	assert.True(t, errors.As(st.Err, &ce))
	assert.Equal(t, 2, len(f.Calls()), "no automatic retry")
}

// loadOutOfOrder issues A then B, lets B finish first, then A.
func loadOutOfOrder(t *testing.T, strict bool) State {
	t.Helper()
	f := newFake()
	a := Resolve(Query{CategoryID: 1}).String()
	b := Resolve(Query{CategoryID: 3}).String()
	f.results[a] = []types.Product{{ID: 1, Name: "A"}}
	f.results[b] = []types.Product{{ID: 3, Name: "B"}}
	gate := make(chan struct{})
	f.gates[a] = gate

	c := New(f, Options{StrictOrdering: strict})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Load(ctx, Query{CategoryID: 1})
	}()
	require.Eventually(t, func() bool { return len(f.Calls()) == 1 }, time.Second, time.Millisecond)

	c.Load(ctx, Query{CategoryID: 3})
	close(gate)
	wg.Wait()
	return c.State()
}

func TestStaleResponseDiscardedWhenStrict(t *testing.T) {
	st := loadOutOfOrder(t, true)
	require.Len(t, st.Products, 1)
	assert.Equal(t, "B", st.Products[0].Name)
	assert.EqualValues(t, 3, st.Query.CategoryID)
}

func TestStaleResponseWinsWhenLenient(t *testing.T) {
	// Without the guard the slow, older response overwrites the newer one.
	st := loadOutOfOrder(t, false)
	require.Len(t, st.Products, 1)
	assert.Equal(t, "A", st.Products[0].Name)
}

func TestCategoriesPrefixedWithAll(t *testing.T) {
	c := New(newFake(), Options{})
	cats, err := c.Categories(context.Background())
	require.NoError(t, err)

	want := []types.Category{AllCategory, {ID: 1, Name: "Корм"}, {ID: 3, Name: "Аксессуары"}}
	if diff := cmp.Diff(want, cats); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, want, c.CachedCategories())
}

func TestBootstrapAgainstBackend(t *testing.T) {
	srv, err := shopserver.New(shopserver.DefaultConfig())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Engine())
	defer ts.Close()

	client := api.NewClient(ts.URL+"/api", 5*time.Second, nil)
	c := New(client, Options{StrictOrdering: true})
	defer c.Close()

	cats, st, err := c.Bootstrap(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, cats, 4)
	assert.Len(t, st.Products, 6)
	assert.Empty(t, st.Message)

	st = c.Load(context.Background(), Query{Search: "Корм"})
	assert.Len(t, st.Products, 2)
	assert.Equal(t, 1, srv.Requests(http.MethodGet, "/api/products/search"))
	assert.Zero(t, srv.Requests(http.MethodGet, "/api/products/category/0"))

	srv.FailNext(http.MethodGet, "/api/products/category/3", http.StatusInternalServerError, "boom")
	st = c.Load(context.Background(), Query{CategoryID: 3})
	assert.Nil(t, st.Products)
	assert.Equal(t, LoadFailedMessage, st.Message)
}

func TestSubscribeReceivesAppliedState(t *testing.T) {
	f := newFake()
	f.results["/products"] = []types.Product{{ID: 9}}
	c := New(f, Options{})
	ch := c.Subscribe()

	c.Load(context.Background(), Query{})
	select {
	case st := <-ch:
		assert.Len(t, st.Products, 1)
		assert.False(t, st.Loading)
	default:
		t.Fatal("no state published")
	}
}

func TestDebouncerImmediateAndCancel(t *testing.T) {
	// Idle keep-alive connections from the backend test may still be closing.
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	var n atomic.Int32
	d := NewDebouncer(20 * time.Millisecond)
	d.Debounce(func() { n.Add(10) })
	d.Immediate(func() { n.Add(1) })
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, n.Load())

	d.Debounce(func() { n.Add(10) })
	d.Cancel()
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, n.Load())
	assert.False(t, d.Pending())
}
