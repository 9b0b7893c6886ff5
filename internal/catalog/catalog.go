// Package catalog resolves product list queries to backend endpoints and
// keeps the displayed product list. Search text is debounced; category
// changes load immediately. Responses are sequenced so a slow, superseded
// request cannot overwrite a newer result (when strict ordering is on).
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"petshop/internal/api"
	"petshop/internal/logging"
	"petshop/internal/sequence"
	"petshop/internal/types"

	"golang.org/x/sync/errgroup"
)

// All is the synthetic category meaning "no category filter".
const All int64 = 0

// AllCategory is prepended to the category list.
var AllCategory = types.Category{ID: All, Name: "All products"}

// LoadFailedMessage is shown when a product list cannot be loaded.
const LoadFailedMessage = "Failed to load products"

// Query selects which products to show.
type Query struct {
	CategoryID int64
	Search     string
}

// Resolve maps a query to its endpoint. Non-blank search text wins over the
// category; the two are never combined.
func Resolve(q Query) api.ProductsRequest {
	if text := strings.TrimSpace(q.Search); text != "" {
		return api.ProductsRequest{Path: "/products/search", Query: url.Values{"name": {text}}}
	}
	if q.CategoryID == All {
		return api.ProductsRequest{Path: "/products"}
	}
	return api.ProductsRequest{Path: "/products/category/" + types.FormatID(q.CategoryID)}
}

// Fetcher is the subset of the API client the catalog needs.
type Fetcher interface {
	Categories(ctx context.Context) ([]types.Category, error)
	Products(ctx context.Context, req api.ProductsRequest) ([]types.Product, error)
	Product(ctx context.Context, id int64) (types.Product, error)
}

// State is the displayed product list.
type State struct {
	Query    Query
	Products []types.Product
	Loading  bool
	Err      error
	// Message is the user-facing error text; empty on success.
	Message string
	Seq     uint64
}

// Options configures a Catalog.
type Options struct {
	Debounce       time.Duration
	StrictOrdering bool
}

// Catalog owns the product list state.
type Catalog struct {
	fetcher   Fetcher
	debouncer *Debouncer
	seq       *sequence.Guard

	mu         sync.Mutex
	state      State
	query      Query
	categories []types.Category
	listeners  []chan State
}

// New creates a Catalog.
func New(fetcher Fetcher, opts Options) *Catalog {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	return &Catalog{
		fetcher:   fetcher,
		debouncer: NewDebouncer(opts.Debounce),
		seq:       sequence.NewGuard(opts.StrictOrdering),
	}
}

// State returns the current product list state.
func (c *Catalog) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Query returns the query the user has entered, which may not be loaded yet.
func (c *Catalog) Query() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Subscribe receives the state after every applied load.
func (c *Catalog) Subscribe() <-chan State {
	ch := make(chan State, 8)
	c.mu.Lock()
	c.listeners = append(c.listeners, ch)
	c.mu.Unlock()
	return ch
}

// Load fetches q now and applies the result unless a newer one already won.
func (c *Catalog) Load(ctx context.Context, q Query) State {
	req := Resolve(q)
	seq := c.seq.Issue()

	c.mu.Lock()
	c.query = q
	c.state.Loading = true
	c.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryCatalog, "Load "+req.String())
	products, err := c.fetcher.Products(ctx, req)
	timer.StopWithThreshold(time.Second)

	next := State{Query: q, Seq: seq}
	if err != nil {
		logging.CatalogWarn("Load %s failed: %v", req, err)
		next.Err = err
		next.Message = LoadFailedMessage
		next.Products = nil
	} else {
		next.Products = products
	}
	return c.apply(next)
}

// apply installs next if the sequence guard accepts it.
func (c *Catalog) apply(next State) State {
	if !c.seq.Accept(next.Seq) {
		logging.CatalogDebug("Discarded stale response #%d (applied #%d)", next.Seq, c.seq.Applied())
		logging.Audit(logging.AuditEvent{
			Type:    logging.AuditStaleDiscarded,
			Target:  "catalog",
			Message: fmt.Sprintf("response #%d superseded", next.Seq),
		})
		return c.State()
	}

	c.mu.Lock()
	next.Loading = c.seq.Latest() != next.Seq
	c.state = next
	listeners := append([]chan State(nil), c.listeners...)
	c.mu.Unlock()

	logging.Catalog("Applied #%d: %d products for %s", next.Seq, len(next.Products), Resolve(next.Query))
	for _, ch := range listeners {
		select {
		case ch <- next:
		default:
		}
	}
	return next
}

// SetSearch records new search text and schedules a debounced load. Only
// the last text entered within the debounce window is fetched.
func (c *Catalog) SetSearch(ctx context.Context, text string) {
	c.mu.Lock()
	c.query.Search = text
	q := c.query
	c.mu.Unlock()

	logging.CatalogDebug("Search text %q, debouncing %v", text, c.debouncer.Duration())
	c.debouncer.Debounce(func() {
		c.Load(ctx, q)
	})
}

// SetCategory switches category and loads immediately with the current text.
func (c *Catalog) SetCategory(ctx context.Context, id int64) State {
	c.mu.Lock()
	c.query.CategoryID = id
	q := c.query
	c.mu.Unlock()

	var st State
	c.debouncer.Immediate(func() { st = c.Load(ctx, q) })
	return st
}

// SearchPending reports whether a debounced search is waiting to fire.
func (c *Catalog) SearchPending() bool {
	return c.debouncer.Pending()
}

// Categories loads the category list, prefixed with AllCategory.
func (c *Catalog) Categories(ctx context.Context) ([]types.Category, error) {
	cats, err := c.fetcher.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	out := make([]types.Category, 0, len(cats)+1)
	out = append(out, AllCategory)
	out = append(out, cats...)

	c.mu.Lock()
	c.categories = out
	c.mu.Unlock()
	return out, nil
}

// CachedCategories returns the last loaded category list.
func (c *Catalog) CachedCategories() []types.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Category(nil), c.categories...)
}

// Bootstrap loads categories and the initial product list concurrently.
// A category failure is returned; a product failure is reported in State.
func (c *Catalog) Bootstrap(ctx context.Context, q Query) ([]types.Category, State, error) {
	var (
		cats []types.Category
		st   State
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cats, err = c.Categories(gctx)
		return err
	})
	g.Go(func() error {
		st = c.Load(ctx, q)
		return nil
	})
	err := g.Wait()
	return cats, st, err
}

// Product loads one product's details.
func (c *Catalog) Product(ctx context.Context, id int64) (types.Product, error) {
	p, err := c.fetcher.Product(ctx, id)
	if err != nil {
		return types.Product{}, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return p, nil
}

// Close cancels any pending debounced search.
func (c *Catalog) Close() {
	c.debouncer.Cancel()
}
