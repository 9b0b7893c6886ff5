// Package cart keeps the client's view of the server-owned cart in step with
// the backend. Mutations are never applied optimistically: the view changes
// only when the server confirms, either by adopting a cart returned in the
// response body or by re-fetching the whole cart.
package cart

import (
	"context"
	"fmt"
	"sync"

	"petshop/internal/api"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/sequence"
	"petshop/internal/types"
)

// Backend is the subset of the API client the reconciler needs.
type Backend interface {
	HasToken() bool
	Cart(ctx context.Context) (types.Cart, error)
	AddToCart(ctx context.Context, productID int64, quantity int) (*types.Cart, error)
	UpdateCartQuantity(ctx context.Context, productID int64, quantity int) (*types.Cart, error)
	RemoveFromCart(ctx context.Context, productID int64) (*types.Cart, error)
}

// Options configures a Reconciler.
type Options struct {
	StrictOrdering bool
}

// op describes one kind of mutation for logging and notifications.
type op struct {
	name       string
	success    string
	failure    string
	needsLogin string
}

var (
	opAdd    = op{"add", "Added to cart", "Failed to add to cart", "Log in to add items to the cart"}
	opUpdate = op{"update", "Quantity updated", "Failed to update quantity", "Log in to change the quantity"}
	opRemove = op{"remove", "Item removed from cart", "Failed to remove item", "Log in to remove items"}
)

// Reconciler owns the displayed cart.
type Reconciler struct {
	backend  Backend
	notifier notify.Notifier
	seq      *sequence.Guard

	mu        sync.Mutex
	cart      types.Cart
	loaded    bool
	inflight  int
	listeners []chan types.Cart
}

// New creates a Reconciler with an empty, unloaded cart.
func New(backend Backend, notifier notify.Notifier, opts Options) *Reconciler {
	return &Reconciler{
		backend:  backend,
		notifier: notifier,
		seq:      sequence.NewGuard(opts.StrictOrdering),
		cart:     types.Cart{Items: []types.CartLine{}},
	}
}

// Cart returns the current view. Totals are always derived from the lines.
func (r *Reconciler) Cart() types.Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cart.Normalized()
}

// Loaded reports whether a server cart has been applied at least once.
func (r *Reconciler) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Pending reports whether any cart request is in flight.
func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight > 0
}

// Subscribe receives the cart after every applied change.
func (r *Reconciler) Subscribe() <-chan types.Cart {
	ch := make(chan types.Cart, 8)
	r.mu.Lock()
	r.listeners = append(r.listeners, ch)
	r.mu.Unlock()
	return ch
}

// Load fetches the cart. Without a token it returns api.ErrLoginRequired
// and sends nothing.
func (r *Reconciler) Load(ctx context.Context) error {
	if !r.backend.HasToken() {
		return api.ErrLoginRequired
	}
	r.begin()
	defer r.end()

	if err := r.refetch(ctx); err != nil {
		r.notifier.Show("Failed to load cart", true)
		return err
	}
	return nil
}

// AddItem adds quantity (at least 1) of a product.
func (r *Reconciler) AddItem(ctx context.Context, productID int64, quantity int) error {
	quantity = clamp(quantity)
	return r.mutate(ctx, opAdd, productID, func() (*types.Cart, error) {
		return r.backend.AddToCart(ctx, productID, quantity)
	})
}

// UpdateQuantity sets a line's quantity (at least 1).
func (r *Reconciler) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	quantity = clamp(quantity)
	return r.mutate(ctx, opUpdate, productID, func() (*types.Cart, error) {
		return r.backend.UpdateCartQuantity(ctx, productID, quantity)
	})
}

// Increment raises a line's quantity by one.
func (r *Reconciler) Increment(ctx context.Context, productID int64) error {
	line, ok := r.Cart().Line(productID)
	if !ok {
		return fmt.Errorf("product %d is not in the cart: %w", productID, api.ErrNotFound)
	}
	return r.UpdateQuantity(ctx, productID, line.Quantity+1)
}

// Decrement lowers a line's quantity by one. At quantity 1 it does nothing
// and sends no request; use RemoveItem to drop the line.
func (r *Reconciler) Decrement(ctx context.Context, productID int64) error {
	line, ok := r.Cart().Line(productID)
	if !ok {
		return fmt.Errorf("product %d is not in the cart: %w", productID, api.ErrNotFound)
	}
	if line.Quantity <= 1 {
		logging.CartDebug("Decrement of product %d at quantity %d ignored", productID, line.Quantity)
		return nil
	}
	return r.UpdateQuantity(ctx, productID, line.Quantity-1)
}

// RemoveItem drops a line.
func (r *Reconciler) RemoveItem(ctx context.Context, productID int64) error {
	return r.mutate(ctx, opRemove, productID, func() (*types.Cart, error) {
		return r.backend.RemoveFromCart(ctx, productID)
	})
}

// mutate sends one mutation and reconciles the result. On any failure the
// view is left as it was and exactly one error notification is raised.
func (r *Reconciler) mutate(ctx context.Context, o op, productID int64, call func() (*types.Cart, error)) error {
	if !r.backend.HasToken() {
		r.notifier.Show(o.needsLogin, true)
		return api.ErrLoginRequired
	}

	r.begin()
	defer r.end()

	seq := r.seq.Issue()
	logging.CartDebug("%s product=%d seq=%d", o.name, productID, seq)

	body, err := call()
	if err != nil {
		r.reject(o, productID, err)
		return fmt.Errorf("cart %s: %w", o.name, err)
	}

	if body != nil {
		r.apply(seq, *body)
	} else if err := r.refetch(ctx); err != nil {
		r.reject(o, productID, err)
		return fmt.Errorf("cart %s: refresh: %w", o.name, err)
	}

	logging.Audit(logging.AuditEvent{
		Type:    logging.AuditCartMutation,
		Target:  "product/" + types.FormatID(productID),
		Success: true,
		Message: o.name,
	})
	r.notifier.Show(o.success, false)
	return nil
}

func (r *Reconciler) reject(o op, productID int64, err error) {
	logging.CartWarn("%s product=%d failed: %v", o.name, productID, err)
	logging.Audit(logging.AuditEvent{
		Type:    logging.AuditCartRejected,
		Target:  "product/" + types.FormatID(productID),
		Message: err.Error(),
	})
	r.notifier.Show(o.failure, true)
}

// refetch loads the full cart under a fresh sequence number.
func (r *Reconciler) refetch(ctx context.Context) error {
	seq := r.seq.Issue()
	c, err := r.backend.Cart(ctx)
	if err != nil {
		return err
	}
	r.apply(seq, c)
	return nil
}

func (r *Reconciler) apply(seq uint64, c types.Cart) {
	if !r.seq.Accept(seq) {
		logging.CartDebug("Discarded stale cart #%d (applied #%d)", seq, r.seq.Applied())
		logging.Audit(logging.AuditEvent{
			Type:    logging.AuditStaleDiscarded,
			Target:  "cart",
			Message: fmt.Sprintf("response #%d superseded", seq),
		})
		return
	}
	view := c.Normalized()
	if !view.TotalPrice.Equal(c.TotalPrice) {
		logging.CartWarn("Server total %s disagrees with items, using %s", c.TotalPrice, view.TotalPrice)
	}

	r.mu.Lock()
	r.cart = view
	r.loaded = true
	listeners := append([]chan types.Cart(nil), r.listeners...)
	r.mu.Unlock()

	logging.Cart("Applied cart #%d: %d lines total=%s", seq, len(view.Items), view.TotalPrice)
	for _, ch := range listeners {
		select {
		case ch <- view.Normalized():
		default:
		}
	}
}

// Reset forgets the local view, e.g. after logout.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	r.cart = types.Cart{Items: []types.CartLine{}}
	r.loaded = false
	r.mu.Unlock()
}

func (r *Reconciler) begin() {
	r.mu.Lock()
	r.inflight++
	r.mu.Unlock()
}

func (r *Reconciler) end() {
	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()
}

func clamp(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
