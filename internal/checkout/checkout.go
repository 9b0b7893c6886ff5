// Package checkout turns the confirmed cart into an order.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"petshop/internal/api"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/routing"
	"petshop/internal/types"
)

// Notification texts.
const (
	MsgNotLoggedIn = "You are not logged in"
	MsgEmptyCart   = "Add products to cart"
	MsgPlaced      = "Order placed!"
	MsgFailed      = "Failed to place order"
)

// Backend is the subset of the API client checkout needs.
type Backend interface {
	HasToken() bool
	PlaceOrder(ctx context.Context, req types.CreateOrderRequest) (types.Order, error)
	Order(ctx context.Context, id int64) (types.Order, error)
	OrderHistory(ctx context.Context) ([]types.Order, error)
}

// Scheduler performs delayed navigation. *routing.Navigator satisfies it.
type Scheduler interface {
	GoAfter(delay time.Duration, loc routing.Location)
}

// Outcome describes what a placement attempt decided.
type Outcome struct {
	Order types.Order
	// Decision is RedirectLogin when there was no session.
	Decision routing.Decision
	// Redirect is where the UI is sent after the delay, if anywhere.
	Redirect routing.Location
}

// Service places orders.
type Service struct {
	backend  Backend
	notifier notify.Notifier
	nav      Scheduler
	delay    time.Duration
}

// New creates a Service. redirectDelay is how long the success (or
// not-logged-in) notification stays before navigating.
func New(backend Backend, notifier notify.Notifier, nav Scheduler, redirectDelay time.Duration) *Service {
	return &Service{backend: backend, notifier: notifier, nav: nav, delay: redirectDelay}
}

// Validate checks everything that can be checked without the network.
func Validate(cart types.Cart, ship types.ShippingDetails) error {
	if cart.IsEmpty() {
		return &api.ValidationError{Field: "cart", Message: MsgEmptyCart, Err: api.ErrEmptyCart}
	}
	if strings.TrimSpace(ship.Phone) == "" {
		return &api.ValidationError{Field: "phone", Message: "Enter a phone number"}
	}
	if strings.TrimSpace(ship.Address) == "" {
		return &api.ValidationError{Field: "address", Message: "Enter a delivery address"}
	}
	return nil
}

// Request builds the order body from the cart lines.
func Request(cart types.Cart, ship types.ShippingDetails) types.CreateOrderRequest {
	req := types.CreateOrderRequest{
		Items:   make([]types.CartItemRequest, 0, len(cart.Items)),
		Phone:   strings.TrimSpace(ship.Phone),
		Address: strings.TrimSpace(ship.Address),
		Comment: strings.TrimSpace(ship.Comment),
	}
	for _, l := range cart.Items {
		req.Items = append(req.Items, types.CartItemRequest{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return req
}

// Place submits one order. Nothing is sent unless a token is present and
// Validate passes. There is no retry.
func (s *Service) Place(ctx context.Context, cart types.Cart, ship types.ShippingDetails) (Outcome, error) {
	if !s.backend.HasToken() {
		s.notifier.Show(MsgNotLoggedIn, true)
		login := routing.At(routing.Login)
		s.nav.GoAfter(s.delay, login)
		return Outcome{Decision: routing.RedirectLogin, Redirect: login}, api.ErrLoginRequired
	}
	if err := Validate(cart, ship); err != nil {
		s.notifier.Show(api.UserMessage(err), true)
		return Outcome{Decision: routing.Allow}, err
	}

	req := Request(cart, ship)
	timer := logging.StartTimer(logging.CategoryCheckout, "PlaceOrder")
	order, err := s.backend.PlaceOrder(ctx, req)
	timer.Stop()
	if err != nil {
		logging.CheckoutWarn("Order placement failed: %v", err)
		logging.Audit(logging.AuditEvent{
			Type:    logging.AuditOrderFailed,
			Target:  "orders",
			Message: err.Error(),
			Fields:  map[string]interface{}{"lines": len(req.Items)},
		})
		s.notifier.Show(failureMessage(err), true)
		return Outcome{Decision: routing.Allow}, fmt.Errorf("place order: %w", err)
	}

	logging.Checkout("Order %d placed: %d lines total=%s", order.ID, len(order.Items), order.TotalAmount)
	logging.Audit(logging.AuditEvent{
		Type:    logging.AuditOrderPlaced,
		Target:  "order/" + types.FormatID(order.ID),
		Success: true,
		Fields:  map[string]interface{}{"total": order.TotalAmount.String()},
	})
	s.notifier.Show(MsgPlaced, false)
	dest := routing.OrderAt(order.ID)
	s.nav.GoAfter(s.delay, dest)
	return Outcome{Order: order, Decision: routing.Allow, Redirect: dest}, nil
}

// failureMessage prefers the server's own text, as the checkout form did.
func failureMessage(err error) string {
	msg := api.UserMessage(err)
	if msg == "" {
		return MsgFailed
	}
	return msg
}

// History lists the user's past orders, newest first.
func (s *Service) History(ctx context.Context) ([]types.Order, error) {
	if !s.backend.HasToken() {
		return nil, api.ErrLoginRequired
	}
	orders, err := s.backend.OrderHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load order history: %w", err)
	}
	return orders, nil
}

// Get loads one order.
func (s *Service) Get(ctx context.Context, id int64) (types.Order, error) {
	if !s.backend.HasToken() {
		return types.Order{}, api.ErrLoginRequired
	}
	o, err := s.backend.Order(ctx, id)
	if err != nil {
		return types.Order{}, fmt.Errorf("load order %d: %w", id, err)
	}
	return o, nil
}
