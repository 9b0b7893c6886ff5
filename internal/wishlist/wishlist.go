// Package wishlist manages the user's saved products. Like the cart, the
// server owns the list; the local copy is refreshed after each change.
package wishlist

import (
	"context"
	"fmt"
	"sync"

	"petshop/internal/api"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/types"
)

// Backend is the subset of the API client the wishlist needs.
type Backend interface {
	HasToken() bool
	Wishlist(ctx context.Context) ([]types.Product, error)
	WishlistContains(ctx context.Context, productID int64) (bool, error)
	AddToWishlist(ctx context.Context, productID int64) error
	RemoveFromWishlist(ctx context.Context, productID int64) error
	ClearWishlist(ctx context.Context) error
}

// Service wraps the wishlist endpoints with notifications.
type Service struct {
	backend  Backend
	notifier notify.Notifier

	mu    sync.Mutex
	items []types.Product
}

// New creates a Service.
func New(backend Backend, notifier notify.Notifier) *Service {
	return &Service{backend: backend, notifier: notifier}
}

// Items returns the last loaded list.
func (s *Service) Items() []types.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Product(nil), s.items...)
}

// List loads the wishlist.
func (s *Service) List(ctx context.Context) ([]types.Product, error) {
	if !s.backend.HasToken() {
		return nil, api.ErrLoginRequired
	}
	items, err := s.backend.Wishlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return append([]types.Product(nil), items...), nil
}

// Contains asks the server whether productID is saved.
func (s *Service) Contains(ctx context.Context, productID int64) (bool, error) {
	if !s.backend.HasToken() {
		return false, nil
	}
	ok, err := s.backend.WishlistContains(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("check wishlist: %w", err)
	}
	return ok, nil
}

// Add saves productID.
func (s *Service) Add(ctx context.Context, productID int64) error {
	return s.change(ctx, "Added to wishlist", "Failed to add to wishlist", func() error {
		return s.backend.AddToWishlist(ctx, productID)
	})
}

// Remove drops productID.
func (s *Service) Remove(ctx context.Context, productID int64) error {
	return s.change(ctx, "Removed from wishlist", "Failed to remove from wishlist", func() error {
		return s.backend.RemoveFromWishlist(ctx, productID)
	})
}

// Clear empties the wishlist.
func (s *Service) Clear(ctx context.Context) error {
	return s.change(ctx, "Wishlist cleared", "Failed to clear wishlist", func() error {
		return s.backend.ClearWishlist(ctx)
	})
}

// Toggle checks membership, then adds or removes. It returns whether the
// product is saved afterwards.
func (s *Service) Toggle(ctx context.Context, productID int64) (bool, error) {
	if !s.backend.HasToken() {
		s.notifier.Show("Log in to manage your wishlist", true)
		return false, api.ErrLoginRequired
	}
	in, err := s.Contains(ctx, productID)
	if err != nil {
		s.notifier.Show(api.UserMessage(err), true)
		return false, err
	}
	if in {
		return false, s.Remove(ctx, productID)
	}
	return true, s.Add(ctx, productID)
}

func (s *Service) change(ctx context.Context, okMsg, failMsg string, call func() error) error {
	if !s.backend.HasToken() {
		s.notifier.Show("Log in to manage your wishlist", true)
		return api.ErrLoginRequired
	}
	if err := call(); err != nil {
		logging.CatalogWarn("Wishlist change failed: %v", err)
		s.notifier.Show(failMsg, true)
		return fmt.Errorf("wishlist: %w", err)
	}
	if _, err := s.List(ctx); err != nil {
		logging.CatalogWarn("Wishlist refresh failed: %v", err)
	}
	s.notifier.Show(okMsg, false)
	return nil
}
