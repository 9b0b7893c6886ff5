// Package admin implements the back-office screens: products, categories
// and orders. The routing guard keeps non-admins out; the backend remains
// the authority and answers 403 regardless.
package admin

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"petshop/internal/api"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/types"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// MaxDescriptionLength is the longest product description the form accepts.
const MaxDescriptionLength = 255

// Backend is the subset of the API client the admin screens need.
type Backend interface {
	Categories(ctx context.Context) ([]types.Category, error)
	AdminProducts(ctx context.Context) ([]types.Product, error)
	CreateProduct(ctx context.Context, in types.ProductInput) (types.Product, error)
	UpdateProduct(ctx context.Context, id int64, in types.ProductInput) (types.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	CreateCategory(ctx context.Context, name string) (types.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	AdminOrders(ctx context.Context) ([]types.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status types.OrderStatus) error
	DeleteOrder(ctx context.Context, id int64) error
}

// Service runs admin operations.
type Service struct {
	backend  Backend
	notifier notify.Notifier
}

// New creates a Service.
func New(backend Backend, notifier notify.Notifier) *Service {
	return &Service{backend: backend, notifier: notifier}
}

// ValidateProduct checks the product form before it is sent.
func ValidateProduct(in types.ProductInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return &api.ValidationError{Field: "name", Message: "Name is required"}
	case !in.Price.IsPositive():
		return &api.ValidationError{Field: "price", Message: "Price must be greater than zero"}
	case utf8.RuneCountInString(in.Description) > MaxDescriptionLength:
		return &api.ValidationError{
			Field:   "description",
			Message: fmt.Sprintf("Description must not exceed %d characters", MaxDescriptionLength),
		}
	case in.CategoryID <= 0:
		return &api.ValidationError{Field: "categoryId", Message: "Choose a category"}
	case in.Stock < 0:
		return &api.ValidationError{Field: "stock", Message: "Stock cannot be negative"}
	}
	return nil
}

// FilterProducts applies the admin list's local name and category filter.
// categoryID 0 matches every category.
func FilterProducts(products []types.Product, search string, categoryID int64) []types.Product {
	needle := strings.ToLower(strings.TrimSpace(search))
	var out []types.Product
	for _, p := range products {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if categoryID != 0 && p.CategoryRef() != categoryID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Products lists every product.
func (s *Service) Products(ctx context.Context) ([]types.Product, error) {
	ps, err := s.backend.AdminProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return ps, nil
}

// SaveProduct creates (id == 0) or updates a product.
func (s *Service) SaveProduct(ctx context.Context, id int64, in types.ProductInput) (types.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := ValidateProduct(in); err != nil {
		s.notifier.Show(api.UserMessage(err), true)
		return types.Product{}, err
	}

	var (
		p   types.Product
		err error
	)
	if id == 0 {
		p, err = s.backend.CreateProduct(ctx, in)
	} else {
		p, err = s.backend.UpdateProduct(ctx, id, in)
	}
	if err != nil {
		return types.Product{}, s.fail("save product", types.FormatID(id), err)
	}
	s.done("save product", "product/"+types.FormatID(p.ID), "Product saved")
	return p, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.backend.DeleteProduct(ctx, id); err != nil {
		return s.fail("delete product", "product/"+types.FormatID(id), err)
	}
	s.done("delete product", "product/"+types.FormatID(id), "Product deleted")
	return nil
}

// Categories lists categories.
func (s *Service) Categories(ctx context.Context) ([]types.Category, error) {
	cats, err := s.backend.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return cats, nil
}

// CreateCategory adds a category.
func (s *Service) CreateCategory(ctx context.Context, name string) (types.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		err := &api.ValidationError{Field: "name", Message: "Category name is required"}
		s.notifier.Show(err.Message, true)
		return types.Category{}, err
	}
	cat, err := s.backend.CreateCategory(ctx, name)
	if err != nil {
		return types.Category{}, s.fail("create category", name, err)
	}
	s.done("create category", "category/"+types.FormatID(cat.ID), "Category created")
	return cat, nil
}

// DeleteCategory removes a category. The backend refuses while products
// still reference it.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.backend.DeleteCategory(ctx, id); err != nil {
		return s.fail("delete category", "category/"+types.FormatID(id), err)
	}
	s.done("delete category", "category/"+types.FormatID(id), "Category deleted")
	return nil
}

// Orders lists every customer's orders.
func (s *Service) Orders(ctx context.Context) ([]types.Order, error) {
	orders, err := s.backend.AdminOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return orders, nil
}

// SetOrderStatus validates status against the closed set before sending.
func (s *Service) SetOrderStatus(ctx context.Context, id int64, status string) (types.OrderStatus, error) {
	st, ok := types.ParseOrderStatus(status)
	if !ok {
		err := &api.ValidationError{Field: "status", Message: fmt.Sprintf("Unknown order status %q", status)}
		s.notifier.Show(err.Message, true)
		return "", err
	}
	if err := s.backend.UpdateOrderStatus(ctx, id, st); err != nil {
		return "", s.fail("set order status", "order/"+types.FormatID(id), err)
	}
	s.done("set order status "+string(st), "order/"+types.FormatID(id), "Order status updated")
	return st, nil
}

// DeleteOrder removes an order.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.backend.DeleteOrder(ctx, id); err != nil {
		return s.fail("delete order", "order/"+types.FormatID(id), err)
	}
	s.done("delete order", "order/"+types.FormatID(id), "Order deleted")
	return nil
}

// Dashboard summarises the shop for the admin landing page.
type Dashboard struct {
	Products   int
	Categories int
	Orders     int
	Revenue    decimal.Decimal
	ByStatus   map[types.OrderStatus]int
	LowStock   []types.Product
}

// LowStockThreshold marks products worth restocking.
const LowStockThreshold = 5

// Dashboard loads products, categories and orders concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		products []types.Product
		cats     []types.Category
		orders   []types.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = s.Products(gctx)
		return err
	})
	g.Go(func() (err error) {
		cats, err = s.Categories(gctx)
		return err
	})
	g.Go(func() (err error) {
		orders, err = s.Orders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Products:   len(products),
		Categories: len(cats),
		Orders:     len(orders),
		Revenue:    decimal.Zero,
		ByStatus:   make(map[types.OrderStatus]int),
	}
	for _, o := range orders {
		d.ByStatus[o.Status]++
		if o.Status != types.OrderCanceled {
			d.Revenue = d.Revenue.Add(o.TotalAmount)
		}
	}
	for _, p := range products {
		if p.Stock <= LowStockThreshold {
			d.LowStock = append(d.LowStock, p)
		}
	}
	return d, nil
}

func (s *Service) fail(action, target string, err error) error {
	logging.Audit(logging.AuditEvent{Type: logging.AuditAdminAction, Target: target, Message: action + ": " + err.Error()})
	s.notifier.Show(api.UserMessage(err), true)
	return fmt.Errorf("%s: %w", action, err)
}

func (s *Service) done(action, target, msg string) {
	logging.Audit(logging.AuditEvent{Type: logging.AuditAdminAction, Target: target, Success: true, Message: action})
	s.notifier.Show(msg, false)
}
