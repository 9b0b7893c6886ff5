// Package types provides the storefront data model shared across petshop packages.
// This package exists to break import cycles between the API client, the
// reconcilers and the mock backend. Types here carry no behaviour beyond
// derived values.
package types

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SESSION & ROLES
// =============================================================================

// Role is the closed set of roles a session can carry.
type Role int

const (
	RoleNone Role = iota
	RoleUser
	RoleAdmin
)

// ParseRole maps the wire role string to a Role. Unknown values are RoleNone.
func ParseRole(s string) Role {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "USER":
		return RoleUser
	case "ADMIN":
		return RoleAdmin
	default:
		return RoleNone
	}
}

// String returns the wire form of the role ("" for RoleNone).
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "USER"
	case RoleAdmin:
		return "ADMIN"
	default:
		return ""
	}
}

// Session is the client-side authentication state.
type Session struct {
	Token string
	Role  Role
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// IsAdmin reports whether the session carries a token and the admin role.
func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == RoleAdmin
}

// =============================================================================
// CATALOG
// =============================================================================

// Category groups products.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is read-only from the client's perspective.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	CategoryID  int64           `json:"categoryId,omitempty"`
	Category    *Category       `json:"category,omitempty"`
	Stock       int             `json:"stock"`
}

// CategoryRef returns the product's category id from whichever field the
// backend populated.
func (p Product) CategoryRef() int64 {
	if p.CategoryID != 0 {
		return p.CategoryID
	}
	if p.Category != nil {
		return p.Category.ID
	}
	return 0
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	CategoryID  int64           `json:"categoryId"`
	Stock       int             `json:"stock"`
}

// =============================================================================
// CART
// =============================================================================

// CartLine is one product entry in the cart.
type CartLine struct {
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Quantity     int             `json:"quantity"`
	ImageURL     string          `json:"imageUrl"`
}

// LineTotal is pricePerUnit × quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.PricePerUnit.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the ordered sequence of lines plus the derived total.
type Cart struct {
	Items      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// ComputeTotal sums the line totals.
func (c Cart) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Items {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Normalized returns a copy whose TotalPrice is recomputed from the items.
// Items are copied so callers can't mutate the reconciler's view.
func (c Cart) Normalized() Cart {
	items := make([]CartLine, len(c.Items))
	copy(items, c.Items)
	out := Cart{Items: items}
	out.TotalPrice = out.ComputeTotal()
	return out
}

// Line returns the line for productID, if present.
func (c Cart) Line(productID int64) (CartLine, bool) {
	for _, l := range c.Items {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// CartItemRequest is the body of POST /cart/add and PUT /cart.
type CartItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// =============================================================================
// ORDERS
// =============================================================================

// OrderStatus is the closed set of order states.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderPending   OrderStatus = "PENDING"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCanceled  OrderStatus = "CANCELED"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{OrderCreated, OrderPending, OrderShipped, OrderDelivered, OrderCanceled}

// ParseOrderStatus validates s against the closed set.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	up := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range OrderStatuses {
		if st == up {
			return st, true
		}
	}
	return "", false
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Order is created once by the user; only admins mutate its status.
type Order struct {
	ID          int64           `json:"id"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Items       []OrderItem     `json:"items"`
	UserEmail   string          `json:"userEmail,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Address     string          `json:"address,omitempty"`
	Comment     string          `json:"comment,omitempty"`
}

// ShippingDetails are the checkout form fields.
type ShippingDetails struct {
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Comment string `json:"comment"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Items   []CartItemRequest `json:"items"`
	Phone   string            `json:"phone"`
	Address string            `json:"address"`
	Comment string            `json:"comment"`
}

// =============================================================================
// ACCOUNT
// =============================================================================

// User is the profile returned by GET /user/me.
type User struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

// ProfileUpdate is the body of PUT /user/me.
type ProfileUpdate struct {
	FullName string `json:"fullName"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// WishlistCheck is returned by GET /wishlist/check/{id}.
type WishlistCheck struct {
	InWishlist bool `json:"isInWishlist"`
}

// FormatID renders an id for use in a URL path.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
