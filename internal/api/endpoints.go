package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"petshop/internal/types"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG
// =============================================================================

// Categories fetches GET /categories.
func (c *Client) Categories(ctx context.Context) ([]types.Category, error) {
	var out []types.Category
	if err := c.getJSON(ctx, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductsRequest is a resolved catalog request: a path plus optional query.
type ProductsRequest struct {
	Path  string
	Query url.Values
}

// String renders the request for logs and tests.
func (r ProductsRequest) String() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// Products fetches a resolved product list request.
func (c *Client) Products(ctx context.Context, req ProductsRequest) ([]types.Product, error) {
	var out []types.Product
	if err := c.getJSON(ctx, req.Path, req.Query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Product fetches GET /products/{id}.
func (c *Client) Product(ctx context.Context, id int64) (types.Product, error) {
	var out types.Product
	err := c.getJSON(ctx, "/products/"+types.FormatID(id), nil, &out)
	return out, err
}

// =============================================================================
// CART
// =============================================================================

// Cart fetches GET /cart.
func (c *Client) Cart(ctx context.Context) (types.Cart, error) {
	var out types.Cart
	if err := c.getJSON(ctx, "/cart", nil, &out); err != nil {
		return types.Cart{}, err
	}
	return out, nil
}

// AddToCart posts to /cart/add. The returned cart is nil unless the backend
// answered with a cart body.
func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int) (*types.Cart, error) {
	resp, err := c.Do(ctx, http.MethodPost, "/cart/add", nil, types.CartItemRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return cartFromResponse(resp), nil
}

// UpdateCartQuantity sends PUT /cart.
func (c *Client) UpdateCartQuantity(ctx context.Context, productID int64, quantity int) (*types.Cart, error) {
	resp, err := c.Do(ctx, http.MethodPut, "/cart", nil, types.CartItemRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	return cartFromResponse(resp), nil
}

// RemoveFromCart sends DELETE /cart/{productId}.
func (c *Client) RemoveFromCart(ctx context.Context, productID int64) (*types.Cart, error) {
	resp, err := c.Do(ctx, http.MethodDelete, "/cart/"+types.FormatID(productID), nil, nil)
	if err != nil {
		return nil, err
	}
	return cartFromResponse(resp), nil
}

// cartFromResponse returns the cart carried by resp, or nil when the body is
// empty, not JSON, or not cart-shaped.
func cartFromResponse(resp *Response) *types.Cart {
	if !resp.IsJSON() {
		return nil
	}
	var probe struct {
		Items      *[]types.CartLine `json:"items"`
		TotalPrice decimal.Decimal   `json:"totalPrice"`
	}
	if err := json.Unmarshal(resp.Body, &probe); err != nil || probe.Items == nil {
		return nil
	}
	return &types.Cart{Items: *probe.Items, TotalPrice: probe.TotalPrice}
}

// =============================================================================
// ORDERS
// =============================================================================

// PlaceOrder posts /orders.
func (c *Client) PlaceOrder(ctx context.Context, req types.CreateOrderRequest) (types.Order, error) {
	var out types.Order
	err := c.sendJSON(ctx, http.MethodPost, "/orders", nil, req, &out)
	return out, err
}

// Order fetches GET /orders/{id}.
func (c *Client) Order(ctx context.Context, id int64) (types.Order, error) {
	var out types.Order
	err := c.getJSON(ctx, "/orders/"+types.FormatID(id), nil, &out)
	return out, err
}

// OrderHistory fetches GET /orders/history.
func (c *Client) OrderHistory(ctx context.Context) ([]types.Order, error) {
	var out []types.Order
	if err := c.getJSON(ctx, "/orders/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// WISHLIST
// =============================================================================

// Wishlist fetches GET /wishlist.
func (c *Client) Wishlist(ctx context.Context) ([]types.Product, error) {
	var out []types.Product
	if err := c.getJSON(ctx, "/wishlist", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WishlistContains fetches GET /wishlist/check/{id}.
func (c *Client) WishlistContains(ctx context.Context, productID int64) (bool, error) {
	var out types.WishlistCheck
	if err := c.getJSON(ctx, "/wishlist/check/"+types.FormatID(productID), nil, &out); err != nil {
		return false, err
	}
	return out.InWishlist, nil
}

// AddToWishlist posts /wishlist/add/{id}.
func (c *Client) AddToWishlist(ctx context.Context, productID int64) error {
	return c.send(ctx, http.MethodPost, "/wishlist/add/"+types.FormatID(productID), nil)
}

// RemoveFromWishlist sends DELETE /wishlist/remove/{id}.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID int64) error {
	return c.send(ctx, http.MethodDelete, "/wishlist/remove/"+types.FormatID(productID), nil)
}

// ClearWishlist sends DELETE /wishlist/clear.
func (c *Client) ClearWishlist(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/wishlist/clear", nil)
}

// =============================================================================
// AUTH & PROFILE
// =============================================================================

// Login posts /auth/login.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (types.AuthResponse, error) {
	var out types.AuthResponse
	err := c.sendJSON(ctx, http.MethodPost, "/auth/login", nil, creds, &out)
	return out, err
}

// Register posts /auth/register.
func (c *Client) Register(ctx context.Context, reg types.Registration) (types.AuthResponse, error) {
	var out types.AuthResponse
	err := c.sendJSON(ctx, http.MethodPost, "/auth/register", nil, reg, &out)
	return out, err
}

// Logout posts /auth/logout.
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/auth/logout", nil)
}

// Me fetches GET /user/me.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var out types.User
	err := c.getJSON(ctx, "/user/me", nil, &out)
	return out, err
}

// UpdateMe sends PUT /user/me.
func (c *Client) UpdateMe(ctx context.Context, update types.ProfileUpdate) error {
	return c.send(ctx, http.MethodPut, "/user/me", update)
}

// =============================================================================
// ADMIN
// =============================================================================

// AdminProducts fetches GET /admin/products.
func (c *Client) AdminProducts(ctx context.Context) ([]types.Product, error) {
	var out []types.Product
	if err := c.getJSON(ctx, "/admin/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProduct posts /admin/products.
func (c *Client) CreateProduct(ctx context.Context, in types.ProductInput) (types.Product, error) {
	var out types.Product
	err := c.sendJSON(ctx, http.MethodPost, "/admin/products", nil, in, &out)
	return out, err
}

// UpdateProduct sends PUT /admin/products/{id}.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in types.ProductInput) (types.Product, error) {
	var out types.Product
	err := c.sendJSON(ctx, http.MethodPut, "/admin/products/"+types.FormatID(id), nil, in, &out)
	return out, err
}

// DeleteProduct sends DELETE /admin/products/{id}.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, "/admin/products/"+types.FormatID(id), nil)
}

// CreateCategory posts /admin/categories.
func (c *Client) CreateCategory(ctx context.Context, name string) (types.Category, error) {
	var out types.Category
	err := c.sendJSON(ctx, http.MethodPost, "/admin/categories", nil, map[string]string{"name": name}, &out)
	return out, err
}

// DeleteCategory sends DELETE /admin/categories/{id}.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, "/admin/categories/"+types.FormatID(id), nil)
}

// AdminOrders fetches GET /admin/orders.
func (c *Client) AdminOrders(ctx context.Context) ([]types.Order, error) {
	var out []types.Order
	if err := c.getJSON(ctx, "/admin/orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOrderStatus sends PUT /admin/orders/{id}/status?status=X.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status types.OrderStatus) error {
	q := url.Values{"status": {string(status)}}
	_, err := c.Do(ctx, http.MethodPut, "/admin/orders/"+types.FormatID(id)+"/status", q, nil)
	return err
}

// DeleteOrder sends DELETE /admin/orders/{id}.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, "/admin/orders/"+types.FormatID(id), nil)
}
