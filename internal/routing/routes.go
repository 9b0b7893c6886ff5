// Package routing defines the closed set of storefront routes and the
// role-based guard that decides whether a session may open one.
package routing

import (
	"fmt"
	"strconv"
	"strings"

	"petshop/internal/types"
)

// Route is a page of the storefront.
type Route int

const (
	Home Route = iota
	Login
	Register
	Products
	ProductDetails
	Cart
	Checkout
	OrderHistory
	OrderDetails
	Profile
	Wishlist
	Admin
	AdminProducts
	AdminOrders
	AdminCategories
)

// AllRoutes lists every route.
var AllRoutes = []Route{
	Home, Login, Register, Products, ProductDetails, Cart, Checkout,
	OrderHistory, OrderDetails, Profile, Wishlist,
	Admin, AdminProducts, AdminOrders, AdminCategories,
}

// Access is the class of session a route requires.
type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
)

func (a Access) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin"
	default:
		return "public"
	}
}

// Access returns the route's access class.
func (r Route) Access() Access {
	switch r {
	case Home, Login, Register, Products, ProductDetails:
		return Public
	case Cart, Checkout, OrderHistory, OrderDetails, Profile, Wishlist:
		return Authenticated
	case Admin, AdminProducts, AdminOrders, AdminCategories:
		return AdminOnly
	}
	panic(fmt.Sprintf("routing: unknown route %d", int(r)))
}

// Title is the human-readable page name.
func (r Route) Title() string {
	switch r {
	case Home:
		return "Home"
	case Login:
		return "Login"
	case Register:
		return "Register"
	case Products:
		return "Products"
	case ProductDetails:
		return "Product"
	case Cart:
		return "Cart"
	case Checkout:
		return "Checkout"
	case OrderHistory:
		return "Orders"
	case OrderDetails:
		return "Order"
	case Profile:
		return "Profile"
	case Wishlist:
		return "Wishlist"
	case Admin:
		return "Admin"
	case AdminProducts:
		return "Admin · Products"
	case AdminOrders:
		return "Admin · Orders"
	case AdminCategories:
		return "Admin · Categories"
	}
	return fmt.Sprintf("Route(%d)", int(r))
}

func (r Route) String() string { return r.Title() }

// Location is a route plus its id parameter, if any.
type Location struct {
	Route Route
	ID    int64
}

// At builds a Location.
func At(r Route) Location { return Location{Route: r} }

// ProductAt is the details location of a product.
func ProductAt(id int64) Location { return Location{Route: ProductDetails, ID: id} }

// OrderAt is the details location of an order.
func OrderAt(id int64) Location { return Location{Route: OrderDetails, ID: id} }

// Path renders the location the way the web storefront addressed it.
func (l Location) Path() string {
	switch l.Route {
	case Home:
		return "/"
	case Login:
		return "/login"
	case Register:
		return "/register"
	case Products:
		return "/products"
	case ProductDetails:
		return "/products/" + types.FormatID(l.ID)
	case Cart:
		return "/cart"
	case Checkout:
		return "/checkout"
	case OrderHistory:
		return "/orders/history"
	case OrderDetails:
		return "/orders/" + types.FormatID(l.ID)
	case Profile:
		return "/profile"
	case Wishlist:
		return "/wishlist"
	case Admin:
		return "/admin"
	case AdminProducts:
		return "/admin/products"
	case AdminOrders:
		return "/admin/orders"
	case AdminCategories:
		return "/admin/categories"
	}
	return "/"
}

func (l Location) String() string { return l.Path() }

var staticPaths = map[string]Route{
	"/":                 Home,
	"/login":            Login,
	"/register":         Register,
	"/products":         Products,
	"/cart":             Cart,
	"/checkout":         Checkout,
	"/orders/history":   OrderHistory,
	"/profile":          Profile,
	"/wishlist":         Wishlist,
	"/admin":            Admin,
	"/admin/products":   AdminProducts,
	"/admin/orders":     AdminOrders,
	"/admin/categories": AdminCategories,
}

var idPrefixes = map[string]Route{
	"/products/": ProductDetails,
	"/orders/":   OrderDetails,
}

// Parse maps a path back to a Location.
func Parse(path string) (Location, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if r, ok := staticPaths[p]; ok {
		return At(r), nil
	}
	for prefix, r := range idPrefixes {
		if rest, ok := strings.CutPrefix(p, prefix); ok {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil || id <= 0 {
				return Location{}, fmt.Errorf("invalid id in %q", path)
			}
			return Location{Route: r, ID: id}, nil
		}
	}
	return Location{}, fmt.Errorf("unknown route %q", path)
}
