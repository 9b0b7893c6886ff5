package shopserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"petshop/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func call(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, s *Server, email, password string) types.AuthResponse {
	t.Helper()
	w := call(t, s, http.MethodPost, "/api/auth/login", "", types.Credentials{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out types.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestLoginIssuesRoleToken(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	admin := login(t, s, SeedAdminEmail, SeedAdminPassword)
	assert.Equal(t, "ADMIN", admin.Role)
	assert.NotEmpty(t, admin.Token)

	w := call(t, s, http.MethodPost, "/api/auth/login", "", types.Credentials{Email: SeedUserEmail, Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", w.Body.String())
}

func TestRegisterConflict(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	reg := types.Registration{Name: "Ann", Email: "ann@example.com", Password: "secret1"}
	w := call(t, s, http.MethodPost, "/api/auth/register", "", reg)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, s, http.MethodPost, "/api/auth/register", "", reg)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already in use")
}

func TestRoleEnforcement(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	user := login(t, s, SeedUserEmail, SeedUserPassword)
	admin := login(t, s, SeedAdminEmail, SeedAdminPassword)

	assert.Equal(t, http.StatusUnauthorized, call(t, s, http.MethodGet, "/api/cart", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(t, s, http.MethodGet, "/api/cart", "garbage", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, s, http.MethodGet, "/api/admin/orders", user.Token, nil).Code)
	assert.Equal(t, http.StatusOK, call(t, s, http.MethodGet, "/api/admin/orders", admin.Token, nil).Code)
	// Placing orders is a USER-only operation.
	assert.Equal(t, http.StatusForbidden, call(t, s, http.MethodGet, "/api/orders/history", admin.Token, nil).Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	var all []types.Product
	w := call(t, s, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 6)

	var cat3 []types.Product
	w = call(t, s, http.MethodGet, "/api/products/category/3", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cat3))
	require.Len(t, cat3, 2)
	for _, p := range cat3 {
		assert.EqualValues(t, 3, p.CategoryRef())
	}

	var found []types.Product
	w = call(t, s, http.MethodGet, "/api/products/search?name=%D0%BA%D0%BE%D1%80%D0%BC", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	assert.Len(t, found, 2, "case-insensitive match on Корм")

	assert.Equal(t, http.StatusNotFound, call(t, s, http.MethodGet, "/api/products/999", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, call(t, s, http.MethodGet, "/api/products/abc", "", nil).Code)
}

func TestCartMutationsAnswerEmpty(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	tok := login(t, s, SeedUserEmail, SeedUserPassword).Token

	w := call(t, s, http.MethodPost, "/api/cart/add", tok, types.CartItemRequest{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = call(t, s, http.MethodPut, "/api/cart", tok, types.CartItemRequest{ProductID: 1, Quantity: 3})
	require.Equal(t, http.StatusOK, w.Code)

	var cart types.Cart
	w = call(t, s, http.MethodGet, "/api/cart", tok, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "1350", cart.TotalPrice.String())

	assert.Equal(t, http.StatusBadRequest,
		call(t, s, http.MethodPut, "/api/cart", tok, types.CartItemRequest{ProductID: 1, Quantity: 0}).Code)
	assert.Equal(t, http.StatusNotFound,
		call(t, s, http.MethodDelete, "/api/cart/2", tok, nil).Code)
}

func TestCartBodies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CartBodies = true
	s := newTestServer(t, cfg)
	tok := login(t, s, SeedUserEmail, SeedUserPassword).Token

	w := call(t, s, http.MethodPost, "/api/cart/add", tok, types.CartItemRequest{ProductID: 3, Quantity: 1})
	require.Equal(t, http.StatusOK, w.Code)
	var cart types.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.EqualValues(t, 3, cart.Items[0].ProductID)
}

func TestPlaceOrderClearsCart(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	tok := login(t, s, SeedUserEmail, SeedUserPassword).Token
	call(t, s, http.MethodPost, "/api/cart/add", tok, types.CartItemRequest{ProductID: 2, Quantity: 2})

	req := types.CreateOrderRequest{
		Items:   []types.CartItemRequest{{ProductID: 2, Quantity: 2}},
		Phone:   "+7 900 000-00-00",
		Address: "Lenina 1",
	}
	w := call(t, s, http.MethodPost, "/api/orders", tok, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var order types.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, types.OrderCreated, order.Status)
	assert.Equal(t, "1641", order.TotalAmount.String())
	assert.Equal(t, SeedUserEmail, order.UserEmail)

	var cart types.Cart
	w = call(t, s, http.MethodGet, "/api/cart", tok, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Empty(t, cart.Items)

	admin := login(t, s, SeedAdminEmail, SeedAdminPassword).Token
	w = call(t, s, http.MethodPut, "/api/admin/orders/"+types.FormatID(order.ID)+"/status?status=SHIPPED", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = call(t, s, http.MethodPut, "/api/admin/orders/"+types.FormatID(order.ID)+"/status?status=LOST", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, s, http.MethodGet, "/api/orders/"+types.FormatID(order.ID), tok, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, types.OrderShipped, order.Status)
}

func TestFailNext(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	s.FailNext(http.MethodGet, "/api/products", http.StatusServiceUnavailable, "down")
	w := call(t, s, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = call(t, s, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.Requests(http.MethodGet, "/api/products"))
	assert.Equal(t, 2, s.TotalRequests())
}
