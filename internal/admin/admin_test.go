package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"petshop/internal/api"
	"petshop/internal/notify"
	"petshop/internal/shopserver"
	"petshop/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setup(t *testing.T, email, password string) (*shopserver.Server, *api.Client, *Service, *notify.Recorder) {
	t.Helper()
	srv, err := shopserver.New(shopserver.DefaultConfig())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)

	anon := api.NewClient(ts.URL+"/api", 5*time.Second, nil)
	auth, err := anon.Login(context.Background(), types.Credentials{Email: email, Password: password})
	require.NoError(t, err)

	client := api.NewClient(ts.URL+"/api", 5*time.Second, api.StaticToken(auth.Token))
	rec := &notify.Recorder{}
	return srv, client, New(client, rec), rec
}

func asAdmin(t *testing.T) (*shopserver.Server, *api.Client, *Service, *notify.Recorder) {
	return setup(t, shopserver.SeedAdminEmail, shopserver.SeedAdminPassword)
}

func TestValidateProduct(t *testing.T) {
	valid := types.ProductInput{Name: "Лежанка", Price: decimal.NewFromInt(1500), CategoryID: 3, Stock: 2}
	require.NoError(t, ValidateProduct(valid))

	tests := []struct {
		name  string
		mut   func(*types.ProductInput)
		field string
	}{
		{"blank name", func(p *types.ProductInput) { p.Name = " " }, "name"},
		{"zero price", func(p *types.ProductInput) { p.Price = decimal.Zero }, "price"},
		{"long description", func(p *types.ProductInput) { p.Description = strings.Repeat("я", 256) }, "description"},
		{"no category", func(p *types.ProductInput) { p.CategoryID = 0 }, "categoryId"},
		{"negative stock", func(p *types.ProductInput) { p.Stock = -1 }, "stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mut(&in)
			var ve *api.ValidationError
			require.ErrorAs(t, ValidateProduct(in), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	in := valid
	in.Description = strings.Repeat("я", 255)
	assert.NoError(t, ValidateProduct(in), "limit counts characters, not bytes")
}

func TestFilterProducts(t *testing.T) {
	ps := []types.Product{
		{ID: 1, Name: "Корм для кошек", CategoryID: 1},
		{ID: 3, Name: "Мяч", Category: &types.Category{ID: 2}},
		{ID: 5, Name: "Ошейник", CategoryID: 3},
	}
	got := FilterProducts(ps, "корм", 0)
	require.Len(t, got, 1)
	assert.EqualValues(t, 1, got[0].ID)

	got = FilterProducts(ps, "", 2)
	require.Len(t, got, 1)
	assert.EqualValues(t, 3, got[0].ID)

	assert.Len(t, FilterProducts(ps, "", 0), 3)
}

func TestProductLifecycle(t *testing.T) {
	_, _, s, rec := asAdmin(t)
	ctx := context.Background()

	p, err := s.SaveProduct(ctx, 0, types.ProductInput{
		Name: "  Лежанка ", Price: decimal.RequireFromString("1499.90"), CategoryID: 3, Stock: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Лежанка", p.Name)

	p, err = s.SaveProduct(ctx, p.ID, types.ProductInput{
		Name: "Лежанка XL", Price: decimal.NewFromInt(1999), CategoryID: 3, Stock: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Лежанка XL", p.Name)

	all, err := s.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	all, err = s.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	assert.Empty(t, rec.Errors())
	last, _ := rec.Last()
	assert.Equal(t, "Product deleted", last.Message)
}

func TestInvalidProductSendsNothing(t *testing.T) {
	srv, _, s, rec := asAdmin(t)
	before := srv.TotalRequests()
	_, err := s.SaveProduct(context.Background(), 0, types.ProductInput{Name: "x"})
	require.Error(t, err)
	assert.Equal(t, before, srv.TotalRequests())
	assert.Len(t, rec.Errors(), 1)
}

func TestCategories(t *testing.T) {
	_, _, s, rec := asAdmin(t)
	ctx := context.Background()

	cat, err := s.CreateCategory(ctx, " Лакомства ")
	require.NoError(t, err)
	assert.Equal(t, "Лакомства", cat.Name)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 4)

	// Category 1 still has products.
	err = s.DeleteCategory(ctx, 1)
	require.Error(t, err)
	last, _ := rec.Last()
	assert.Equal(t, "category has products", last.Message)

	require.NoError(t, s.DeleteCategory(ctx, cat.ID))

	_, err = s.CreateCategory(ctx, "  ")
	var ve *api.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestOrderStatusValidatedClientSide(t *testing.T) {
	srv, _, s, _ := asAdmin(t)
	before := srv.TotalRequests()

	_, err := s.SetOrderStatus(context.Background(), 1, "LOST")
	var ve *api.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)
	assert.Equal(t, before, srv.TotalRequests())
}

func TestOrdersAndDashboard(t *testing.T) {
	srv, err := shopserver.New(shopserver.DefaultConfig())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Engine())
	defer ts.Close()
	ctx := context.Background()

	login := func(email, password string) *api.Client {
		auth, err := api.NewClient(ts.URL+"/api", 5*time.Second, nil).
			Login(ctx, types.Credentials{Email: email, Password: password})
		require.NoError(t, err)
		return api.NewClient(ts.URL+"/api", 5*time.Second, api.StaticToken(auth.Token))
	}
	user := login(shopserver.SeedUserEmail, shopserver.SeedUserPassword)
	_, err = user.AddToCart(ctx, 4, 1)
	require.NoError(t, err)
	order, err := user.PlaceOrder(ctx, types.CreateOrderRequest{
		Items: []types.CartItemRequest{{ProductID: 4, Quantity: 1}},
		Phone: "1", Address: "a",
	})
	require.NoError(t, err)

	s := New(login(shopserver.SeedAdminEmail, shopserver.SeedAdminPassword), &notify.Recorder{})
	st, err := s.SetOrderStatus(ctx, order.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, types.OrderShipped, st)
	assert.Equal(t, 1, srv.Requests(http.MethodPut, "/api/admin/orders/"+types.FormatID(order.ID)+"/status"))

	d, err := s.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, d.Products)
	assert.Equal(t, 3, d.Categories)
	assert.Equal(t, 1, d.Orders)
	assert.True(t, decimal.NewFromInt(1290).Equal(d.Revenue))
	if diff := cmp.Diff(map[types.OrderStatus]int{types.OrderShipped: 1}, d.ByStatus); diff != "" {
		t.Errorf("status counts (-want +got):\n%s", diff)
	}
	// Product 4 dropped to 4 in stock; product 6 sits at 8.
	require.Len(t, d.LowStock, 1)
	assert.EqualValues(t, 4, d.LowStock[0].ID)

	require.NoError(t, s.DeleteOrder(ctx, order.ID))
	orders, err := s.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUserIsForbidden(t *testing.T) {
	_, _, s, rec := setup(t, shopserver.SeedUserEmail, shopserver.SeedUserPassword)

	_, err := s.Dashboard(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	err = s.DeleteProduct(context.Background(), 1)
	require.Error(t, err)
	last, _ := rec.Last()
	assert.Equal(t, "Please log in again", last.Message)
}
