package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"petshop/cmd/petshop/ui"
	"petshop/internal/admin"
	"petshop/internal/routing"
	"petshop/internal/types"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	adminSearch   string
	adminCategory int64

	productName        string
	productDescription string
	productPrice       string
	productImage       string
	productCategory    int64
	productStock       int
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Shop administration (ADMIN role only)",
	Args:  cobra.NoArgs,
	RunE:  runAdminDashboard,
}

var adminProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "List every product with local filtering",
	Args:  cobra.NoArgs,
	RunE:  runAdminProducts,
}

var adminProductSaveCmd = &cobra.Command{
	Use:   "save [product-id]",
	Short: "Create a product, or update one when an id is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAdminProductSave,
}

var adminProductDeleteCmd = &cobra.Command{
	Use:   "delete <product-id>",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDelete(routing.AdminProducts, "product"),
}

var adminCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE:  runAdminCategories,
}

var adminCategoryCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a category",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdminCategoryCreate,
}

var adminCategoryDeleteCmd = &cobra.Command{
	Use:   "delete <category-id>",
	Short: "Delete a category with no products",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDelete(routing.AdminCategories, "category"),
}

var adminOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List every customer order",
	Args:  cobra.NoArgs,
	RunE:  runAdminOrders,
}

var adminOrderStatusCmd = &cobra.Command{
	Use:   "status <order-id> <status>",
	Short: "Change an order's status (CREATED, PENDING, SHIPPED, DELIVERED, CANCELED)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAdminOrderStatus,
}

var adminOrderDeleteCmd = &cobra.Command{
	Use:   "delete <order-id>",
	Short: "Delete an order",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminDelete(routing.AdminOrders, "order"),
}

func init() {
	adminProductsCmd.Flags().StringVarP(&adminSearch, "search", "s", "", "Filter by name")
	adminProductsCmd.Flags().Int64Var(&adminCategory, "category", 0, "Filter by category id")

	f := adminProductSaveCmd.Flags()
	f.StringVar(&productName, "name", "", "Product name")
	f.StringVar(&productDescription, "description", "", "Description (at most 255 characters)")
	f.StringVar(&productPrice, "price", "", "Price")
	f.StringVar(&productImage, "image", "", "Image URL")
	f.Int64Var(&productCategory, "category", 0, "Category id")
	f.IntVar(&productStock, "stock", 0, "Units in stock")

	adminProductsCmd.AddCommand(adminProductSaveCmd, adminProductDeleteCmd)
	adminCategoriesCmd.AddCommand(adminCategoryCreateCmd, adminCategoryDeleteCmd)
	adminOrdersCmd.AddCommand(adminOrderStatusCmd, adminOrderDeleteCmd)
	adminCmd.AddCommand(adminProductsCmd, adminCategoriesCmd, adminOrdersCmd)
}

// withAdmin gates route r before fn runs.
func withAdmin(cmd *cobra.Command, r routing.Route, fn func(ctx context.Context, a *app, out io.Writer) error) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(r); err != nil {
			return err
		}
		return fn(ctx, a, out)
	})
}

func runAdminDashboard(cmd *cobra.Command, args []string) error {
	return withAdmin(cmd, routing.Admin, func(ctx context.Context, a *app, out io.Writer) error {
		d, err := a.admin.Dashboard(ctx)
		if err != nil {
			return err
		}
		printDashboard(out, a, d)
		return nil
	})
}

func printDashboard(out io.Writer, a *app, d admin.Dashboard) {
	fmt.Fprintln(out, a.styles.Title.Render("Dashboard"))
	fmt.Fprintf(out, "Products:   %d\n", d.Products)
	fmt.Fprintf(out, "Categories: %d\n", d.Categories)
	fmt.Fprintf(out, "Orders:     %d\n", d.Orders)
	fmt.Fprintf(out, "Revenue:    %s\n", a.styles.Price.Render(ui.Money(d.Revenue)))

	statuses := make([]string, 0, len(d.ByStatus))
	for s := range d.ByStatus {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(out, "  %-10s %d\n", ui.StatusLabel(types.OrderStatus(s)), d.ByStatus[types.OrderStatus(s)])
	}
	if len(d.LowStock) > 0 {
		t := productTable(d.LowStock)
		t.Title = "Low stock"
		fmt.Fprint(out, t.View(a.styles))
	}
}

func runAdminProducts(cmd *cobra.Command, args []string) error {
	return withAdmin(cmd, routing.AdminProducts, func(ctx context.Context, a *app, out io.Writer) error {
		products, err := a.admin.Products(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(out, productTable(admin.FilterProducts(products, adminSearch, adminCategory)).View(a.styles))
		return nil
	})
}

func runAdminProductSave(cmd *cobra.Command, args []string) error {
	var id int64
	if len(args) == 1 {
		var err error
		if id, err = parseID("product", args[0]); err != nil {
			return err
		}
	}
	price := decimal.Zero
	if productPrice != "" {
		var err error
		if price, err = decimal.NewFromString(productPrice); err != nil {
			return fmt.Errorf("invalid price %q", productPrice)
		}
	}
	return withAdmin(cmd, routing.AdminProducts, func(ctx context.Context, a *app, out io.Writer) error {
		p, err := a.admin.SaveProduct(ctx, id, types.ProductInput{
			Name:        productName,
			Description: productDescription,
			Price:       price,
			ImageURL:    productImage,
			CategoryID:  productCategory,
			Stock:       productStock,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Product #%d %s\n", p.ID, p.Name)
		return nil
	})
}

func runAdminDelete(r routing.Route, kind string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(kind, args[0])
		if err != nil {
			return err
		}
		return withAdmin(cmd, r, func(ctx context.Context, a *app, out io.Writer) error {
			switch kind {
			case "product":
				return a.admin.DeleteProduct(ctx, id)
			case "category":
				return a.admin.DeleteCategory(ctx, id)
			default:
				return a.admin.DeleteOrder(ctx, id)
			}
		})
	}
}

func runAdminCategories(cmd *cobra.Command, args []string) error {
	return withAdmin(cmd, routing.AdminCategories, func(ctx context.Context, a *app, out io.Writer) error {
		cats, err := a.admin.Categories(ctx)
		if err != nil {
			return err
		}
		t := ui.NewTable("Categories", "ID", "Name")
		t.Empty = "No categories"
		for _, c := range cats {
			t.AddRow(types.FormatID(c.ID), c.Name)
		}
		fmt.Fprint(out, t.View(a.styles))
		return nil
	})
}

func runAdminCategoryCreate(cmd *cobra.Command, args []string) error {
	return withAdmin(cmd, routing.AdminCategories, func(ctx context.Context, a *app, out io.Writer) error {
		c, err := a.admin.CreateCategory(ctx, joinArgs(args))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Category #%d %s\n", c.ID, c.Name)
		return nil
	})
}

func runAdminOrders(cmd *cobra.Command, args []string) error {
	return withAdmin(cmd, routing.AdminOrders, func(ctx context.Context, a *app, out io.Writer) error {
		orders, err := a.admin.Orders(ctx)
		if err != nil {
			return err
		}
		t := ui.NewTable("All orders", "ID", "Customer", "Status", "Total")
		t.Empty = "No orders yet"
		for _, o := range orders {
			t.AddRow(types.FormatID(o.ID), o.UserEmail, ui.StatusLabel(o.Status), ui.Money(o.TotalAmount))
		}
		fmt.Fprint(out, t.View(a.styles))
		return nil
	})
}

func runAdminOrderStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID("order", args[0])
	if err != nil {
		return err
	}
	return withAdmin(cmd, routing.AdminOrders, func(ctx context.Context, a *app, out io.Writer) error {
		st, err := a.admin.SetOrderStatus(ctx, id, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Order #%d is now %s\n", id, ui.StatusLabel(st))
		return nil
	})
}
