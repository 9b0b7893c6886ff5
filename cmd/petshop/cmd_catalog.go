package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"petshop/cmd/petshop/ui"
	"petshop/internal/catalog"
	"petshop/internal/types"

	"github.com/spf13/cobra"
)

var (
	productsCategory int64
	productsSearch   string
)

var productsCmd = &cobra.Command{
	Use:   "products [search text]",
	Short: "List products, optionally filtered by category or search text",
	Long: `List products. Search text wins over --category; the two are never
combined.`,
	RunE: runProducts,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

var productCmd = &cobra.Command{
	Use:   "product <id>",
	Short: "Show product details",
	Args:  cobra.ExactArgs(1),
	RunE:  runProduct,
}

func init() {
	productsCmd.Flags().Int64Var(&productsCategory, "category", catalog.All, "Category id (0 for all)")
	productsCmd.Flags().StringVarP(&productsSearch, "search", "s", "", "Search by name")
}

func runProducts(cmd *cobra.Command, args []string) error {
	search := productsSearch
	if len(args) > 0 {
		search = joinArgs(args)
	}
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		st := a.catalog.Load(ctx, catalog.Query{CategoryID: productsCategory, Search: search})
		if st.Err != nil {
			return fmt.Errorf("%s: %w", st.Message, st.Err)
		}
		fmt.Fprint(out, productTable(st.Products).View(a.styles))
		return nil
	})
}

func productTable(products []types.Product) *ui.Table {
	t := ui.NewTable("Products", "ID", "Name", "Price", "Stock")
	t.Empty = "No products found"
	for _, p := range products {
		t.AddRow(types.FormatID(p.ID), ui.Truncate(p.Name, 40), ui.Money(p.Price), fmt.Sprint(p.Stock))
	}
	return t
}

func runCategories(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		cats, err := a.catalog.Categories(ctx)
		if err != nil {
			return err
		}
		t := ui.NewTable("Categories", "ID", "Name")
		for _, c := range cats {
			t.AddRow(types.FormatID(c.ID), c.Name)
		}
		fmt.Fprint(out, t.View(a.styles))
		return nil
	})
}

func runProduct(cmd *cobra.Command, args []string) error {
	id, err := parseID("product", args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		p, err := a.catalog.Product(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, a.styles.Title.Render(p.Name))
		fmt.Fprintln(out, a.styles.Price.Render(ui.Money(p.Price)))
		if p.Category != nil {
			fmt.Fprintln(out, a.styles.Subtitle.Render(p.Category.Name))
		}
		fmt.Fprintf(out, "In stock: %d\n", p.Stock)
		if d := strings.TrimSpace(p.Description); d != "" {
			fmt.Fprintln(out, a.styles.RenderDivider(40))
			fmt.Fprintln(out, d)
		}
		if a.sessions.Get().Authenticated() {
			in, err := a.wishlist.Contains(ctx, p.ID)
			if err == nil && in {
				fmt.Fprintln(out, a.styles.Badge.Render("In wishlist"))
			}
		}
		return nil
	})
}
