package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"petshop/cmd/petshop/ui"
	"petshop/internal/routing"
	"petshop/internal/types"

	"github.com/spf13/cobra"
)

var (
	shipPhone   string
	shipAddress string
	shipComment string
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and change your cart",
	Args:  cobra.NoArgs,
	RunE:  runCartShow,
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id> [quantity]",
	Short: "Add a product to the cart",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCartAdd,
}

var cartSetCmd = &cobra.Command{
	Use:   "set <product-id> <quantity>",
	Short: "Set a line's quantity (minimum 1)",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartSet,
}

var cartIncCmd = &cobra.Command{
	Use:   "inc <product-id>",
	Short: "Increase a line's quantity by one",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartStep(+1),
}

var cartDecCmd = &cobra.Command{
	Use:   "dec <product-id>",
	Short: "Decrease a line's quantity by one (never below 1)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartStep(-1),
}

var cartRemoveCmd = &cobra.Command{
	Use:     "remove <product-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a line from the cart",
	Args:    cobra.ExactArgs(1),
	RunE:    runCartRemove,
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place an order for the current cart",
	Args:  cobra.NoArgs,
	RunE:  runCheckout,
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Show your order history",
	Args:  cobra.NoArgs,
	RunE:  runOrders,
}

var orderCmd = &cobra.Command{
	Use:   "order <id>",
	Short: "Show one order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrder,
}

func init() {
	cartCmd.AddCommand(cartAddCmd, cartSetCmd, cartIncCmd, cartDecCmd, cartRemoveCmd)

	checkoutCmd.Flags().StringVar(&shipPhone, "phone", "", "Contact phone (required)")
	checkoutCmd.Flags().StringVar(&shipAddress, "address", "", "Delivery address (required)")
	checkoutCmd.Flags().StringVar(&shipComment, "comment", "", "Comment for the courier")
}

// withCart gates the cart route and loads the server cart before fn runs.
func withCart(cmd *cobra.Command, fn func(ctx context.Context, a *app, out io.Writer) error) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(routing.Cart); err != nil {
			return err
		}
		if err := a.cart.Load(ctx); err != nil {
			return err
		}
		return fn(ctx, a, out)
	})
}

func runCartShow(cmd *cobra.Command, args []string) error {
	return withCart(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		printCart(out, a, a.cart.Cart())
		return nil
	})
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID("product", args[0])
	if err != nil {
		return err
	}
	qty := 1
	if len(args) == 2 {
		if qty, err = parseQuantity(args[1]); err != nil {
			return err
		}
	}
	return withCart(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.cart.AddItem(ctx, id, qty); err != nil {
			return err
		}
		printCart(out, a, a.cart.Cart())
		return nil
	})
}

func runCartSet(cmd *cobra.Command, args []string) error {
	id, err := parseID("product", args[0])
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	return withCart(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.cart.UpdateQuantity(ctx, id, qty); err != nil {
			return err
		}
		printCart(out, a, a.cart.Cart())
		return nil
	})
}

func runCartStep(delta int) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID("product", args[0])
		if err != nil {
			return err
		}
		return withCart(cmd, func(ctx context.Context, a *app, out io.Writer) error {
			if delta > 0 {
				err = a.cart.Increment(ctx, id)
			} else {
				err = a.cart.Decrement(ctx, id)
			}
			if err != nil {
				return err
			}
			printCart(out, a, a.cart.Cart())
			return nil
		})
	}
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID("product", args[0])
	if err != nil {
		return err
	}
	return withCart(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.cart.RemoveItem(ctx, id); err != nil {
			return err
		}
		printCart(out, a, a.cart.Cart())
		return nil
	})
}

func runCheckout(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(routing.Checkout); err != nil {
			return err
		}
		if err := a.cart.Load(ctx); err != nil {
			return err
		}
		outcome, err := a.checkout.Place(ctx, a.cart.Cart(), types.ShippingDetails{
			Phone:   shipPhone,
			Address: shipAddress,
			Comment: shipComment,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Order #%d: %s\n", outcome.Order.ID, ui.Money(outcome.Order.TotalAmount))
		return nil
	})
}

func runOrders(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(routing.OrderHistory); err != nil {
			return err
		}
		orders, err := a.checkout.History(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(out, orderTable("Orders", orders).View(a.styles))
		return nil
	})
}

func runOrder(cmd *cobra.Command, args []string) error {
	id, err := parseID("order", args[0])
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(routing.OrderDetails); err != nil {
			return err
		}
		o, err := a.checkout.Get(ctx, id)
		if err != nil {
			return err
		}
		printOrder(out, a, o)
		return nil
	})
}

func parseQuantity(s string) (int, error) {
	q, err := strconv.Atoi(s)
	if err != nil || q < 1 {
		return 0, fmt.Errorf("invalid quantity %q: must be at least 1", s)
	}
	return q, nil
}

func printCart(out io.Writer, a *app, c types.Cart) {
	t := ui.NewTable("Cart", "ID", "Product", "Price", "Qty", "Total")
	t.Empty = "Your cart is empty"
	for _, l := range c.Items {
		t.AddRow(
			types.FormatID(l.ProductID),
			ui.Truncate(l.ProductName, 40),
			ui.Money(l.PricePerUnit),
			strconv.Itoa(l.Quantity),
			ui.Money(l.LineTotal()),
		)
	}
	fmt.Fprint(out, t.View(a.styles))
	if !c.IsEmpty() {
		fmt.Fprintf(out, "Total: %s\n", a.styles.Price.Render(ui.Money(c.TotalPrice)))
	}
}

func orderTable(title string, orders []types.Order) *ui.Table {
	t := ui.NewTable(title, "ID", "Date", "Status", "Total")
	t.Empty = "No orders yet"
	for _, o := range orders {
		t.AddRow(
			types.FormatID(o.ID),
			o.CreatedAt.Local().Format("2006-01-02 15:04"),
			ui.StatusLabel(o.Status),
			ui.Money(o.TotalAmount),
		)
	}
	return t
}

func printOrder(out io.Writer, a *app, o types.Order) {
	fmt.Fprintln(out, a.styles.Title.Render(fmt.Sprintf("Order #%d", o.ID)))
	fmt.Fprintf(out, "Status:  %s\n", ui.StatusLabel(o.Status))
	fmt.Fprintf(out, "Placed:  %s\n", o.CreatedAt.Local().Format("2006-01-02 15:04"))
	if o.Address != "" {
		fmt.Fprintf(out, "Address: %s\n", o.Address)
	}
	if o.Phone != "" {
		fmt.Fprintf(out, "Phone:   %s\n", o.Phone)
	}
	t := ui.NewTable("", "Product", "Price", "Qty")
	for _, it := range o.Items {
		t.AddRow(ui.Truncate(it.ProductName, 40), ui.Money(it.Price), strconv.Itoa(it.Quantity))
	}
	fmt.Fprint(out, t.View(a.styles))
	fmt.Fprintf(out, "Total: %s\n", a.styles.Price.Render(ui.Money(o.TotalAmount)))
}
