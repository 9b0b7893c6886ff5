package main

import (
	"context"
	"fmt"
	"io"

	"petshop/internal/routing"

	"github.com/spf13/cobra"
)

var wishlistCmd = &cobra.Command{
	Use:   "wishlist",
	Short: "Show your wishlist",
	Args:  cobra.NoArgs,
	RunE:  runWishlist,
}

var wishlistAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Save a product to the wishlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runWishlistChange("add"),
}

var wishlistRemoveCmd = &cobra.Command{
	Use:     "remove <product-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a product from the wishlist",
	Args:    cobra.ExactArgs(1),
	RunE:    runWishlistChange("remove"),
}

var wishlistToggleCmd = &cobra.Command{
	Use:   "toggle <product-id>",
	Short: "Add the product if missing, remove it otherwise",
	Args:  cobra.ExactArgs(1),
	RunE:  runWishlistChange("toggle"),
}

var wishlistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the wishlist",
	Args:  cobra.NoArgs,
	RunE:  runWishlistClear,
}

func init() {
	wishlistCmd.AddCommand(wishlistAddCmd, wishlistRemoveCmd, wishlistToggleCmd, wishlistClearCmd)
}

func runWishlist(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(routing.Wishlist); err != nil {
			return err
		}
		items, err := a.wishlist.List(ctx)
		if err != nil {
			return err
		}
		t := productTable(items)
		t.Title = "Wishlist"
		t.Empty = "Your wishlist is empty"
		fmt.Fprint(out, t.View(a.styles))
		return nil
	})
}

func runWishlistChange(action string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID("product", args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
			if err := a.gate(routing.Wishlist); err != nil {
				return err
			}
			switch action {
			case "add":
				return a.wishlist.Add(ctx, id)
			case "remove":
				return a.wishlist.Remove(ctx, id)
			default:
				_, err := a.wishlist.Toggle(ctx, id)
				return err
			}
		})
	}
}

func runWishlistClear(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(routing.Wishlist); err != nil {
			return err
		}
		return a.wishlist.Clear(ctx)
	})
}
