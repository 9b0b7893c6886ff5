package main

import (
	"fmt"

	"petshop/cmd/petshop/shop"
	"petshop/internal/config"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/session"

	"github.com/spf13/cobra"
)

// runInteractive starts the terminal storefront.
func runInteractive(cmd *cobra.Command, args []string) error {
	var center *notify.Center
	a, err := newApp(func(cfg *config.Config) notify.Notifier {
		center = notify.NewCenter(cfg.UX.GetToastDuration())
		return center
	})
	if err != nil {
		return err
	}
	defer a.close()
	defer center.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	// Another terminal logging in or out updates this one.
	if a.cfg.Storage.WatchSession {
		w, err := session.NewWatcher(a.cfg.Storage.DatabasePath, a.sessions)
		if err != nil {
			logging.SessionWarn("Session watcher unavailable: %v", err)
		} else if err := w.Start(ctx); err != nil {
			logging.SessionWarn("Session watcher failed to start: %v", err)
		} else {
			defer w.Stop()
		}
	}

	logging.UI("Starting storefront against %s", a.cfg.API.BaseURL)
	if err := shop.Run(shop.Deps{
		Context:  ctx,
		Sessions: a.sessions,
		Nav:      a.nav,
		Notices:  center,
		Catalog:  a.catalog,
		Cart:     a.cart,
		Checkout: a.checkout,
		Account:  a.account,
		Wishlist: a.wishlist,
		Admin:    a.admin,
		Styles:   a.styles,
	}); err != nil {
		return fmt.Errorf("storefront: %w", err)
	}
	return nil
}
