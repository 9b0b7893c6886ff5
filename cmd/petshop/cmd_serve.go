package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"petshop/internal/shopserver"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr       string
	serveCartBodies bool
	serveNoSeed     bool
	serveSecret     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local in-memory backend for development",
	Long: `Run an in-memory implementation of the storefront REST API under /api.
It is seeded with a demo catalogue and two accounts:

  user@petshop.local  / user123   (USER)
  admin@petshop.local / admin123  (ADMIN)

State is lost when the server stops.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().BoolVar(&serveCartBodies, "cart-bodies", false, "Answer cart mutations with the updated cart")
	serveCmd.Flags().BoolVar(&serveNoSeed, "no-seed", false, "Start with an empty shop")
	serveCmd.Flags().StringVar(&serveSecret, "secret", "", "JWT signing secret (default: development secret)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	cfg := shopserver.DefaultConfig()
	cfg.CartBodies = serveCartBodies
	cfg.Seed = !serveNoSeed
	if serveSecret != "" {
		cfg.Secret = []byte(serveSecret)
	}
	srv, err := shopserver.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}

	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backend listening", zap.String("addr", serveAddr), zap.Bool("cart_bodies", cfg.CartBodies))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Backend listening on %s (base URL http://localhost%s/api)\n", serveAddr, serveAddr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	logger.Info("backend stopped")
	return nil
}
