package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string
	dbPath     string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "petshop",
	Short: "petshop - terminal storefront for the pet shop",
	Long: `petshop is a terminal client for the pet shop storefront.

Browse and search the catalogue, manage your cart and wishlist, place orders
and, with an admin account, manage products, categories and orders.

Run without arguments to start the interactive storefront.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive storefront owns the terminal
		if cmd == cmd.Root() {
			return nil
		}

		config := zap.NewProductionConfig()
		config.OutputPaths = []string{"stderr"}
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Config file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides config and PETSHOP_API_URL)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Local state database (overrides config)")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, profileCmd)
	rootCmd.AddCommand(productsCmd, categoriesCmd, productCmd)
	rootCmd.AddCommand(cartCmd, checkoutCmd, ordersCmd, orderCmd)
	rootCmd.AddCommand(wishlistCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(serveCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("PETSHOP_CONFIG"); p != "" {
		return p
	}
	return ".petshop/config.yaml"
}

// parseID parses a positive numeric id argument.
func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}

// joinArgs joins command arguments into a single string
func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
