package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"petshop/cmd/petshop/ui"
	"petshop/internal/account"
	"petshop/internal/admin"
	"petshop/internal/api"
	"petshop/internal/cart"
	"petshop/internal/catalog"
	"petshop/internal/checkout"
	"petshop/internal/config"
	"petshop/internal/logging"
	"petshop/internal/notify"
	"petshop/internal/routing"
	"petshop/internal/session"
	"petshop/internal/store"
	"petshop/internal/wishlist"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app wires the storefront services for one command invocation.
type app struct {
	cfg      *config.Config
	store    *store.LocalStore
	sessions *session.Manager
	client   *api.Client
	nav      *routing.Navigator
	notifier notify.Notifier
	styles   ui.Styles

	catalog  *catalog.Catalog
	cart     *cart.Reconciler
	checkout *checkout.Service
	account  *account.Service
	wishlist *wishlist.Service
	admin    *admin.Service
}

// loadConfig reads the config file and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if dbPath != "" {
		cfg.Storage.DatabasePath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp builds the services. The notifier built by mkNotifier receives
// every user-facing message.
func newApp(mkNotifier func(cfg *config.Config) notify.Notifier) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	notifier := mkNotifier(cfg)
	if err := logging.Initialize(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	st, err := store.NewLocalStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}
	logging.BootDebug("Opened local state at %s", cfg.Storage.DatabasePath)
	sessions, err := session.NewManager(st)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.GetAPITimeout(), sessions)
	nav := routing.NewNavigator(sessions)
	ux := cfg.UX

	a := &app{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		client:   client,
		nav:      nav,
		notifier: notifier,
		styles:   ui.NewStyles(ui.DetectTheme(ux.DarkMode)),
		catalog: catalog.New(client, catalog.Options{
			Debounce:       ux.GetSearchDebounce(),
			StrictOrdering: ux.StrictOrdering,
		}),
		cart:     cart.New(client, notifier, cart.Options{StrictOrdering: ux.StrictOrdering}),
		checkout: checkout.New(client, notifier, nav, ux.GetRedirectDelay()),
		account:  account.New(client, sessions, notifier, nav, ux.GetRedirectDelay()),
		wishlist: wishlist.New(client, notifier),
		admin:    admin.New(client, notifier),
	}
	a.account.OnLogout(a.cart.Reset)
	logging.Boot("Services ready (api=%s strict=%v)", cfg.API.BaseURL, ux.StrictOrdering)

	if logger != nil {
		logger.Debug("app ready",
			zap.String("api", cfg.API.BaseURL),
			zap.String("db", cfg.Storage.DatabasePath),
			zap.String("role", sessions.Get().Role.String()))
	}
	return a, nil
}

// close releases the store and drops any scheduled redirect. The CLI has
// nothing left to render after the command returns.
func (a *app) close() {
	a.nav.Cancel()
	a.catalog.Close()
	if err := a.store.Close(); err != nil && logger != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
	logging.CloseAll()
}

// gate applies the route guard before a command touches the backend.
func (a *app) gate(r routing.Route) error {
	switch routing.Guard(r, a.sessions.Get()) {
	case routing.RedirectLogin:
		return fmt.Errorf("%s requires login: run 'petshop login' first", r.Title())
	case routing.Forbidden:
		return fmt.Errorf("%s is only available to administrators", r.Title())
	default:
		return nil
	}
}

// printer renders notifications as toast lines on w.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	styles ui.Styles
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, styles: ui.DefaultStyles()}
}

// Show implements notify.Notifier.
func (p *printer) Show(message string, isError bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, p.styles.Toast(message, isError))
}

// withApp runs fn against a freshly wired app and closes it afterwards.
// Notifications go to the command's stdout.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app, out io.Writer) error) error {
	out := cmd.OutOrStdout()
	p := newPrinter(out)
	a, err := newApp(func(*config.Config) notify.Notifier { return p })
	if err != nil {
		return err
	}
	defer a.close()
	p.styles = a.styles

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	err = fn(ctx, a, out)
	if api.IsSessionRejected(err) {
		return a.sessionRejected(err)
	}
	return err
}

// sessionRejected drops a token the backend no longer accepts.
func (a *app) sessionRejected(err error) error {
	logging.SessionWarn("Backend rejected the session: %v", err)
	if cerr := a.sessions.Clear(); cerr != nil {
		return fmt.Errorf("session rejected and could not be cleared: %w", cerr)
	}
	return fmt.Errorf("session expired: run 'petshop login' first (%w)", err)
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
