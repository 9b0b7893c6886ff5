// Package logging provides config-driven categorized logging for petshop.
// Each category writes to its own file under the configured log directory.
// Logging is controlled by logging.debug_mode - when false, every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"petshop/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot        Category = "boot"        // Startup, config resolution
	CategorySession     Category = "session"     // Token/role persistence
	CategoryAPI         Category = "api"         // REST calls
	CategoryCatalog     Category = "catalog"     // Catalog queries, debounce
	CategoryCart        Category = "cart"        // Cart reconciliation
	CategoryCheckout    Category = "checkout"    // Order placement and history
	CategoryNotify      Category = "notify"      // Notification display
	CategoryRouting     Category = "routing"     // Role-gated navigation
	CategoryStore       Category = "store"       // Local key/value storage
	CategoryUI          Category = "ui"          // Terminal UI
	CategoryServer      Category = "server"      // Mock backend
	CategoryPerformance Category = "performance" // Slow operations
)

// Logger wraps a zap sugared logger bound to a category.
// A Logger with a nil sugar is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	files     []*os.File
	loggersMu sync.RWMutex

	cfg   config.LoggingConfig
	cfgMu sync.RWMutex

	// testCore, when set, receives every category instead of files.
	testCore zapcore.Core
)

// Initialize applies the logging config. Safe to call more than once;
// previously opened category files are closed.
func Initialize(lc config.LoggingConfig) error {
	CloseAll()

	cfgMu.Lock()
	cfg = lc
	cfgMu.Unlock()

	if !lc.DebugMode {
		return nil // Silent no-op outside debug mode
	}
	if lc.Directory == "" {
		return fmt.Errorf("logging directory required in debug mode")
	}
	if err := os.MkdirAll(lc.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== petshop logging initialized ===")
	boot.Info("Logs directory: %s", lc.Directory)
	boot.Info("Log level: %s format: %s", lc.Level, lc.Format)
	return nil
}

// UseCore routes all categories into core. Used by tests with zaptest/observer.
func UseCore(core zapcore.Core, lc config.LoggingConfig) {
	CloseAll()
	cfgMu.Lock()
	cfg = lc
	cfg.DebugMode = true
	testCore = core
	cfgMu.Unlock()
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

func level() zapcore.Level {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	switch cfg.Level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	core, err := buildCore(category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: %v\n", err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		sugar:    zap.New(core).Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// buildCore must be called with loggersMu held.
func buildCore(category Category) (zapcore.Core, error) {
	cfgMu.RLock()
	tc := testCore
	dir := cfg.Directory
	format := cfg.Format
	cfgMu.RUnlock()

	if tc != nil {
		return tc, nil
	}

	// Date prefix for easy rotation
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file %s: %w", logPath, err)
	}
	files = append(files, file)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if format == "console" || format == "text" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	return zapcore.NewCore(enc, zapcore.AddSync(file), zap.NewAtomicLevelAt(level())), nil
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// StructuredLog writes a message with key/value fields at the given level.
func (l *Logger) StructuredLog(lvl string, msg string, fields map[string]interface{}) {
	if l.sugar == nil {
		return
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch lvl {
	case "debug":
		l.sugar.Debugw(msg, kv...)
	case "warn":
		l.sugar.Warnw(msg, kv...)
	case "error":
		l.sugar.Errorw(msg, kv...)
	default:
		l.sugar.Infow(msg, kv...)
	}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
	}
	for _, f := range files {
		f.Close()
	}
	files = nil
	loggers = make(map[Category]*Logger)

	cfgMu.Lock()
	testCore = nil
	cfgMu.Unlock()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Session(format string, args ...interface{})      { Get(CategorySession).Info(format, args...) }
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }
func SessionWarn(format string, args ...interface{})  { Get(CategorySession).Warn(format, args...) }

func API(format string, args ...interface{})      { Get(CategoryAPI).Info(format, args...) }
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }
func APIWarn(format string, args ...interface{})  { Get(CategoryAPI).Warn(format, args...) }

func Catalog(format string, args ...interface{})      { Get(CategoryCatalog).Info(format, args...) }
func CatalogDebug(format string, args ...interface{}) { Get(CategoryCatalog).Debug(format, args...) }
func CatalogWarn(format string, args ...interface{})  { Get(CategoryCatalog).Warn(format, args...) }

func Cart(format string, args ...interface{})      { Get(CategoryCart).Info(format, args...) }
func CartDebug(format string, args ...interface{}) { Get(CategoryCart).Debug(format, args...) }
func CartWarn(format string, args ...interface{})  { Get(CategoryCart).Warn(format, args...) }

func Checkout(format string, args ...interface{})     { Get(CategoryCheckout).Info(format, args...) }
func CheckoutWarn(format string, args ...interface{}) { Get(CategoryCheckout).Warn(format, args...) }

func NotifyDebug(format string, args ...interface{}) { Get(CategoryNotify).Debug(format, args...) }

func Routing(format string, args ...interface{})      { Get(CategoryRouting).Info(format, args...) }
func RoutingDebug(format string, args ...interface{}) { Get(CategoryRouting).Debug(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

func UI(format string, args ...interface{})      { Get(CategoryUI).Info(format, args...) }
func UIDebug(format string, args ...interface{}) { Get(CategoryUI).Debug(format, args...) }

func Server(format string, args ...interface{})      { Get(CategoryServer).Info(format, args...) }
func ServerDebug(format string, args ...interface{}) { Get(CategoryServer).Debug(format, args...) }

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// RequestLogger provides request-scoped logging with a correlation ID
type RequestLogger struct {
	logger    *Logger
	requestID string
	fields    map[string]interface{}
}

// WithRequestID creates a request-scoped logger
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		logger:    Get(category),
		requestID: requestID,
		fields:    make(map[string]interface{}),
	}
}

// WithField adds a field to the request logger
func (r *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	r.fields[key] = value
	return r
}

func (r *RequestLogger) kv() []interface{} {
	kv := make([]interface{}, 0, 2+len(r.fields)*2)
	kv = append(kv, "req", r.requestID)
	for k, v := range r.fields {
		kv = append(kv, k, v)
	}
	return kv
}

func (r *RequestLogger) Debug(format string, args ...interface{}) {
	if r.logger.sugar == nil {
		return
	}
	r.logger.sugar.Debugw(fmt.Sprintf(format, args...), r.kv()...)
}

func (r *RequestLogger) Info(format string, args ...interface{}) {
	if r.logger.sugar == nil {
		return
	}
	r.logger.sugar.Infow(fmt.Sprintf(format, args...), r.kv()...)
}

func (r *RequestLogger) Warn(format string, args ...interface{}) {
	if r.logger.sugar == nil {
		return
	}
	r.logger.sugar.Warnw(fmt.Sprintf(format, args...), r.kv()...)
}

func (r *RequestLogger) Error(format string, args ...interface{}) {
	if r.logger.sugar == nil {
		return
	}
	r.logger.sugar.Errorw(fmt.Sprintf(format, args...), r.kv()...)
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning to the performance category if the
// duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(CategoryPerformance).Warn("%s/%s took %v (threshold: %v)", t.category, t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
