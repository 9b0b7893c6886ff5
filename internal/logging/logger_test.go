package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"petshop/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestAllCategoriesLog tests that categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(CloseAll)

	err := Initialize(config.LoggingConfig{
		Level:     "debug",
		Format:    "json",
		Directory: dir,
		DebugMode: true,
	})
	require.NoError(t, err)
	require.True(t, IsDebugMode())

	Cart("cart reconciled items=%d", 2)
	API("GET %s", "/cart")
	Store("kv set %s", "authToken")
	CloseAll()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, ",")
	for _, cat := range []Category{CategoryBoot, CategoryCart, CategoryAPI, CategoryStore} {
		assert.Contains(t, joined, "_"+string(cat)+".log")
	}

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+"_cart.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "cart reconciled items=2")
}

func TestProductionModeIsSilent(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(CloseAll)

	require.NoError(t, Initialize(config.LoggingConfig{Directory: dir}))
	assert.False(t, IsDebugMode())

	Cart("should not be written")
	l := Get(CategoryCart)
	assert.Nil(t, l.sugar)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDisabledCategory(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseCore(core, config.LoggingConfig{
		Level:      "debug",
		Categories: map[string]bool{"cart": false},
	})
	t.Cleanup(CloseAll)

	Cart("hidden")
	API("visible")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "visible", logs.All()[0].Message)
}

func TestRequestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseCore(core, config.LoggingConfig{Level: "debug"})
	t.Cleanup(CloseAll)

	WithRequestID(CategoryAPI, "req-1").WithField("status", 200).Info("GET %s", "/products")

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", ctx["req"])
	assert.EqualValues(t, 200, ctx["status"])
}

func TestAudit(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseCore(core, config.LoggingConfig{Level: "debug"})
	t.Cleanup(CloseAll)

	Audit(AuditEvent{Type: AuditOrderPlaced, Target: "order/7", Success: true, Message: "order placed"})
	Audit(AuditEvent{Type: AuditCartRejected, Target: "product/3", Message: "update failed"})

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.InfoLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
	assert.Equal(t, "order_placed", logs.All()[0].ContextMap()["event"])
}

func TestTimerThreshold(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	UseCore(core, config.LoggingConfig{Level: "debug"})
	t.Cleanup(CloseAll)

	timer := StartTimer(CategoryAPI, "slow call")
	time.Sleep(5 * time.Millisecond)
	timer.StopWithThreshold(time.Millisecond)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "performance", logs.All()[0].LoggerName)
}

func TestConcurrentGet(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	UseCore(core, config.LoggingConfig{Level: "debug"})
	t.Cleanup(CloseAll)

	var wg sync.WaitGroup
	got := make([]*Logger, 20)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Get(CategorySession)
		}(i)
	}
	wg.Wait()

	for _, l := range got[1:] {
		assert.Same(t, got[0], l)
	}
}
