package ui

import (
	"testing"

	"petshop/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	t.Setenv("PETSHOP_DARK_MODE", "1")
	assert.True(t, DetectTheme(false).IsDark, "PETSHOP_DARK_MODE=1 forces dark")

	t.Setenv("PETSHOP_DARK_MODE", "")
	assert.False(t, DetectTheme(false).IsDark)
	assert.True(t, DetectTheme(true).IsDark, "config flag forces dark")

	t.Setenv("COLORFGBG", "15;0")
	assert.True(t, DetectTheme(false).IsDark)
}

func TestTable(t *testing.T) {
	table := NewTable("Cart", "Product", "Qty")
	table.AddRow("Корм для кошек", "2")
	table.AddRow("Мяч")

	view := table.View(NewStyles(LightTheme()))
	assert.Contains(t, view, "Cart")
	assert.Contains(t, view, "Корм для кошек")
	assert.Contains(t, view, "Мяч")
}

func TestTableEmpty(t *testing.T) {
	table := NewTable("", "A")
	assert.Empty(t, table.View(DefaultStyles()))

	table.Empty = "Nothing here"
	assert.Contains(t, table.View(DefaultStyles()), "Nothing here")
}

func TestMoney(t *testing.T) {
	tests := map[string]string{
		"450":       "450.00 ₽",
		"820.5":     "820.50 ₽",
		"1641":      "1 641.00 ₽",
		"1234567.8": "1 234 567.80 ₽",
		"-12":       "-12.00 ₽",
	}
	for in, want := range tests {
		assert.Equal(t, want, Money(decimal.RequireFromString(in)), in)
	}
}

func TestStatusLabelAndTruncate(t *testing.T) {
	for _, s := range types.OrderStatuses {
		assert.NotEqual(t, string(s), StatusLabel(s))
	}
	assert.Equal(t, "Когт…", Truncate("Когтеточка", 5))
	assert.Equal(t, "Мяч", Truncate("Мяч", 5))
}
