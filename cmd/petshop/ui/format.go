package ui

import (
	"strings"

	"petshop/internal/types"

	"github.com/shopspring/decimal"
)

// Currency is appended to every rendered amount.
const Currency = "₽"

// Money renders an amount with two decimals and thin grouping.
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	out := sb.String() + "." + frac + " " + Currency
	if neg {
		return "-" + out
	}
	return out
}

// StatusLabel renders an order status for display.
func StatusLabel(s types.OrderStatus) string {
	switch s {
	case types.OrderCreated:
		return "Created"
	case types.OrderPending:
		return "Processing"
	case types.OrderShipped:
		return "Shipped"
	case types.OrderDelivered:
		return "Delivered"
	case types.OrderCanceled:
		return "Canceled"
	default:
		return string(s)
	}
}

// Truncate shortens s to at most n runes, ending with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 1 {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
