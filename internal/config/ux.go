package config

import (
	"fmt"
	"time"
)

// Bounds for the catalog search debounce.
const (
	MinSearchDebounce = 300 * time.Millisecond
	MaxSearchDebounce = 500 * time.Millisecond
)

// UXConfig holds interaction timings and the reconciliation policy.
type UXConfig struct {
	// SearchDebounce coalesces search keystrokes (300ms-500ms)
	SearchDebounce string `yaml:"search_debounce" json:"search_debounce"`

	// ToastDuration is how long a notification stays visible
	ToastDuration string `yaml:"toast_duration" json:"toast_duration"`

	// RedirectDelay lets the user read the notification before navigating away
	RedirectDelay string `yaml:"redirect_delay" json:"redirect_delay"`

	// StrictOrdering drops responses older than the latest applied one.
	// When false, the last response to arrive wins.
	StrictOrdering bool `yaml:"strict_ordering" json:"strict_ordering"`

	// DarkMode forces the dark terminal theme
	DarkMode bool `yaml:"dark_mode" json:"dark_mode"`
}

// DefaultUXConfig returns the storefront defaults.
func DefaultUXConfig() *UXConfig {
	return &UXConfig{
		SearchDebounce: "500ms",
		ToastDuration:  "3s",
		RedirectDelay:  "1500ms",
		StrictOrdering: true,
	}
}

// GetSearchDebounce returns the debounce delay clamped to the supported range.
func (u UXConfig) GetSearchDebounce() time.Duration {
	d, err := time.ParseDuration(u.SearchDebounce)
	if err != nil {
		return MaxSearchDebounce
	}
	if d < MinSearchDebounce {
		return MinSearchDebounce
	}
	if d > MaxSearchDebounce {
		return MaxSearchDebounce
	}
	return d
}

// GetToastDuration returns the notification lifetime.
func (u UXConfig) GetToastDuration() time.Duration {
	d, err := time.ParseDuration(u.ToastDuration)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// GetRedirectDelay returns the delay before a post-action redirect.
func (u UXConfig) GetRedirectDelay() time.Duration {
	d, err := time.ParseDuration(u.RedirectDelay)
	if err != nil || d < 0 {
		return 1500 * time.Millisecond
	}
	return d
}

// Validate reports unparsable durations. Out-of-range debounce values are
// clamped rather than rejected.
func (u UXConfig) Validate() error {
	for name, v := range map[string]string{
		"ux.search_debounce": u.SearchDebounce,
		"ux.toast_duration":  u.ToastDuration,
		"ux.redirect_delay":  u.RedirectDelay,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
