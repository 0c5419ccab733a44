// Package ui provides the visual styling and widget rendering for the
// quotamon dashboard. Light/dark mode support with threshold-based usage
// colors shared by the gauge and the stats panel.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light mode colors (default)
	LightForeground = lipgloss.Color("#101F38") // Dark blue
	LightMuted      = lipgloss.Color("#8a93a3")
	LightBorder     = lipgloss.Color("#dce0e5")
	LightAccent     = lipgloss.Color("#2196F3") // Blue

	// Dark mode colors
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkMuted      = lipgloss.Color("#6b7689")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkAccent     = lipgloss.Color("#4db6ac") // Teal

	// Usage thresholds (same in both modes)
	UsageGood     = lipgloss.Color("#8BC34A") // Green, below 50%
	UsageWarn     = lipgloss.Color("#FFC107") // Yellow, 50-79%
	UsageCritical = lipgloss.Color("#e53935") // Red, 80% and up
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Accent     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Foreground: LightForeground,
		Muted:      LightMuted,
		Border:     LightBorder,
		Accent:     LightAccent,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Foreground: DarkForeground,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Accent:     DarkAccent,
		IsDark:     true,
	}
}

// DetectTheme picks a theme from terminal hints, defaulting to dark.
// Most terminals running a quota monitor are dark; COLORFGBG flips it.
func DetectTheme() Theme {
	if v := os.Getenv("QUOTAMON_DARK_MODE"); v == "0" {
		return LightTheme()
	}

	colorTerm := os.Getenv("COLORFGBG")
	if colorTerm != "" {
		// Format is "foreground;background"; ANSI backgrounds 7 and 15
		// indicate a light terminal.
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if bgIdx == 7 || bgIdx == 15 {
					return LightTheme()
				}
			}
		}
	}

	return DarkTheme()
}

// Styles holds all the styled components.
type Styles struct {
	Theme Theme

	// Header
	AppName   lipgloss.Style
	PlanBadge lipgloss.Style
	StatusOK  lipgloss.Style
	StatusDim lipgloss.Style
	StatusErr lipgloss.Style

	// Stats panel
	SectionTitle lipgloss.Style
	Body         lipgloss.Style
	Muted        lipgloss.Style
	Bold         lipgloss.Style

	// Gauge
	GaugeGood     lipgloss.Style
	GaugeWarn     lipgloss.Style
	GaugeCritical lipgloss.Style
	GaugeEmpty    lipgloss.Style

	// Misc
	Spinner lipgloss.Style
	Divider lipgloss.Style
	Help    lipgloss.Style
	Notice  lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		AppName: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		PlanBadge: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		StatusOK: lipgloss.NewStyle().
			Foreground(UsageGood),

		StatusDim: lipgloss.NewStyle().
			Foreground(theme.Muted),

		StatusErr: lipgloss.NewStyle().
			Foreground(UsageCritical).
			Bold(true),

		SectionTitle: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		GaugeGood: lipgloss.NewStyle().
			Foreground(UsageGood),

		GaugeWarn: lipgloss.NewStyle().
			Foreground(UsageWarn),

		GaugeCritical: lipgloss.NewStyle().
			Foreground(UsageCritical),

		GaugeEmpty: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Help: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Notice: lipgloss.NewStyle().
			Foreground(UsageWarn).
			Bold(true),
	}
}

// DefaultStyles returns styles with the auto-detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// UsageStyle maps a usage percentage to its threshold style:
// below 50 green, 50 to 79 yellow, 80 and above red.
func (s Styles) UsageStyle(pct float64) lipgloss.Style {
	switch {
	case pct < 50:
		return s.GaugeGood
	case pct < 80:
		return s.GaugeWarn
	default:
		return s.GaugeCritical
	}
}

// RenderDivider returns a horizontal divider of the given width.
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return s.Divider.Render(strings.Repeat("─", width))
}
