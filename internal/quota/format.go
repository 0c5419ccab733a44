package quota

import "fmt"

// FormatTokens renders a token count in compact form: 1.2M, 45K, 812.
func FormatTokens(count int64) string {
	switch {
	case count >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(count)/1_000_000)
	case count >= 1_000:
		return fmt.Sprintf("%.0fK", float64(count)/1_000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

// FormatCountdown renders seconds-until-reset the way the stats panel shows
// it: "2d 3h", "3h 21m", "21m", or "now" once the reset has passed.
func FormatCountdown(totalSeconds int) string {
	if totalSeconds <= 0 {
		return "now"
	}
	days := totalSeconds / 86400
	hours := (totalSeconds % 86400) / 3600
	minutes := (totalSeconds % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
