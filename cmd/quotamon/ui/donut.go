package ui

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Donut rasterizes a percentage into a ring gauge of terminal cells.
// Terminal cells are roughly twice as tall as wide, so the x axis is
// compressed by 2 to make the ring look round.
type Donut struct {
	OuterRadius float64
	InnerRadius float64
}

// NewDonut returns a donut with the standard dashboard dimensions.
func NewDonut() Donut {
	return Donut{OuterRadius: 5, InnerRadius: 3}
}

// Rows returns the raster height.
func (d Donut) Rows() int {
	return int(d.OuterRadius)*2 + 1
}

// Cols returns the raster width.
func (d Donut) Cols() int {
	return int(d.OuterRadius)*4 + 1
}

type cellState uint8

const (
	cellBlank  cellState = iota // outside the ring
	cellEmpty                   // on the ring, not yet used
	cellFilled                  // on the ring, used
)

// raster computes the ring geometry for a clamped percentage. Usage fills
// clockwise from 12 o'clock.
func (d Donut) raster(pct float64) [][]cellState {
	pct = clampPct(pct)
	usedAngle := 2 * math.Pi * (pct / 100.0)

	rows, cols := d.Rows(), d.Cols()
	centerY := d.OuterRadius
	centerX := d.OuterRadius * 2

	grid := make([][]cellState, rows)
	for row := 0; row < rows; row++ {
		line := make([]cellState, cols)
		for col := 0; col < cols; col++ {
			dy := float64(row) - centerY
			dx := (float64(col) - centerX) / 2.0
			dist := math.Sqrt(dx*dx + dy*dy)

			if dist < d.InnerRadius || dist > d.OuterRadius {
				continue
			}

			// Angle clockwise from top, normalized to [0, 2π).
			angle := math.Atan2(dx, -dy)
			if angle < 0 {
				angle += 2 * math.Pi
			}

			// usedAngle 0 is an empty arc; it must not capture the
			// top spoke, whose cells sit at exactly angle 0.
			if usedAngle > 0 && angle <= usedAngle {
				line[col] = cellFilled
			} else {
				line[col] = cellEmpty
			}
		}
		grid[row] = line
	}
	return grid
}

// Render draws the gauge with a centered percentage and label, and an
// optional reset-time annotation to the right of center.
func (d Donut) Render(s Styles, pct float64, label string, resetAt *time.Time, now time.Time) string {
	pct = clampPct(pct)
	fillStyle := s.UsageStyle(pct)
	grid := d.raster(pct)
	rows, cols := d.Rows(), d.Cols()
	centerRow := rows / 2
	centerX := int(d.OuterRadius) * 2

	// Render each cell, then overlay text by replacing rendered cells.
	out := make([][]string, rows)
	for row := 0; row < rows; row++ {
		out[row] = make([]string, cols)
		for col := 0; col < cols; col++ {
			switch grid[row][col] {
			case cellFilled:
				out[row][col] = fillStyle.Render("█")
			case cellEmpty:
				out[row][col] = s.GaugeEmpty.Render("·")
			default:
				out[row][col] = " "
			}
		}
	}

	overlay := func(row int, text string, style func(string) string) {
		if row < 0 || row >= rows {
			return
		}
		start := centerX - (len(text)+1)/2
		for i, ch := range text {
			col := start + i
			if col >= 0 && col < cols {
				out[row][col] = style(string(ch))
			}
		}
	}

	overlay(centerRow, fmt.Sprintf("%.0f%%", pct), func(ch string) string {
		return fillStyle.Bold(true).Render(ch)
	})
	overlay(centerRow+1, label, func(ch string) string {
		return s.Muted.Render(ch)
	})

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		sb.WriteString(strings.Join(out[row], ""))
		if resetAt != nil {
			switch row {
			case centerRow - 1:
				sb.WriteString("  " + s.Muted.Render("Resets"))
			case centerRow:
				sb.WriteString("  " + s.Bold.Render(FormatResetTime(*resetAt, now)))
			}
		}
		if row < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func clampPct(pct float64) float64 {
	return math.Max(0, math.Min(100, pct))
}

// FormatResetTime renders a reset timestamp the way Claude Code does:
// "2:29am" when the reset falls on the current day, "tomorrow at 9:29pm"
// for the next day, and "feb 19 at 9:29pm" otherwise. The timestamp is
// converted to now's location before the day comparison.
func FormatResetTime(reset, now time.Time) string {
	local := reset.In(now.Location())

	clock := strings.ToLower(local.Format("3:04PM"))

	ly, lm, ld := local.Date()
	ny, nm, nd := now.Date()
	if ly == ny && lm == nm && ld == nd {
		return clock
	}

	tomorrow := now.AddDate(0, 0, 1)
	ty, tm, td := tomorrow.Date()
	if ly == ty && lm == tm && ld == td {
		return "tomorrow at " + clock
	}

	return strings.ToLower(local.Format("Jan 2 at ")) + clock
}
