package ui

import (
	"fmt"
	"strings"
	"time"

	"quotamon/internal/quota"
)

// Rough Pro-plan estimate of messages per five-hour window.
const estimatedWindowMessages = 45

// StatsData carries everything the stats panel can show. Nil sections are
// skipped; an entirely empty panel renders a waiting message.
type StatsData struct {
	Quota         *quota.Snapshot
	SessionTokens *quota.TokenCounts
	APIUsage      *quota.APIUsage
	ShowAPIMode   bool
	Sparkline     string
	Now           time.Time
}

// RenderStats formats the multi-section usage summary.
func RenderStats(s Styles, d StatsData) string {
	var lines []string

	branch := func(last bool) string {
		if last {
			return "  └ "
		}
		return "  ├ "
	}

	if q := d.Quota; q != nil {
		lines = append(lines, s.SectionTitle.Render("5-Hour Window"))
		lines = append(lines,
			branch(false)+pad("Used:")+s.UsageStyle(q.FiveHourUsagePct).Render(fmt.Sprintf("%.0f%%", q.FiveHourUsagePct)),
			branch(false)+pad("Resets:")+s.Body.Render(quota.FormatCountdown(q.FiveHourRemaining(d.Now))),
			branch(true)+pad("Messages:")+s.Body.Render(estimateMessages(q.FiveHourUsagePct)),
			"")

		lines = append(lines, s.SectionTitle.Render("7-Day Window"))
		lines = append(lines,
			branch(false)+pad("Used:")+s.UsageStyle(q.SevenDayUsagePct).Render(fmt.Sprintf("%.0f%%", q.SevenDayUsagePct)),
			branch(true)+pad("Resets:")+s.Body.Render(quota.FormatCountdown(q.SevenDayRemaining(d.Now))),
			"")

		if len(q.ModelQuotas) > 0 {
			lines = append(lines, s.SectionTitle.Render("Model Quotas"))
			for i, mq := range q.ModelQuotas {
				lines = append(lines, branch(i == len(q.ModelQuotas)-1)+
					mq.ModelName+": "+
					s.UsageStyle(mq.UsagePct).Render(fmt.Sprintf("%.0f%%", mq.UsagePct)))
			}
			lines = append(lines, "")
		}
	}

	if d.ShowAPIMode && d.APIUsage != nil {
		a := d.APIUsage
		lines = append(lines, s.SectionTitle.Render("API Usage"))
		lines = append(lines,
			branch(false)+pad("Input:")+quota.FormatTokens(a.Tokens.Input),
			branch(false)+pad("Output:")+quota.FormatTokens(a.Tokens.Output),
			branch(false)+pad("Cache R:")+quota.FormatTokens(a.Tokens.CacheRead),
			branch(false)+pad("Cache W:")+quota.FormatTokens(a.Tokens.CacheWrite),
			branch(false)+pad("Total:")+quota.FormatTokens(a.Tokens.Total()),
			branch(true)+pad("Cost:")+fmt.Sprintf("$%.2f", a.CostUSD),
			"")
	} else if t := d.SessionTokens; t != nil {
		lines = append(lines, s.SectionTitle.Render("Tokens (this session)"))
		lines = append(lines,
			branch(false)+pad("Input:")+quota.FormatTokens(t.Input),
			branch(false)+pad("Output:")+quota.FormatTokens(t.Output),
			branch(false)+pad("Cache:")+quota.FormatTokens(t.CacheRead+t.CacheWrite),
			branch(true)+pad("Total:")+quota.FormatTokens(t.Total()),
			"")
	}

	if d.Sparkline != "" {
		lines = append(lines, s.SectionTitle.Render("Trend (5h window)"))
		lines = append(lines, "  "+s.Body.Render(d.Sparkline), "")
	}

	if len(lines) == 0 {
		return s.Muted.Render("Waiting for data...")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func pad(label string) string {
	return fmt.Sprintf("%-10s", label)
}

func estimateMessages(usagePct float64) string {
	used := int(estimatedWindowMessages * usagePct / 100)
	return fmt.Sprintf("~%d / ~%d", used, estimatedWindowMessages)
}
