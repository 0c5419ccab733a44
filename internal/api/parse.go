package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quotamon/internal/quota"
)

// The usage endpoint has shipped several field spellings over time
// (snake_case and camelCase, "utilization" and "usage_pct"). Parsing goes
// through a generic map so every spelling lands in the same Snapshot.

func parseQuotaResponse(body []byte, now time.Time) (*quota.Snapshot, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, err
	}

	snap := &quota.Snapshot{TakenAt: now, PlanType: "pro"}

	if win, ok := pickMap(data, "five_hour", "fiveHour"); ok {
		snap.FiveHourUsagePct = windowPct(win)
		snap.FiveHourResetAt = windowReset(win)
	}
	if win, ok := pickMap(data, "seven_day", "sevenDay"); ok {
		snap.SevenDayUsagePct = windowPct(win)
		snap.SevenDayResetAt = windowReset(win)
	}

	if models, ok := pickSlice(data, "models", "model_quotas"); ok {
		for _, m := range models {
			mm, ok := m.(map[string]interface{})
			if !ok {
				continue
			}
			name := pickString(mm, "model", "name")
			if name == "" {
				name = "unknown"
			}
			snap.ModelQuotas = append(snap.ModelQuotas, quota.ModelQuota{
				ModelName: name,
				UsagePct:  windowPct(mm),
			})
		}
	}

	if plan := pickString(data, "plan_type", "planType"); plan != "" {
		snap.PlanType = plan
	}

	return snap, nil
}

// windowPct extracts the usage percentage from a window object.
// "utilization" is fractional (0..1) and is scaled to a percentage;
// "usage_pct" is already 0..100. The result is clamped to [0,100].
func windowPct(win map[string]interface{}) float64 {
	var pct float64
	if v, ok := pickNumber(win, "utilization"); ok {
		pct = v * 100
	} else if v, ok := pickNumber(win, "usage_pct", "usagePct"); ok {
		pct = v
	}
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func windowReset(win map[string]interface{}) *time.Time {
	raw := pickString(win, "resets_at", "reset_at", "resetAt")
	if raw == "" {
		return nil
	}
	ts, err := parseISOTime(raw)
	if err != nil {
		return nil
	}
	return &ts
}

// parseISOTime parses an ISO-8601 timestamp, tolerating a bare "Z" suffix
// and missing sub-second precision.
func parseISOTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Admin API report parsing. Both reports page results as
// {"data": [{"results": [{...}]}]}; token and amount field names are
// normalized the same way as the quota windows.

func parseUsageReport(body []byte) (quota.TokenCounts, error) {
	var report struct {
		Data []struct {
			Results []map[string]interface{} `json:"results"`
		} `json:"data"`
	}
	var counts quota.TokenCounts
	if err := json.Unmarshal(body, &report); err != nil {
		return counts, err
	}

	for _, bucket := range report.Data {
		for _, r := range bucket.Results {
			counts.Add(quota.TokenCounts{
				Input:      pickInt(r, "input_tokens", "uncached_input_tokens"),
				Output:     pickInt(r, "output_tokens"),
				CacheRead:  pickInt(r, "cache_read_input_tokens", "cache_read_tokens"),
				CacheWrite: pickInt(r, "cache_creation_input_tokens", "cache_write_tokens"),
			})
		}
	}
	return counts, nil
}

func parseCostReport(body []byte) (float64, error) {
	var report struct {
		Data []struct {
			Results []map[string]interface{} `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		return 0, err
	}

	var total float64
	for _, bucket := range report.Data {
		for _, r := range bucket.Results {
			// Amounts arrive as numbers or decimal strings.
			if v, ok := pickNumber(r, "amount", "cost", "amount_usd"); ok {
				total += v
			} else if s := pickString(r, "amount", "cost"); s != "" {
				if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
					total += v
				}
			}
		}
	}
	return total, nil
}

// Generic heterogeneous-field helpers.

func pickMap(m map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k].(map[string]interface{}); ok {
			return v, true
		}
	}
	return nil, false
}

func pickSlice(m map[string]interface{}, keys ...string) ([]interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k].([]interface{}); ok {
			return v, true
		}
	}
	return nil, false
}

func pickString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			return v
		}
	}
	return ""
}

func pickNumber(m map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

func pickInt(m map[string]interface{}, keys ...string) int64 {
	if v, ok := pickNumber(m, keys...); ok {
		return int64(v)
	}
	return 0
}
