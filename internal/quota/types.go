// Package quota holds the data model shared between the API client, the
// history store, and the dashboard widgets.
package quota

import "time"

// ModelQuota is the usage percentage for a single model pool.
type ModelQuota struct {
	ModelName string  `json:"model_name"`
	UsagePct  float64 `json:"usage_pct"`
}

// Snapshot is one observation of the OAuth usage endpoint.
type Snapshot struct {
	TakenAt time.Time `json:"taken_at"`

	FiveHourUsagePct float64    `json:"five_hour_usage_pct"`
	FiveHourResetAt  *time.Time `json:"five_hour_reset_at,omitempty"`
	SevenDayUsagePct float64    `json:"seven_day_usage_pct"`
	SevenDayResetAt  *time.Time `json:"seven_day_reset_at,omitempty"`

	ModelQuotas []ModelQuota `json:"model_quotas,omitempty"`
	PlanType    string       `json:"plan_type"`
}

// FiveHourRemaining returns whole seconds until the 5-hour window resets.
// Zero when the reset time is unknown or already passed.
func (s *Snapshot) FiveHourRemaining(now time.Time) int {
	return remaining(s.FiveHourResetAt, now)
}

// SevenDayRemaining returns whole seconds until the 7-day window resets.
func (s *Snapshot) SevenDayRemaining(now time.Time) int {
	return remaining(s.SevenDayResetAt, now)
}

func remaining(reset *time.Time, now time.Time) int {
	if reset == nil {
		return 0
	}
	secs := int(reset.Sub(now).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// TokenCounts holds input/output/cache token sums.
type TokenCounts struct {
	Input      int64 `json:"input"`
	Output     int64 `json:"output"`
	CacheRead  int64 `json:"cache_read"`
	CacheWrite int64 `json:"cache_write"`
}

// Total sums all four buckets.
func (tc TokenCounts) Total() int64 {
	return tc.Input + tc.Output + tc.CacheRead + tc.CacheWrite
}

// Add accumulates another set of counts.
func (tc *TokenCounts) Add(other TokenCounts) {
	tc.Input += other.Input
	tc.Output += other.Output
	tc.CacheRead += other.CacheRead
	tc.CacheWrite += other.CacheWrite
}

// APIUsage is the Admin API view: token counts plus billed cost.
type APIUsage struct {
	Tokens  TokenCounts `json:"tokens"`
	CostUSD float64     `json:"cost_usd"`
}
