package api

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"quotamon/internal/quota"
)

func TestParseQuotaResponseSnakeCase(t *testing.T) {
	body := []byte(`{
		"five_hour": {"utilization": 0.5, "resets_at": "2026-02-19T21:29:00Z"},
		"seven_day": {"utilization": 0.25, "resets_at": "2026-02-23T00:00:00Z"},
		"models": [
			{"model": "claude-sonnet", "utilization": 0.125},
			{"model": "claude-opus", "utilization": 0.875}
		],
		"plan_type": "max"
	}`)

	now := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)
	snap, err := parseQuotaResponse(body, now)
	if err != nil {
		t.Fatalf("parseQuotaResponse: %v", err)
	}

	fiveReset := time.Date(2026, 2, 19, 21, 29, 0, 0, time.UTC)
	sevenReset := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	want := &quota.Snapshot{
		TakenAt:          now,
		FiveHourUsagePct: 50,
		FiveHourResetAt:  &fiveReset,
		SevenDayUsagePct: 25,
		SevenDayResetAt:  &sevenReset,
		ModelQuotas: []quota.ModelQuota{
			{ModelName: "claude-sonnet", UsagePct: 12.5},
			{ModelName: "claude-opus", UsagePct: 87.5},
		},
		PlanType: "max",
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestParseQuotaResponseCamelCaseAndUsagePct(t *testing.T) {
	body := []byte(`{
		"fiveHour": {"usage_pct": 55.5, "resetAt": "2026-02-19T21:29:00Z"},
		"sevenDay": {"usagePct": 10, "reset_at": "2026-02-23T00:00:00Z"},
		"model_quotas": [{"name": "claude-haiku", "usage_pct": 3}],
		"planType": "pro"
	}`)

	snap, err := parseQuotaResponse(body, time.Now())
	if err != nil {
		t.Fatalf("parseQuotaResponse: %v", err)
	}
	if snap.FiveHourUsagePct != 55.5 {
		t.Errorf("FiveHourUsagePct = %v, want 55.5 (usage_pct taken as-is)", snap.FiveHourUsagePct)
	}
	if snap.SevenDayUsagePct != 10 {
		t.Errorf("SevenDayUsagePct = %v, want 10", snap.SevenDayUsagePct)
	}
	if snap.FiveHourResetAt == nil || snap.SevenDayResetAt == nil {
		t.Fatal("reset times not parsed from alternate spellings")
	}
	if len(snap.ModelQuotas) != 1 || snap.ModelQuotas[0].ModelName != "claude-haiku" {
		t.Errorf("ModelQuotas = %+v", snap.ModelQuotas)
	}
	if snap.PlanType != "pro" {
		t.Errorf("PlanType = %q", snap.PlanType)
	}
}

func TestParseQuotaResponseDefaultsAndClamping(t *testing.T) {
	snap, err := parseQuotaResponse([]byte(`{}`), time.Now())
	if err != nil {
		t.Fatalf("empty object: %v", err)
	}
	if snap.FiveHourUsagePct != 0 || snap.SevenDayUsagePct != 0 {
		t.Errorf("empty object: pct = %v / %v, want 0 / 0", snap.FiveHourUsagePct, snap.SevenDayUsagePct)
	}
	if snap.PlanType != "pro" {
		t.Errorf("PlanType default = %q, want pro", snap.PlanType)
	}

	snap, err = parseQuotaResponse([]byte(`{
		"five_hour": {"utilization": 1.7},
		"seven_day": {"utilization": -0.2}
	}`), time.Now())
	if err != nil {
		t.Fatalf("clamping: %v", err)
	}
	if snap.FiveHourUsagePct != 100 {
		t.Errorf("over-range: %v, want clamp 100", snap.FiveHourUsagePct)
	}
	if snap.SevenDayUsagePct != 0 {
		t.Errorf("under-range: %v, want clamp 0", snap.SevenDayUsagePct)
	}

	if _, err := parseQuotaResponse([]byte(`not json`), time.Now()); err == nil {
		t.Error("malformed body: want error")
	}
}

func TestParseQuotaResponseIgnoresBadResetTime(t *testing.T) {
	snap, err := parseQuotaResponse([]byte(`{
		"five_hour": {"utilization": 0.5, "resets_at": "whenever"}
	}`), time.Now())
	if err != nil {
		t.Fatalf("parseQuotaResponse: %v", err)
	}
	if snap.FiveHourResetAt != nil {
		t.Errorf("FiveHourResetAt = %v, want nil for unparseable timestamp", snap.FiveHourResetAt)
	}
	if snap.FiveHourUsagePct != 50 {
		t.Errorf("FiveHourUsagePct = %v, want 50", snap.FiveHourUsagePct)
	}
}

func TestParseISOTime(t *testing.T) {
	for _, s := range []string{
		"2026-02-19T21:29:00Z",
		"2026-02-19T21:29:00+00:00",
		"2026-02-19T21:29:00.123456Z",
		"2026-02-19T21:29:00",
	} {
		ts, err := parseISOTime(s)
		if err != nil {
			t.Errorf("parseISOTime(%q): %v", s, err)
			continue
		}
		if ts.Hour() != 21 || ts.Minute() != 29 {
			t.Errorf("parseISOTime(%q) = %v", s, ts)
		}
	}
	if _, err := parseISOTime("19/02/2026"); err == nil {
		t.Error("parseISOTime(19/02/2026): want error")
	}
}

func TestParseUsageReport(t *testing.T) {
	body := []byte(`{"data": [
		{"results": [
			{"uncached_input_tokens": 1000, "output_tokens": 400,
			 "cache_read_input_tokens": 250, "cache_creation_input_tokens": 50}
		]},
		{"results": [
			{"input_tokens": 2000, "output_tokens": 600}
		]}
	]}`)

	counts, err := parseUsageReport(body)
	if err != nil {
		t.Fatalf("parseUsageReport: %v", err)
	}
	want := quota.TokenCounts{Input: 3000, Output: 1000, CacheRead: 250, CacheWrite: 50}
	if counts != want {
		t.Fatalf("counts = %+v, want %+v", counts, want)
	}
}

func TestParseCostReport(t *testing.T) {
	body := []byte(`{"data": [
		{"results": [{"amount": 1.25, "currency": "USD"}]},
		{"results": [{"amount": "3.50", "currency": "USD"}]}
	]}`)

	cost, err := parseCostReport(body)
	if err != nil {
		t.Fatalf("parseCostReport: %v", err)
	}
	if cost != 4.75 {
		t.Fatalf("cost = %v, want 4.75", cost)
	}
}
