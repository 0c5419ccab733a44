package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const quotaBody = `{
	"five_hour": {"utilization": 0.5, "resets_at": "2026-02-19T21:29:00Z"},
	"seven_day": {"utilization": 0.25},
	"plan_type": "max"
}`

func TestFetchQuotaSendsAuthHeaders(t *testing.T) {
	var gotAuth, gotBeta string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBeta = r.Header.Get("anthropic-beta")
		w.Write([]byte(quotaBody))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	snap, err := c.FetchQuota(context.Background(), "sk-ant-oat01-test")
	if err != nil {
		t.Fatalf("FetchQuota: %v", err)
	}
	if gotAuth != "Bearer sk-ant-oat01-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBeta != "oauth-2025-04-20" {
		t.Errorf("anthropic-beta = %q", gotBeta)
	}
	if snap.FiveHourUsagePct != 50 || snap.PlanType != "max" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestFetchQuotaStatusMapping(t *testing.T) {
	cases := []struct {
		status   int
		wantAuth bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusInternalServerError, false},
		{http.StatusTooManyRequests, false},
	}
	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", c.status)
		}))

		client := NewClient(WithBaseURL(srv.URL))
		_, err := client.FetchQuota(context.Background(), "tok")
		srv.Close()

		if err == nil {
			t.Errorf("status %d: want error", c.status)
			continue
		}
		var authErr *AuthError
		var fetchErr *FetchError
		if c.wantAuth {
			if !errors.As(err, &authErr) {
				t.Errorf("status %d: got %T (%v), want *AuthError", c.status, err, err)
			}
		} else {
			if !errors.As(err, &fetchErr) {
				t.Errorf("status %d: got %T (%v), want *FetchError", c.status, err, err)
			} else if fetchErr.Status != c.status {
				t.Errorf("status %d: FetchError.Status = %d", c.status, fetchErr.Status)
			}
		}
	}
}

func TestFetchQuotaNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FetchQuota(context.Background(), "tok")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("got %T (%v), want *FetchError", err, err)
	}
	if fetchErr.Status != 0 {
		t.Errorf("Status = %d, want 0 for transport error", fetchErr.Status)
	}
}

func TestWithHTTPClientControlsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.FetchQuota(context.Background(), "tok")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("got %T (%v), want *FetchError from client timeout", err, err)
	}
	if fetchErr.Status != 0 {
		t.Errorf("Status = %d, want 0 for a timed-out request", fetchErr.Status)
	}
}

func TestFetchQuotaCoalescesConcurrentCalls(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Write([]byte(quotaBody))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.FetchQuota(context.Background(), "tok"); err != nil {
				t.Errorf("FetchQuota: %v", err)
			}
		}()
	}

	// Let all goroutines pile onto the in-flight request before releasing it.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("server hits = %d, want 1 (singleflight)", got)
	}
}

func TestFetchAPIUsage(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		switch r.URL.Path {
		case "/v1/organizations/usage_report/messages":
			w.Write([]byte(`{"data": [{"results": [
				{"uncached_input_tokens": 1000, "output_tokens": 400,
				 "cache_read_input_tokens": 200, "cache_creation_input_tokens": 100}
			]}]}`))
		case "/v1/organizations/cost_report":
			w.Write([]byte(`{"data": [{"results": [{"amount": 12.5, "currency": "USD"}]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	usage, err := c.FetchAPIUsage(context.Background(), "sk-ant-admin-test")
	if err != nil {
		t.Fatalf("FetchAPIUsage: %v", err)
	}
	if gotKey != "sk-ant-admin-test" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if usage.Tokens.Input != 1000 || usage.Tokens.Output != 400 ||
		usage.Tokens.CacheRead != 200 || usage.Tokens.CacheWrite != 100 {
		t.Errorf("tokens = %+v", usage.Tokens)
	}
	if usage.CostUSD != 12.5 {
		t.Errorf("CostUSD = %v, want 12.5", usage.CostUSD)
	}
}

func TestFetchAPIUsageToleratesMissingCostReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/organizations/usage_report/messages" {
			w.Write([]byte(`{"data": [{"results": [{"input_tokens": 10, "output_tokens": 5}]}]}`))
			return
		}
		http.Error(w, "not enabled", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	usage, err := c.FetchAPIUsage(context.Background(), "key")
	if err != nil {
		t.Fatalf("FetchAPIUsage: %v", err)
	}
	if usage.Tokens.Total() != 15 || usage.CostUSD != 0 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestFetchAPIUsageRejectedKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FetchAPIUsage(context.Background(), "bad")

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("got %T (%v), want *AuthError", err, err)
	}
}
