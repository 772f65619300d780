package authgate

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

/* ==== CSRF ==== */

func TestCSRFDoubleSubmitRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	token, err := f.engine.IssueCSRFToken()
	if err != nil {
		t.Fatalf("IssueCSRFToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty encoded token")
	}

	if err := f.engine.CheckCSRF(ctx, http.MethodPost, token, token, ""); err != nil {
		t.Fatalf("matching double submit rejected: %v", err)
	}
}

func TestCSRFDoubleSubmitMismatch(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	first, err := f.engine.IssueCSRFToken()
	if err != nil {
		t.Fatalf("IssueCSRFToken failed: %v", err)
	}
	second, err := f.engine.IssueCSRFToken()
	if err != nil {
		t.Fatalf("IssueCSRFToken failed: %v", err)
	}

	cases := []struct {
		name   string
		header string
		cookie string
	}{
		{"different tokens", first, second},
		{"empty header", "", first},
		{"empty cookie", first, ""},
		{"forged value", "bm9wZQ:1700000000:deadbeef", "bm9wZQ:1700000000:deadbeef"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.engine.CheckCSRF(ctx, http.MethodPost, tc.header, tc.cookie, "")
			if !errors.Is(err, ErrCSRFRejected) {
				t.Fatalf("expected ErrCSRFRejected, got %v", err)
			}
		})
	}

	if got := f.counter(t, MetricCSRFRejected); got != uint64(len(cases)) {
		t.Fatalf("expected %d csrf-rejected metrics, got %d", len(cases), got)
	}
	events := f.drainAudit()
	if len(events["csrf_rejected"]) != len(cases) {
		t.Fatalf("expected %d csrf_rejected audit events, got %d", len(cases), len(events["csrf_rejected"]))
	}
}

func TestCSRFExemptMethods(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	// Safe methods skip the check entirely, even with garbage values.
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions, "get"} {
		if err := f.engine.CheckCSRF(ctx, method, "garbage", "other-garbage", ""); err != nil {
			t.Fatalf("method %s should be exempt, got %v", method, err)
		}
	}
}

func TestCSRFOriginAllowList(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, func(cfg *Config) {
		cfg.CSRF.AllowedOrigins = []string{"https://app.example.com"}
	})

	token, err := f.engine.IssueCSRFToken()
	if err != nil {
		t.Fatalf("IssueCSRFToken failed: %v", err)
	}

	if err := f.engine.CheckCSRF(ctx, http.MethodPost, token, token, "https://app.example.com"); err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	// Absent origin passes; proxies strip the header.
	if err := f.engine.CheckCSRF(ctx, http.MethodPost, token, token, ""); err != nil {
		t.Fatalf("absent origin rejected: %v", err)
	}

	err = f.engine.CheckCSRF(ctx, http.MethodPost, token, token, "https://evil.example.net")
	if !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("expected foreign origin rejected, got %v", err)
	}
	if HTTPStatus(err) != http.StatusForbidden {
		t.Fatalf("expected 403 mapping, got %d", HTTPStatus(err))
	}
}

func TestCSRFWindowExpiry(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, func(cfg *Config) {
		cfg.CSRF.Window = time.Nanosecond
	})

	token, err := f.engine.IssueCSRFToken()
	if err != nil {
		t.Fatalf("IssueCSRFToken failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := f.engine.CheckCSRF(ctx, http.MethodPost, token, token, ""); !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("expected stale token rejected, got %v", err)
	}
}

func TestCSRFDisabled(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, func(cfg *Config) {
		cfg.CSRF.Enabled = false
	})

	if _, err := f.engine.IssueCSRFToken(); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady with CSRF disabled, got %v", err)
	}
	if err := f.engine.CheckCSRF(ctx, http.MethodPost, "", "", ""); err != nil {
		t.Fatalf("expected check to pass with CSRF disabled, got %v", err)
	}
}

/* ==== RATE LIMITING ==== */

func TestCheckRateBurstLimit(t *testing.T) {
	ctx := WithClientIP(context.Background(), "203.0.113.9")
	f := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Capacity = 1000
		cfg.RateLimit.RefillRate = 1000
		cfg.RateLimit.BurstLimit = 2
		cfg.RateLimit.BurstWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		if err := f.engine.CheckRate(ctx, "/api/orders"); err != nil {
			t.Fatalf("request %d should pass, got %v", i+1, err)
		}
	}

	err := f.engine.CheckRate(ctx, "/api/orders")
	if err == nil {
		t.Fatal("expected third request over the burst window rejected")
	}
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected *RateLimitError, got %T", err)
	}
	if rle.RetryAfter <= 0 {
		t.Fatalf("expected positive RetryAfter, got %s", rle.RetryAfter)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected RateLimitError to match ErrRateLimited")
	}
	if HTTPStatus(err) != http.StatusTooManyRequests {
		t.Fatalf("expected 429 mapping, got %d", HTTPStatus(err))
	}
	if got := f.counter(t, MetricRateLimitHit); got != 1 {
		t.Fatalf("expected 1 rate-limit metric, got %d", got)
	}
	events := f.drainAudit()
	if len(events["rate_limit_triggered"]) != 1 {
		t.Fatalf("expected 1 rate_limit_triggered event, got %d", len(events["rate_limit_triggered"]))
	}
}

func TestCheckRateKeysAreIndependent(t *testing.T) {
	f := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Capacity = 1000
		cfg.RateLimit.RefillRate = 1000
		cfg.RateLimit.BurstLimit = 1
		cfg.RateLimit.BurstWindow = time.Minute
	})

	first := WithClientIP(context.Background(), "203.0.113.10")
	second := WithClientIP(context.Background(), "203.0.113.11")
	keyed := WithAPIKey(first, "svc-batch")

	if err := f.engine.CheckRate(first, "/api"); err != nil {
		t.Fatalf("first IP should pass: %v", err)
	}
	if err := f.engine.CheckRate(first, "/api"); err == nil {
		t.Fatal("first IP should be exhausted")
	}
	if err := f.engine.CheckRate(second, "/api"); err != nil {
		t.Fatalf("second IP must not share the bucket: %v", err)
	}
	// An API key overrides the IP in the bucket key.
	if err := f.engine.CheckRate(keyed, "/api"); err != nil {
		t.Fatalf("api-key bucket must not share the IP bucket: %v", err)
	}
}

func TestCheckRateBypassPaths(t *testing.T) {
	ctx := WithClientIP(context.Background(), "203.0.113.12")
	f := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Capacity = 1000
		cfg.RateLimit.RefillRate = 1000
		cfg.RateLimit.BurstLimit = 1
		cfg.RateLimit.BurstWindow = time.Minute
		cfg.RateLimit.BypassPaths = []string{"/health"}
	})

	if err := f.engine.CheckRate(ctx, "/api"); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}
	if err := f.engine.CheckRate(ctx, "/api"); err == nil {
		t.Fatal("expected limit exhausted")
	}
	for i := 0; i < 5; i++ {
		if err := f.engine.CheckRate(ctx, "/healthz"); err != nil {
			t.Fatalf("bypass path rejected: %v", err)
		}
	}
}

func TestCheckRateDisabled(t *testing.T) {
	ctx := WithClientIP(context.Background(), "203.0.113.13")
	f := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.Enabled = false
	})

	for i := 0; i < 50; i++ {
		if err := f.engine.CheckRate(ctx, "/api"); err != nil {
			t.Fatalf("disabled limiter rejected request %d: %v", i+1, err)
		}
	}
}

func TestCheckRateFailsOpenOnBackendOutage(t *testing.T) {
	ctx := WithClientIP(context.Background(), "203.0.113.14")
	f := newTestEngine(t, nil)

	f.mini.Close()

	// A limiter backend outage must not reject traffic.
	if err := f.engine.CheckRate(ctx, "/api"); err != nil {
		t.Fatalf("expected fail-open on backend outage, got %v", err)
	}
}
