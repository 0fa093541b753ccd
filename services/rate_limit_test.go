package services

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func newTestRateLimiter() *RateLimitService {
	return &RateLimitService{
		configs: defaultRateLimitConfigs(),
		store:   newMemoryLimiterStore(),
		monitor: &MonitoringService{},
	}
}

func TestMemoryStoreWindow(t *testing.T) {
	store := newMemoryLimiterStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, ttl, err := store.Incr(ctx, "k", 100*time.Millisecond)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if count != want {
			t.Fatalf("count = %d, want %d", count, want)
		}
		if ttl <= 0 {
			t.Fatalf("ttl = %v, want positive", ttl)
		}
	}

	time.Sleep(150 * time.Millisecond)

	count, _, err := store.Incr(ctx, "k", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("incr after expiry: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after expiry = %d, want 1", count)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	store := newMemoryLimiterStore()
	ctx := context.Background()

	store.Incr(ctx, "stale", 10*time.Millisecond)
	store.Incr(ctx, "fresh", time.Hour)

	time.Sleep(30 * time.Millisecond)
	store.sweep()

	store.mu.Lock()
	defer store.mu.Unlock()
	if _, ok := store.entries["stale"]; ok {
		t.Fatalf("stale entry survived sweep")
	}
	if _, ok := store.entries["fresh"]; !ok {
		t.Fatalf("fresh entry removed by sweep")
	}
}

func TestCheckEnforcesLimit(t *testing.T) {
	svc := newTestRateLimiter()
	svc.UpdateConfig(ActionAPI, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		info, err := svc.Check(ctx, ActionAPI, "1.2.3.4")
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if !info.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		if info.Remaining != 3-(i+1) {
			t.Fatalf("remaining = %d after request %d", info.Remaining, i+1)
		}
	}

	info, err := svc.Check(ctx, ActionAPI, "1.2.3.4")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if info.Allowed {
		t.Fatalf("expected denial over limit")
	}
	if info.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", info.Remaining)
	}
	if info.ResetTime == nil {
		t.Fatalf("expected reset time")
	}

	// Another identifier has its own window.
	other, err := svc.Check(ctx, ActionAPI, "5.6.7.8")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !other.Allowed {
		t.Fatalf("other identifier should be allowed")
	}
}

func TestCheckVoteActionSingleUse(t *testing.T) {
	svc := newTestRateLimiter()
	ctx := context.Background()

	info, err := svc.Check(ctx, ActionVote, "1.2.3.4")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !info.Allowed {
		t.Fatalf("first vote denied")
	}

	info, err = svc.Check(ctx, ActionVote, "1.2.3.4")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if info.Allowed {
		t.Fatalf("second vote within 24h allowed")
	}
}

func TestCheckUnknownActionAllowed(t *testing.T) {
	svc := newTestRateLimiter()

	info, err := svc.Check(context.Background(), "nonexistent", "1.2.3.4")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !info.Allowed {
		t.Fatalf("unknown action should allow")
	}
}

func TestReset(t *testing.T) {
	svc := newTestRateLimiter()
	ctx := context.Background()

	svc.Check(ctx, ActionVote, "1.2.3.4")
	if info, _ := svc.Check(ctx, ActionVote, "1.2.3.4"); info.Allowed {
		t.Fatalf("expected denial before reset")
	}

	if err := svc.Reset(ctx, ActionVote, "1.2.3.4"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	info, err := svc.Check(ctx, ActionVote, "1.2.3.4")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !info.Allowed {
		t.Fatalf("expected allowance after reset")
	}
}

func TestLimitMiddleware(t *testing.T) {
	svc := newTestRateLimiter()
	svc.UpdateConfig(ActionSearch, 2, time.Minute)

	app := fiber.New()
	app.Get("/search", svc.Limit(ActionSearch), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/search", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.9")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request %d status = %d", i+1, resp.StatusCode)
		}
		if resp.Header.Get("X-RateLimit-Limit") != "2" {
			t.Fatalf("missing limit header")
		}
	}

	req := httptest.NewRequest("GET", "/search", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.9")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("over-limit request: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestGetClientIPPrecedence(t *testing.T) {
	app := fiber.New()

	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got = GetClientIP(c)
		return c.SendString("ok")
	})

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "203.0.113.8"}, "203.0.113.8"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "203.0.113.9"}, "203.0.113.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if _, err := app.Test(req); err != nil {
				t.Fatalf("request: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ip = %q, want %q", got, tc.want)
			}
		})
	}
}
