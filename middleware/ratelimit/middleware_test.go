package ratelimit

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"checkout-gateway/middleware/ratelimit/application"
	"checkout-gateway/middleware/ratelimit/domain"
	"checkout-gateway/middleware/ratelimit/infra"
)

type recordedEvent struct{ ip, path, ua string }

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) RateLimit(ip, path, userAgent string) {
	f.mu.Lock()
	f.events = append(f.events, recordedEvent{ip, path, userAgent})
	f.mu.Unlock()
}

func fixedNow() func() time.Time {
	t := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func okHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
}

func doRequest(h http.Handler, method, target, ip string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set("X-Forwarded-For", ip)
	r.Header.Set("User-Agent", "Mozilla/5.0 test")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMiddleware_StrictPathAdmitsTenThenRejects(t *testing.T) {
	events := &fakeEvents{}
	calls := 0
	h := Middleware(Options{
		Store:  infra.NewWindowStore(),
		Events: events,
		Now:    fixedNow(),
	})(okHandler(&calls))

	for i := 1; i <= 10; i++ {
		w := doRequest(h, http.MethodPost, "http://example/api/create-payment-intent", "1.2.3.4")
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Fatalf("expected X-RateLimit-Limit=10, got %q", got)
		}
		if got, want := w.Header().Get("X-RateLimit-Remaining"), formatInt(10-i); got != want {
			t.Fatalf("request %d: expected remaining %s, got %q", i, want, got)
		}
	}

	w := doRequest(h, http.MethodPost, "http://example/api/create-payment-intent", "1.2.3.4")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "900" {
		t.Fatalf("expected Retry-After=900, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected X-RateLimit-Remaining=0, got %q", got)
	}

	var body RejectBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body.Error != DefaultMessage || body.RetryAfter != 900 {
		t.Fatalf("unexpected body: %+v", body)
	}

	if calls != 10 {
		t.Fatalf("expected next handler to be called 10 times, got %d", calls)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected exactly one rate limit event, got %d", len(events.events))
	}
	if ev := events.events[0]; ev.ip != "1.2.3.4" || ev.path != "/api/create-payment-intent" || ev.ua != "Mozilla/5.0 test" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestMiddleware_DefaultPathUsesHundred(t *testing.T) {
	calls := 0
	h := Middleware(Options{Store: infra.NewWindowStore(), Now: fixedNow()})(okHandler(&calls))

	w := doRequest(h, http.MethodGet, "http://example/api/products", "1.2.3.4")
	if got := w.Header().Get("X-RateLimit-Limit"); got != "100" {
		t.Fatalf("expected X-RateLimit-Limit=100, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "99" {
		t.Fatalf("expected X-RateLimit-Remaining=99, got %q", got)
	}
	want := formatUnixCeil(time.Date(2025, 1, 1, 12, 15, 0, 0, time.UTC))
	if got := w.Header().Get("X-RateLimit-Reset"); got != want {
		t.Fatalf("expected X-RateLimit-Reset=%s, got %q", want, got)
	}
}

func TestMiddleware_IgnoresPathsOutsideAPI(t *testing.T) {
	calls := 0
	h := Middleware(Options{
		Store:    infra.NewWindowStore(),
		Policies: application.Policies{Prefix: "/api/", Default: domain.Policy{MaxRequests: 1, Window: time.Minute}},
		Now:      fixedNow(),
	})(okHandler(&calls))

	for range 3 {
		w := doRequest(h, http.MethodGet, "http://example/checkout", "1.2.3.4")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "" {
			t.Fatalf("expected no rate limit headers, got %q", got)
		}
	}
}

func TestMiddleware_KeysByIPAndPath(t *testing.T) {
	calls := 0
	h := Middleware(Options{
		Store: infra.NewWindowStore(),
		Policies: application.Policies{
			Prefix:  "/api/",
			Default: domain.Policy{Class: domain.ClassDefault, MaxRequests: 1, Window: time.Minute},
		},
		Now: fixedNow(),
	})(okHandler(&calls))

	if w := doRequest(h, http.MethodGet, "http://example/api/a", "1.1.1.1"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	// mesmo IP, outro path
	if w := doRequest(h, http.MethodGet, "http://example/api/b", "1.1.1.1"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for other path, got %d", w.Code)
	}
	// outro IP, mesmo path
	if w := doRequest(h, http.MethodGet, "http://example/api/a", "2.2.2.2"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for other ip, got %d", w.Code)
	}
	if w := doRequest(h, http.MethodGet, "http://example/api/a", "1.1.1.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestMiddleware_BypassSkipsLimiter(t *testing.T) {
	calls := 0
	h := Middleware(Options{
		Store: infra.NewWindowStore(),
		Policies: application.Policies{
			Prefix:  "/api/",
			Default: domain.Policy{MaxRequests: 1, Window: time.Minute},
		},
		Bypass: func(ip string) bool { return ip == "10.0.0.1" },
		Now:    fixedNow(),
	})(okHandler(&calls))

	for range 3 {
		if w := doRequest(h, http.MethodGet, "http://example/api/a", "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
}

func TestMiddleware_RecordsStats(t *testing.T) {
	stats := infra.NewMemoryStatsStore()
	calls := 0
	h := Middleware(Options{
		Store: infra.NewWindowStore(),
		Stats: stats,
		Policies: application.Policies{
			Prefix:        "/api/",
			Strict:        domain.Policy{Class: domain.ClassStrict, MaxRequests: 1, Window: time.Minute},
			StrictMarkers: []string{"webhook"},
			Default:       domain.Policy{Class: domain.ClassDefault, MaxRequests: 5, Window: time.Minute},
		},
		Now: fixedNow(),
	})(okHandler(&calls))

	doRequest(h, http.MethodPost, "http://example/api/webhooks/stripe", "1.1.1.1")
	doRequest(h, http.MethodPost, "http://example/api/webhooks/stripe", "1.1.1.1")
	doRequest(h, http.MethodGet, "http://example/health", "1.1.1.1")

	total := stats.Total()
	if total.Allowed != 1 || total.Denied != 1 {
		t.Fatalf("unexpected totals: %+v", total)
	}
	if got := stats.ByClass()[domain.ClassStrict]; got.Denied != 1 {
		t.Fatalf("expected strict denied=1, got %+v", got)
	}
}

func TestMiddleware_ResetsAfterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	h := Middleware(Options{
		Store: infra.NewWindowStore(),
		Policies: application.Policies{
			Prefix:  "/api/",
			Default: domain.Policy{MaxRequests: 1, Window: 15 * time.Minute},
		},
		Now: func() time.Time { return now },
	})(okHandler(&calls))

	doRequest(h, http.MethodGet, "http://example/api/a", "1.1.1.1")

	now = now.Add(14*time.Minute + 30*time.Second)
	w := doRequest(h, http.MethodGet, "http://example/api/a", "1.1.1.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected Retry-After=30, got %q", got)
	}

	now = now.Add(31 * time.Second)
	if w := doRequest(h, http.MethodGet, "http://example/api/a", "1.1.1.1"); w.Code != http.StatusOK {
		t.Fatalf("expected 200 after window, got %d", w.Code)
	}
}
