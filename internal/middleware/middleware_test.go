package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/remix-lens/internal/platform/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(GetTenantFromContext(r.Context())))
})

func tenantRouter(keys map[string]string) http.Handler {
	r := chi.NewRouter()
	r.Use(APIKeyAuth(keys))
	r.Get("/health", okHandler)
	r.Route("/v1/{tenant}", func(r chi.Router) {
		r.Use(RequireValidTenant)
		r.Get("/things", okHandler)
	})
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	h := tenantRouter(map[string]string{"acme": "k-acme", "globex": "k-globex"})

	tests := []struct {
		name   string
		path   string
		auth   string
		status int
		body   string
	}{
		{name: "public path", path: "/health", status: http.StatusOK},
		{name: "missing header", path: "/v1/acme/things", status: http.StatusUnauthorized},
		{name: "bad key", path: "/v1/acme/things", auth: "Bearer nope", status: http.StatusUnauthorized},
		{name: "bearer key", path: "/v1/acme/things", auth: "Bearer k-acme", status: http.StatusOK, body: "acme"},
		{name: "bare key", path: "/v1/globex/things", auth: "k-globex", status: http.StatusOK, body: "globex"},
		{name: "tenant mismatch", path: "/v1/globex/things", auth: "Bearer k-acme", status: http.StatusForbidden},
		{name: "bad tenant format", path: "/v1/ac.me/things", auth: "Bearer k-acme", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestAPIKeyAuthDisabledWithoutKeys(t *testing.T) {
	h := tenantRouter(nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/acme/things", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	h := RateLimitMiddleware(0.001, 2, stop)(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/acme/analyses", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Error("missing Retry-After")
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/v1/acme/analyses", nil)
	req.RemoteAddr = "203.0.113.8:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second client status = %d", rec.Code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Allow("a")
	rl.Allow("b")
	if rl.Len() != 2 {
		t.Fatalf("Len() = %d", rl.Len())
	}
	if n := rl.Sweep(time.Now()); n != 0 {
		t.Errorf("Sweep(now) removed %d", n)
	}
	if n := rl.Sweep(time.Now().Add(11 * time.Minute)); n != 2 || rl.Len() != 0 {
		t.Errorf("Sweep(later) removed %d, left %d", n, rl.Len())
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://cdn.example.com/a.png", true},
		{"http://203.0.113.5/a.png", true},
		{"", false},
		{"ftp://example.com/a.png", false},
		{"https://localhost/a.png", false},
		{"http://127.0.0.1:9000/a.png", false},
		{"http://10.1.2.3/a.png", false},
		{"http://192.168.0.4/a.png", false},
		{"http://172.20.0.1/a.png", false},
		{"http://[::1]/a.png", false},
		{"/relative/a.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateURL(%q) = %v, ok want %v", tt.url, err, tt.ok)
			}
		})
	}
}

type analyzeBody struct {
	MediaURL  string `json:"media_url" validate:"required_without=ObjectKey,public_url"`
	ObjectKey string `json:"object_key" validate:"omitempty,max=512"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "url", body: `{"media_url":"https://cdn.example.com/a.png"}`},
		{name: "key", body: `{"object_key":"acme/2026/01/x.png"}`},
		{name: "neither", body: `{}`, wantErr: true},
		{name: "private url", body: `{"media_url":"http://10.0.0.1/a.png"}`, wantErr: true},
		{name: "unknown field", body: `{"media_url":"https://cdn.example.com/a.png","x":1}`, wantErr: true},
		{name: "not json", body: `media_url=x`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b analyzeBody
			err := DecodeJSON(strings.NewReader(tt.body), &b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("error %v does not wrap ErrValidation", err)
			}
		})
	}
}

func TestValidateTenantID(t *testing.T) {
	for _, ok := range []string{"acme", "a_b-c", strings.Repeat("x", 64)} {
		if err := ValidateTenantID(ok); err != nil {
			t.Errorf("ValidateTenantID(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "a b", "../x", strings.Repeat("x", 65)} {
		if err := ValidateTenantID(bad); err == nil {
			t.Errorf("ValidateTenantID(%q) accepted", bad)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString(" a\x00b\x07c\n "); got != "abc" {
		t.Errorf("SanitizeString() = %q", got)
	}
}

func TestHealthHandlers(t *testing.T) {
	healthy := CheckerFunc(func(context.Context) error { return nil })
	broken := CheckerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": healthy, "storage": broken})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"storage": broken})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable || strings.Contains(rec.Body.String(), "refused") {
		t.Errorf("ready = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"db": healthy})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/v1/{tenant}/probe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/{tenant}/probe", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/acme/probe", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/{tenant}/probe", "418"))
	if after-before != 1 {
		t.Errorf("requests_total delta = %v, want 1", after-before)
	}

	m := PipelineMetrics{}
	okBefore := testutil.ToFloat64(pipelineOutcomesTotal.WithLabelValues("ok", "direct"))
	m.PipelineOutcome("ok", "direct")
	if testutil.ToFloat64(pipelineOutcomesTotal.WithLabelValues("ok", "direct"))-okBefore != 1 {
		t.Error("pipeline outcome not counted")
	}
	m.ModelAttempt("ok", 3*time.Second)
	if testutil.ToFloat64(modelAttemptsTotal.WithLabelValues("ok")) < 1 {
		t.Error("model attempt not counted")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromZap(zap.New(core))

	h := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/acme/analyses/x", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", e.Level)
	}
	fields := e.ContextMap()
	if fields["status"] != int64(404) || fields["path"] != "/v1/acme/analyses/x" {
		t.Errorf("fields = %v", fields)
	}
}
