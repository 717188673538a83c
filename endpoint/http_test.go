package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/resilience"
)

var testKey = []byte("endpoint-test-key")

func testComposite(t *testing.T) *health.Composite {
	t.Helper()
	registry := health.NewRegistry()
	if err := registry.Register("db", health.NewStaticIndicator(health.Up())); err != nil {
		t.Fatal(err)
	}
	queue := health.NewHealth().Down().
		WithDetail("error", "broker unreachable").
		Build()
	if err := registry.Register("queue", health.NewStaticIndicator(queue)); err != nil {
		t.Fatal(err)
	}
	return health.NewComposite(registry, health.NewStatusAggregator())
}

func testInterceptor() *auth.Interceptor {
	return auth.NewInterceptor(
		auth.NewJWTValidator(auth.JWTConfig{}, auth.NewStaticKeyProvider(testKey)),
		auth.RolePermissions{
			FullRoles:       []string{"admin"},
			RestrictedRoles: []string{"viewer"},
		},
	)
}

func testToken(t *testing.T, roles ...any) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "alice",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testKey)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func get(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPHandler_FullAccess(t *testing.T) {
	h := NewHTTPHandler(testComposite(t), HTTPConfig{Interceptor: testInterceptor()})

	rec := get(t, h, "/actuator/health", testToken(t, "admin"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %d, want 503", rec.Code)
	}
	want := `{"status":"DOWN","details":{"db":{"status":"UP"},"queue":{"status":"DOWN","details":{"error":"broker unreachable"}}}}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("Body = %s\nwant %s", got, want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHTTPHandler_RestrictedAccess(t *testing.T) {
	h := NewHTTPHandler(testComposite(t), HTTPConfig{Interceptor: testInterceptor()})

	rec := get(t, h, "/actuator/health", testToken(t, "viewer"))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %d, want 503", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"DOWN"}` {
		t.Errorf("Body = %s, want status only", got)
	}
	if strings.Contains(rec.Body.String(), "details") {
		t.Error("restricted response leaked details")
	}
}

func TestHTTPHandler_NoToken(t *testing.T) {
	evaluated := false
	evaluator := evaluatorFunc{
		health: func(ctx context.Context) health.CompositeHealth {
			evaluated = true
			return health.NewCompositeHealth(health.StatusUp, nil, nil)
		},
	}
	h := NewHTTPHandler(evaluator, HTTPConfig{Interceptor: testInterceptor()})

	rec := get(t, h, "/actuator/health", "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Code = %d, want 401", rec.Code)
	}
	if evaluated {
		t.Error("indicators evaluated for a rejected request")
	}
}

func TestHTTPHandler_InsufficientRole(t *testing.T) {
	h := NewHTTPHandler(testComposite(t), HTTPConfig{Interceptor: testInterceptor()})

	rec := get(t, h, "/actuator/health", testToken(t, "guest"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("Code = %d, want 403", rec.Code)
	}
}

func TestHTTPHandler_DefaultRestrictedWithoutInterceptor(t *testing.T) {
	h := NewHTTPHandler(testComposite(t))

	rec := get(t, h, "/actuator/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %d, want 503", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "details") {
		t.Error("default access leaked details")
	}
}

func TestHTTPHandler_Component(t *testing.T) {
	h := NewHTTPHandler(testComposite(t), HTTPConfig{Interceptor: testInterceptor()})

	rec := get(t, h, "/actuator/health/db", testToken(t, "admin"))
	if rec.Code != http.StatusOK {
		t.Errorf("Code = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status":"UP"}` {
		t.Errorf("Body = %s", got)
	}

	rec = get(t, h, "/actuator/health/missing", testToken(t, "admin"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Code = %d, want 404", rec.Code)
	}

	// Restricted callers may not address individual components.
	rec = get(t, h, "/actuator/health/db", testToken(t, "viewer"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("Code = %d, want 403", rec.Code)
	}
}

func TestHTTPHandler_Links(t *testing.T) {
	h := NewHTTPHandler(testComposite(t), HTTPConfig{Interceptor: testInterceptor()})

	rec := get(t, h, "/actuator", testToken(t, "admin"))
	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, want 200", rec.Code)
	}

	var body struct {
		Links map[string]Link `json:"_links"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := body.Links["self"]; !ok {
		t.Error("self link missing")
	}
	if link, ok := body.Links["health"]; !ok || link.Href != "/actuator/health" {
		t.Errorf("health link = %+v", link)
	}
	if link, ok := body.Links["health-component"]; !ok || !link.Templated {
		t.Errorf("health-component link = %+v, want templated", link)
	}

	// Restricted callers only see operations their level permits.
	rec = get(t, h, "/actuator", testToken(t, "viewer"))
	body.Links = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := body.Links["self"]; !ok {
		t.Error("self link missing at restricted access")
	}
	if _, ok := body.Links["health-component"]; ok {
		t.Error("restricted caller sees the component operation")
	}
}

func TestHTTPHandler_DetailsPolicy(t *testing.T) {
	t.Run("never suppresses details for full access", func(t *testing.T) {
		h := NewHTTPHandler(testComposite(t), HTTPConfig{
			Interceptor: testInterceptor(),
			ShowDetails: DetailsNever,
		})
		rec := get(t, h, "/actuator/health", testToken(t, "admin"))
		if strings.Contains(rec.Body.String(), "details") {
			t.Errorf("details leaked under DetailsNever: %s", rec.Body.String())
		}
	})

	t.Run("always shows details to restricted callers", func(t *testing.T) {
		h := NewHTTPHandler(testComposite(t), HTTPConfig{
			Interceptor: testInterceptor(),
			ShowDetails: DetailsAlways,
		})
		rec := get(t, h, "/actuator/health", testToken(t, "viewer"))
		if !strings.Contains(rec.Body.String(), "broker unreachable") {
			t.Errorf("details missing under DetailsAlways: %s", rec.Body.String())
		}

		rec = get(t, h, "/actuator/health/db", testToken(t, "viewer"))
		if rec.Code != http.StatusOK {
			t.Errorf("component Code = %d, want 200 under DetailsAlways", rec.Code)
		}
	})
}

func TestHTTPHandler_CustomCodeMapping(t *testing.T) {
	h := NewHTTPHandler(testComposite(t), HTTPConfig{
		Interceptor: testInterceptor(),
		Codes: NewStatusCodeMapper(map[health.Status]int{
			health.StatusDown: http.StatusInternalServerError,
		}),
	})

	rec := get(t, h, "/actuator/health", testToken(t, "admin"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Code = %d, want 500 via override", rec.Code)
	}
}

func TestHTTPHandler_RateLimited(t *testing.T) {
	h := NewHTTPHandler(testComposite(t), HTTPConfig{
		DefaultAccess: auth.AccessFull,
		Limiter:       resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 0.001, Burst: 1}),
	})

	if rec := get(t, h, "/actuator/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("first request Code = %d", rec.Code)
	}
	if rec := get(t, h, "/actuator/health", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request Code = %d, want 429", rec.Code)
	}
}

func TestHTTPHandler_CustomBasePath(t *testing.T) {
	h := NewHTTPHandler(testComposite(t), HTTPConfig{
		BasePath:      "/manage/",
		DefaultAccess: auth.AccessFull,
	})

	rec := get(t, h, "/manage/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %d, want 503", rec.Code)
	}
}

// evaluatorFunc adapts funcs to Evaluator for tests.
type evaluatorFunc struct {
	health   func(ctx context.Context) health.CompositeHealth
	checkOne func(ctx context.Context, name string) (health.Health, error)
}

func (e evaluatorFunc) Health(ctx context.Context) health.CompositeHealth {
	if e.health == nil {
		return health.NewCompositeHealth(health.StatusUnknown, nil, nil)
	}
	return e.health(ctx)
}

func (e evaluatorFunc) CheckOne(ctx context.Context, name string) (health.Health, error) {
	if e.checkOne == nil {
		return health.Health{}, errors.New("not implemented")
	}
	return e.checkOne(ctx, name)
}
