package endpoint

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/resilience"
)

// DetailsPolicy controls when component details appear in responses,
// beyond the access-level rule.
type DetailsPolicy int

const (
	// DetailsWhenAuthorized shows details to FULL-access callers only.
	DetailsWhenAuthorized DetailsPolicy = iota

	// DetailsNever suppresses details for everyone.
	DetailsNever

	// DetailsAlways shows details to any authorized caller.
	DetailsAlways
)

// HTTPConfig configures the HTTP health adapter.
type HTTPConfig struct {
	// BasePath is the route prefix. Default: "/actuator".
	BasePath string

	// Codes maps aggregate statuses to HTTP codes. Default table when nil.
	Codes *StatusCodeMapper

	// Interceptor gates access. When nil, every caller gets DefaultAccess.
	Interceptor *auth.Interceptor

	// DefaultAccess is the access level granted without an interceptor.
	// Default: RESTRICTED (aggregate status only).
	DefaultAccess auth.AccessLevel

	// Limiter, when set, rate-limits requests; rejected requests get 429.
	Limiter *resilience.RateLimiter

	// ShowDetails adjusts detail visibility. Default: DetailsWhenAuthorized.
	ShowDetails DetailsPolicy

	// Operations is the exposed operation table. Default:
	// DefaultOperations().
	Operations []Operation
}

// HTTPHandler exposes the health endpoint over HTTP: a links discovery
// root, the aggregate health resource, and per-component resources.
//
// Request flow per the endpoint state machine: the interceptor authorizes
// the caller first; denied requests are rejected without evaluating any
// indicator; granted requests evaluate, serialize filtered by access
// level, and respond.
type HTTPHandler struct {
	evaluator Evaluator
	config    HTTPConfig
	router    *mux.Router
}

// NewHTTPHandler creates the HTTP adapter over the shared evaluator.
func NewHTTPHandler(evaluator Evaluator, config ...HTTPConfig) *HTTPHandler {
	cfg := HTTPConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/actuator"
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")
	if cfg.Codes == nil {
		cfg.Codes = NewStatusCodeMapper(nil)
	}
	if cfg.Interceptor == nil && cfg.DefaultAccess == auth.AccessNone {
		cfg.DefaultAccess = auth.AccessRestricted
	}
	if cfg.Operations == nil {
		cfg.Operations = DefaultOperations()
	}

	h := &HTTPHandler{evaluator: evaluator, config: cfg}

	router := mux.NewRouter()
	router.HandleFunc(cfg.BasePath, h.handleLinks).Methods(http.MethodGet)
	for _, op := range cfg.Operations {
		switch op.ID {
		case "health":
			router.HandleFunc(cfg.BasePath+op.Path, h.handleHealth).Methods(op.Method)
		case "health-component":
			router.HandleFunc(cfg.BasePath+op.Path, h.handleComponent).Methods(op.Method)
		}
	}
	h.router = router
	return h
}

// ServeHTTP implements http.Handler.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// authorize resolves the caller's access level, writing the rejection and
// returning false when the request may not proceed.
func (h *HTTPHandler) authorize(w http.ResponseWriter, r *http.Request, endpointID string) (auth.AccessLevel, bool) {
	if h.config.Limiter != nil && !h.config.Limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return auth.AccessNone, false
	}

	if h.config.Interceptor == nil {
		return h.config.DefaultAccess, true
	}

	verdict := h.config.Interceptor.PreHandle(r.Context(), bearerToken(r), endpointID)
	if !verdict.Granted() {
		writeError(w, verdict.Code, verdict.Message)
		return auth.AccessNone, false
	}
	return verdict.AccessLevel, true
}

func (h *HTTPHandler) handleLinks(w http.ResponseWriter, r *http.Request) {
	level, ok := h.authorize(w, r, "")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"_links": Links(h.config.BasePath, h.config.Operations, level),
	})
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	level, ok := h.authorize(w, r, "health")
	if !ok {
		return
	}

	result := h.evaluator.Health(r.Context())
	code := h.config.Codes.Code(result.Status())

	if !h.showDetails(level) {
		writeJSON(w, code, result.StatusOnly())
		return
	}
	writeJSON(w, code, result)
}

// showDetails applies the details policy on top of the access level.
func (h *HTTPHandler) showDetails(level auth.AccessLevel) bool {
	switch h.config.ShowDetails {
	case DetailsNever:
		return false
	case DetailsAlways:
		return true
	default:
		return level >= auth.AccessFull
	}
}

func (h *HTTPHandler) handleComponent(w http.ResponseWriter, r *http.Request) {
	level, ok := h.authorize(w, r, "health-component")
	if !ok {
		return
	}
	// Per-component details are sensitive; restricted callers may not
	// address individual components at all.
	if level < auth.AccessFull && h.config.ShowDetails != DetailsAlways {
		writeError(w, http.StatusForbidden, auth.ErrForbidden.Error())
		return
	}

	name := mux.Vars(r)["component"]
	result, err := h.evaluator.CheckOne(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, h.config.Codes.Code(result.Status()), result)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(token)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

var _ Evaluator = (*health.Composite)(nil)
