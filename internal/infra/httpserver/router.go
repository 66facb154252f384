package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/remix-lens/internal/application/analysis"
	domai "github.com/bryanwahyu/remix-lens/internal/domain/ai"
	"github.com/bryanwahyu/remix-lens/internal/domain/analysis"
	"github.com/bryanwahyu/remix-lens/internal/domain/analyst"
	"github.com/bryanwahyu/remix-lens/internal/domain/media"
	"github.com/bryanwahyu/remix-lens/internal/middleware"
	"github.com/bryanwahyu/remix-lens/internal/platform/logger"
)

const defaultMaxBodyBytes = 1 << 20

// Options configure the HTTP surface around the service.
type Options struct {
	APIKeys      map[string]string
	CORSOrigins  []string
	RateLimitRPS float64
	RateBurst    int
	MaxBodyBytes int64
	Checkers     map[string]middleware.HealthChecker
	Logger       *logger.Logger
	// Stop ends background work started by the router (rate limiter sweeps).
	Stop <-chan struct{}
}

type Router struct {
	svc     *appanalysis.Service
	log     *logger.Logger
	maxBody int64
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	r := &Router{svc: svc, log: opts.Logger, maxBody: opts.MaxBodyBytes}
	if r.log == nil {
		r.log = logger.Nop()
	}
	if r.maxBody <= 0 {
		r.maxBody = defaultMaxBodyBytes
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.LoggingMiddleware(r.log))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	mux.Use(middleware.RateLimitMiddleware(opts.RateLimitRPS, opts.RateBurst, opts.Stop))

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checkers))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireValidTenant)
		rt.Post("/uploads", r.wrap(r.handlePresignUpload))
		rt.Post("/extract", r.wrap(r.handleExtract))
		rt.Post("/analyses", r.wrap(r.handleAnalyze))
		rt.Get("/analyses", r.wrap(r.handleList))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Delete("/analyses/{id}", r.wrap(r.handleDelete))
		rt.Get("/analyses/{id}/failures", r.wrap(r.handleFailures))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// wrap maps handler errors to status codes in one place
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var (
			exhausted *appanalysis.ExhaustedError
			pipeErr   *analysis.Error
		)
		switch {
		case errors.Is(err, middleware.ErrValidation),
			errors.Is(err, appanalysis.ErrInvalidInput),
			errors.Is(err, media.ErrUnsupportedType):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: err.Error()})
		case errors.Is(err, analyst.ErrNotFound),
			errors.Is(err, media.ErrNotFound),
			errors.Is(err, sql.ErrNoRows):
			writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "quota_exceeded", Message: "ai quota exceeded"})
		case errors.Is(err, domai.ErrEmptyResponse):
			writeJSON(w, http.StatusBadGateway, errorBody{Error: "empty_model_response", Message: err.Error()})
		case errors.As(err, &pipeErr):
			details := pipeErr.Details()
			if errors.As(err, &exhausted) {
				details["analysis_id"] = exhausted.AnalysisID
				details["attempts"] = exhausted.Attempts
			}
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: string(pipeErr.Kind), Message: pipeErr.Error(), Details: details})
		default:
			r.log.Error("request failed", "path", req.URL.Path, "request_id", chimw.GetReqID(req.Context()), "error", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal server error"})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/{tenant}/uploads
// Body: {"filename": "cat.png"}
func (r *Router) handlePresignUpload(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	var body struct {
		Filename string `json:"filename" validate:"required,max=255"`
	}
	if err := middleware.DecodeJSON(http.MaxBytesReader(w, req.Body, r.maxBody), &body); err != nil {
		return err
	}
	u, err := r.svc.PresignUpload(req.Context(), tenant, middleware.SanitizeString(body.Filename))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, u)
}

// POST /v1/{tenant}/extract
// Body: raw model output, any content type
func (r *Router) handleExtract(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	raw, err := io.ReadAll(http.MaxBytesReader(w, req.Body, r.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errors.Join(middleware.ErrValidation, err)
		}
		return err
	}
	out, err := r.svc.Extract(req.Context(), tenant, string(raw))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"record":   out.Record,
		"strategy": out.Strategy,
	})
}

// POST /v1/{tenant}/analyses
// Body: {"media_url": "https://..."} or {"object_key": "<tenant>/..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	var body struct {
		MediaURL  string `json:"media_url" validate:"required_without=ObjectKey,excluded_with=ObjectKey,public_url"`
		ObjectKey string `json:"object_key" validate:"max=512"`
	}
	if err := middleware.DecodeJSON(http.MaxBytesReader(w, req.Body, r.maxBody), &body); err != nil {
		return err
	}
	a, err := r.svc.Analyze(req.Context(), appanalysis.AnalyzeCommand{
		TenantID:  tenant,
		MediaURL:  body.MediaURL,
		ObjectKey: body.ObjectKey,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, a)
}

// GET /v1/{tenant}/analyses?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.svc.List(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	a, err := r.svc.Get(req.Context(), tenant, analyst.AnalysisID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, a)
}

// DELETE /v1/{tenant}/analyses/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")

	if err := r.svc.Delete(req.Context(), tenant, analyst.AnalysisID(id)); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/{tenant}/analyses/{id}/failures?limit=20
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.svc.Failures(req.Context(), tenant, id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}
