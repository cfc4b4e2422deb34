// Package server exposes the correction pipeline over HTTP.
//
// Routes:
//
//   - POST /v1/pipeline — multipart upload (file, rules, optional expected);
//     runs the full correction flow and returns the result as JSON.
//   - GET  /v1/attempts — recent correction attempts, newest first.
//   - GET  /v1/live     — WebSocket for streaming audio correction sessions.
//   - GET  /healthz, /readyz — liveness and readiness probes.
//   - GET  /metrics     — Prometheus scrape endpoint.
//
// All routes pass through the observability middleware (tracing, request
// metrics, correlation IDs) and a configurable CORS layer so browser-based
// therapy tools can call the API directly.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zgraper/phonemefix/internal/health"
	"github.com/zgraper/phonemefix/internal/history"
	"github.com/zgraper/phonemefix/internal/observe"
	"github.com/zgraper/phonemefix/internal/pipeline"
	"github.com/zgraper/phonemefix/internal/rules"
	"github.com/zgraper/phonemefix/internal/score"
)

const (
	// defaultMaxUploadBytes caps uploaded audio at 10 MiB.
	defaultMaxUploadBytes = 10 << 20

	// defaultAttemptsLimit is returned by /v1/attempts when no limit
	// parameter is given.
	defaultAttemptsLimit = 50

	// maxAttemptsLimit is the hard ceiling for the limit parameter.
	maxAttemptsLimit = 500
)

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes caps the size of uploaded audio files. Defaults to 10 MiB.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithCORSAllowedOrigins restricts which origins may call the API from a
// browser. An empty list allows any origin.
func WithCORSAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMetrics sets the metrics instance used by the middleware and the live
// session gauge. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Server wires the pipeline, attempt history, and observability into an
// [http.Handler].
type Server struct {
	pipe           *pipeline.Pipeline
	store          history.Store
	metrics        *observe.Metrics
	maxUploadBytes int64
	corsOrigins    []string
}

// New creates a Server. pipe and store must be non-nil.
func New(pipe *pipeline.Pipeline, store history.Store, opts ...Option) (*Server, error) {
	if pipe == nil {
		return nil, errors.New("server: pipeline must not be nil")
	}
	if store == nil {
		return nil, errors.New("server: history store must not be nil")
	}
	s := &Server{
		pipe:           pipe,
		store:          store,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// Handler returns the fully assembled route tree wrapped in CORS and
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/pipeline", s.handlePipeline)
	mux.HandleFunc("GET /v1/attempts", s.handleAttempts)
	mux.HandleFunc("GET /v1/live", s.handleLive)
	mux.Handle("GET /metrics", promhttp.Handler())

	health.New(health.Checker{Name: "history", Check: s.store.Ping}).Register(mux)

	return s.cors(observe.Middleware(s.metrics)(mux))
}

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// pipelineResponse extends the pipeline result with optional scoring fields
// populated when the caller supplied an expected word.
type pipelineResponse struct {
	*pipeline.Result
	Expected string   `json:"expected,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// handlePipeline runs one full correction pass over an uploaded WAV file.
//
// The multipart form carries:
//
//   - file     — the WAV audio (required)
//   - rules    — the rule configuration JSON (required)
//   - expected — the target word or phrase (optional; enables scoring)
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, `missing "file" form field`)
		return
	}
	defer f.Close()

	wav, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	ruleJSON := r.FormValue("rules")
	if ruleJSON == "" {
		writeError(w, http.StatusBadRequest, `missing "rules" form field`)
		return
	}
	cfg, err := rules.Parse([]byte(ruleJSON))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule configuration: "+err.Error())
		return
	}

	res, err := s.pipe.Run(ctx, wav, cfg)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, pipeline.ErrBadAudio) {
			status = http.StatusBadRequest
		}
		observe.Logger(ctx).Error("pipeline run failed", "error", err)
		writeError(w, status, err.Error())
		return
	}

	resp := pipelineResponse{Result: res}
	attempt := history.Attempt{
		RawIPA:       res.RawIPA,
		CorrectedIPA: res.CorrectedIPA,
		FinalText:    res.FinalText,
		RulesApplied: res.RulesApplied,
		EnabledRules: res.EnabledRules,
	}

	if expected := r.FormValue("expected"); expected != "" {
		sc := score.Attempt(res.FinalText, expected)
		resp.Expected = expected
		resp.Score = &sc
		attempt.Expected = expected
		attempt.Score = sc
	}

	// History is best-effort; a storage outage must not fail the request.
	if _, err := s.store.Write(ctx, attempt); err != nil {
		observe.Logger(ctx).Warn("failed to record attempt", "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleAttempts returns recent correction attempts, newest first. The
// optional limit query parameter caps the result count.
func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	limit := defaultAttemptsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAttemptsLimit)
	}

	attempts, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		observe.Logger(r.Context()).Error("failed to list attempts", "error", err)
		writeError(w, http.StatusInternalServerError, "attempt history unavailable")
		return
	}
	if attempts == nil {
		attempts = []history.Attempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

// cors wraps next with an origin check and preflight handling.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "300")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originAllowed reports whether origin may call the API. An empty allow list
// permits every origin.
func (s *Server) originAllowed(origin string) bool {
	if len(s.corsOrigins) == 0 {
		return true
	}
	return slices.Contains(s.corsOrigins, origin)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
