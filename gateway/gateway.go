// Package gateway serves a local HTTP endpoint that forwards API requests
// through a failover strategy, so clients that only know one address still
// benefit from the backup candidates.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byte4ever/failover"
	"github.com/byte4ever/failover/httpx"
	"github.com/byte4ever/failover/stats"
)

// CandidateHeader names the candidate that served a forwarded response.
const CandidateHeader = "X-Failover-Candidate"

// maxRequestBody caps forwarded request bodies.
const maxRequestBody = 1 << 20

// forwardedHeaders are copied from the client request to every attempt.
var forwardedHeaders = []string{"Accept", "Content-Type", "Authorization"} //nolint:gochecknoglobals // read-only

// Config holds the gateway's collaborators. Strategy is required; the rest
// default to no-ops.
type Config struct {
	Strategy *failover.Strategy
	Client   *httpx.Client
	Registry *failover.Registry
	Stats    stats.Recorder
	Logger   *zap.Logger
	// Stale, when set, serves the last good GET response for a path when
	// every candidate fails.
	Stale *failover.StaleCache[string, Served]
}

// Gateway forwards /api/* requests through a failover strategy.
type Gateway struct {
	strategy *failover.Strategy
	client   *httpx.Client
	registry *failover.Registry
	stats    stats.Recorder
	logger   *zap.Logger
	stale    *failover.StaleCache[string, Served]
}

// New creates a Gateway from cfg.
func New(cfg Config) *Gateway {
	g := &Gateway{
		strategy: cfg.Strategy,
		client:   cfg.Client,
		registry: cfg.Registry,
		stats:    cfg.Stats,
		logger:   cfg.Logger,
		stale:    cfg.Stale,
	}

	if g.client == nil {
		g.client = httpx.NewClient(nil, nil)
	}

	if g.registry == nil {
		g.registry = failover.DefaultRegistry()
	}

	if g.logger == nil {
		g.logger = zap.NewNop()
	}

	return g
}

// Routes returns the gateway's HTTP handler.
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(g.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/readyz", failover.ReadinessHandler(g.registry))
	r.Get("/stats", g.handleStats)
	r.HandleFunc("/api/*", g.forward)

	return r
}

// Served pairs an upstream response with the candidate that produced it.
type Served struct {
	Response  *httpx.Response
	Candidate string
}

func (g *Gateway) forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))

			return
		}

		writeError(w, http.StatusBadRequest, "read request body: "+err.Error())

		return
	}

	if len(body) == 0 {
		body = nil
	}

	path := chi.URLParam(r, "*")
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	header := make(http.Header)
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		key := r.Header.Get(httpx.IdempotencyKeyHeader)
		if key == "" {
			key = uuid.NewString()
		}

		header.Set(httpx.IdempotencyKeyHeader, key)
	}

	method := r.Method
	op := func(ctx context.Context, base string) (Served, error) {
		resp, err := g.client.Send(ctx, method, strings.TrimSuffix(base, "/")+"/"+path, body, header)
		if err != nil {
			return Served{}, err
		}

		return Served{Response: resp, Candidate: base}, nil
	}

	fetch := func(ctx context.Context, _ string) (Served, error) {
		return failover.Execute(ctx, g.strategy, op)
	}

	var out Served

	switch {
	case g.stale != nil && method == http.MethodGet:
		out, err = g.stale.Do(r.Context(), path, fetch)
	default:
		out, err = fetch(r.Context(), path)
		if err == nil && g.stale != nil {
			g.stale.Invalidate(path)
			g.stale.Invalidate(parentPath(path))
		}
	}

	if err != nil {
		g.writeFailure(w, r, err)
		return
	}

	if ct := out.Response.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}

	w.Header().Set(CandidateHeader, out.Candidate)
	w.WriteHeader(out.Response.StatusCode)
	_, _ = w.Write(out.Response.Body)
}

// parentPath returns the collection of an item path: "todos/3" -> "todos".
func parentPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}

	return path
}

// writeFailure relays the last candidate's HTTP error when there was one,
// otherwise maps the failover error to a gateway status.
func (g *Gateway) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.Warn("forward failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)

	if last, ok := failover.LastAttempt(err); ok {
		w.Header().Set(CandidateHeader, last.Candidate)
	}

	var statusErr *httpx.StatusError
	if errors.As(err, &statusErr) {
		if ct := statusErr.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}

		w.WriteHeader(statusErr.StatusCode)
		_, _ = w.Write(statusErr.Body)

		return
	}

	switch {
	case errors.Is(err, failover.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		w.WriteHeader(499) //nolint:mnd // nginx "client closed request"
	case errors.Is(err, failover.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (g *Gateway) handleStats(w http.ResponseWriter, r *http.Request) {
	if g.stats == nil {
		writeError(w, http.StatusNotFound, "stats disabled")
		return
	}

	counts, err := g.stats.Snapshot(r.Context(), g.strategy.Name())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort JSON encoding to HTTP response
	_ = json.NewEncoder(w).Encode(map[string]stats.Counts{g.strategy.Name(): counts})
}

func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		g.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort JSON encoding to HTTP response
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
