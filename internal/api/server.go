// Package api serves critical path analysis over HTTP for the Gantt front end.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/gantt"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/reporter"
)

const maxBodyBytes = 8 << 20

// viewAll disables view filtering when passed as ?view=.
const viewAll = "all"

// SnapshotSource supplies the current task snapshot, e.g. a *gantt.Store.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*gantt.Snapshot, error)
}

// Options configures a Server.
type Options struct {
	Logger       *slog.Logger
	CacheEntries int
	DefaultView  string // used when a request has no ?view=
}

// Server is the critpath HTTP API server.
type Server struct {
	logger      *slog.Logger
	cache       *resultCache
	defaultView string
	source      SnapshotSource
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		logger:      logger,
		cache:       newResultCache(opts.CacheEntries),
		defaultView: opts.DefaultView,
	}
}

// SetSource enables the GET endpoints, which analyse the source's current snapshot.
func (s *Server) SetSource(src SnapshotSource) { s.source = src }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "ok",
			"cache_entries": s.cache.Len(),
			"source":        s.source != nil,
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/critical-path", s.handleCriticalPath)
		r.Post("/validate", s.handleValidate)
		r.Post("/graph", s.handleGraph)

		if s.source != nil {
			r.Get("/critical-path", s.handleCriticalPath)
			r.Get("/validate", s.handleValidate)
			r.Get("/graph", s.handleGraph)
		}
	})

	return r
}

// analysis is a finished engine run as stored in the cache.
type analysis struct {
	ID        string
	Result    *cpm.CriticalPathResult
	CreatedAt time.Time
}

// computation is one request's view of an analysis.
type computation struct {
	analysis *analysis
	cached   bool
	view     string
	tasks    []graph.Task
	links    []graph.DependencyLink
	skipped  []int
	titles   map[string]string
}

func (s *Server) compute(snap *gantt.Snapshot, view string) *computation {
	snap = snap.FilterView(view)
	tasks, links, skipped := snap.Engine()
	if len(skipped) > 0 {
		s.logger.Warn("skipped links with unknown type", "links", skipped)
	}

	c := &computation{
		view:    view,
		tasks:   tasks,
		links:   links,
		skipped: skipped,
		titles:  snap.Titles(),
	}

	key := snapshotKey(tasks, links)
	if a, ok := s.cache.Get(key); ok {
		computations.WithLabelValues("hit").Inc()
		c.analysis, c.cached = a, true
		return c
	}
	computations.WithLabelValues("miss").Inc()

	start := time.Now()
	result := cpm.Compute(tasks, links)
	computeLatency.Observe(time.Since(start).Seconds())
	if !result.Acyclic {
		cyclicSnapshots.Inc()
	}

	c.analysis = &analysis{ID: uuid.NewString(), Result: result, CreatedAt: time.Now().UTC()}
	s.cache.Add(key, c.analysis)

	s.logger.Debug("computed critical path",
		"id", c.analysis.ID,
		"tasks", len(tasks),
		"links", len(links),
		"acyclic", result.Acyclic,
		"project_duration", result.ProjectDuration)
	return c
}

type criticalPathResponse struct {
	ID           string `json:"id"`
	Cached       bool   `json:"cached"`
	View         string `json:"view"`
	SkippedLinks []int  `json:"skipped_links,omitempty"`
	reporter.Report
}

func (s *Server) handleCriticalPath(w http.ResponseWriter, r *http.Request) {
	snap, view, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	c := s.compute(snap, view)
	rpt := reporter.New(nil, c.analysis.Result, c.links, nil)

	writeJSON(w, http.StatusOK, criticalPathResponse{
		ID:           c.analysis.ID,
		Cached:       c.cached,
		View:         c.view,
		SkippedLinks: c.skipped,
		Report:       rpt.Report(),
	})
}

type validateResponse struct {
	View         string `json:"view"`
	SkippedLinks []int  `json:"skipped_links,omitempty"`
	*cpm.ValidationReport
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	snap, view, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	tasks, links, skipped := snap.FilterView(view).Engine()
	report := cpm.Validate(tasks, links)
	for _, issue := range report.Issues {
		validationIssues.WithLabelValues(issue.Kind.String()).Inc()
	}

	writeJSON(w, http.StatusOK, validateResponse{
		View:             view,
		SkippedLinks:     skipped,
		ValidationReport: report,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	snap, view, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toGraph(s.compute(snap, view)))
}

// loadSnapshot reads the export document from a POST body, or the source's
// current snapshot for GET. It writes the error response itself.
func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request) (*gantt.Snapshot, string, bool) {
	view := r.URL.Query().Get("view")
	switch view {
	case "":
		view = s.defaultView
	case viewAll:
		view = ""
	case gantt.ViewProject, gantt.ViewProduct:
	default:
		writeError(w, http.StatusBadRequest, "view must be project, product or all")
		return nil, "", false
	}

	if r.Method == http.MethodGet {
		snap, err := s.source.Snapshot(r.Context())
		if err != nil {
			s.logger.Error("read snapshot", "err", err)
			writeError(w, http.StatusInternalServerError, "read snapshot: "+err.Error())
			return nil, "", false
		}
		return snap, view, true
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, "", false
		}
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return nil, "", false
	}

	snap, err := gantt.ParseExport(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, "", false
	}
	return snap, view, true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware lets the chart front end call the API from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
