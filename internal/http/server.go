// Package http serves the stored report over a JSON API: the whole-report
// endpoints used by device clients, read projections, PDF statements and
// server-side edits.
package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"famreport/internal/cache"
	"famreport/internal/core"
	"famreport/internal/export"
	"famreport/internal/log"
	"famreport/internal/middleware/ratelimit"
	"famreport/internal/middleware/security"
	"famreport/internal/middleware/trace"
	"famreport/internal/storage"
)

// ReportService is the read-modify-write surface over the stored report.
type ReportService interface {
	Current(ctx context.Context) (core.Report, storage.Record, error)
	Mutate(ctx context.Context, fn func(core.Report) (core.Report, error)) (core.Report, storage.Record, error)
	Replace(ctx context.Context, p core.Payload) (core.Report, storage.Record, error)
	Delete(ctx context.Context) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatementRenderer writes a statement document.
type StatementRenderer interface {
	Render(w io.Writer, st export.Statement) error
}

type Options struct {
	Service         ReportService
	Store           Pinger
	Renderer        StatementRenderer
	Logger          *slog.Logger
	RateLimitPerMin int
	// CORSOrigins defaults to any origin.
	CORSOrigins  []string
	PDFCacheSize int
	PDFCacheTTL  time.Duration
}

type Server struct {
	http.Server
	svc      ReportService
	store    Pinger
	renderer StatementRenderer
	logger   *log.Logger
	now      func() time.Time
	started  time.Time

	corsOrigins []string
	pdfCache    *cache.LRUCache[[]byte]
	cacheMgr    *cache.Manager
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server listening on addr.
func NewServer(addr string, opts Options) *Server {
	slogger := opts.Logger
	if slogger == nil {
		slogger = slog.Default()
	}
	if opts.PDFCacheSize <= 0 {
		opts.PDFCacheSize = 32
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.PDFCacheTTL <= 0 {
		opts.PDFCacheTTL = 30 * time.Minute
	}

	s := &Server{
		svc:         opts.Service,
		store:       opts.Store,
		renderer:    opts.Renderer,
		logger:      log.FromSlog(slogger, log.ComponentHTTP),
		now:         time.Now,
		started:     time.Now(),
		corsOrigins: opts.CORSOrigins,
		pdfCache:    cache.NewLRUCache[[]byte](opts.PDFCacheSize, opts.PDFCacheTTL),
		cacheMgr:    cache.NewManager(slogger.With(log.FieldComponent, log.ComponentCache)),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMin,
		}),
		detector: security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)
	s.cacheMgr.Register(s.pdfCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(s.tracer.Middleware)
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(metricsMiddleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/report", func(r chi.Router) {
		r.Get("/", s.handleGetReport)
		r.Put("/", s.handlePutReport)
		r.Delete("/", s.handleDeleteReport)

		r.Get("/summary", s.handleSummary)
		r.Get("/groups", s.handleGroups)
		r.Get("/export.pdf", s.handleExportPDF)

		r.Post("/periods", s.handleAddPeriod)
		r.Post("/reset", s.handleReset)

		r.Route("/groups/{groupID}/items", func(r chi.Router) {
			r.Post("/", s.handleAddItem)
			r.Patch("/{itemID}", s.handleEditItem)
			r.Delete("/{itemID}", s.handleDeleteItem)
			r.Put("/{itemID}/values", s.handleSetValue)
			r.Put("/{itemID}/quantities", s.handleSetQuantity)
		})

		r.Post("/notes", s.handleAddNote)
		r.Patch("/notes/{noteID}", s.handleUpdateNote)
		r.Delete("/notes/{noteID}", s.handleDeleteNote)

		r.Post("/snapshots", s.handleTakeSnapshot)
		r.Delete("/snapshots/{snapshotID}", s.handleDeleteSnapshot)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "not_found", "not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed").Write(w)
	})
	return r
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
