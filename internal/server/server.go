// Package server exposes the REST and WebSocket API over the job
// orchestrator, the request normalizer, and the speaker catalog.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-tts-studio/internal/catalog"
	"github.com/example/go-tts-studio/internal/config"
	"github.com/example/go-tts-studio/internal/engine"
	"github.com/example/go-tts-studio/internal/gate"
	"github.com/example/go-tts-studio/internal/job"
	"github.com/example/go-tts-studio/internal/orchestrator"
	"github.com/example/go-tts-studio/internal/request"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// JobService is the slice of the orchestrator the handlers need.
type JobService interface {
	Submit(spec *request.Spec) job.Job
	Cancel(id string) (job.Job, error)
	Get(id string) (job.Job, error)
	List() []job.Job
	Result(id string) ([]byte, int, error)
	Watch(id string) (<-chan job.Job, func(), error)
}

// Cataloger serves speaker, language, and model metadata.
type Cataloger interface {
	Speakers() []catalog.Speaker
	Languages() []catalog.Language
	Models() []catalog.Model
	HasSpeaker(name string) bool
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	logger         *slog.Logger
	backend        string
	maxUploadBytes int64
}

func defaultOptions() options {
	return options{
		logger:         slog.Default(),
		backend:        config.BackendMock,
		maxUploadBytes: 25 * 1024 * 1024,
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBackend sets the backend name reported by /health.
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithMaxUploadBytes caps the multipart request body for voice-clone uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) { o.maxUploadBytes = n }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	jobs    JobService
	norm    *request.Normalizer
	catalog Cataloger
	opts    options
	log     *slog.Logger
}

// NewHandler returns the API handler: synthesis submission under
// /api/v1/tts, job management under /api/v1/jobs, metadata endpoints, the
// health probe, and the /ws/tts streaming session.
func NewHandler(jobs JobService, norm *request.Normalizer, cat Cataloger, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		jobs:    jobs,
		norm:    norm,
		catalog: cat,
		opts:    opts,
		log:     opts.logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/tts/custom-voice", h.handleCustomVoice)
	mux.HandleFunc("POST /api/v1/tts/voice-design", h.handleVoiceDesign)
	mux.HandleFunc("POST /api/v1/tts/voice-clone", h.handleVoiceClone)
	mux.HandleFunc("POST /api/v1/tts/voice-design-clone", h.handleVoiceDesignClone)
	mux.HandleFunc("GET /api/v1/jobs", h.handleListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}/status", h.handleJobStatus)
	mux.HandleFunc("POST /api/v1/jobs/{id}/cancel", h.handleJobCancel)
	mux.HandleFunc("GET /api/v1/jobs/{id}/result", h.handleJobResult)
	mux.HandleFunc("GET /api/v1/speakers", h.handleSpeakers)
	mux.HandleFunc("GET /api/v1/languages", h.handleLanguages)
	mux.HandleFunc("GET /api/v1/models", h.handleModels)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /ready", h.handleReady)
	mux.HandleFunc("GET /ws/tts", h.handleWebSocket)

	return withRequestID(withAccessLog(h.log, mux))
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the API handler into a net/http.Server with graceful
// shutdown and owns the job orchestrator's lifecycle.
type Server struct {
	cfg config.Config
	log *slog.Logger
}

func New(cfg config.Config, log *slog.Logger) *Server {
	return &Server{cfg: cfg, log: log}
}

// Start runs the HTTP server until ctx is cancelled, then drains in-flight
// requests and jobs within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	backend, err := config.NormalizeBackend(s.cfg.Engine.Backend)
	if err != nil {
		return err
	}

	cat, err := loadCatalog(s.cfg.Catalog)
	if err != nil {
		return err
	}

	eng, err := engine.New(s.cfg.Engine)
	if err != nil {
		return err
	}

	store := job.NewStore()
	orch := orchestrator.New(store, gate.New(s.cfg.Jobs.MaxConcurrent), eng, s.log)
	norm := request.NewNormalizer(s.cfg.Limits, cat)

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	defer stopPrune()
	go store.PruneLoop(pruneCtx,
		time.Duration(s.cfg.Jobs.PruneInterval)*time.Second,
		time.Duration(s.cfg.Jobs.TTLSeconds)*time.Second,
		s.log)

	h := NewHandler(orch, norm, cat,
		WithLogger(s.log),
		WithBackend(backend),
		WithMaxUploadBytes(int64(s.cfg.Limits.MaxAudioUploadBytes())),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.log.Info("listening", slog.String("addr", s.cfg.Server.ListenAddr), slog.String("backend", backend))

	select {
	case <-ctx.Done():
		timeout := time.Duration(s.cfg.Server.ShutdownTimeout) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		if err := orch.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("orchestrator shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP checks the /health endpoint of a running server.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}

func loadCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	if cfg.ManifestPath == "" {
		return catalog.New(), nil
	}
	return catalog.Load(cfg.ManifestPath)
}
