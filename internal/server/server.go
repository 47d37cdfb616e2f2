package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/config"
	"github.com/jackzampolin/sift/internal/extract"
	"github.com/jackzampolin/sift/internal/home"
	"github.com/jackzampolin/sift/internal/llmcall"
	"github.com/jackzampolin/sift/internal/prompts"
	"github.com/jackzampolin/sift/internal/providers"
	"github.com/jackzampolin/sift/internal/render"
	"github.com/jackzampolin/sift/internal/server/endpoints"
	"github.com/jackzampolin/sift/internal/session"
	"github.com/jackzampolin/sift/internal/sessions"
	"github.com/jackzampolin/sift/internal/svcctx"
)

// Server is the main Sift HTTP server.
// It owns the in-memory session store and the provider registry, and
// rebuilds providers and the renderer when the config file changes.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	registry   *providers.Registry
	configMgr  *config.Manager
	sessions   *sessions.Store
	llmCalls   *llmcall.Store
	prompts    *prompts.Resolver
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	rendererMu       sync.RWMutex
	renderer         render.Renderer
	rendererOverride bool

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// Defaults are used when nil.
	ConfigManager *config.Manager
	// Home is the sift home directory, used for prompt overrides,
	// user schemas and exports. Optional.
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger

	// Registry replaces the config-built provider registry. Used by tests.
	Registry *providers.Registry
	// Renderer replaces the config-built renderer. Used by tests.
	Renderer render.Renderer
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}
	current := s.config()

	// Create provider registry
	s.registry = cfg.Registry
	if s.registry == nil {
		s.registry = providers.NewRegistry()
		s.registry.SetLogger(cfg.Logger)
		s.registry.Reload(current.ToProviderRegistryConfig())
	}

	s.renderer = cfg.Renderer
	s.rendererOverride = cfg.Renderer != nil
	if s.renderer == nil {
		r, err := newRenderer(current, cfg.Logger)
		if err != nil {
			return nil, err
		}
		s.renderer = r
	}

	// Watch for config changes
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(s.reload)
	}

	promptsDir := ""
	if cfg.Home != nil {
		promptsDir = cfg.Home.PromptsDir()
	}
	s.prompts = prompts.NewResolver(promptsDir, cfg.Logger)
	extract.RegisterPrompts(s.prompts)

	s.llmCalls = llmcall.NewStore(llmcall.DefaultCapacity)
	s.sessions = sessions.NewStore(sessions.Config{
		TTL:             current.SessionTTL(),
		CleanupInterval: current.SessionCleanupInterval(),
		Logger:          cfg.Logger,
	})

	s.services = &svcctx.Services{
		Sessions:       s.sessions,
		NewSession:     s.NewSession,
		Registry:       s.registry,
		ConfigManager:  cfg.ConfigManager,
		Logger:         cfg.Logger,
		Home:           cfg.Home,
		LLMCallStore:   s.llmCalls,
		PromptResolver: s.prompts,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = endpoints.Registry()

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)
	s.handler = s.withServices(mux)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      10 * time.Minute, // generation and extraction hold the request open
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Start starts the server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if !s.registry.HasLLM(s.defaultProvider()) {
		s.logger.Warn("default LLM provider not available; schema generation and extraction are disabled until configured",
			"provider", s.defaultProvider())
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server and drops all sessions.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.logger.Info("discarding sessions", "count", s.sessions.Count())
	s.sessions.Flush()

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Sessions returns the session store.
func (s *Server) Sessions() *sessions.Store {
	return s.sessions
}

// LLMCalls returns the LLM call history store.
func (s *Server) LLMCalls() *llmcall.Store {
	return s.llmCalls
}

// config returns the current configuration, or defaults without a manager.
func (s *Server) config() *config.Config {
	if s.configMgr != nil {
		if c := s.configMgr.Get(); c != nil {
			return c
		}
	}
	return config.DefaultConfig()
}

// defaultProvider names the LLM provider used for generation and extraction.
func (s *Server) defaultProvider() string {
	if name := s.config().Defaults.LLMProvider; name != "" {
		return name
	}
	if names := s.registry.ListLLM(); len(names) > 0 {
		return names[0]
	}
	return ""
}

// HasProvider reports whether the default LLM provider is registered.
func (s *Server) HasProvider() bool {
	return s.registry.HasLLM(s.defaultProvider())
}

// reload applies a changed config file. Existing sessions keep the
// renderer they were created with.
func (s *Server) reload(c *config.Config) {
	s.registry.Reload(c.ToProviderRegistryConfig())
	s.logger.Info("provider registry reloaded from config")

	if s.rendererOverride {
		return
	}
	r, err := newRenderer(c, s.logger)
	if err != nil {
		s.logger.Error("keeping previous renderer", "error", err)
		return
	}
	s.rendererMu.Lock()
	s.renderer = r
	s.rendererMu.Unlock()
}

// NewSession builds a session wired to the current renderer, provider
// and extraction settings. The session is not added to the store.
func (s *Server) NewSession() *session.Session {
	c := s.config()

	svc := extract.New(extract.Config{
		Client:         extract.RegistryClient(s.registry, s.defaultProvider),
		Prompts:        s.prompts,
		Recorder:       llmcall.NewRecorder(s.llmCalls),
		Temperature:    c.Extraction.Temperature,
		MaxTokens:      c.Extraction.MaxTokens,
		RepairAttempts: c.Extraction.RepairAttempts,
		Logger:         s.logger,
	})

	s.rendererMu.RLock()
	renderer := s.renderer
	s.rendererMu.RUnlock()

	return session.New(session.Config{
		Renderer:    renderer,
		Generator:   svc,
		Extractor:   svc,
		MaxFileSize: c.Render.MaxFileSize,
		Logger:      s.logger,
	})
}

func newRenderer(c *config.Config, logger *slog.Logger) (render.Renderer, error) {
	r, err := render.New(render.Config{
		Backend: c.Render.Backend,
		DPI:     c.Render.DPI,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r, nil
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures an LLM provider is available.
// Returns 503 Service Unavailable when the default provider is missing.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.HasProvider() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"no LLM provider configured"}`))
			return
		}
		next(w, r)
	}
}
