package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/config"
	"github.com/jackzampolin/sift/internal/providers"
	"github.com/jackzampolin/sift/internal/session"
	"github.com/jackzampolin/sift/internal/sessions"
	"github.com/jackzampolin/sift/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	LLM    string `json:"llm,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Liveness check
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Reports whether the default LLM provider is configured
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", LLM: "ok"}

	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil || !registry.HasLLM(defaultProvider(r)) {
		resp.Status = "degraded"
		resp.LLM = "not_configured"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes LLM provider)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.LLM != "" {
				fmt.Printf("LLM:    %s\n", resp.LLM)
			}
			return nil
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server          string                     `json:"server"`
	DefaultProvider string                     `json:"default_provider"`
	Providers       []providers.ProviderStatus `json:"providers"`
	Render          RenderStatus               `json:"render"`
	Sessions        int                        `json:"sessions"`
	LLMCalls        int                        `json:"llm_calls"`
}

// RenderStatus shows the configured page renderer.
type RenderStatus struct {
	Backend string  `json:"backend"`
	DPI     float64 `json:"dpi"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Registered providers, renderer settings and live session count
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := currentConfig(r)

	resp := StatusResponse{
		Server:          "running",
		DefaultProvider: defaultProvider(r),
		Providers:       []providers.ProviderStatus{},
		Render:          RenderStatus{Backend: cfg.Render.Backend, DPI: cfg.Render.DPI},
	}

	if registry := svcctx.RegistryFrom(ctx); registry != nil {
		resp.Providers = append(resp.Providers, registry.Status()...)
	}
	if store := svcctx.SessionsFrom(ctx); store != nil {
		resp.Sessions = store.Count()
	}
	if calls := svcctx.LLMCallStoreFrom(ctx); calls != nil {
		resp.LLMCalls = calls.Len()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// currentConfig returns the live config, or defaults when none is loaded.
func currentConfig(r *http.Request) *config.Config {
	if cm := svcctx.ConfigManagerFrom(r.Context()); cm != nil {
		if c := cm.Get(); c != nil {
			return c
		}
	}
	return config.DefaultConfig()
}

// defaultProvider mirrors the server's provider selection.
func defaultProvider(r *http.Request) string {
	if name := currentConfig(r).Defaults.LLMProvider; name != "" {
		return name
	}
	if registry := svcctx.RegistryFrom(r.Context()); registry != nil {
		if names := registry.ListLLM(); len(names) > 0 {
			return names[0]
		}
	}
	return ""
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeSessionError maps session and store errors to HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sessions.ErrFull):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrEmptySchema):
		writeError(w, http.StatusBadRequest, "Please generate or provide a schema first.")
	case errors.Is(err, session.ErrNoPages),
		errors.Is(err, session.ErrNoSelection),
		errors.Is(err, session.ErrNoData),
		errors.Is(err, session.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrIngest), errors.Is(err, session.ErrSchemaParse):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, session.ErrExtraction), errors.Is(err, session.ErrGeneration):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
