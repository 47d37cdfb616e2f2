package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/config"
	"github.com/jackzampolin/sift/internal/svcctx"
)

// ConfigResponse is the running configuration with secrets masked.
type ConfigResponse struct {
	File   string         `json:"file,omitempty"`
	Config *config.Config `json:"config"`
}

// GetConfigEndpoint handles GET /api/config.
type GetConfigEndpoint struct{}

func (e *GetConfigEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/config", e.handler
}

func (e *GetConfigEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Show configuration
//	@Description	The server's live configuration with API keys redacted
//	@Tags			config
//	@Produce		json
//	@Success		200	{object}	ConfigResponse
//	@Router			/api/config [get]
func (e *GetConfigEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := ConfigResponse{Config: currentConfig(r).Redacted()}
	if cm := svcctx.ConfigManagerFrom(r.Context()); cm != nil {
		resp.File = cm.ConfigFile()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *GetConfigEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the server's configuration (secrets redacted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ConfigResponse
			if err := client.Get(cmd.Context(), "/api/config", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
