package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/schema"
	"github.com/jackzampolin/sift/internal/svcctx"
)

const schemasGroup = "schemas"

// SchemaTemplate is a schema a session can start from.
type SchemaTemplate struct {
	Name    string `json:"name"`
	Text    string `json:"text"`
	BuiltIn bool   `json:"built_in"`
}

// SchemaTemplatesResponse lists built-in and user schema templates.
type SchemaTemplatesResponse struct {
	Templates []SchemaTemplate `json:"templates"`
}

// SchemaCheckResponse reports whether schema text parses.
type SchemaCheckResponse struct {
	Valid      bool            `json:"valid"`
	Error      string          `json:"error,omitempty"`
	Name       string          `json:"name,omitempty"`
	Fields     int             `json:"fields,omitempty"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ListSchemasEndpoint handles GET /api/schemas.
type ListSchemasEndpoint struct{}

func (e *ListSchemasEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/schemas", e.handler
}

func (e *ListSchemasEndpoint) RequiresInit() bool { return false }

func (e *ListSchemasEndpoint) Group() string { return schemasGroup }

// handler godoc
//
//	@Summary		List schema templates
//	@Description	Built-in templates followed by schemas saved in the home schemas directory
//	@Tags			schemas
//	@Produce		json
//	@Success		200	{object}	SchemaTemplatesResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/schemas [get]
func (e *ListSchemasEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	builtIn, err := schema.Templates()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := SchemaTemplatesResponse{Templates: make([]SchemaTemplate, 0, len(builtIn))}
	for _, t := range builtIn {
		resp.Templates = append(resp.Templates, SchemaTemplate{Name: t.Name, Text: t.Text, BuiltIn: true})
	}

	if h := svcctx.HomeFrom(r.Context()); h != nil {
		user, err := schema.LoadDir(h.SchemasDir())
		if err != nil {
			svcctx.LoggerFrom(r.Context()).Warn("failed to load user schemas", "dir", h.SchemasDir(), "error", err)
		}
		for _, t := range user {
			resp.Templates = append(resp.Templates, SchemaTemplate{Name: t.Name, Text: t.Text})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ListSchemasEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schema templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SchemaTemplatesResponse
			if err := client.Get(cmd.Context(), "/api/schemas", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CheckSchemaEndpoint handles POST /api/schemas/check.
type CheckSchemaEndpoint struct{}

func (e *CheckSchemaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/schemas/check", e.handler
}

func (e *CheckSchemaEndpoint) RequiresInit() bool { return false }

func (e *CheckSchemaEndpoint) Group() string { return schemasGroup }

// handler godoc
//
//	@Summary		Check schema text
//	@Description	Parse schema text and return the JSON Schema it compiles to. Parse failures are reported in the body with status 200.
//	@Tags			schemas
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SchemaRequest	true	"Schema text"
//	@Success		200		{object}	SchemaCheckResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/api/schemas/check [post]
func (e *CheckSchemaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req SchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, CheckSchema(req.Text))
}

func (e *CheckSchemaEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Check a schema file against the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			client := api.NewClient(getServerURL())
			var resp SchemaCheckResponse
			if err := client.Post(cmd.Context(), "/api/schemas/check", SchemaRequest{Text: string(data)}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CheckSchema parses text and reports the outcome.
func CheckSchema(text string) SchemaCheckResponse {
	def, err := schema.Parse(text)
	if err != nil {
		return SchemaCheckResponse{Error: err.Error()}
	}
	return SchemaCheckResponse{
		Valid:      true,
		Name:       def.Name,
		Fields:     len(def.Fields),
		JSONSchema: def.JSONSchema(),
	}
}
