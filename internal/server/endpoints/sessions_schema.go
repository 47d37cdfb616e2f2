package endpoints

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/schema"
)

// SchemaRequest is the body for replacing a session's schema text.
type SchemaRequest struct {
	Text string `json:"text"`
}

// SetSchemaEndpoint handles PUT /api/sessions/{id}/schema.
type SetSchemaEndpoint struct{}

func (e *SetSchemaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/sessions/{id}/schema", e.handler
}

func (e *SetSchemaEndpoint) RequiresInit() bool { return false }

func (e *SetSchemaEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Replace schema text
//	@Description	Stores the schema text verbatim. It is parsed when data is extracted.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			request	body		SchemaRequest	true	"Schema text"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/schema [put]
func (e *SetSchemaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}

	var req SchemaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeUpdate(w, sess, sess.EditSchema(req.Text))
}

func (e *SetSchemaEndpoint) Command(getServerURL func() string) *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:   "set-schema <id> [file|-]",
		Short: "Replace a session's schema from a file, stdin, or a built-in template",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			switch {
			case template != "":
				t, err := schema.GetTemplate(template)
				if err != nil {
					return err
				}
				text = t.Text
			case len(args) == 2 && args[1] == "-":
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			case len(args) == 2:
				data, err := os.ReadFile(args[1])
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", args[1], err)
				}
				text = string(data)
			default:
				return fmt.Errorf("provide a schema file, - for stdin, or --template")
			}

			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Put(cmd.Context(), "/api/sessions/"+args[0]+"/schema", SchemaRequest{Text: text}, &resp); err != nil {
				return err
			}
			return api.Output(resp.Update)
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "Use a built-in schema template")
	return cmd
}

// GenerateSchemaEndpoint handles POST /api/sessions/{id}/schema/generate.
type GenerateSchemaEndpoint struct{}

func (e *GenerateSchemaEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/schema/generate", e.handler
}

func (e *GenerateSchemaEndpoint) RequiresInit() bool { return true }

func (e *GenerateSchemaEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Generate a schema
//	@Description	Ask the LLM to propose a schema for the selected pages. Replaces the current schema text.
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/schema/generate [post]
func (e *GenerateSchemaEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}

	update, err := sess.GenerateSchema(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeUpdate(w, sess, update)
}

func (e *GenerateSchemaEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-schema <id>",
		Short: "Generate a schema from the selected pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/schema/generate", nil, &resp); err != nil {
				return err
			}
			fmt.Print(resp.Session.SchemaText)
			return nil
		},
	}
}

func errInvalidPageArg(arg string) error {
	return fmt.Errorf("invalid page %q: pages are numbered from 1", arg)
}
