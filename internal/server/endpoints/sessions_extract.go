package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/session"
)

// ExtractEndpoint handles POST /api/sessions/{id}/extract.
type ExtractEndpoint struct{}

func (e *ExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/extract", e.handler
}

func (e *ExtractEndpoint) RequiresInit() bool { return true }

func (e *ExtractEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Extract data
//	@Description	Parse the session's schema and extract matching data from the selected pages
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/extract [post]
func (e *ExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}

	update, err := sess.ExtractData(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeUpdate(w, sess, update)
}

func (e *ExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <id>",
		Short: "Extract data from the selected pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/extract", nil, &resp); err != nil {
				return err
			}
			out, err := session.FormatJSON(resp.Session.Data)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// ExportEndpoint handles GET /api/sessions/{id}/export.
type ExportEndpoint struct{}

func (e *ExportEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/export", e.handler
}

func (e *ExportEndpoint) RequiresInit() bool { return false }

func (e *ExportEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Download extracted data
//	@Description	Extracted data as data.json, indented with two spaces
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{file}		binary
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/export [get]
func (e *ExportEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}

	data, err := sess.ExportData()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", session.ExportMIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", session.ExportFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (e *ExportEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Download extracted data as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			data, _, err := client.GetRaw(cmd.Context(), "/api/sessions/"+args[0]+"/export")
			if err != nil {
				return err
			}
			if out == "-" {
				fmt.Println(string(data))
				return nil
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("Wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", session.ExportFilename, "Output file, or - for stdout")
	return cmd
}
