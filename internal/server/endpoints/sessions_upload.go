package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/svcctx"
)

// uploadOverhead is allowed on top of the configured file size for the
// multipart envelope.
const uploadOverhead = 1 << 20

// UploadEndpoint handles POST /api/sessions/{id}/upload.
type UploadEndpoint struct{}

var _ api.Endpoint = (*UploadEndpoint)(nil)

func (e *UploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/upload", e.handler
}

func (e *UploadEndpoint) RequiresInit() bool { return false }

func (e *UploadEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Upload a PDF
//	@Description	Render the uploaded PDF into page images. Only the first 10 pages are kept; longer documents return a warning.
//	@Tags			sessions
//	@Accept			mpfd
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			file	formData	file	true	"PDF document"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		413		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/upload [post]
func (e *UploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}

	if limit := currentConfig(r).Render.MaxFileSize; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+uploadOverhead)
	}

	const maxMemory = 32 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	update, err := sess.Ingest(r.Context(), header.Filename, data)
	if err != nil {
		svcctx.LoggerFrom(r.Context()).Warn("ingest failed", "session_id", sess.ID(), "file", header.Filename, "error", err)
		writeSessionError(w, err)
		return
	}

	writeUpdate(w, sess, update)
}

func (e *UploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <id> <file.pdf>",
		Short: "Load a PDF into a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			path := "/api/sessions/" + args[0] + "/upload"
			if err := client.Upload(cmd.Context(), path, "file", filepath.Base(args[1]), data, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// PageImageEndpoint handles GET /api/sessions/{id}/pages/{index}/image.
type PageImageEndpoint struct{}

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/pages/{index}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return false }

func (e *PageImageEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Get a page image
//	@Tags			sessions
//	@Produce		png
//	@Param			id		path		string	true	"Session ID"
//	@Param			index	path		int		true	"0-based page index"
//	@Success		200		{file}		binary
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/pages/{index}/image [get]
func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}

	index, ok := pageIndex(w, r)
	if !ok {
		return
	}

	page, err := sess.Page(index)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", page.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(page.Image)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(page.Image)
}

func (e *PageImageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "page-image <id> <index>",
		Short: "Download a rendered page image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = fmt.Sprintf("page-%s.png", args[1])
			}
			client := api.NewClient(getServerURL())
			data, _, err := client.GetRaw(cmd.Context(), "/api/sessions/"+args[0]+"/pages/"+args[1]+"/image")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("Wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Output file (default page-<index>.png)")
	return cmd
}

// pageIndex parses the {index} path value.
func pageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid page index: %q must be an integer", raw))
		return 0, false
	}
	return index, true
}
