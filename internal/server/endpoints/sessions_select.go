package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
)

// SelectAllRequest is the body for select-all.
type SelectAllRequest struct {
	Selected *bool `json:"selected"`
}

// ToggleEndpoint handles POST /api/sessions/{id}/pages/{index}/toggle.
type ToggleEndpoint struct{}

func (e *ToggleEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/pages/{index}/toggle", e.handler
}

func (e *ToggleEndpoint) RequiresInit() bool { return false }

func (e *ToggleEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Toggle a page's selection
//	@Tags			sessions
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			index	path		int		true	"0-based page index"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/pages/{index}/toggle [post]
func (e *ToggleEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	index, ok := pageIndex(w, r)
	if !ok {
		return
	}

	update, err := sess.ToggleSelection(index)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeUpdate(w, sess, update)
}

func (e *ToggleEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id> <page>",
		Short: "Toggle whether a page (1-based) is selected",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := strconv.Atoi(args[1])
			if err != nil || page < 1 {
				return errInvalidPageArg(args[1])
			}
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			path := "/api/sessions/" + args[0] + "/pages/" + strconv.Itoa(page-1) + "/toggle"
			if err := client.Post(cmd.Context(), path, nil, &resp); err != nil {
				return err
			}
			return api.Output(resp.Session.Selected)
		},
	}
}

// SelectAllEndpoint handles POST /api/sessions/{id}/select-all.
type SelectAllEndpoint struct{}

func (e *SelectAllEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/select-all", e.handler
}

func (e *SelectAllEndpoint) RequiresInit() bool { return false }

func (e *SelectAllEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Select or deselect all pages
//	@Description	selected=true selects every page. selected=false clears the selection only when every page was selected; a partial selection is left alone.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			request	body		SelectAllRequest	true	"Selection flag"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/select-all [post]
func (e *SelectAllEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}

	var req SelectAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Selected == nil {
		writeError(w, http.StatusBadRequest, "selected is required")
		return
	}

	update, err := sess.SelectAll(*req.Selected)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeUpdate(w, sess, update)
}

func (e *SelectAllEndpoint) Command(getServerURL func() string) *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "select-all <id>",
		Short: "Select every page (or deselect with --clear)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected := !clear
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			path := "/api/sessions/" + args[0] + "/select-all"
			if err := client.Post(cmd.Context(), path, SelectAllRequest{Selected: &selected}, &resp); err != nil {
				return err
			}
			return api.Output(resp.Session.Selected)
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Deselect all pages (only when all are selected)")
	return cmd
}
