package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sift/internal/api"
	"github.com/jackzampolin/sift/internal/session"
	"github.com/jackzampolin/sift/internal/svcctx"
)

const sessionsGroup = "sessions"

// SessionResponse carries a session snapshot and, for mutating calls,
// the update describing what changed.
type SessionResponse struct {
	Update  *session.Update `json:"update,omitempty"`
	Session session.View    `json:"session"`
}

// SessionsListResponse lists live sessions.
type SessionsListResponse struct {
	Sessions []session.Summary `json:"sessions"`
	Total    int               `json:"total"`
}

// lookupSession resolves the {id} path value, writing an error response
// when the session cannot be found.
func lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id required")
		return nil, false
	}
	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return nil, false
	}
	sess, err := store.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return sess, true
}

// writeUpdate responds with the update and the session's new state.
func writeUpdate(w http.ResponseWriter, sess *session.Session, u session.Update) {
	writeJSON(w, http.StatusOK, SessionResponse{Update: &u, Session: sess.View()})
}

// CreateSessionEndpoint handles POST /api/sessions.
type CreateSessionEndpoint struct{}

var _ api.Endpoint = (*CreateSessionEndpoint)(nil)

func (e *CreateSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions", e.handler
}

func (e *CreateSessionEndpoint) RequiresInit() bool { return false }

func (e *CreateSessionEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Create a session
//	@Description	Start an empty session holding the default schema
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	SessionResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/sessions [post]
func (e *CreateSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	store := svcctx.SessionsFrom(ctx)
	newSession := svcctx.SessionFactoryFrom(ctx)
	if store == nil || newSession == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}

	sess := newSession()
	if err := store.Add(sess); err != nil {
		writeSessionError(w, err)
		return
	}
	svcctx.LoggerFrom(ctx).Info("session created", "session_id", sess.ID())

	writeJSON(w, http.StatusCreated, SessionResponse{Session: sess.View()})
}

func (e *CreateSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp.Session)
		},
	}
}

// ListSessionsEndpoint handles GET /api/sessions.
type ListSessionsEndpoint struct{}

func (e *ListSessionsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions", e.handler
}

func (e *ListSessionsEndpoint) RequiresInit() bool { return false }

func (e *ListSessionsEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		List sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionsListResponse
//	@Router			/api/sessions [get]
func (e *ListSessionsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}

	live := store.List()
	resp := SessionsListResponse{Sessions: make([]session.Summary, len(live)), Total: len(live)}
	for i, sess := range live {
		resp.Sessions[i] = sess.Summary()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListSessionsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionsListResponse
			if err := client.Get(cmd.Context(), "/api/sessions", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetSessionEndpoint handles GET /api/sessions/{id}.
type GetSessionEndpoint struct{}

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return false }

func (e *GetSessionEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Get session state
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id} [get]
func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sess, ok := lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Session: sess.View()})
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a session's state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp.Session)
		},
	}
}

// DeleteSessionEndpoint handles DELETE /api/sessions/{id}.
type DeleteSessionEndpoint struct{}

func (e *DeleteSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{id}", e.handler
}

func (e *DeleteSessionEndpoint) RequiresInit() bool { return false }

func (e *DeleteSessionEndpoint) Group() string { return sessionsGroup }

// handler godoc
//
//	@Summary		Discard a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id} [delete]
func (e *DeleteSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.SessionsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}
	if err := store.Delete(r.PathValue("id")); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Discard a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/sessions/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted session %s\n", args[0])
			return nil
		},
	}
}
