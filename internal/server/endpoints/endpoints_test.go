package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackzampolin/sift/internal/render/rendertest"
	"github.com/jackzampolin/sift/internal/session"
	"github.com/jackzampolin/sift/internal/sessions"
	"github.com/jackzampolin/sift/internal/svcctx"
)

func TestWriteSessionError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{sessions.ErrNotFound, http.StatusNotFound},
		{sessions.ErrFull, http.StatusServiceUnavailable},
		{session.ErrBusy, http.StatusConflict},
		{session.ErrEmptySchema, http.StatusBadRequest},
		{session.ErrNoPages, http.StatusBadRequest},
		{session.ErrNoSelection, http.StatusBadRequest},
		{session.ErrNoData, http.StatusBadRequest},
		{fmt.Errorf("%w: 12 not in [0, 3)", session.ErrInvalidPage), http.StatusBadRequest},
		{fmt.Errorf("%w: bad header", session.ErrIngest), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: line 2", session.ErrSchemaParse), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: timeout", session.ErrExtraction), http.StatusBadGateway},
		{session.ErrGeneration, http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeSessionError(rec, tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestWriteSessionError_EmptySchemaMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSessionError(rec, session.ErrEmptySchema)

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Error != "Please generate or provide a schema first." {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestCheckSchema(t *testing.T) {
	valid := CheckSchema("name: Invoice\nfields:\n  - name: total\n    type: number\n")
	if !valid.Valid {
		t.Fatalf("expected valid schema, got error %q", valid.Error)
	}
	if valid.Name != "Invoice" || valid.Fields != 1 {
		t.Errorf("got name %q fields %d", valid.Name, valid.Fields)
	}
	if !strings.Contains(string(valid.JSONSchema), `"total"`) {
		t.Errorf("json schema missing field: %s", valid.JSONSchema)
	}

	invalid := CheckSchema("fields: [")
	if invalid.Valid || invalid.Error == "" {
		t.Errorf("expected parse error, got %+v", invalid)
	}
}

func TestRegistry_BuildCommands(t *testing.T) {
	root := Registry().BuildCommands(func() string { return "http://127.0.0.1:8080" })

	top := make(map[string]bool)
	for _, c := range root.Commands() {
		top[c.Name()] = true
	}
	for _, name := range []string{"health", "ready", "status", "config", "swagger", "sessions", "schemas", "llmcalls", "prompts"} {
		if !top[name] {
			t.Errorf("missing top-level command %q", name)
		}
	}
	if top["upload"] {
		t.Error("session commands should be nested under sessions")
	}

	sessionsCmd, _, err := root.Find([]string{"sessions"})
	if err != nil {
		t.Fatalf("find sessions: %v", err)
	}
	if sessionsCmd.Short == "" {
		t.Error("sessions group has no description")
	}
	for _, name := range []string{"create", "upload", "toggle", "select-all", "set-schema", "generate-schema", "extract", "export"} {
		if c, _, err := root.Find([]string{"sessions", name}); err != nil || c.Name() != name {
			t.Errorf("missing sessions %s command", name)
		}
	}
}

// newLoadedSession returns a handler serving every endpoint and the id of
// a session holding pages pages.
func newLoadedSession(t *testing.T, pages int) (http.Handler, *session.Session) {
	t.Helper()

	store := sessions.NewStore(sessions.Config{})
	t.Cleanup(store.Flush)

	sess := session.New(session.Config{Renderer: &rendertest.Renderer{TotalPages: pages}})
	if _, err := sess.Ingest(context.Background(), "doc.pdf", rendertest.BlankPDF(pages)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := store.Add(sess); err != nil {
		t.Fatalf("add: %v", err)
	}

	mux := http.NewServeMux()
	Registry().RegisterRoutes(mux, func(h http.HandlerFunc) http.HandlerFunc { return h })

	services := &svcctx.Services{Sessions: store}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), services)))
	})
	return handler, sess
}

func selectAll(t *testing.T, h http.Handler, id, body string) (int, SessionResponse) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/sessions/"+id+"/select-all", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp SessionResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return rec.Code, resp
}

func TestSelectAllEndpoint(t *testing.T) {
	h, sess := newLoadedSession(t, 3)

	if code, _ := selectAll(t, h, sess.ID(), `{}`); code != http.StatusBadRequest {
		t.Errorf("missing flag status = %d, want %d", code, http.StatusBadRequest)
	}

	code, resp := selectAll(t, h, sess.ID(), `{"selected": true}`)
	if code != http.StatusOK || !resp.Session.AllSelected || len(resp.Session.Selected) != 3 {
		t.Fatalf("select all = %d %+v", code, resp.Session)
	}

	if _, err := sess.ToggleSelection(1); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	// A partial selection survives a deselect-all.
	_, resp = selectAll(t, h, sess.ID(), `{"selected": false}`)
	if got := resp.Session.Selected; len(got) != 2 {
		t.Errorf("selected after partial deselect = %v, want [0 2]", got)
	}
	if resp.Update.Changed {
		t.Error("deselect of a partial selection should not report a change")
	}

	selectAll(t, h, sess.ID(), `{"selected": true}`)
	_, resp = selectAll(t, h, sess.ID(), `{"selected": false}`)
	if len(resp.Session.Selected) != 0 {
		t.Errorf("selected after full deselect = %v, want none", resp.Session.Selected)
	}
}

func TestPageImageEndpoint(t *testing.T) {
	h, sess := newLoadedSession(t, 2)

	req := httptest.NewRequest("GET", "/api/sessions/"+sess.ID()+"/pages/1/image", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := rec.Body.Bytes(); string(got) != string(rendertest.PNG(1)) {
		t.Error("served image does not match page 1")
	}

	req = httptest.NewRequest("GET", "/api/sessions/"+sess.ID()+"/pages/5/image", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out of range status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
