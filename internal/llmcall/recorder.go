package llmcall

import (
	"context"

	"github.com/jackzampolin/sift/internal/providers"
)

// Recorder records LLM calls into a Store. A nil Recorder or one without
// a store drops everything.
type Recorder struct {
	store *Store
}

// NewRecorder creates a new LLM call recorder.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Record captures the outcome of an LLM call. err is used when result is nil.
func (r *Recorder) Record(result *providers.ChatResult, err error, provider string, opts RecordOptions) {
	if r == nil || r.store == nil {
		return
	}

	call := FromChatResult(result, opts)
	if call == nil {
		call = FromError(provider, err, opts)
	} else if err != nil && call.Error == "" {
		call.Success = false
		call.Error = err.Error()
	}
	r.store.Add(call)
}

// RecordCall captures an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || r.store == nil || call == nil {
		return
	}
	r.store.Add(call)
}

type sessionIDKey struct{}

// WithSessionID tags ctx so calls made under it are recorded against a session.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext returns the session tag set by WithSessionID.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}
