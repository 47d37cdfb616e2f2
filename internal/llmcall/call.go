// Package llmcall provides LLM call recording and querying for traceability.
// Every LLM API call is recorded with its prompt key, response, and metrics.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/sift/internal/providers"
)

// Prompt keys identifying which prompt produced a call.
const (
	PromptGenerateSchema = "schema.generate"
	PromptExtract        = "extract.data"
	PromptExtractRepair  = "extract.repair"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`
	QueueMs   int       `json:"queue_ms,omitempty"`

	// Context references
	SessionID string `json:"session_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Prompt traceability
	PromptKey string `json:"prompt_key"`
	Images    int    `json:"images"`

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Token usage
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
	Attempts     int     `json:"attempts,omitempty"`

	// Response
	Response string `json:"response"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	// Context references (all optional)
	SessionID string

	// Prompt identification (required for traceability)
	PromptKey string
	Images    int

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.ExecutionTime.Milliseconds()),
		QueueMs:      int(result.QueueTime.Milliseconds()),
		SessionID:    opts.SessionID,
		RequestID:    result.RequestID,
		PromptKey:    opts.PromptKey,
		Images:       opts.Images,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		Temperature:  opts.Temperature,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		CostUSD:      result.CostUSD,
		Attempts:     result.Attempts,
		Response:     result.Content,
		Success:      result.Success,
	}

	if !result.Success {
		call.Error = result.ErrorMessage
	}

	return call
}

// FromError creates a failed Call for a request that produced no result.
func FromError(provider string, err error, opts RecordOptions) *Call {
	call := &Call{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		SessionID:   opts.SessionID,
		PromptKey:   opts.PromptKey,
		Images:      opts.Images,
		Provider:    provider,
		Temperature: opts.Temperature,
	}
	if err != nil {
		call.Error = err.Error()
	}
	return call
}
