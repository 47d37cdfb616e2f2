// Package extract drives vision LLM calls that propose schemas for page
// images and pull structured data out of them.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/sift/internal/llmcall"
	"github.com/jackzampolin/sift/internal/prompts"
	"github.com/jackzampolin/sift/internal/prompts/extract_data"
	"github.com/jackzampolin/sift/internal/prompts/generate_schema"
	"github.com/jackzampolin/sift/internal/providers"
)

var (
	// ErrNoImages is returned when a call is made without page images.
	ErrNoImages = errors.New("no page images provided")
	// ErrEmptyResponse is returned when the model replies with nothing usable.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrInvalidOutput is returned when extraction output never matched the
	// schema within the allowed repair attempts.
	ErrInvalidOutput = errors.New("model output does not match schema")
)

// ClientFunc returns the LLM client to use for the next call. It is
// resolved per call so provider config reloads take effect.
type ClientFunc func() (providers.LLMClient, error)

// StaticClient returns a ClientFunc that always yields client.
func StaticClient(client providers.LLMClient) ClientFunc {
	return func() (providers.LLMClient, error) { return client, nil }
}

// RegistryClient returns a ClientFunc that looks up the provider named by
// name() in the registry on every call.
func RegistryClient(registry *providers.Registry, name func() string) ClientFunc {
	return func() (providers.LLMClient, error) {
		return registry.GetLLM(name())
	}
}

// Config configures a Service.
type Config struct {
	Client   ClientFunc
	Prompts  *prompts.Resolver // defaults to embedded prompts only
	Recorder *llmcall.Recorder // optional

	Model       string // provider default when empty
	Temperature float64
	MaxTokens   int

	// RepairAttempts is how many follow-up requests may be made when the
	// model's reply fails to parse or validate. 0 disables repair.
	RepairAttempts int

	Logger *slog.Logger
}

// Service implements schema generation and data extraction.
type Service struct {
	client         ClientFunc
	prompts        *prompts.Resolver
	recorder       *llmcall.Recorder
	model          string
	temperature    float64
	maxTokens      int
	repairAttempts int
	logger         *slog.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.Prompts == nil {
		cfg.Prompts = prompts.NewResolver("", cfg.Logger)
	}
	RegisterPrompts(cfg.Prompts)
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RepairAttempts < 0 {
		cfg.RepairAttempts = 0
	}

	return &Service{
		client:         cfg.Client,
		prompts:        cfg.Prompts,
		recorder:       cfg.Recorder,
		model:          cfg.Model,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		repairAttempts: cfg.RepairAttempts,
		logger:         cfg.Logger,
	}
}

// RegisterPrompts registers every prompt the Service uses.
func RegisterPrompts(r *prompts.Resolver) {
	generate_schema.RegisterPrompts(r)
	extract_data.RegisterPrompts(r)
}

// renderPrompt resolves key and executes it with data.
func (s *Service) renderPrompt(key string, data any) (string, error) {
	p, err := s.prompts.Resolve(key)
	if err != nil {
		return "", err
	}
	return p.Render(data)
}

// chat sends one request and records it against promptKey.
func (s *Service) chat(ctx context.Context, promptKey string, messages []providers.Message, images int, rf *providers.ResponseFormat) (*providers.ChatResult, error) {
	if s.client == nil {
		return nil, fmt.Errorf("no LLM client configured")
	}
	client, err := s.client()
	if err != nil {
		return nil, fmt.Errorf("failed to get LLM client: %w", err)
	}

	req := &providers.ChatRequest{
		Messages:       messages,
		Model:          s.model,
		Temperature:    s.temperature,
		MaxTokens:      s.maxTokens,
		ResponseFormat: rf,
	}

	temperature := s.temperature
	result, err := client.Chat(ctx, req)
	s.recorder.Record(result, err, client.Name(), llmcall.RecordOptions{
		SessionID:   llmcall.SessionIDFromContext(ctx),
		PromptKey:   promptKey,
		Images:      images,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", client.Name(), err)
	}
	if result == nil {
		return nil, fmt.Errorf("%s returned no result", client.Name())
	}
	if !result.Success {
		return nil, fmt.Errorf("%s request failed: %s", client.Name(), result.ErrorMessage)
	}

	s.logger.Debug("llm call complete",
		"prompt", promptKey,
		"provider", result.Provider,
		"model", result.ModelUsed,
		"images", images,
		"input_tokens", result.PromptTokens,
		"output_tokens", result.CompletionTokens,
		"latency", result.ExecutionTime,
	)
	return result, nil
}
