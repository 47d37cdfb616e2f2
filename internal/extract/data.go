package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackzampolin/sift/internal/llmcall"
	"github.com/jackzampolin/sift/internal/prompts/extract_data"
	"github.com/jackzampolin/sift/internal/providers"
	"github.com/jackzampolin/sift/internal/schema"
)

// Extract pulls data matching def out of the page images. The returned JSON
// is compacted but keeps the model's key order.
func (s *Service) Extract(ctx context.Context, images [][]byte, def *schema.Definition) (json.RawMessage, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if def == nil {
		return nil, fmt.Errorf("no schema definition provided")
	}

	wrapped, err := def.ResponseFormatSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build response format: %w", err)
	}
	rf := &providers.ResponseFormat{Type: "json_schema", JSONSchema: wrapped}
	jsonSchema := def.JSONSchema()

	system, err := s.renderPrompt(extract_data.SystemPromptKey, nil)
	if err != nil {
		return nil, err
	}
	user, err := s.renderPrompt(extract_data.UserPromptKey, extract_data.UserData{
		SchemaName:        def.Name,
		SchemaDescription: def.Description,
		Schema:            string(jsonSchema),
		PageCount:         len(images),
	})
	if err != nil {
		return nil, err
	}

	messages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user, Images: images},
	}

	promptKey := llmcall.PromptExtract
	var lastErr error
	for attempt := 0; attempt <= s.repairAttempts; attempt++ {
		if attempt > 0 {
			promptKey = llmcall.PromptExtractRepair
		}

		result, err := s.chat(ctx, promptKey, messages, len(images), rf)
		if err != nil {
			return nil, err
		}

		data, issue := s.checkOutput(result, def)
		if issue == nil {
			return data, nil
		}
		lastErr = issue

		s.logger.Debug("extraction output rejected", "attempt", attempt+1, "error", issue)
		messages = append(messages,
			providers.Message{Role: "assistant", Content: result.Content},
			providers.Message{Role: "user", Content: providers.StructuredRepairPrompt(jsonSchema, result.Content, issue)},
		)
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrInvalidOutput, s.repairAttempts+1, lastErr)
}

// checkOutput parses and validates one reply.
func (s *Service) checkOutput(result *providers.ChatResult, def *schema.Definition) (json.RawMessage, error) {
	data := result.ParsedJSON
	if len(data) == 0 {
		if result.Content == "" {
			return nil, ErrEmptyResponse
		}
		parsed, err := providers.ParseStructuredJSON(result.Content)
		if err != nil {
			return nil, err
		}
		data = parsed
	}
	if err := def.Validate(data); err != nil {
		return nil, err
	}
	return data, nil
}
