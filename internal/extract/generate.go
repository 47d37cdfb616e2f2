package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackzampolin/sift/internal/llmcall"
	"github.com/jackzampolin/sift/internal/prompts/generate_schema"
	"github.com/jackzampolin/sift/internal/providers"
	"github.com/jackzampolin/sift/internal/schema"
)

// Propose asks the model for a schema describing the pages. Replies that
// fail to parse are sent back for correction up to RepairAttempts times;
// the last reply is returned even if it still does not parse, since the
// user edits it before extracting.
func (s *Service) Propose(ctx context.Context, images [][]byte) (string, error) {
	if len(images) == 0 {
		return "", ErrNoImages
	}

	system, err := s.renderPrompt(generate_schema.SystemPromptKey, nil)
	if err != nil {
		return "", err
	}
	user, err := s.renderPrompt(generate_schema.UserPromptKey, generate_schema.UserData{PageCount: len(images)})
	if err != nil {
		return "", err
	}

	messages := []providers.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user, Images: images},
	}

	for attempt := 0; ; attempt++ {
		result, err := s.chat(ctx, llmcall.PromptGenerateSchema, messages, len(images), nil)
		if err != nil {
			return "", err
		}

		text := strings.TrimSpace(providers.StripCodeFences(result.Content))
		if text == "" {
			return "", ErrEmptyResponse
		}
		text += "\n"

		_, parseErr := schema.Parse(text)
		if parseErr == nil {
			return text, nil
		}
		if attempt >= s.repairAttempts {
			s.logger.Warn("proposed schema does not parse", "attempts", attempt+1, "error", parseErr)
			return text, nil
		}

		repair, err := s.renderPrompt(generate_schema.RepairPromptKey, generate_schema.RepairData{Issue: parseErr.Error()})
		if err != nil {
			return "", fmt.Errorf("failed to build repair prompt: %w", err)
		}
		s.logger.Debug("retrying schema proposal", "attempt", attempt+1, "error", parseErr)
		messages = append(messages,
			providers.Message{Role: "assistant", Content: result.Content},
			providers.Message{Role: "user", Content: repair},
		)
	}
}
