// Package extract_data holds the prompts for schema-driven data extraction.
package extract_data

import (
	_ "embed"

	"github.com/jackzampolin/sift/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "extract_data.system"
	UserPromptKey   = "extract_data.user"
)

// UserData fills the user prompt template.
type UserData struct {
	SchemaName        string
	SchemaDescription string
	Schema            string
	PageCount         int
}

// RegisterPrompts registers the extraction prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Extraction system prompt",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Extraction user prompt template",
	})
}
