// Package generate_schema holds the prompts that ask a vision model to
// propose an extraction schema for a document.
package generate_schema

import (
	_ "embed"

	"github.com/jackzampolin/sift/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

//go:embed repair.tmpl
var repairPromptTmpl string

// Prompt keys
const (
	SystemPromptKey = "generate_schema.system"
	UserPromptKey   = "generate_schema.user"
	RepairPromptKey = "generate_schema.repair"
)

// UserData fills the user prompt template.
type UserData struct {
	PageCount int
}

// RepairData fills the repair prompt template.
type RepairData struct {
	Issue string
}

// RegisterPrompts registers the schema generation prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemPromptKey,
		Text:        systemPrompt,
		Description: "Schema generation system prompt - teaches the schema grammar",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Schema generation user prompt template",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         RepairPromptKey,
		Text:        repairPromptTmpl,
		Description: "Follow-up sent when a proposed schema fails to parse",
	})
}
