package endpoints

import (
	"github.com/jackzampolin/sift/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},
		&GetConfigEndpoint{},

		// Session lifecycle
		&CreateSessionEndpoint{},
		&ListSessionsEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},

		// Session actions
		&UploadEndpoint{},
		&PageImageEndpoint{},
		&ToggleEndpoint{},
		&SelectAllEndpoint{},
		&SetSchemaEndpoint{},
		&GenerateSchemaEndpoint{},
		&ExtractEndpoint{},
		&ExportEndpoint{},

		// Schema templates
		&ListSchemasEndpoint{},
		&CheckSchemaEndpoint{},

		// LLM call history endpoints
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},
		&LLMCallCountsEndpoint{},
		&LLMCallSummaryEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},

		// Static files (catch-all, must be last)
		&StaticEndpoint{},
	}
}

// Registry returns an api.Registry holding every endpoint, with help text
// for the CLI command groups.
func Registry() *api.Registry {
	r := api.NewRegistry()
	for _, ep := range All() {
		r.Register(ep)
	}
	r.DescribeGroup(sessionsGroup, "Create sessions, load PDFs, select pages and extract data")
	r.DescribeGroup(schemasGroup, "Schema templates and validation")
	r.DescribeGroup(llmcallsGroup, "LLM call history")
	r.DescribeGroup(promptsGroup, "Prompt templates and overrides")
	return r
}
