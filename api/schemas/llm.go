// Package schemas holds the shared contracts between the webpilot core and
// its external collaborators (LLM providers, embedding CLIs, test doubles).
package schemas

import "context"

// GenerationOptions provides detailed parameters to control the text
// generation process of the LLM.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`       // Controls randomness. Lower is more deterministic.
	ForceJSONFormat bool    `json:"force_json_format"` // If true, forces the model to output valid JSON.
	TopP            float64 `json:"top_p"`             // Nucleus sampling parameter.
	TopK            int     `json:"top_k"`             // Top-k sampling parameter.
	MaxOutputTokens int     `json:"max_output_tokens"` // Hard cap on the response size. 0 means provider default.
}

// ContextBlock is one labeled section of the user-facing prompt. Roles build
// their context as an ordered list of blocks (task, tools, history, page) so
// that callers and tests can inspect exactly what the model was shown.
type ContextBlock struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// ImageAttachment is an optional inline image (e.g. an annotated screenshot)
// sent alongside the textual context.
type ImageAttachment struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// GenerationRequest encapsulates a complete request to the LLM.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	Blocks       []ContextBlock    `json:"blocks"`
	Image        *ImageAttachment  `json:"image,omitempty"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient defines a standard interface for interacting with a Large
// Language Model, abstracting the specifics of the underlying provider.
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client.
	Close() error
}
