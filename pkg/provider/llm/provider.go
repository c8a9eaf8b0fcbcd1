// Package llm defines the Provider interface for language-model backends.
//
// The interpreter uses an LLM to turn free-form speech into structured
// inventory commands. Providers wrap a remote or local model API (OpenAI,
// Anthropic, a local Ollama instance) behind a uniform non-streaming
// completion call so the interpreter never couples to a specific SDK.
//
// Implementors must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	// Role is one of RoleSystem, RoleUser, RoleAssistant.
	Role string

	// Content is the message text.
	Content string
}

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and may differ between providers for the same
// text.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a
// response. Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers without a dedicated system slot prepend
	// it as a system-role message.
	SystemPrompt string

	// Messages is the ordered conversation. The last message is typically
	// user-role and drives the response.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. The
	// interpreter always requests 0 for deterministic parses.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
}

// CompletionResponse is the full model reply.
type CompletionResponse struct {
	// Content is the text of the reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
type Provider interface {
	// Name identifies the backend for logs and metrics ("openai",
	// "anyllm/ollama").
	Name() string

	// Complete sends req and waits for the full response. Returns an error
	// if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
