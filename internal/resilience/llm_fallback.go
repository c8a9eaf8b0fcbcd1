package resilience

import (
	"context"

	"github.com/equiproom/jerseyvox/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across
// multiple model backends. Each backend has its own circuit breaker, so a
// rate-limited cloud model degrades to a local one without stalling the
// interpretation turn.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
	name  string
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend.
func NewLLMFallback(primary llm.Provider, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
		name:  primary.Name(),
	}
}

// AddFallback registers an additional model provider as a fallback.
func (f *LLMFallback) AddFallback(provider llm.Provider) {
	f.group.AddFallback(provider.Name(), provider)
}

// Name implements llm.Provider. It reports the primary backend's name;
// logs on the fallback path carry the per-entry names.
func (f *LLMFallback) Name() string {
	return f.name
}

// Complete runs the completion against the first healthy backend.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
