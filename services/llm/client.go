package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// StreamCallback receives each text delta as the backend produces it.
// Returning an error aborts the stream.
type StreamCallback func(delta string) error

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
	GenerateStream(ctx context.Context, prompt string, params GenerationParams, callback StreamCallback) (string, error)
}

// Float32Ptr and IntPtr build optional generation parameters inline.
func Float32Ptr(v float32) *float32 { return &v }

func IntPtr(v int) *int { return &v }
