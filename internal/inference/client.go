// Package inference wraps the external text-generation service behind a
// narrow interface. Call sites hand in structured prompts and get back either
// a typed result or a typed error; raw response text never propagates past
// this boundary.
package inference

import "context"

// Request is one chat-style completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int32
}

// Client is the inference-service collaborator. Implementations must return a
// *pipelineerror.TransportError for network or service failures so callers
// can apply batch-level containment.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ModelInfo identifies the provider and model behind a client, for extraction
// metadata.
type ModelInfo struct {
	Provider string
	Model    string
}

// Describer is implemented by clients that can report their model identity.
type Describer interface {
	Describe() ModelInfo
}
