package engine

import "context"

// Engine abstracts an inference backend. Requirement extraction, proposal
// generation and embedding depend on this interface rather than on a
// concrete client.
type Engine interface {
	// Chat sends messages to model and returns the assistant's reply.
	// A non-nil opts.Schema requests JSON output matching the schema.
	Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (string, error)

	// Embed returns the embedding vector of text under model.
	Embed(ctx context.Context, model string, text string) ([]float32, error)

	// Name identifies the backend ("ollama", "openai", "gemini").
	Name() string
}

// ModelManager is implemented by backends that host models locally and can
// report reachability and download missing models.
type ModelManager interface {
	IsRunning(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	HasModel(ctx context.Context, name string) bool
	PullModel(ctx context.Context, name string, onProgress func(PullProgress)) error
}
