package engine

import "github.com/invopop/jsonschema"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tunes a single Chat call.
type ChatOptions struct {
	// Temperature is left to the model default when nil; an explicit 0
	// asks for deterministic output.
	Temperature *float64
	// Schema constrains the reply to JSON of this shape.
	Schema *jsonschema.Schema
	// SchemaName labels the schema for backends that require a name.
	SchemaName string
}

// Temperature is a helper for building ChatOptions literals.
func Temperature(v float64) *float64 { return &v }

// PullProgress reports download progress for a model pull.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}
