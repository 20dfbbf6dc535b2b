package requirements

import (
	"context"
	"log/slog"

	"github.com/sheikhmdsamiul/swiftme/internal/engine"
)

// Chatter is the chat capability the extractor needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, opts engine.ChatOptions) (string, error)
}

// Extractor asks a chat model for a Record describing a job posting.
type Extractor struct {
	client      Chatter
	model       string
	temperature float64
	logger      *slog.Logger
}

// NewExtractor creates an Extractor. Temperature is 0 unless overridden.
func NewExtractor(client Chatter, model string, opts ...Option) *Extractor {
	e := &Extractor{client: client, model: model, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Extractor) { e.temperature = t }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Analyze extracts requirements from posting. It never fails: a model
// error, a cancelled context or an unparseable reply all produce
// Fallback(posting), with the cause logged.
func (e *Extractor) Analyze(ctx context.Context, posting string) Record {
	raw, err := e.client.Chat(ctx, e.model, BuildPrompt(posting), engine.ChatOptions{
		Temperature: engine.Temperature(e.temperature),
		Schema:      Schema(),
		SchemaName:  SchemaName,
	})
	if err != nil {
		e.logger.Warn("requirement extraction failed, using fallback", "error", err)
		return Fallback(posting)
	}

	rec, err := Parse(raw)
	if err != nil {
		e.logger.Warn("requirement reply unparseable, using fallback", "error", err, "response", truncate(raw, 200))
		return Fallback(posting)
	}
	return rec
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
