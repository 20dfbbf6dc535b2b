// Package proposal assembles tone-conditioned generation prompts from job
// requirements and retrieved experience, and keeps a short history of the
// proposals produced.
package proposal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sheikhmdsamiul/swiftme/internal/engine"
	"github.com/sheikhmdsamiul/swiftme/internal/requirements"
	"github.com/sheikhmdsamiul/swiftme/internal/retrieval"
	"github.com/sheikhmdsamiul/swiftme/internal/scoring"
)

// DefaultTemperature is the sampling temperature for generation.
const DefaultTemperature = 0.7

// GeneratedProposal is the output of one generation.
type GeneratedProposal struct {
	ID                   string    `json:"id"`
	Content              string    `json:"content"`
	ConfidenceScore      float64   `json:"confidence_score"`
	MatchedSkills        []string  `json:"matched_skills"`
	Timestamp            time.Time `json:"timestamp"`
	Tone                 Tone      `json:"tone"`
	RequirementsDegraded bool      `json:"requirements_degraded"`
}

// Chatter is the chat capability the assembler needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []engine.Message, opts engine.ChatOptions) (string, error)
}

// Assembler generates proposals with a single model call each.
type Assembler struct {
	client      Chatter
	model       string
	temperature float64
	now         func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) Option {
	return func(a *Assembler) { a.temperature = t }
}

// WithClock sets the time source for proposal timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler creates an Assembler for model.
func NewAssembler(client Chatter, model string, opts ...Option) *Assembler {
	a := &Assembler{client: client, model: model, temperature: DefaultTemperature, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Generate writes a proposal for reqs backed by hits. The model reply is
// returned verbatim as Content. Model errors, including cancellation,
// are returned without retry.
func (a *Assembler) Generate(ctx context.Context, reqs requirements.Record, hits []retrieval.Hit, tone Tone, customInstructions string) (GeneratedProposal, error) {
	confidence := scoring.Confidence(hits)
	experience := ExperienceContext(hits)
	prompt := BuildPrompt(reqs, experience, tone, customInstructions)

	content, err := a.client.Chat(ctx, a.model, []engine.Message{{Role: engine.RoleUser, Content: prompt}}, engine.ChatOptions{
		Temperature: engine.Temperature(a.temperature),
	})
	if err != nil {
		return GeneratedProposal{}, fmt.Errorf("generating proposal: %w", err)
	}

	if !tone.Valid() {
		tone = DefaultTone
	}
	return GeneratedProposal{
		ID:                   uuid.NewString(),
		Content:              content,
		ConfidenceScore:      confidence,
		MatchedSkills:        scoring.MatchedSkills(reqs.RequiredSkills, experience),
		Timestamp:            a.now(),
		Tone:                 tone,
		RequirementsDegraded: reqs.Degraded,
	}, nil
}
