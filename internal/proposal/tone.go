package proposal

import (
	"fmt"
	"strings"
)

// Tone selects the writing style of a proposal.
type Tone string

const (
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
	ToneProfessional Tone = "professional"
)

// DefaultTone is used when no tone is requested.
const DefaultTone = ToneProfessional

// Tones lists every supported tone.
var Tones = []Tone{ToneFormal, ToneCasual, ToneProfessional}

// ParseTone validates a user-supplied tone. Empty input selects
// DefaultTone; matching ignores case and surrounding space.
func ParseTone(s string) (Tone, error) {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "":
		return DefaultTone, nil
	case ToneFormal, ToneCasual, ToneProfessional:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tone %q (want formal, casual or professional)", s)
	}
}

// Instruction is the style directive that opens the generation prompt.
// Unrecognized tones get the professional directive.
func (t Tone) Instruction() string {
	switch t {
	case ToneFormal:
		return "You are writing a formal business proposal. Use professional language, " +
			"complete sentences, and maintain a respectful, corporate tone. " +
			"Avoid contractions and casual expressions."
	case ToneCasual:
		return "You are writing a friendly, casual proposal. Use conversational language, " +
			"contractions, and a more personal tone. Be enthusiastic but professional."
	default:
		return "You are writing a professional yet approachable proposal. Balance expertise " +
			"with friendliness. Use clear, direct language that shows confidence."
	}
}

// Valid reports whether t is one of Tones.
func (t Tone) Valid() bool {
	switch t {
	case ToneFormal, ToneCasual, ToneProfessional:
		return true
	}
	return false
}
