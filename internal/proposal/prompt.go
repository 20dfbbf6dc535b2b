package proposal

import (
	"fmt"
	"strings"

	"github.com/sheikhmdsamiul/swiftme/internal/requirements"
	"github.com/sheikhmdsamiul/swiftme/internal/retrieval"
)

// ExperienceContext renders hits as numbered blocks:
//
//	Relevant Experience 1 (Relevance: 0.82):
//	<content>
//
// Blocks are separated by a blank line. No hits renders as "".
func ExperienceContext(hits []retrieval.Hit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("Relevant Experience %d (Relevance: %.2f):\n%s\n", i+1, h.Relevance, h.Content)
	}
	return strings.Join(blocks, "\n")
}

// BuildPrompt assembles the single generation prompt: tone directive,
// role, job requirements, experience context, the five-part outline,
// optional custom instructions and the closing request.
func BuildPrompt(reqs requirements.Record, experience string, tone Tone, custom string) string {
	var b strings.Builder
	b.WriteString(tone.Instruction())
	b.WriteString("\n\nYou are an expert freelance developer writing a job proposal. ")
	b.WriteString("Use the following information to create a compelling, personalized proposal.\n\n")

	b.WriteString("JOB REQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Required Skills: %s\n", strings.Join(reqs.RequiredSkills, ", "))
	fmt.Fprintf(&b, "- Project Scope: %s\n", reqs.ProjectScope)
	fmt.Fprintf(&b, "- Budget: %s\n", orNotSpecified(reqs.Budget))
	fmt.Fprintf(&b, "- Timeline: %s\n", orNotSpecified(reqs.Timeline))
	fmt.Fprintf(&b, "- Key Priorities: %s\n\n", strings.Join(reqs.KeyPriorities, ", "))

	b.WriteString("YOUR RELEVANT EXPERIENCE:\n")
	b.WriteString(experience)
	b.WriteString("\n\n")

	b.WriteString("PROPOSAL STRUCTURE:\n")
	b.WriteString("1. Professional greeting that shows you understand their needs\n")
	b.WriteString("2. Highlight 2-3 most relevant skills and experiences that match their requirements\n")
	b.WriteString("3. Propose your approach/solution to their project\n")
	b.WriteString("4. Mention timeline availability and next steps\n")
	b.WriteString("5. Professional closing\n\n")

	if c := strings.TrimSpace(custom); c != "" {
		fmt.Fprintf(&b, "CUSTOM INSTRUCTIONS: %s\n\n", c)
	}

	b.WriteString("Generate a compelling proposal that shows why you're the perfect fit for this project:\n")
	return b.String()
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return requirements.NotSpecified
	}
	return s
}
