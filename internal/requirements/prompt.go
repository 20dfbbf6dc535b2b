package requirements

import (
	"fmt"

	"github.com/sheikhmdsamiul/swiftme/internal/engine"
)

const systemPrompt = `You are an expert job analyzer. Extract the following information from the job posting:
- Required skills and technologies
- Project scope and detailed requirements
- Budget information if mentioned
- Timeline/deadline if mentioned
- Key priorities and success factors

Format the output as JSON matching the specified schema.`

const formatInstructions = `Respond with a single JSON object and nothing else. Fields:
- "required_skills": array of strings (required)
- "project_scope": string (required)
- "budget": string, omit if not mentioned
- "timeline": string, omit if not mentioned
- "key_priorities": array of strings (required)`

// BuildPrompt returns the system and user messages for analyzing posting.
func BuildPrompt(posting string) []engine.Message {
	return []engine.Message{
		{Role: engine.RoleSystem, Content: systemPrompt},
		{Role: engine.RoleUser, Content: fmt.Sprintf(
			"Analyze this job posting and extract the key requirements:\n\n%s\n\n%s", posting, formatInstructions)},
	}
}
