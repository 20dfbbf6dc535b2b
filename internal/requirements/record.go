// Package requirements turns free-form job postings into structured
// requirement records using a chat model with schema-constrained output.
package requirements

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/invopop/jsonschema"
)

// SchemaName versions the record schema sent to the model.
const SchemaName = "job_requirements_v1"

// Fallback values used when extraction fails.
const (
	FallbackSkill    = "Extracted from job posting"
	FallbackPriority = "Complete project successfully"
	NotSpecified     = "Not specified"
	fallbackScopeLen = 500
)

// ErrSchemaMismatch means the model reply was not a valid record.
var ErrSchemaMismatch = errors.New("reply does not match requirements schema")

// Record is the structured view of one job posting.
type Record struct {
	RequiredSkills []string `json:"required_skills"`
	ProjectScope   string   `json:"project_scope"`
	Budget         string   `json:"budget,omitempty"`
	Timeline       string   `json:"timeline,omitempty"`
	KeyPriorities  []string `json:"key_priorities"`
	// Degraded is set when the record is the fallback rather than a
	// model extraction.
	Degraded bool `json:"degraded"`
}

// Query is the retrieval query for the record: skills joined by spaces,
// then the project scope.
func (r Record) Query() string {
	return strings.Join(r.RequiredSkills, " ") + " " + r.ProjectScope
}

// Fallback builds the record used when extraction fails: a placeholder
// skill, the first 500 characters of the posting as scope, unspecified
// budget and timeline, and a generic priority.
func Fallback(posting string) Record {
	scope := posting
	if utf8.RuneCountInString(scope) > fallbackScopeLen {
		scope = string([]rune(scope)[:fallbackScopeLen])
	}
	return Record{
		RequiredSkills: []string{FallbackSkill},
		ProjectScope:   scope,
		Budget:         NotSpecified,
		Timeline:       NotSpecified,
		KeyPriorities:  []string{FallbackPriority},
		Degraded:       true,
	}
}

// schemaDoc is the shape the model is asked to produce.
type schemaDoc struct {
	RequiredSkills []string `json:"required_skills" jsonschema_description:"Skills and technologies the client requires"`
	ProjectScope   string   `json:"project_scope" jsonschema_description:"Project scope and detailed requirements"`
	Budget         string   `json:"budget,omitempty" jsonschema_description:"Budget if mentioned"`
	Timeline       string   `json:"timeline,omitempty" jsonschema_description:"Timeline or deadline if mentioned"`
	KeyPriorities  []string `json:"key_priorities" jsonschema_description:"Key priorities and success factors"`
}

// Schema returns the JSON schema for the model reply.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	s := r.Reflect(&schemaDoc{})
	s.Version = ""
	s.Title = SchemaName
	return s
}

// payload distinguishes absent required fields from empty ones.
type payload struct {
	RequiredSkills *[]string `json:"required_skills"`
	ProjectScope   *string   `json:"project_scope"`
	Budget         *string   `json:"budget"`
	Timeline       *string   `json:"timeline"`
	KeyPriorities  *[]string `json:"key_priorities"`
}

// Parse decodes a model reply into a Record. Markdown code fences and text
// around the JSON object are tolerated. Missing required_skills,
// project_scope or key_priorities, or mistyped fields, yield an error
// wrapping ErrSchemaMismatch.
func Parse(raw string) (Record, error) {
	body := extractJSON(raw)
	if body == "" {
		return Record{}, fmt.Errorf("%w: no JSON object in reply", ErrSchemaMismatch)
	}

	var p payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}

	var missing []string
	if p.RequiredSkills == nil {
		missing = append(missing, "required_skills")
	}
	if p.ProjectScope == nil {
		missing = append(missing, "project_scope")
	}
	if p.KeyPriorities == nil {
		missing = append(missing, "key_priorities")
	}
	if len(missing) > 0 {
		return Record{}, fmt.Errorf("%w: missing %s", ErrSchemaMismatch, strings.Join(missing, ", "))
	}

	rec := Record{
		RequiredSkills: cleanList(*p.RequiredSkills),
		ProjectScope:   strings.TrimSpace(*p.ProjectScope),
		KeyPriorities:  cleanList(*p.KeyPriorities),
	}
	if p.Budget != nil {
		rec.Budget = strings.TrimSpace(*p.Budget)
	}
	if p.Timeline != nil {
		rec.Timeline = strings.TrimSpace(*p.Timeline)
	}
	return rec, nil
}

// extractJSON strips code fences and returns the outermost {...} span.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
