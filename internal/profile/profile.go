package profile

import (
	"errors"
	"strings"
)

// Profile is a freelancer's self-description. It is indexed once into the
// experience store and never mutated afterwards.
type Profile struct {
	Name           string   `json:"name"`
	Skills         []string `json:"skills"`
	Experience     string   `json:"experience"`
	PastProjects   []string `json:"past_projects"`
	Rates          string   `json:"rates,omitempty"`
	Specialization string   `json:"specialization,omitempty"`
}

// Validate reports missing required fields.
func (p Profile) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(p.Skills) == 0 {
		errs = append(errs, errors.New("at least one skill is required"))
	}
	if strings.TrimSpace(p.Experience) == "" {
		errs = append(errs, errors.New("experience is required"))
	}
	return errors.Join(errs...)
}

// Text renders the profile in the canonical document form that is chunked
// and embedded. Absent rates and specialization render as "Not specified"
// and "General".
func (p Profile) Text() string {
	var b strings.Builder
	b.WriteString("Freelancer Profile: ")
	b.WriteString(p.Name)
	b.WriteString("\n\nSkills: ")
	b.WriteString(strings.Join(p.Skills, ", "))
	b.WriteString("\n\nExperience: ")
	b.WriteString(p.Experience)
	b.WriteString("\n\nPast Projects:\n")
	for _, proj := range p.PastProjects {
		b.WriteString("- ")
		b.WriteString(proj)
		b.WriteString("\n")
	}
	b.WriteString("\nRates: ")
	b.WriteString(orDefault(p.Rates, "Not specified"))
	b.WriteString("\n\nSpecialization: ")
	b.WriteString(orDefault(p.Specialization, "General"))
	return b.String()
}

// SourceName labels chunks derived from this profile.
func (p Profile) SourceName() string {
	return "profile:" + strings.TrimSpace(p.Name)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
