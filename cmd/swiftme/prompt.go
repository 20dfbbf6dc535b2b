package main

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/sheikhmdsamiul/swiftme/internal/profile"
	"github.com/sheikhmdsamiul/swiftme/internal/proposal"
)

func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(label + " is required")
		}
		return nil
	}
}

func ask(label string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{Label: label, Validate: validate}
	v, err := p.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// splitList splits a comma separated answer, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// promptProfile walks the user through the profile fields. Experience is
// asked for only when askExperience is set; otherwise it comes from a file.
func promptProfile(askExperience bool) (profile.Profile, error) {
	var p profile.Profile
	var err error

	if p.Name, err = ask("Name", required("name")); err != nil {
		return p, err
	}
	skills, err := ask("Skills (comma separated)", required("skills"))
	if err != nil {
		return p, err
	}
	p.Skills = splitList(skills)

	if askExperience {
		if p.Experience, err = ask("Experience summary", required("experience")); err != nil {
			return p, err
		}
	}

	projects, err := ask("Past projects (comma separated, optional)", nil)
	if err != nil {
		return p, err
	}
	p.PastProjects = splitList(projects)

	if p.Rates, err = ask("Rates (optional)", nil); err != nil {
		return p, err
	}
	if p.Specialization, err = ask("Specialization (optional)", nil); err != nil {
		return p, err
	}
	return p, nil
}

func selectTone() (proposal.Tone, error) {
	items := make([]string, 0, len(proposal.Tones))
	for _, t := range proposal.Tones {
		items = append(items, string(t))
	}
	sel := promptui.Select{Label: "Tone", Items: items}
	_, v, err := sel.Run()
	if err != nil {
		return "", err
	}
	return proposal.ParseTone(v)
}
