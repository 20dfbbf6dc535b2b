package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ProposalRecord is an archived generated proposal.
type ProposalRecord struct {
	ID                   string
	CreatedAt            time.Time
	Tone                 string
	Content              string
	ConfidenceScore      float64
	MatchedSkills        []string
	RequirementsDegraded bool
	PostingExcerpt       string
}
