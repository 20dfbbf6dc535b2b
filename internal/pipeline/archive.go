package pipeline

import (
	"github.com/sheikhmdsamiul/swiftme/internal/proposal"
	"github.com/sheikhmdsamiul/swiftme/internal/storage"
)

const excerptRunes = 280

func toRecord(p proposal.GeneratedProposal, posting string) storage.ProposalRecord {
	return storage.ProposalRecord{
		ID:                   p.ID,
		CreatedAt:            p.Timestamp,
		Tone:                 string(p.Tone),
		Content:              p.Content,
		ConfidenceScore:      p.ConfidenceScore,
		MatchedSkills:        p.MatchedSkills,
		RequirementsDegraded: p.RequirementsDegraded,
		PostingExcerpt:       excerpt(posting, excerptRunes),
	}
}

func fromRecord(r storage.ProposalRecord) proposal.GeneratedProposal {
	return proposal.GeneratedProposal{
		ID:                   r.ID,
		Content:              r.Content,
		ConfidenceScore:      r.ConfidenceScore,
		MatchedSkills:        r.MatchedSkills,
		Timestamp:            r.CreatedAt,
		Tone:                 proposal.Tone(r.Tone),
		RequirementsDegraded: r.RequirementsDegraded,
	}
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
