package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SaveProposal archives p. Saving an ID twice replaces the earlier row.
func (s *Store) SaveProposal(ctx context.Context, p ProposalRecord) error {
	skills, err := json.Marshal(nonNil(p.MatchedSkills))
	if err != nil {
		return fmt.Errorf("encoding matched skills: %w", err)
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO proposals
			(id, created_at, tone, content, confidence_score, matched_skills, requirements_degraded, posting_excerpt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, createdAt.UTC().Format(time.RFC3339Nano), p.Tone, p.Content,
		p.ConfidenceScore, string(skills), p.RequirementsDegraded, p.PostingExcerpt,
	)
	if err != nil {
		return fmt.Errorf("saving proposal %s: %w", p.ID, err)
	}
	return nil
}

// GetProposal returns the archived proposal with the given ID.
func (s *Store) GetProposal(ctx context.Context, id string) (ProposalRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, tone, content, confidence_score, matched_skills, requirements_degraded, posting_excerpt
		FROM proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ProposalRecord{}, ErrNotFound
	}
	return p, err
}

// RecentProposals returns up to limit of the newest proposals, oldest first.
func (s *Store) RecentProposals(ctx context.Context, limit int) ([]ProposalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, tone, content, confidence_score, matched_skills, requirements_degraded, posting_excerpt
		FROM (SELECT rowid AS seq, * FROM proposals ORDER BY rowid DESC LIMIT ?)
		ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying proposals: %w", err)
	}
	defer rows.Close()

	var out []ProposalRecord
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountProposals returns the number of archived proposals.
func (s *Store) CountProposals(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM proposals").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProposal(sc scanner) (ProposalRecord, error) {
	var (
		p         ProposalRecord
		createdAt string
		skills    string
	)
	if err := sc.Scan(&p.ID, &createdAt, &p.Tone, &p.Content, &p.ConfidenceScore, &skills, &p.RequirementsDegraded, &p.PostingExcerpt); err != nil {
		return ProposalRecord{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return ProposalRecord{}, fmt.Errorf("parsing created_at for %s: %w", p.ID, err)
	}
	p.CreatedAt = t
	if err := json.Unmarshal([]byte(skills), &p.MatchedSkills); err != nil {
		return ProposalRecord{}, fmt.Errorf("decoding matched skills for %s: %w", p.ID, err)
	}
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
