// Package pipeline wires requirement extraction, experience retrieval and
// proposal assembly into the operations exposed by the transports.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sheikhmdsamiul/swiftme/internal/engine"
	"github.com/sheikhmdsamiul/swiftme/internal/metrics"
	"github.com/sheikhmdsamiul/swiftme/internal/profile"
	"github.com/sheikhmdsamiul/swiftme/internal/proposal"
	"github.com/sheikhmdsamiul/swiftme/internal/requirements"
	"github.com/sheikhmdsamiul/swiftme/internal/retrieval"
	"github.com/sheikhmdsamiul/swiftme/internal/storage"
)

// Analyzer turns posting text into a requirement record. It never fails.
type Analyzer interface {
	Analyze(ctx context.Context, posting string) requirements.Record
}

// ExperienceIndex stores and searches profile experience.
type ExperienceIndex interface {
	Index(ctx context.Context, p profile.Profile) error
	Search(ctx context.Context, query string, k int) ([]retrieval.Hit, error)
	Count(ctx context.Context) (int, error)
}

// Generator writes a proposal from requirements and retrieved experience.
type Generator interface {
	Generate(ctx context.Context, reqs requirements.Record, hits []retrieval.Hit, tone proposal.Tone, customInstructions string) (proposal.GeneratedProposal, error)
}

// Archive persists generated proposals across restarts.
type Archive interface {
	SaveProposal(ctx context.Context, p storage.ProposalRecord) error
	RecentProposals(ctx context.Context, limit int) ([]storage.ProposalRecord, error)
	GetProposal(ctx context.Context, id string) (storage.ProposalRecord, error)
}

// ErrProposalNotFound is returned by Proposal for unknown IDs.
var ErrProposalNotFound = errors.New("proposal not found")

// Config holds the collaborators of a Service. Analyzer, Store and
// Generator are required; the rest are optional.
type Config struct {
	Analyzer  Analyzer
	Store     ExperienceIndex
	Generator Generator
	History   *proposal.History
	Archive   Archive
	Engine    engine.Engine
	Metrics   *metrics.Manager
	Logger    *slog.Logger

	ExtractTimeout  time.Duration
	GenerateTimeout time.Duration
	TopK            int
}

// Service runs the proposal pipeline. It is safe for concurrent use.
type Service struct {
	analyzer  Analyzer
	store     ExperienceIndex
	generator Generator
	history   *proposal.History
	archive   Archive
	engine    engine.Engine
	metrics   *metrics.Manager
	logger    *slog.Logger

	extractTimeout  time.Duration
	generateTimeout time.Duration
	topK            int
}

// New creates a Service from cfg.
func New(cfg Config) *Service {
	s := &Service{
		analyzer:        cfg.Analyzer,
		store:           cfg.Store,
		generator:       cfg.Generator,
		history:         cfg.History,
		archive:         cfg.Archive,
		engine:          cfg.Engine,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		extractTimeout:  cfg.ExtractTimeout,
		generateTimeout: cfg.GenerateTimeout,
		topK:            cfg.TopK,
	}
	if s.history == nil {
		s.history = proposal.NewHistory(proposal.DefaultHistoryCapacity)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.topK <= 0 {
		s.topK = retrieval.DefaultTopK
	}
	return s
}

// SetupProfile indexes p's experience. Failures are logged and reported
// as false.
func (s *Service) SetupProfile(ctx context.Context, p profile.Profile) bool {
	start := time.Now()
	err := s.store.Index(ctx, p)
	s.metrics.ObserveStage(metrics.StageIndex, start)
	s.metrics.RecordProfileIndex(err == nil)
	if err != nil {
		s.logger.Error("indexing profile failed", "profile", p.Name, "error", err)
		return false
	}
	s.logger.Info("profile indexed", "profile", p.Name, "duration_ms", time.Since(start).Milliseconds())
	return true
}

// GenerateProposal runs extraction, retrieval and generation for posting.
// Extraction and retrieval degrade instead of failing; only a generation
// error is returned.
func (s *Service) GenerateProposal(ctx context.Context, posting string, tone proposal.Tone, customInstructions string) (proposal.GeneratedProposal, error) {
	reqs := s.extract(ctx, posting)
	hits := s.retrieve(ctx, reqs.Query())

	start := time.Now()
	genCtx, cancel := withTimeout(ctx, s.generateTimeout)
	defer cancel()
	p, err := s.generator.Generate(genCtx, reqs, hits, tone, customInstructions)
	s.metrics.ObserveStage(metrics.StageGenerate, start)
	if err != nil {
		s.metrics.RecordProposalFailure()
		s.logger.Error("generating proposal failed", "error", err)
		return proposal.GeneratedProposal{}, err
	}

	s.history.Append(p)
	s.metrics.RecordProposal(string(p.Tone), p.ConfidenceScore)
	s.persist(ctx, p, posting)

	s.logger.Info("proposal generated",
		"id", p.ID,
		"tone", p.Tone,
		"confidence", p.ConfidenceScore,
		"hits", len(hits),
		"degraded", p.RequirementsDegraded,
	)
	return p, nil
}

func (s *Service) extract(ctx context.Context, posting string) requirements.Record {
	start := time.Now()
	ctx, cancel := withTimeout(ctx, s.extractTimeout)
	defer cancel()

	reqs := s.analyzer.Analyze(ctx, posting)
	s.metrics.ObserveStage(metrics.StageExtract, start)
	if reqs.Degraded {
		s.metrics.RecordExtractFallback()
	}
	return reqs
}

func (s *Service) retrieve(ctx context.Context, query string) []retrieval.Hit {
	start := time.Now()
	hits, err := s.store.Search(ctx, query, s.topK)
	s.metrics.ObserveStage(metrics.StageRetrieve, start)
	s.metrics.RecordRetrieval(len(hits), err)
	if err != nil {
		s.logger.Warn("experience search failed, generating without context", "error", err)
		return nil
	}
	return hits
}

func (s *Service) persist(ctx context.Context, p proposal.GeneratedProposal, posting string) {
	if s.archive == nil {
		return
	}
	// The proposal is already returned to the caller; a cancelled request
	// should not lose it.
	ctx = context.WithoutCancel(ctx)
	if err := s.archive.SaveProposal(ctx, toRecord(p, posting)); err != nil {
		s.metrics.RecordArchiveError()
		s.logger.Warn("archiving proposal failed", "id", p.ID, "error", err)
	}
}

// History returns the retained proposals, most recent last.
func (s *Service) History() []proposal.GeneratedProposal {
	return s.history.List()
}

// Proposal returns the proposal with the given ID, looking at the retained
// history first and then the archive.
func (s *Service) Proposal(ctx context.Context, id string) (proposal.GeneratedProposal, error) {
	for _, p := range s.history.List() {
		if p.ID == id {
			return p, nil
		}
	}
	if s.archive == nil {
		return proposal.GeneratedProposal{}, ErrProposalNotFound
	}
	rec, err := s.archive.GetProposal(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return proposal.GeneratedProposal{}, ErrProposalNotFound
	}
	if err != nil {
		return proposal.GeneratedProposal{}, err
	}
	return fromRecord(rec), nil
}

// SearchExperience returns the k most relevant stored experience chunks for
// query. Failures are logged and yield no hits.
func (s *Service) SearchExperience(ctx context.Context, query string, k int) []retrieval.Hit {
	if k <= 0 {
		k = s.topK
	}
	hits, err := s.store.Search(ctx, query, k)
	s.metrics.RecordRetrieval(len(hits), err)
	if err != nil {
		s.logger.Warn("experience search failed", "error", err)
		return nil
	}
	return hits
}

// RestoreHistory seeds the in-memory history from the archive.
func (s *Service) RestoreHistory(ctx context.Context) error {
	if s.archive == nil {
		return nil
	}
	recs, err := s.archive.RecentProposals(ctx, s.history.Capacity())
	if err != nil {
		return err
	}
	ps := make([]proposal.GeneratedProposal, 0, len(recs))
	for _, r := range recs {
		ps = append(ps, fromRecord(r))
	}
	s.history.Seed(ps)
	s.logger.Debug("history restored", "count", len(ps))
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
