package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sheikhmdsamiul/swiftme/internal/engine"
	"github.com/sheikhmdsamiul/swiftme/internal/metrics"
	"github.com/sheikhmdsamiul/swiftme/internal/profile"
	"github.com/sheikhmdsamiul/swiftme/internal/proposal"
	"github.com/sheikhmdsamiul/swiftme/internal/requirements"
	"github.com/sheikhmdsamiul/swiftme/internal/retrieval"
	"github.com/sheikhmdsamiul/swiftme/internal/storage"
)

type mockAnalyzer struct {
	rec         requirements.Record
	hadDeadline bool
}

func (m *mockAnalyzer) Analyze(ctx context.Context, posting string) requirements.Record {
	_, m.hadDeadline = ctx.Deadline()
	return m.rec
}

type mockIndex struct {
	mu        sync.Mutex
	indexErr  error
	searchErr error
	hits      []retrieval.Hit
	count     int

	indexed  []profile.Profile
	gotQuery string
	gotK     int
}

func (m *mockIndex) Index(_ context.Context, p profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = append(m.indexed, p)
	return m.indexErr
}

func (m *mockIndex) Search(_ context.Context, q string, k int) ([]retrieval.Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotQuery, m.gotK = q, k
	return m.hits, m.searchErr
}

func (m *mockIndex) Count(context.Context) (int, error) { return m.count, nil }

type mockGenerator struct {
	err         error
	gotHits     []retrieval.Hit
	gotTone     proposal.Tone
	gotCustom   string
	hadDeadline bool
}

func (m *mockGenerator) Generate(ctx context.Context, reqs requirements.Record, hits []retrieval.Hit, tone proposal.Tone, custom string) (proposal.GeneratedProposal, error) {
	_, m.hadDeadline = ctx.Deadline()
	m.gotHits, m.gotTone, m.gotCustom = hits, tone, custom
	if m.err != nil {
		return proposal.GeneratedProposal{}, m.err
	}
	return proposal.GeneratedProposal{
		ID:                   "p-1",
		Content:              "Hello!",
		ConfidenceScore:      0.5,
		MatchedSkills:        []string{"Go"},
		Timestamp:            time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tone:                 tone,
		RequirementsDegraded: reqs.Degraded,
	}, nil
}

type mockArchive struct {
	saveErr error
	saved   []storage.ProposalRecord
	recent  []storage.ProposalRecord
	ctxErr  error
}

func (m *mockArchive) SaveProposal(ctx context.Context, p storage.ProposalRecord) error {
	m.ctxErr = ctx.Err()
	m.saved = append(m.saved, p)
	return m.saveErr
}

func (m *mockArchive) RecentProposals(_ context.Context, limit int) ([]storage.ProposalRecord, error) {
	if len(m.recent) > limit {
		return m.recent[len(m.recent)-limit:], nil
	}
	return m.recent, nil
}

func (m *mockArchive) GetProposal(_ context.Context, id string) (storage.ProposalRecord, error) {
	for _, r := range m.recent {
		if r.ID == id {
			return r, nil
		}
	}
	return storage.ProposalRecord{}, storage.ErrNotFound
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var goReqs = requirements.Record{
	RequiredSkills: []string{"Go", "PostgreSQL"},
	ProjectScope:   "billing API",
	KeyPriorities:  []string{"Reliability"},
}

func newTestService(a Analyzer, idx ExperienceIndex, g Generator, ar Archive) *Service {
	cfg := Config{
		Analyzer:        a,
		Store:           idx,
		Generator:       g,
		Logger:          quiet,
		Metrics:         metrics.NewManager(),
		ExtractTimeout:  time.Second,
		GenerateTimeout: time.Second,
	}
	if ar != nil {
		cfg.Archive = ar
	}
	return New(cfg)
}

func TestSetupProfile(t *testing.T) {
	idx := &mockIndex{}
	s := newTestService(&mockAnalyzer{}, idx, &mockGenerator{}, nil)

	if !s.SetupProfile(context.Background(), profile.Profile{Name: "Ada"}) {
		t.Fatal("SetupProfile = false, want true")
	}
	if len(idx.indexed) != 1 || idx.indexed[0].Name != "Ada" {
		t.Errorf("indexed = %+v", idx.indexed)
	}

	idx.indexErr = errors.New("disk full")
	if s.SetupProfile(context.Background(), profile.Profile{Name: "Ada"}) {
		t.Error("SetupProfile = true on index failure, want false")
	}
}

func TestGenerateProposal_HappyPath(t *testing.T) {
	hits := []retrieval.Hit{{Content: "Go services", Relevance: 0.3}}
	idx := &mockIndex{hits: hits}
	a := &mockAnalyzer{rec: goReqs}
	g := &mockGenerator{}
	ar := &mockArchive{}
	s := newTestService(a, idx, g, ar)

	p, err := s.GenerateProposal(context.Background(), "posting text", proposal.ToneCasual, "be brief")
	if err != nil {
		t.Fatalf("GenerateProposal: %v", err)
	}

	if idx.gotQuery != "Go PostgreSQL billing API" {
		t.Errorf("search query = %q", idx.gotQuery)
	}
	if idx.gotK != retrieval.DefaultTopK {
		t.Errorf("search k = %d, want %d", idx.gotK, retrieval.DefaultTopK)
	}
	if len(g.gotHits) != 1 || g.gotTone != proposal.ToneCasual || g.gotCustom != "be brief" {
		t.Errorf("generator got hits=%v tone=%q custom=%q", g.gotHits, g.gotTone, g.gotCustom)
	}
	if !a.hadDeadline || !g.hadDeadline {
		t.Error("extraction and generation should run under a deadline")
	}
	if p.ID != "p-1" {
		t.Errorf("proposal ID = %q", p.ID)
	}
	if h := s.History(); len(h) != 1 || h[0].ID != "p-1" {
		t.Errorf("History = %+v", h)
	}
	if len(ar.saved) != 1 {
		t.Fatalf("archived %d proposals, want 1", len(ar.saved))
	}
	if ar.saved[0].Tone != "casual" || ar.saved[0].PostingExcerpt != "posting text" {
		t.Errorf("archived = %+v", ar.saved[0])
	}
}

func TestGenerateProposal_SearchFailureProceedsWithoutHits(t *testing.T) {
	idx := &mockIndex{searchErr: errors.New("index corrupt"), hits: []retrieval.Hit{{Content: "x"}}}
	g := &mockGenerator{}
	s := newTestService(&mockAnalyzer{rec: goReqs}, idx, g, nil)

	if _, err := s.GenerateProposal(context.Background(), "posting", proposal.ToneFormal, ""); err != nil {
		t.Fatalf("GenerateProposal: %v", err)
	}
	if g.gotHits != nil {
		t.Errorf("generator hits = %v, want nil", g.gotHits)
	}
}

func TestGenerateProposal_GenerationFailure(t *testing.T) {
	boom := errors.New("model offline")
	ar := &mockArchive{}
	s := newTestService(&mockAnalyzer{rec: goReqs}, &mockIndex{}, &mockGenerator{err: boom}, ar)

	_, err := s.GenerateProposal(context.Background(), "posting", proposal.ToneFormal, "")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if len(s.History()) != 0 {
		t.Error("failed generation should not be recorded in history")
	}
	if len(ar.saved) != 0 {
		t.Error("failed generation should not be archived")
	}
}

func TestGenerateProposal_DegradedExtraction(t *testing.T) {
	s := newTestService(&mockAnalyzer{rec: requirements.Fallback("posting")}, &mockIndex{}, &mockGenerator{}, nil)

	p, err := s.GenerateProposal(context.Background(), "posting", proposal.ToneProfessional, "")
	if err != nil {
		t.Fatalf("GenerateProposal: %v", err)
	}
	if !p.RequirementsDegraded {
		t.Error("RequirementsDegraded = false, want true")
	}
}

func TestGenerateProposal_ArchiveFailureNotSurfaced(t *testing.T) {
	ar := &mockArchive{saveErr: errors.New("readonly database")}
	s := newTestService(&mockAnalyzer{rec: goReqs}, &mockIndex{}, &mockGenerator{}, ar)

	if _, err := s.GenerateProposal(context.Background(), "posting", proposal.ToneFormal, ""); err != nil {
		t.Fatalf("GenerateProposal: %v", err)
	}
	if len(s.History()) != 1 {
		t.Error("proposal should still be in history")
	}
}

func TestGenerateProposal_ArchiveSurvivesCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ar := &mockArchive{}
	s := newTestService(&mockAnalyzer{rec: goReqs}, &mockIndex{}, &cancelAfterGenerate{cancel: cancel}, ar)

	if _, err := s.GenerateProposal(ctx, "posting", proposal.ToneFormal, ""); err != nil {
		t.Fatalf("GenerateProposal: %v", err)
	}
	if len(ar.saved) != 1 || ar.ctxErr != nil {
		t.Errorf("saved = %d, archive context err = %v", len(ar.saved), ar.ctxErr)
	}
}

// cancelAfterGenerate succeeds and then cancels the request context, as if
// the client disconnected right after generation.
type cancelAfterGenerate struct {
	mockGenerator
	cancel context.CancelFunc
}

func (c *cancelAfterGenerate) Generate(ctx context.Context, reqs requirements.Record, hits []retrieval.Hit, tone proposal.Tone, custom string) (proposal.GeneratedProposal, error) {
	p, err := c.mockGenerator.Generate(ctx, reqs, hits, tone, custom)
	c.cancel()
	return p, err
}

func TestSearchExperience(t *testing.T) {
	idx := &mockIndex{hits: []retrieval.Hit{{Content: "a"}, {Content: "b"}}}
	s := newTestService(&mockAnalyzer{}, idx, &mockGenerator{}, nil)

	hits := s.SearchExperience(context.Background(), "react", 0)
	if len(hits) != 2 {
		t.Errorf("hits = %v", hits)
	}
	if idx.gotK != retrieval.DefaultTopK {
		t.Errorf("k = %d, want default", idx.gotK)
	}

	s.SearchExperience(context.Background(), "react", 7)
	if idx.gotK != 7 {
		t.Errorf("k = %d, want 7", idx.gotK)
	}

	idx.searchErr = errors.New("boom")
	if hits := s.SearchExperience(context.Background(), "react", 1); hits != nil {
		t.Errorf("hits on failure = %v, want nil", hits)
	}
}

func TestRestoreHistory(t *testing.T) {
	var recent []storage.ProposalRecord
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		recent = append(recent, storage.ProposalRecord{ID: id, Tone: "formal", MatchedSkills: []string{}})
	}
	s := newTestService(&mockAnalyzer{}, &mockIndex{}, &mockGenerator{}, &mockArchive{recent: recent})

	if err := s.RestoreHistory(context.Background()); err != nil {
		t.Fatalf("RestoreHistory: %v", err)
	}
	h := s.History()
	if len(h) != proposal.DefaultHistoryCapacity {
		t.Fatalf("history len = %d", len(h))
	}
	if h[0].ID != "b" || h[4].ID != "f" {
		t.Errorf("history = %v .. %v", h[0].ID, h[4].ID)
	}
	if h[0].Tone != proposal.ToneFormal {
		t.Errorf("tone = %q", h[0].Tone)
	}
}

func TestRestoreHistory_NoArchive(t *testing.T) {
	s := newTestService(&mockAnalyzer{}, &mockIndex{}, &mockGenerator{}, nil)
	if err := s.RestoreHistory(context.Background()); err != nil {
		t.Fatalf("RestoreHistory: %v", err)
	}
}

func TestProposal_FromHistory(t *testing.T) {
	s := newTestService(&mockAnalyzer{rec: goReqs}, &mockIndex{}, &mockGenerator{}, nil)
	p, err := s.GenerateProposal(context.Background(), "posting", proposal.ToneCasual, "")
	if err != nil {
		t.Fatalf("GenerateProposal: %v", err)
	}

	got, err := s.Proposal(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Proposal: %v", err)
	}
	if got.ID != p.ID || got.Content != p.Content {
		t.Errorf("Proposal = %+v, want %+v", got, p)
	}
}

func TestProposal_FromArchive(t *testing.T) {
	ar := &mockArchive{recent: []storage.ProposalRecord{
		{ID: "old", Tone: "formal", Content: "Dear client", ConfidenceScore: 0.4, MatchedSkills: []string{"Go"}},
	}}
	s := newTestService(&mockAnalyzer{}, &mockIndex{}, &mockGenerator{}, ar)

	got, err := s.Proposal(context.Background(), "old")
	if err != nil {
		t.Fatalf("Proposal: %v", err)
	}
	if got.Content != "Dear client" || got.Tone != proposal.ToneFormal || got.ConfidenceScore != 0.4 {
		t.Errorf("Proposal = %+v", got)
	}
}

func TestProposal_NotFound(t *testing.T) {
	withArchive := newTestService(&mockAnalyzer{}, &mockIndex{}, &mockGenerator{}, &mockArchive{})
	if _, err := withArchive.Proposal(context.Background(), "missing"); !errors.Is(err, ErrProposalNotFound) {
		t.Errorf("archive miss: err = %v, want ErrProposalNotFound", err)
	}

	noArchive := newTestService(&mockAnalyzer{}, &mockIndex{}, &mockGenerator{}, nil)
	if _, err := noArchive.Proposal(context.Background(), "missing"); !errors.Is(err, ErrProposalNotFound) {
		t.Errorf("no archive: err = %v, want ErrProposalNotFound", err)
	}
}

type managedEngine struct{ running bool }

func (managedEngine) Name() string { return "ollama" }
func (managedEngine) Chat(context.Context, string, []engine.Message, engine.ChatOptions) (string, error) {
	return "", nil
}
func (managedEngine) Embed(context.Context, string, string) ([]float32, error) { return nil, nil }
func (m managedEngine) IsRunning(context.Context) bool                         { return m.running }
func (managedEngine) ListModels(context.Context) ([]string, error)             { return nil, nil }
func (managedEngine) HasModel(context.Context, string) bool                    { return true }
func (managedEngine) PullModel(context.Context, string, func(engine.PullProgress)) error {
	return nil
}

func TestStatus(t *testing.T) {
	s := New(Config{
		Analyzer:  &mockAnalyzer{},
		Store:     &mockIndex{count: 12},
		Generator: &mockGenerator{},
		Engine:    managedEngine{running: false},
		Logger:    quiet,
	})

	st := s.Status(context.Background())
	want := Status{Engine: "ollama", EngineReachable: false, IndexedChunks: 12, HistorySize: 0, HistoryCapacity: 5}
	if st != want {
		t.Errorf("Status = %+v, want %+v", st, want)
	}
}

type countingArchive struct {
	mockArchive
	n int
}

func (c *countingArchive) CountProposals(context.Context) (int, error) { return c.n, nil }

func TestStatus_ArchiveCount(t *testing.T) {
	s := New(Config{
		Analyzer:  &mockAnalyzer{},
		Store:     &mockIndex{},
		Generator: &mockGenerator{},
		Archive:   &countingArchive{n: 7},
		Logger:    quiet,
	})

	if got := s.Status(context.Background()).ArchivedProposals; got != 7 {
		t.Errorf("ArchivedProposals = %d, want 7", got)
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("héllo wörld", 5); got != "héllo" {
		t.Errorf("excerpt = %q", got)
	}
	if got := excerpt("short", 10); got != "short" {
		t.Errorf("excerpt = %q", got)
	}
}
