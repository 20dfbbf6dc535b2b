package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sheikhmdsamiul/swiftme/internal/chunker"
	"github.com/sheikhmdsamiul/swiftme/internal/profile"
)

// DefaultTopK is the number of hits Search returns when k <= 0.
const DefaultTopK = 3

// Chunk is one embedded piece of a profile document.
type Chunk struct {
	ID         string
	SourceName string
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// Hit is a ranked search result.
type Hit struct {
	Content    string  `json:"content"`
	Relevance  float64 `json:"relevance"`
	SourceName string  `json:"source_name"`
}

// StoreConfig configures an ExperienceStore.
type StoreConfig struct {
	Dir          string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Metric       Metric
}

// ExperienceStore holds embedded profile chunks for one index directory.
// The in-memory index is populated lazily from disk. Index takes the write
// lock for its load/append/persist section and Search takes the read lock
// while scoring, so searches never observe a half-applied Index and wait
// for an in-flight one. Use a single store per directory.
type ExperienceStore struct {
	embedder *Embedder
	splitter *chunker.Splitter
	topK     int
	metric   Metric

	mu     sync.RWMutex
	disk   diskIndex
	chunks []Chunk
	loaded bool
}

// NewExperienceStore validates cfg and returns an empty, unloaded store.
func NewExperienceStore(cfg StoreConfig, embedder *Embedder) (*ExperienceStore, error) {
	if cfg.Dir == "" {
		return nil, errors.New("index directory is required")
	}
	sp, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	metric := cfg.Metric
	if metric == "" {
		metric = MetricL2
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ExperienceStore{
		embedder: embedder,
		splitter: sp,
		topK:     topK,
		metric:   metric,
		disk:     diskIndex{dir: cfg.Dir},
	}, nil
}

// Index chunks and embeds the profile document and appends it to the
// index, creating the index on first use. Existing chunks are never
// removed. The new chunks are on disk before Index returns nil.
func (s *ExperienceStore) Index(ctx context.Context, p profile.Profile) error {
	texts := s.splitter.Split(p.Text())
	if len(texts) == 0 {
		return errors.New("profile produced no text to index")
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding profile: %w", err)
	}

	now := time.Now().UTC()
	source := p.SourceName()
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{
			ID:         uuid.NewString(),
			SourceName: source,
			Text:       text,
			Embedding:  vecs[i],
			CreatedAt:  now,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	if err := s.disk.append(ctx, chunks); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	s.chunks = append(s.chunks, chunks...)
	s.loaded = true
	return nil
}

// Search returns up to k hits for query, most relevant first. k <= 0 uses
// the configured default. With no index on disk or in memory it returns
// nil, nil without calling the embedding model.
func (s *ExperienceStore) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = s.topK
	}
	ok, err := s.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	qv, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return topK(s.chunks, qv, k, s.metric), nil
}

// Count reports the number of indexed chunks, loading from disk if needed.
func (s *ExperienceStore) Count(ctx context.Context) (int, error) {
	if _, err := s.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Close releases the index database.
func (s *ExperienceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disk.close()
}

// ensureLoaded reports whether any chunks are available, loading the
// persisted index on first use.
func (s *ExperienceStore) ensureLoaded(ctx context.Context) (bool, error) {
	s.mu.RLock()
	if s.loaded {
		n := len(s.chunks)
		s.mu.RUnlock()
		return n > 0, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return false, err
	}
	return len(s.chunks) > 0, nil
}

// loadLocked fills the in-memory index from disk once. A missing index
// leaves the store unloaded so a later call looks again. Callers hold mu.
func (s *ExperienceStore) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	chunks, err := s.disk.load(ctx)
	if errors.Is(err, ErrIndexNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	s.chunks = chunks
	s.loaded = true
	return nil
}
