package retrieval

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sheikhmdsamiul/swiftme/internal/engine"
)

// fakeEngine embeds text as keyword counts over vocab, so texts sharing
// keywords score as similar.
type fakeEngine struct {
	vocab   []string
	failOn  string
	calls   atomic.Int32
	mu      sync.Mutex
	queries []string
}

var testVocab = []string{"go", "python", "kubernetes", "react", "postgres", "design"}

func newFakeEngine() *fakeEngine { return &fakeEngine{vocab: testVocab} }

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Chat(context.Context, string, []engine.Message, engine.ChatOptions) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeEngine) Embed(_ context.Context, _ string, text string) ([]float32, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("embedding failed")
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(f.vocab)+1)
	for i, w := range f.vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	// Constant component keeps every vector non-zero.
	vec[len(f.vocab)] = 0.1
	return vec, nil
}

func TestEmbed(t *testing.T) {
	e := NewEmbedder(newFakeEngine(), "nomic-embed-text")
	vec, err := e.Embed(context.Background(), "Go and Kubernetes")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != len(testVocab)+1 {
		t.Errorf("got %d dimensions, want %d", len(vec), len(testVocab)+1)
	}
	if vec[0] != 1 || vec[2] != 1 {
		t.Errorf("vec = %v, want go and kubernetes counted", vec)
	}
}

func TestEmbed_Error(t *testing.T) {
	f := newFakeEngine()
	f.failOn = "boom"
	if _, err := NewEmbedder(f, "m").Embed(context.Background(), "boom"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	e := NewEmbedder(newFakeEngine(), "m")
	texts := []string{"go", "python python", "react", "postgres", "design", "go go go"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	if vecs[1][1] != 2 || vecs[5][0] != 3 {
		t.Errorf("vectors out of order: %v", vecs)
	}
}

func TestEmbedBatch_Error(t *testing.T) {
	f := newFakeEngine()
	f.failOn = "b"
	_, err := NewEmbedder(f, "m").EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil || !strings.Contains(err.Error(), "embedding failed") {
		t.Errorf("EmbedBatch() error = %v, want embedding failed", err)
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	f := newFakeEngine()
	vecs, err := NewEmbedder(f, "m").EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v; want nil, nil", vecs, err)
	}
	if f.calls.Load() != 0 {
		t.Errorf("engine called %d times for empty input", f.calls.Load())
	}
}
