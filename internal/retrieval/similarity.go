package retrieval

import (
	"container/heap"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Metric selects how a query vector is scored against a chunk vector.
type Metric string

const (
	// MetricCosine scores by cosine similarity, in [-1, 1].
	MetricCosine Metric = "cosine"
	// MetricL2 scores by 1 - squaredL2(a, b)/sqrt(2), the Euclidean
	// relevance used by FAISS-style stores. It reaches 1 for identical
	// vectors and can go negative for distant ones.
	MetricL2 Metric = "l2"
)

// ParseMetric maps a config value to a Metric. Empty means l2, the scale
// the confidence heuristic is calibrated for.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("unknown relevance metric %q", s)
	}
}

// scorer returns a function scoring candidates against query. Mismatched
// dimensions and zero vectors score 0 under cosine and are excluded
// under l2.
func (m Metric) scorer(query []float32) func(v []float32) (float64, bool) {
	if m == MetricL2 {
		return func(v []float32) (float64, bool) {
			if len(v) != len(query) {
				return 0, false
			}
			return 1 - squaredL2(query, v)/math.Sqrt2, true
		}
	}
	qn := norm(query)
	return func(v []float32) (float64, bool) {
		return cosine(query, v, qn), true
	}
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// cosine computes dot(a,b) / (aNorm * |b|) given the precomputed norm of a.
func cosine(a, b []float32, aNorm float64) float64 {
	if len(a) != len(b) || aNorm == 0 {
		return 0
	}
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	if bNormSq == 0 {
		return 0
	}
	return dot / (aNorm * math.Sqrt(bNormSq))
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// topK scores every chunk and returns the k best as hits, highest
// relevance first. Ties keep index order.
func topK(chunks []Chunk, query []float32, k int, metric Metric) []Hit {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}
	score := metric.scorer(query)
	h := &hitHeap{}
	for i, c := range chunks {
		s, ok := score(c.Embedding)
		if !ok {
			continue
		}
		item := scoredChunk{idx: i, score: s}
		if h.Len() < k {
			heap.Push(h, item)
		} else if item.better((*h)[0]) {
			(*h)[0] = item
			heap.Fix(h, 0)
		}
	}

	ranked := make([]scoredChunk, h.Len())
	copy(ranked, *h)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].better(ranked[j]) })

	hits := make([]Hit, len(ranked))
	for i, r := range ranked {
		c := chunks[r.idx]
		hits[i] = Hit{Content: c.Text, Relevance: r.score, SourceName: c.SourceName}
	}
	return hits
}

type scoredChunk struct {
	idx   int
	score float64
}

// better orders by score descending, then by earlier index.
func (a scoredChunk) better(b scoredChunk) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.idx < b.idx
}

// hitHeap is a min-heap whose root is the worst candidate kept so far.
type hitHeap []scoredChunk

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return h[j].better(h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(scoredChunk)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s is the inverse of encodeFloat32s. A length that is not a
// multiple of 4 means the blob is corrupt.
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
