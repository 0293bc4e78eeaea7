package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index for development and tests. It applies
// the same filter semantics the HTTP backend does.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]Item
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{namespaces: make(map[string]map[string]Item)}
}

// Upsert inserts or replaces vectors in the namespace.
func (m *MemoryIndex) Upsert(ctx context.Context, namespace string, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = make(map[string]Item)
		m.namespaces[namespace] = ns
	}
	for _, item := range items {
		ns[item.ID] = item
	}
	return nil
}

// Query returns up to topK matches restricted by the metadata filter.
// A zero query vector is a metadata-only fetch: every filtered item matches
// with score 0, in insertion-independent but deterministic (id) order.
func (m *MemoryIndex) Query(ctx context.Context, namespace string, req QueryRequest) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns := m.namespaces[namespace]
	if len(ns) == 0 {
		return nil, nil
	}

	metadataOnly := IsZeroVector(req.Vector)

	matches := make([]Match, 0, len(ns))
	for id, item := range ns {
		if req.Filter != nil && !req.Filter.Matches(item.Metadata) {
			continue
		}
		var score float32
		if !metadataOnly {
			score = CosineSimilarity(req.Vector, item.Values)
		}
		matches = append(matches, Match{ID: id, Score: score, Metadata: item.Metadata})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if req.TopK > 0 && len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}
	return matches, nil
}

// Delete removes vectors by id from the namespace.
func (m *MemoryIndex) Delete(ctx context.Context, namespace string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.namespaces[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	return nil
}

// Count returns the number of vectors in a namespace.
func (m *MemoryIndex) Count(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.namespaces[namespace])
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched or zero-magnitude vectors score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ Index = (*MemoryIndex)(nil)
