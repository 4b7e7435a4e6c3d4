package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is a brute-force cosine-similarity vector store kept entirely
// in process memory. It backs tests and the zero-dependency local mode;
// production deployments use QdrantStore.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	vectorSize int
	ids        []string
	vectors    [][]float32
	metas      []map[string]any
	byID       map[string]int
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

// EnsureCollection ensures a collection exists with the given vector size.
func (s *MemoryStore) EnsureCollection(_ context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return fmt.Errorf("vector size must be greater than 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[collection]; ok {
		if existing.vectorSize != vectorSize {
			return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, existing.vectorSize)
		}
		return nil
	}

	s.collections[collection] = &memoryCollection{
		vectorSize: vectorSize,
		byID:       make(map[string]int),
	}
	return nil
}

// CollectionExists checks if a collection exists.
func (s *MemoryStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// Count returns the number of points stored in the collection.
func (s *MemoryStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("collection %s does not exist", collection)
	}
	return len(col.ids), nil
}

// Upsert inserts or updates points in the collection.
func (s *MemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s does not exist", collection)
	}

	for _, p := range points {
		if len(p.Vec) != col.vectorSize {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", col.vectorSize, len(p.Vec))
		}
		if idx, seen := col.byID[p.ID]; seen {
			col.vectors[idx] = p.Vec
			col.metas[idx] = p.Meta
			continue
		}
		col.byID[p.ID] = len(col.ids)
		col.ids = append(col.ids, p.ID)
		col.vectors = append(col.vectors, p.Vec)
		col.metas = append(col.metas, p.Meta)
	}
	return nil
}

// Search returns the k nearest points by cosine similarity. Ties keep
// insertion order, which makes results deterministic for identical builds.
func (s *MemoryStore) Search(_ context.Context, collection string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	col, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", collection)
	}

	type scored struct {
		idx   int
		score float32
	}
	scores := make([]scored, len(col.vectors))
	for i, vec := range col.vectors {
		scores[i] = scored{idx: i, score: cosine(vec, query)}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]SearchResult, 0, k)
	for _, sc := range scores[:k] {
		results = append(results, SearchResult{
			PointID: col.ids[sc.idx],
			Score:   sc.score,
			Meta:    col.metas[sc.idx],
		})
	}
	return results, nil
}

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
