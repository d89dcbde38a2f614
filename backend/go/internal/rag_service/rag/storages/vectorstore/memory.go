package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
)

type storedUnit struct {
	unit schema.RetrievableUnit
	seq  uint64
}

// MemoryIndex is a brute-force cosine-similarity index held in process
// memory. Each tenant gets its own keyed collection.
type MemoryIndex struct {
	mu          sync.RWMutex
	prefix      string
	collections map[string]map[string]*storedUnit
	seq         uint64
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex(prefix string) *MemoryIndex {
	return &MemoryIndex{prefix: prefix, collections: make(map[string]map[string]*storedUnit)}
}

// Upsert stores units in the tenant's collection, replacing any unit with the same ID.
func (m *MemoryIndex) Upsert(_ context.Context, tenantID string, units []*schema.RetrievableUnit) error {
	name, err := CollectionName(m.prefix, tenantID)
	if err != nil {
		return err
	}
	for _, u := range units {
		if len(u.Embedding) == 0 {
			return fmt.Errorf("%w: unit %s has no embedding", schema.ErrInvalidInput, u.ID)
		}
		if u.TenantID != "" && u.TenantID != tenantID {
			return fmt.Errorf("%w: unit %s belongs to another tenant", schema.ErrInvalidInput, u.ID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[name]
	if !ok {
		coll = make(map[string]*storedUnit)
		m.collections[name] = coll
	}
	for _, u := range units {
		cp := *u
		cp.TenantID = tenantID
		cp.Embedding = append([]float32(nil), u.Embedding...)
		if existing, ok := coll[u.ID]; ok {
			existing.unit = cp
			continue
		}
		m.seq++
		coll[u.ID] = &storedUnit{unit: cp, seq: m.seq}
	}
	return nil
}

// SimilaritySearch returns up to k units from the tenant's collection, most
// similar first. Equal scores keep insertion order.
func (m *MemoryIndex) SimilaritySearch(_ context.Context, tenantID string, vector []float32, k int) ([]schema.SearchHit, error) {
	name, err := CollectionName(m.prefix, tenantID)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	coll := m.collections[name]
	if len(coll) == 0 {
		return nil, nil
	}

	type scored struct {
		s     *storedUnit
		score float32
	}
	candidates := make([]scored, 0, len(coll))
	for _, s := range coll {
		if len(s.unit.Embedding) != len(vector) {
			return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
				schema.ErrInvalidInput, len(vector), len(s.unit.Embedding))
		}
		candidates = append(candidates, scored{s: s, score: cosine(vector, s.unit.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].s.seq < candidates[j].s.seq
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	hits := make([]schema.SearchHit, len(candidates))
	for i, c := range candidates {
		u := c.s.unit
		hits[i] = schema.SearchHit{Unit: &u, Score: c.score}
	}
	return hits, nil
}

// Len returns the number of units stored for a tenant.
func (m *MemoryIndex) Len(tenantID string) int {
	name, err := CollectionName(m.prefix, tenantID)
	if err != nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[name])
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// compile-time check to ensure MemoryIndex implements the VectorIndex interface
var _ interfaces.VectorIndex = (*MemoryIndex)(nil)
