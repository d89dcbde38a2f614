package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
)

// HashEmbedder is a deterministic bag-of-words embedder. Texts sharing words
// get a high cosine similarity, which is enough to exercise ranking.
type HashEmbedder struct {
	Dim int
	Err error

	mu    sync.Mutex
	calls int
}

// NewHashEmbedder returns a 64-dimensional HashEmbedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{Dim: 64}
}

// Calls returns how many embedding requests were made.
func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *HashEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.Dim)
	v[0] = 0.01
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[1+int(h.Sum32())%(e.Dim-1)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// StubLLM records prompts and answers with Reply.
type StubLLM struct {
	Reply func(system, user string) (string, error)

	mu         sync.Mutex
	calls      int
	lastSystem string
	lastUser   string
}

func (l *StubLLM) Generate(_ context.Context, system, user string) (string, error) {
	l.mu.Lock()
	l.calls++
	l.lastSystem, l.lastUser = system, user
	l.mu.Unlock()
	if l.Reply == nil {
		return "stub answer", nil
	}
	return l.Reply(system, user)
}

// Calls returns the number of Generate calls.
func (l *StubLLM) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// Last returns the most recent system and user prompts.
func (l *StubLLM) Last() (string, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSystem, l.lastUser
}

// MemoryFiles is an in-memory FileMetadataStore.
type MemoryFiles struct {
	mu    sync.Mutex
	files map[string]*models.DocumentMetadata
	seq   int
}

func NewMemoryFiles() *MemoryFiles {
	return &MemoryFiles{files: make(map[string]*models.DocumentMetadata)}
}

func (m *MemoryFiles) CreateFile(_ context.Context, doc *models.DocumentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.ID == "" {
		m.seq++
		doc.ID = fmt.Sprintf("file-%d", m.seq)
	}
	cp := *doc
	m.files[doc.ID] = &cp
	return nil
}

func (m *MemoryFiles) GetFile(_ context.Context, fileID string) (*models.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.files[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrMetadataNotFound, fileID)
	}
	cp := *doc
	return &cp, nil
}

func (m *MemoryFiles) ListFilesByUser(_ context.Context, userID string) ([]*models.DocumentMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.DocumentMetadata
	for _, doc := range m.files {
		if doc.UserID == userID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryBlobs is an in-memory BlobStore.
type MemoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	Err     error
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{objects: make(map[string][]byte)}
}

// Put stores an object directly.
func (b *MemoryBlobs) Put(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = data
}

// Has reports whether an object exists.
func (b *MemoryBlobs) Has(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[name]
	return ok
}

func (b *MemoryBlobs) Upload(_ context.Context, objectName string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.Put(objectName, data)
	return nil
}

func (b *MemoryBlobs) Download(_ context.Context, objectName, localPath string) error {
	if b.Err != nil {
		return fmt.Errorf("%w: %w", schema.ErrDownload, b.Err)
	}
	b.mu.Lock()
	data, ok := b.objects[objectName]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %w: %s", schema.ErrDownload, schema.ErrNotFound, objectName)
	}
	return os.WriteFile(localPath, bytes.Clone(data), 0o600)
}

// MemoryHistory is an in-memory HistoryRecorder.
type MemoryHistory struct {
	mu        sync.Mutex
	records   []*models.QueryHistory
	RecordErr error
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (h *MemoryHistory) Record(_ context.Context, rec *models.QueryHistory) error {
	if h.RecordErr != nil {
		return h.RecordErr
	}
	rec.EnsureID()
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := *rec
	h.records = append(h.records, &cp)
	return nil
}

func (h *MemoryHistory) List(_ context.Context, tenantID string, limit int) ([]*models.QueryHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*models.QueryHistory
	for _, r := range h.records {
		if r.UserID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *MemoryHistory) Delete(_ context.Context, tenantID, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.records {
		if r.ID == id && r.UserID == tenantID {
			h.records = append(h.records[:i], h.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: history %s", schema.ErrNotFound, id)
}

// Len returns the number of stored records across all tenants.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// ErrBoom is a generic injected failure.
var ErrBoom = errors.New("boom")

var (
	_ interfaces.EmbeddingModel    = (*HashEmbedder)(nil)
	_ interfaces.LLM               = (*StubLLM)(nil)
	_ interfaces.FileMetadataStore = (*MemoryFiles)(nil)
	_ interfaces.BlobStore         = (*MemoryBlobs)(nil)
	_ interfaces.HistoryRecorder   = (*MemoryHistory)(nil)
)
