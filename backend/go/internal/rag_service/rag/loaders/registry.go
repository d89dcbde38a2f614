package loaders

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
)

// PositionFunc picks a unit position from a fragment's metadata, falling back
// to the fragment's 1-based ordinal within the file.
type PositionFunc func(meta map[string]interface{}, ordinal int) int

// LabelFunc renders the human-readable citation for a unit.
type LabelFunc func(originalName string, position int) string

// Capability bundles everything format-specific about a FileType so that the
// pipeline resolves it once per job.
type Capability struct {
	Type     schema.FileType
	Loader   interfaces.Loader
	Position PositionFunc
	Label    LabelFunc
}

// Registry maps file types to their capabilities.
type Registry struct {
	mu   sync.RWMutex
	caps map[schema.FileType]Capability
}

// NewRegistry returns a registry populated with the pdf, docx and csv capabilities.
func NewRegistry() *Registry {
	r := &Registry{caps: make(map[schema.FileType]Capability)}
	r.Register(Capability{
		Type:     schema.FileTypePDF,
		Loader:   NewPdfLoader(),
		Position: positionFrom(schema.MetadataKeyPage, "pageNumber"),
		Label:    plainLabel,
	})
	r.Register(Capability{
		Type:     schema.FileTypeDOCX,
		Loader:   NewDocxLoader(),
		Position: positionFrom(schema.MetadataKeySection),
		Label:    plainLabel,
	})
	r.Register(Capability{
		Type:     schema.FileTypeCSV,
		Loader:   NewCsvLoader(),
		Position: positionFrom(schema.MetadataKeyRow),
		Label:    rowLabel,
	})
	return r
}

// Register adds or replaces the capability for c.Type.
func (r *Registry) Register(c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[c.Type] = c
}

// Resolve returns the capability for a file type.
func (r *Registry) Resolve(ft schema.FileType) (Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[ft]
	if !ok {
		return Capability{}, fmt.Errorf("%w: %q", schema.ErrUnsupportedFormat, ft)
	}
	return c, nil
}

// ResolveName resolves the capability from a file name's extension.
func (r *Registry) ResolveName(name string) (Capability, error) {
	ft, err := schema.ParseFileType(name)
	if err != nil {
		return Capability{}, err
	}
	return r.Resolve(ft)
}

func positionFrom(keys ...string) PositionFunc {
	return func(meta map[string]interface{}, ordinal int) int {
		for _, key := range keys {
			if v, ok := metadataInt(meta, key); ok && v > 0 {
				return v
			}
		}
		return ordinal
	}
}

func plainLabel(originalName string, _ int) string {
	return originalName
}

func rowLabel(originalName string, position int) string {
	return fmt.Sprintf("%s (Row %d)", originalName, position)
}

func metadataInt(meta map[string]interface{}, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

// sanitize strips characters that the index and the prompt cannot carry.
func sanitize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimSpace(text)
}
