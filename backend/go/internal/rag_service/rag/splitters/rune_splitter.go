package splitters

import (
	"strings"
	"unicode"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
)

// RuneSplitter implements the Splitter interface by cutting oversized units
// into overlapping windows of at most ChunkSize runes.
type RuneSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewRuneSplitter creates a new RuneSplitter. An overlap that is not smaller
// than the chunk size is reduced to a quarter of it.
func NewRuneSplitter(chunkSize, chunkOverlap int) *RuneSplitter {
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 4
	}
	return &RuneSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split returns units no longer than ChunkSize runes. Chunks inherit the
// parent's source tags; only the text and ID differ.
func (s *RuneSplitter) Split(units []*schema.RetrievableUnit) []*schema.RetrievableUnit {
	if s.ChunkSize <= 0 {
		return units
	}
	out := make([]*schema.RetrievableUnit, 0, len(units))
	for _, unit := range units {
		runes := []rune(unit.Text)
		if len(runes) <= s.ChunkSize {
			out = append(out, unit)
			continue
		}
		for i, text := range s.windows(runes) {
			chunk := *unit
			chunk.Text = text
			chunk.Embedding = nil
			chunk.ID = schema.NewUnitID(unit.TenantID, unit.StoragePath, unit.PositionOrZero(), i, text)
			out = append(out, &chunk)
		}
	}
	return out
}

func (s *RuneSplitter) windows(runes []rune) []string {
	var chunks []string
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes[start:end]); cut > s.ChunkSize/2 {
			// 尽量在空白处断开, 避免把单词切成两半
			end = start + cut
		}

		if text := strings.TrimSpace(string(runes[start:end])); text != "" {
			chunks = append(chunks, text)
		}
		if end == len(runes) {
			break
		}

		next := end - s.ChunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

// compile-time check to ensure RuneSplitter implements the Splitter interface
var _ interfaces.Splitter = (*RuneSplitter)(nil)
