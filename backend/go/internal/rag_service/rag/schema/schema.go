package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Metadata keys reported by loaders alongside each fragment.
const (
	MetadataKeyPage    = "page"
	MetadataKeySection = "section"
	MetadataKeyRow     = "row"
)

// FileType is the closed set of document formats the pipeline understands.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeDOCX FileType = "docx"
	FileTypeCSV  FileType = "csv"
)

// FileTypes lists every supported type in a stable order.
var FileTypes = []FileType{FileTypePDF, FileTypeDOCX, FileTypeCSV}

// ParseFileType resolves a file type from a file name's extension.
func ParseFileType(name string) (FileType, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch FileType(ext) {
	case FileTypePDF, FileTypeDOCX, FileTypeCSV:
		return FileType(ext), nil
	}
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	return "", fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
}

// Fragment is one ordered piece of text produced by a loader, together with
// whatever positional metadata the format exposes.
type Fragment struct {
	Text     string
	Metadata map[string]interface{}
}

// FileContext carries the file-level facts needed to tag fragments.
type FileContext struct {
	FileID       string
	TenantID     string
	OriginalName string
	StoragePath  string
	FileType     FileType
}

// RetrievableUnit is one searchable chunk of a source document.
type RetrievableUnit struct {
	ID          string
	Text        string
	SourceFile  string
	StoragePath string
	TenantID    string
	FileType    FileType
	// Position is the page, section or row locator. It is nil only for
	// records read back from an index that did not store one.
	Position    *int
	SourceLabel string
	Embedding   []float32
}

// PositionOrZero returns the position, or 0 when it is absent.
func (u *RetrievableUnit) PositionOrZero() int {
	if u.Position == nil {
		return 0
	}
	return *u.Position
}

// SearchHit is a unit returned by a similarity search with its score.
// Higher scores are more similar.
type SearchHit struct {
	Unit  *RetrievableUnit
	Score float32
}

// Source is a citation pointing back to the origin of a grounding unit.
type Source struct {
	File string `json:"file" bson:"file"`
	Page *int   `json:"page" bson:"page"`
}

// Answer is the result of a query pipeline run.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// NewUnitID derives a deterministic identifier for a unit so that
// re-ingesting the same file replaces its units instead of duplicating them.
func NewUnitID(tenantID, storagePath string, position, chunk int, text string) string {
	h := sha256.New()
	for _, part := range []string{tenantID, storagePath, strconv.Itoa(position), strconv.Itoa(chunk), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
