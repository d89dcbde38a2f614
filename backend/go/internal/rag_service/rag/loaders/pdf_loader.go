package loaders

import (
	"context"
	"fmt"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/ledongthuc/pdf"
)

// PdfLoader implements the Loader interface for reading PDF files.
// It emits one fragment per page, tagged with the 1-based page number.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load reads a PDF file and extracts the plain text of each page.
func (l *PdfLoader) Load(ctx context.Context, path string) (fragments []schema.Fragment, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			fragments = nil
			err = fmt.Errorf("%w: parse pdf: %v", schema.ErrLoad, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", schema.ErrLoad, err)
	}
	defer f.Close()

	numPages := r.NumPage()
	fragments = make([]schema.Fragment, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: extract page %d: %w", schema.ErrLoad, i, err)
		}
		fragments = append(fragments, schema.Fragment{
			Text:     sanitize(text),
			Metadata: map[string]interface{}{schema.MetadataKeyPage: i},
		})
	}
	return fragments, nil
}

// compile-time check to ensure PdfLoader implements the Loader interface
var _ interfaces.Loader = (*PdfLoader)(nil)
