package enricher

import (
	"strings"

	"Aethena/backend/go/internal/rag_service/rag/loaders"
	"Aethena/backend/go/internal/rag_service/rag/schema"
)

// Enricher turns loader fragments into retrievable units tagged with their
// tenant, source file, position and citation label.
type Enricher struct {
	registry *loaders.Registry
}

// New creates an Enricher that reads format rules from the registry.
func New(registry *loaders.Registry) *Enricher {
	return &Enricher{registry: registry}
}

// Enrich maps fragments to units. Blank fragments are skipped but still
// consume their ordinal, so positions stay aligned with the source file.
func (e *Enricher) Enrich(fragments []schema.Fragment, fc schema.FileContext) ([]*schema.RetrievableUnit, error) {
	if len(fragments) == 0 {
		return nil, nil
	}
	capability, err := e.registry.Resolve(fc.FileType)
	if err != nil {
		return nil, err
	}

	units := make([]*schema.RetrievableUnit, 0, len(fragments))
	for i, f := range fragments {
		text := strings.TrimSpace(f.Text)
		if text == "" {
			continue
		}
		position := capability.Position(f.Metadata, i+1)
		units = append(units, &schema.RetrievableUnit{
			ID:          schema.NewUnitID(fc.TenantID, fc.StoragePath, position, 0, text),
			Text:        text,
			SourceFile:  fc.OriginalName,
			StoragePath: fc.StoragePath,
			TenantID:    fc.TenantID,
			FileType:    fc.FileType,
			Position:    schema.IntPtr(position),
			SourceLabel: capability.Label(fc.OriginalName, position),
		})
	}
	return units, nil
}
