package vectorstore

import (
	"fmt"
	"strings"

	"Aethena/backend/go/internal/rag_service/rag/schema"
)

const maxCollectionNameLen = 255

// CollectionName maps a tenant to its collection. The escaping is injective:
// ASCII letters and digits pass through, '_' becomes "__" and every other
// byte becomes "_" followed by two lowercase hex digits, so two distinct
// tenants can never share a collection.
func CollectionName(prefix, tenantID string) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("%w: empty tenant id", schema.ErrInvalidInput)
	}
	var sb strings.Builder
	sb.Grow(len(prefix) + len(tenantID))
	sb.WriteString(prefix)
	for i := 0; i < len(tenantID); i++ {
		b := tenantID[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
			sb.WriteByte(b)
		case b == '_':
			sb.WriteString("__")
		default:
			fmt.Fprintf(&sb, "_%02x", b)
		}
	}
	if sb.Len() > maxCollectionNameLen {
		return "", fmt.Errorf("%w: tenant id too long for a collection name", schema.ErrInvalidInput)
	}
	return sb.String(), nil
}
