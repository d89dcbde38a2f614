package vectorstore

import (
	"strings"
	"testing"

	"Aethena/backend/go/internal/rag_service/rag/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionNameEscaping(t *testing.T) {
	cases := map[string]string{
		"abc123":          "aethena_abc123",
		"user_1":          "aethena_user__1",
		"auth0|5f1c":      "aethena_auth0_7c5f1c",
		"a.b@example.com": "aethena_a_2eb_40example_2ecom",
		"6f1e-4c2a":       "aethena_6f1e_2d4c2a",
	}
	for tenant, want := range cases {
		got, err := CollectionName("aethena_", tenant)
		require.NoError(t, err, tenant)
		assert.Equal(t, want, got, tenant)
	}
}

func TestCollectionNameIsInjective(t *testing.T) {
	tenants := []string{"a_2d", "a-", "a__", "a_", "a_5f", "A", "a", "a b", "a_20b"}
	seen := map[string]string{}
	for _, tenant := range tenants {
		name, err := CollectionName("p_", tenant)
		require.NoError(t, err)
		if prev, ok := seen[name]; ok {
			t.Fatalf("tenants %q and %q share collection %q", prev, tenant, name)
		}
		seen[name] = tenant
	}
}

func TestCollectionNameRejectsEmptyAndOverlong(t *testing.T) {
	_, err := CollectionName("p_", "")
	assert.ErrorIs(t, err, schema.ErrInvalidInput)

	_, err = CollectionName("p_", strings.Repeat("-", 100))
	assert.ErrorIs(t, err, schema.ErrInvalidInput)
}
