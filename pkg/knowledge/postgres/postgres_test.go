package postgres

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/knowledge/storetest"
)

func TestNewWithDB_InvalidDimension(t *testing.T) {
	_, err := NewWithDB(nil, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("PGVECTOR_TEST_DSN")
	if dsn == "" {
		t.Skip("Skipping pgvector integration test: PGVECTOR_TEST_DSN not set")
	}

	store, err := New(dsn, 3)
	require.NoError(t, err)

	storetest.Run(t, store)
}
