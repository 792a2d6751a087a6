package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/memory/memorytest"
)

func TestInMemory_Conformance(t *testing.T) {
	memorytest.Run(t, New())
}

func TestInMemory_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.AppendHistory(ctx, domain.ChatEntry{OwnerID: "a", Question: "q"}))

	entries, err := m.ListHistory(ctx, "a")
	require.NoError(t, err)
	entries[0].Question = "changed"

	entries, err = m.ListHistory(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "q", entries[0].Question)
}
