package neo4j

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/memory/memorytest"
)

func TestNeo4jMemory_Conformance(t *testing.T) {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}

	ctx := context.Background()
	m, err := New(ctx, uri, os.Getenv("NEO4J_USERNAME"), os.Getenv("NEO4J_PASSWORD"), "neo4j")
	require.NoError(t, err)
	defer m.Close(ctx)

	memorytest.Run(t, m)
}
