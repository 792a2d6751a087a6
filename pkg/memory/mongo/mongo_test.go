package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/barekit/docqa/pkg/memory/memorytest"
)

func TestMongoMemory_Conformance(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}

	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	dbName := "docqa_test_" + uuid.NewString()[:8]
	m, err := New(ctx, client, dbName)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Database(dbName).Drop(ctx)
		_ = m.Close(ctx)
	})

	memorytest.Run(t, m)
}
