package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barekit/docqa/pkg/domain"
)

func TestNewFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("InMemory", func(t *testing.T) {
		store, err := NewFactory(ctx, Config{Type: TypeInMemory})
		require.NoError(t, err)
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("SQLite", func(t *testing.T) {
		store, err := NewFactory(ctx, Config{Type: TypeSQLite, ConnectionString: "file:factory?mode=memory&cache=shared"})
		require.NoError(t, err)
		defer store.Close(ctx)
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := NewFactory(ctx, Config{Type: "cassandra"})
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("BadRedisURL", func(t *testing.T) {
		_, err := NewFactory(ctx, Config{Type: TypeRedis, ConnectionString: "not a url"})
		assert.Error(t, err)
	})
}
