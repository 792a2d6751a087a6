package memory

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/barekit/docqa/pkg/domain"
	"github.com/barekit/docqa/pkg/memory/consts"
	gormmem "github.com/barekit/docqa/pkg/memory/gorm"
	"github.com/barekit/docqa/pkg/memory/inmemory"
	mongomem "github.com/barekit/docqa/pkg/memory/mongo"
	"github.com/barekit/docqa/pkg/memory/neo4j"
	"github.com/barekit/docqa/pkg/memory/redis"
)

type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
	TypeMySQL    Type = "mysql"
	TypeMSSQL    Type = "mssql"
	TypeRedis    Type = "redis"
	TypeNeo4j    Type = "neo4j"
	TypeMongo    Type = "mongo"
	TypeInMemory Type = "inmemory"
)

// Config holds configuration for store adapters.
type Config struct {
	Type             Type   `yaml:"type"`
	ConnectionString string `yaml:"dsn"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	DBName           string `yaml:"db_name"`
}

// NewFactory creates a new Store based on the configuration.
func NewFactory(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeSQLite, TypePostgres, TypeMySQL, TypeMSSQL:
		return gormmem.Open(string(cfg.Type), cfg.ConnectionString)

	case TypeRedis:
		opts, err := goredis.ParseURL(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return redis.New(client, ""), nil

	case TypeNeo4j:
		dbName := "neo4j"
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return neo4j.New(ctx, cfg.ConnectionString, cfg.Username, cfg.Password, dbName)

	case TypeMongo:
		opts := options.Client().ApplyURI(cfg.ConnectionString)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		dbName := consts.DefaultDBName
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return mongomem.New(ctx, client, dbName)

	case TypeInMemory, "":
		return inmemory.New(), nil

	default:
		return nil, fmt.Errorf("%w: unsupported store type %q", domain.ErrInvalidConfiguration, cfg.Type)
	}
}

var (
	_ Store = (*gormmem.Memory)(nil)
	_ Store = (*redis.RedisMemory)(nil)
	_ Store = (*mongomem.MongoMemory)(nil)
	_ Store = (*neo4j.Neo4jMemory)(nil)
	_ Store = (*inmemory.InMemory)(nil)
)
