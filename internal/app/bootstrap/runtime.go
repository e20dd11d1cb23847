package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/whatsapp-concierge/internal/config"
	"github.com/wolfman30/whatsapp-concierge/internal/conversation"
	"github.com/wolfman30/whatsapp-concierge/internal/events"
	"github.com/wolfman30/whatsapp-concierge/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens a pgx pool when DATABASE_URL is set.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// StoreClients carries the optional backend clients a session store may use.
type StoreClients struct {
	Redis    *redis.Client
	Postgres *pgxpool.Pool
	Dynamo   *dynamodb.Client
}

// Persistence is the session store and the matching redelivery deduper.
type Persistence struct {
	Backend string
	Store   conversation.SessionStore
	Dedupe  conversation.Deduper
}

// BuildPersistence selects the session store named by SESSION_STORE. A
// backend whose client is missing degrades to memory with a warning. The
// deduper lives next to the sessions when that backend can hold it.
func BuildPersistence(cfg *appconfig.Config, clients StoreClients, logger *logging.Logger) (Persistence, error) {
	if cfg == nil {
		return Persistence{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	memory := Persistence{
		Backend: appconfig.StoreMemory,
		Store:   conversation.NewMemoryStore(),
		Dedupe:  events.NewMemoryProcessedStore(cfg.DedupeTTL),
	}
	degrade := func(reason string) (Persistence, error) {
		logger.Warn("session store unavailable; using memory", "requested", cfg.SessionStore, "reason", reason)
		return memory, nil
	}

	switch cfg.SessionStore {
	case "", appconfig.StoreMemory:
		return memory, nil
	case appconfig.StoreRedis:
		if clients.Redis == nil {
			return degrade("redis client not configured")
		}
		return Persistence{
			Backend: appconfig.StoreRedis,
			Store:   conversation.NewRedisStore(clients.Redis, cfg.SessionTTL, nil),
			Dedupe:  events.NewRedisProcessedStore(clients.Redis, cfg.DedupeTTL),
		}, nil
	case appconfig.StorePostgres:
		if clients.Postgres == nil {
			return degrade("postgres pool not configured")
		}
		return Persistence{
			Backend: appconfig.StorePostgres,
			Store:   conversation.NewPostgresStore(clients.Postgres),
			Dedupe:  events.NewProcessedStore(clients.Postgres),
		}, nil
	case appconfig.StoreDynamoDB:
		if clients.Dynamo == nil || strings.TrimSpace(cfg.SessionsTable) == "" {
			return degrade("dynamodb client or table not configured")
		}
		return Persistence{
			Backend: appconfig.StoreDynamoDB,
			Store:   conversation.NewDynamoStore(clients.Dynamo, cfg.SessionsTable),
			Dedupe:  memory.Dedupe,
		}, nil
	case appconfig.StoreSupabase:
		if strings.TrimSpace(cfg.SupabaseURL) == "" || strings.TrimSpace(cfg.SupabaseKey) == "" {
			return degrade("supabase url or key not configured")
		}
		store, err := conversation.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseSessionsTable)
		if err != nil {
			return Persistence{}, fmt.Errorf("bootstrap: supabase store: %w", err)
		}
		return Persistence{Backend: appconfig.StoreSupabase, Store: store, Dedupe: memory.Dedupe}, nil
	default:
		return Persistence{}, fmt.Errorf("bootstrap: unknown session store %q", cfg.SessionStore)
	}
}
