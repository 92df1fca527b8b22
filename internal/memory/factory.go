package memory

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/logger"
)

// New selects the backend named in the configuration. An empty backend picks Redis when a
// client is available and the in-process store otherwise.
func New(cfg config.MemoryConfig, rdb *redis.Client, db *sql.DB, log logger.Logger) (Store, error) {
	ttl := config.Days(cfg.TTLDays)

	switch cfg.Backend {
	case "":
		if rdb != nil {
			return NewRedisStore(rdb, ttl, log), nil
		}
		return NewInMemoryStore(ttl), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("memory backend redis requires a redis client")
		}
		return NewRedisStore(rdb, ttl, log), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("memory backend postgres requires a database connection")
		}
		return NewPostgresStore(db, ttl, log), nil
	case "memory":
		return NewInMemoryStore(ttl), nil
	}
	return nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
}
