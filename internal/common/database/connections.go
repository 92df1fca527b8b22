// Package database opens the backing stores the configuration asks for: Redis for shared job
// state and caches, Postgres for durable product memory and Elasticsearch for retrieval.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/logger"
)

// Connections holds the opened stores. Members the configuration does not need stay nil.
type Connections struct {
	Redis         *RedisClient
	Postgres      *PostgresClient
	Elasticsearch *ElasticsearchClient
}

// Options controls how hard Open tries. Attempts <= 1 means a single try.
type Options struct {
	Attempts int
	Backoff  time.Duration
}

// Needs reports which stores cfg requires.
func Needs(cfg *config.Config) (redis, postgres, elasticsearch bool) {
	redis = cfg.Database.Redis.Address != ""
	postgres = cfg.Memory.Backend == config.BackendPostgres
	elasticsearch = cfg.Retrieval.Enabled
	return
}

// Open connects every store cfg requires and pings it. On failure whatever was already open
// is closed.
func Open(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) (*Connections, error) {
	needRedis, needPostgres, needES := Needs(cfg)
	c := &Connections{}

	if needRedis {
		err := Retry(ctx, opts, log, "Redis connection", func() error {
			rc, err := NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			if err := rc.Ping(ctx); err != nil {
				rc.Close()
				return err
			}
			c.Redis = rc
			return nil
		})
		if err != nil {
			return nil, err
		}
		log.Info("Redis connected", map[string]interface{}{"address": cfg.Database.Redis.Address})
	}

	if needPostgres {
		err := Retry(ctx, opts, log, "PostgreSQL connection", func() error {
			pg, err := NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			if err := pg.Ping(ctx); err != nil {
				pg.Close()
				return err
			}
			c.Postgres = pg
			return nil
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		log.Info("PostgreSQL connected", map[string]interface{}{"host": cfg.Database.Postgres.Host})
	}

	if needES {
		err := Retry(ctx, opts, log, "Elasticsearch connection", func() error {
			es, err := NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := es.Ping(ctx); err != nil {
				return err
			}
			c.Elasticsearch = es
			return nil
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		log.Info("Elasticsearch connected", map[string]interface{}{"url": cfg.Database.Elasticsearch.GetURL()})
	}
	return c, nil
}

// Ping checks the stores that are open.
func (c *Connections) Ping(ctx context.Context) error {
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			return err
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connections) Close() error {
	return errors.Join(c.Redis.Close(), c.Postgres.Close())
}

// Retry runs operation with exponential backoff until it succeeds, attempts run out or ctx ends.
func Retry(ctx context.Context, opts Options, log logger.Logger, operationName string, operation func() error) error {
	attempts := max(opts.Attempts, 1)
	delay := opts.Backoff

	var err error
	for i := 0; i < attempts; i++ {
		err = operation()
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		log.Warn(operationName+" failed, retrying...", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i + 1,
			"maxRetries":  attempts,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", operationName, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	if attempts == 1 {
		return fmt.Errorf("%s failed: %w", operationName, err)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, err)
}
