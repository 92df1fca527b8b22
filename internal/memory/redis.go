package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
)

const scanBatch = 500

// RedisStore keeps one JSON document per product under product_memory:<md5>.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, log logger.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "product_memory", "backend": "redis"}),
		now:    time.Now,
	}
}

func (s *RedisStore) Get(ctx context.Context, identifier string) (*Record, error) {
	raw, err := s.redis.Get(ctx, Key(identifier)).Bytes()
	if err == redis.Nil {
		metrics.MemoLookups.WithLabelValues("miss").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.MemoLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("get %s: %w", identifier, err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		metrics.MemoLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode %s: %w", identifier, err)
	}
	metrics.MemoLookups.WithLabelValues("hit").Inc()
	return &rec, nil
}

func (s *RedisStore) Put(ctx context.Context, rec *Record, overwrite bool) (bool, error) {
	key := Key(rec.Identifier)

	if !overwrite {
		data, err := json.Marshal(prepare(rec, nil, s.now()))
		if err != nil {
			return false, err
		}
		ok, err := s.redis.SetNX(ctx, key, data, s.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("put %s: %w", rec.Identifier, err)
		}
		if !ok {
			s.logger.Info("product already in memory", map[string]interface{}{"identifier": rec.Identifier})
		}
		return ok, nil
	}

	existing, err := s.Get(ctx, rec.Identifier)
	if err != nil && err != ErrNotFound {
		s.logger.Warn("could not read record before overwrite", map[string]interface{}{
			"identifier": rec.Identifier,
			"error":      err.Error(),
		})
	}
	data, err := json.Marshal(prepare(rec, existing, s.now()))
	if err != nil {
		return false, err
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return false, fmt.Errorf("put %s: %w", rec.Identifier, err)
	}
	s.logger.Debug("product saved to memory", map[string]interface{}{"identifier": rec.Identifier})
	return true, nil
}

func (s *RedisStore) Delete(ctx context.Context, identifier string) (bool, error) {
	n, err := s.redis.Del(ctx, Key(identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", identifier, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Clear(ctx context.Context) (int, error) {
	deleted := 0
	err := s.scanKeys(ctx, func(keys []string) error {
		n, err := s.redis.Del(ctx, keys...).Result()
		deleted += int(n)
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("clear: %w", err)
	}
	s.logger.Info("product memory cleared", map[string]interface{}{"deleted": deleted})
	return deleted, nil
}

func (s *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return computeStats(records, "redis"), nil
}

func (s *RedisStore) List(ctx context.Context, opts ListOptions) (*Page, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return paginate(records, opts, "redis"), nil
}

func (s *RedisStore) Validate(ctx context.Context, identifier string) (bool, error) {
	rec, err := s.Get(ctx, identifier)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	markValidated(rec, s.now())
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	if err := s.redis.Set(ctx, Key(identifier), data, s.ttl).Err(); err != nil {
		return false, fmt.Errorf("validate %s: %w", identifier, err)
	}
	return true, nil
}

// all loads every record. Undecodable entries are logged and skipped.
func (s *RedisStore) all(ctx context.Context) ([]*Record, error) {
	var records []*Record
	err := s.scanKeys(ctx, func(keys []string) error {
		values, err := s.redis.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		for i, v := range values {
			str, ok := v.(string)
			if !ok {
				continue
			}
			var rec Record
			if err := json.Unmarshal([]byte(str), &rec); err != nil {
				s.logger.Warn("skipping undecodable record", map[string]interface{}{"key": keys[i], "error": err.Error()})
				continue
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return records, nil
}

func (s *RedisStore) scanKeys(ctx context.Context, fn func(keys []string) error) error {
	iter := s.redis.Scan(ctx, 0, KeyPrefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := fn(batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}
