package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog-workers/internal/common/errors"
)

const (
	StatusKeyPrefix    = "catalog_job:"
	ArtifactKeyPrefix  = "catalog_template:"
	DefaultJobTTL      = 24 * time.Hour
	DefaultArtifactTTL = 2 * time.Hour
)

type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &RedisStore{redis: rdb, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, st *Status) error {
	data, err := json.Marshal(st)
	if err != nil {
		return errors.NewJobStoreFailedError("encode", err)
	}
	if err := s.redis.Set(ctx, StatusKeyPrefix+st.JobID, data, s.ttl).Err(); err != nil {
		return errors.NewJobStoreFailedError("save", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*Status, error) {
	raw, err := s.redis.Get(ctx, StatusKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	if err != nil {
		return nil, errors.NewJobStoreFailedError("get", err)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, errors.NewJobStoreFailedError("decode", err)
	}
	return &st, nil
}

// RedisArtifactStore holds template bytes so workers on other hosts can load them.
type RedisArtifactStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisArtifactStore(rdb *redis.Client, ttl time.Duration) *RedisArtifactStore {
	if ttl <= 0 {
		ttl = DefaultArtifactTTL
	}
	return &RedisArtifactStore{redis: rdb, ttl: ttl}
}

func (s *RedisArtifactStore) Put(ctx context.Context, jobID string, data []byte) error {
	if err := s.redis.Set(ctx, ArtifactKeyPrefix+jobID, data, s.ttl).Err(); err != nil {
		return errors.NewJobStoreFailedError("put artifact", err)
	}
	return nil
}

func (s *RedisArtifactStore) Get(ctx context.Context, jobID string) ([]byte, error) {
	data, err := s.redis.Get(ctx, ArtifactKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return nil, errors.NewArtifactNotFoundError(ArtifactKeyPrefix + jobID)
	}
	if err != nil {
		return nil, errors.NewJobStoreFailedError("get artifact", err)
	}
	return data, nil
}

func (s *RedisArtifactStore) Delete(ctx context.Context, jobID string) error {
	if err := s.redis.Del(ctx, ArtifactKeyPrefix+jobID).Err(); err != nil {
		return errors.NewJobStoreFailedError("delete artifact", err)
	}
	return nil
}
