package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/jobs"
	"catalog-workers/internal/memory"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LLM.Provider = config.ProviderGateway
	cfg.APIs.GenAI.BaseURL = "http://127.0.0.1:1"
	cfg.Memory.Backend = config.BackendMemory
	cfg.Pipeline.Mode = config.ModeLocal
	cfg.Pipeline.Concurrency = 2
	cfg.Pipeline.KickoffTimeout = 1000
	return cfg
}

// ==========================
// Build Tests
// ==========================

func TestBuild_InProcess(t *testing.T) {
	a, err := Build(context.Background(), createTestConfig(), Clients{}, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.IsType(t, &jobs.InMemoryStore{}, a.Statuses)
	assert.IsType(t, &jobs.InMemoryArtifactStore{}, a.Artifacts)
	assert.IsType(t, &memory.InMemoryStore{}, a.Memory)
	assert.Equal(t, "Modelo", a.Layout.Sheet)
	assert.NotNil(t, a.Executor.Generator())
}

func TestBuild_SharesJobsThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := createTestConfig()
	cfg.Memory.Backend = config.BackendRedis
	cfg.Pipeline.JobTTL = int(time.Hour / time.Millisecond)

	a, err := Build(context.Background(), cfg, Clients{Redis: rdb}, nil, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &jobs.RedisStore{}, a.Statuses)
	assert.IsType(t, &memory.RedisStore{}, a.Memory)

	_, err = a.Tracker.Start(context.Background(), "job-1", 1)
	require.NoError(t, err)
	assert.True(t, mr.Exists(jobs.StatusKeyPrefix+"job-1"))
	assert.Equal(t, time.Hour, mr.TTL(jobs.StatusKeyPrefix+"job-1"))
}

func TestBuild_RedisMemoryWithoutClientFails(t *testing.T) {
	cfg := createTestConfig()
	cfg.Memory.Backend = config.BackendRedis

	_, err := Build(context.Background(), cfg, Clients{}, nil, logger.NewTestLogger(t))
	assert.Error(t, err)
}

func TestApp_ServiceRunsLocally(t *testing.T) {
	a, err := Build(context.Background(), createTestConfig(), Clients{}, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	launcher := a.LocalLauncher()
	svc := a.Service(launcher)

	_, err = svc.Poll(context.Background(), "missing")
	assert.Error(t, err)
	launcher.Wait()
}
