package database

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/logger"
)

// ==========================
// Clients
// ==========================

func TestNewRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewRedis_EmptyAddress(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{})
	assert.Error(t, err)
}

func TestNewPostgres_DoesNotDialEagerly(t *testing.T) {
	client, err := NewPostgres(config.PostgresConfig{
		Host: "127.0.0.1", Port: 1, Database: "catalog", User: "u", SSLMode: "disable",
	})
	require.NoError(t, err)
	assert.Equal(t, defaultMaxOpen, client.DB.Stats().MaxOpenConnections)
	assert.NoError(t, client.Close())
}

func TestNewPostgres_RequiresHost(t *testing.T) {
	_, err := NewPostgres(config.PostgresConfig{Database: "catalog"})
	assert.Error(t, err)
}

func createTestElasticsearch(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestElasticsearch_Ping(t *testing.T) {
	server := createTestElasticsearch(t)

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestElasticsearch_EmptyAddress(t *testing.T) {
	_, err := NewElasticsearch(config.ElasticsearchConfig{})
	assert.Error(t, err)
}

// ==========================
// Open
// ==========================

func TestOpen_OnlyWhatConfigNeeds(t *testing.T) {
	mr := miniredis.RunT(t)
	es := createTestElasticsearch(t)

	cfg := &config.Config{}
	cfg.Memory.Backend = config.BackendRedis
	cfg.Database.Redis.Address = mr.Addr()
	cfg.Retrieval.Enabled = true
	cfg.Database.Elasticsearch.URL = es.URL

	conns, err := Open(context.Background(), cfg, Options{}, logger.NewTestLogger(t))
	require.NoError(t, err)
	defer conns.Close()

	assert.NotNil(t, conns.Redis)
	assert.NotNil(t, conns.Elasticsearch)
	assert.Nil(t, conns.Postgres)
	assert.NoError(t, conns.Ping(context.Background()))
}

func TestOpen_NothingConfigured(t *testing.T) {
	cfg := &config.Config{}
	cfg.Memory.Backend = config.BackendMemory

	conns, err := Open(context.Background(), cfg, Options{}, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Nil(t, conns.Redis)
	assert.NoError(t, conns.Ping(context.Background()))
	assert.NoError(t, conns.Close())
}

func TestOpen_UnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.Config{}
	cfg.Database.Redis.Address = addr

	_, err := Open(context.Background(), cfg, Options{Attempts: 2, Backoff: time.Millisecond}, logger.NewTestLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

// ==========================
// Retry
// ==========================

func TestRetry(t *testing.T) {
	log := logger.NewTestLogger(t)

	calls := 0
	err := Retry(context.Background(), Options{Attempts: 3, Backoff: time.Millisecond}, log, "op", func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), Options{}, log, "op", func() error {
		calls++
		return errors.New("down")
	})
	assert.EqualError(t, err, "op failed: down")
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, Options{Attempts: 5, Backoff: time.Hour}, logger.NewTestLogger(t), "op", func() error {
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
