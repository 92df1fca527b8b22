package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func createTestRecord(id, title string) *Record {
	return &Record{
		Identifier: id,
		Product: catalog.Product{
			Title: title,
			SKU:   strings.TrimPrefix(id, "sku_"),
			Price: "59.90",
			NCM:   "96170010",
		},
		Content: &catalog.Bundle{
			Main: &catalog.MainContent{
				Title:       title + " premium",
				Bullets:     []string{"DURÁVEL: feito para durar"},
				Description: "Descrição completa",
				Keywords:    "a;b",
			},
			Choices: map[string]catalog.Selection{"Cor": {"Azul"}},
		},
	}
}

func createTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStore(rdb, 0, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s, mr
}

// ==========================
// Identifier Tests
// ==========================

func TestIdentify_Chain(t *testing.T) {
	longTitle := strings.Repeat("á", 150)

	tests := []struct {
		name    string
		product catalog.Product
		index   int
		want    string
	}{
		{"explicit identifier", catalog.Product{Identifier: "custom-1", SKU: "A1"}, 0, "custom-1"},
		{"sku first", catalog.Product{SKU: "Produto pai: A1 Variações: A1-AZ", Title: "Garrafa"}, 0, "sku_A1"},
		{"title", catalog.Product{Title: "  Garrafa Térmica  "}, 0, "titulo_Garrafa Térmica"},
		{"title truncated to 100 runes", catalog.Product{Title: longTitle}, 0, "titulo_" + strings.Repeat("á", 100)},
		{"brand and model", catalog.Product{BrandName: "Acme", Model: "X1"}, 3, "marca_modelo_Acme_X1"},
		{"index", catalog.Product{}, 7, "index_7"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Identify(tc.product, tc.index))
		})
	}
}

func TestIdentify_HashAndUnknown(t *testing.T) {
	id := Identify(catalog.Product{BrandName: "Acme", Description: "Aço inox"}, -1)
	assert.True(t, strings.HasPrefix(id, "hash_"))
	assert.Len(t, id, len("hash_")+16)
	assert.Equal(t, id, Identify(catalog.Product{BrandName: " ACME ", Description: "aço inox"}, -1))

	assert.True(t, strings.HasPrefix(Identify(catalog.Product{}, -1), "unknown_"))
}

func TestKey_CaseInsensitive(t *testing.T) {
	assert.Equal(t, Key("sku_A1"), Key("  SKU_a1 "))
	assert.NotEqual(t, Key("sku_A1"), Key("sku_A2"))
	assert.True(t, strings.HasPrefix(Key("x"), KeyPrefix))
	assert.Len(t, Key("x"), len(KeyPrefix)+32)
}

func TestQualityScore(t *testing.T) {
	rec := createTestRecord("sku_A1", "Garrafa")
	assert.Equal(t, 100, QualityScore(rec.Product, rec.Content))
	assert.Equal(t, 30, QualityScore(rec.Product, nil))
	assert.Equal(t, 0, QualityScore(catalog.Product{}, &catalog.Bundle{}))
	assert.Equal(t, 20, QualityScore(catalog.Product{}, &catalog.Bundle{Main: &catalog.MainContent{Title: "t"}}))
}

// ==========================
// Redis Store Tests
// ==========================

func TestRedisStore_PutGet(t *testing.T) {
	s, mr := createTestRedisStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "sku_A1")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Put(ctx, createTestRecord("sku_A1", "Garrafa"), false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, DefaultTTL, mr.TTL(Key("sku_A1")))

	rec, err := s.Get(ctx, "SKU_A1")
	require.NoError(t, err)
	assert.Equal(t, "sku_A1", rec.Identifier)
	assert.Equal(t, 100, rec.QualityScore)
	assert.Equal(t, StatusPending, rec.Status)
	assert.Equal(t, OriginPipeline, rec.Origin)
	assert.Equal(t, RecordVersion, rec.Version)
	assert.True(t, fixedNow.Equal(rec.CreatedAt))
	assert.Equal(t, catalog.Selection{"Azul"}, rec.Content.Choices["Cor"])
}

func TestRedisStore_PutWithoutOverwriteKeepsExisting(t *testing.T) {
	s, _ := createTestRedisStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, createTestRecord("sku_A1", "Primeira"), false)
	require.NoError(t, err)

	ok, err := s.Put(ctx, createTestRecord("sku_A1", "Segunda"), false)
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err := s.Get(ctx, "sku_A1")
	require.NoError(t, err)
	assert.Equal(t, "Primeira", rec.Product.Title)
}

func TestRedisStore_OverwriteKeepsCreationMetadata(t *testing.T) {
	s, _ := createTestRedisStore(t)
	ctx := context.Background()

	first := createTestRecord("sku_A1", "Primeira")
	first.Origin = OriginSpreadsheet
	_, err := s.Put(ctx, first, false)
	require.NoError(t, err)

	later := fixedNow.Add(48 * time.Hour)
	s.now = func() time.Time { return later }

	ok, err := s.Put(ctx, createTestRecord("sku_A1", "Segunda"), true)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := s.Get(ctx, "sku_A1")
	require.NoError(t, err)
	assert.Equal(t, "Segunda", rec.Product.Title)
	assert.Equal(t, OriginSpreadsheet, rec.Origin)
	assert.True(t, fixedNow.Equal(rec.CreatedAt))
	assert.True(t, later.Equal(rec.UpdatedAt))
}

func TestRedisStore_ValidateDeleteClear(t *testing.T) {
	s, mr := createTestRedisStore(t)
	ctx := context.Background()

	for _, id := range []string{"sku_A1", "sku_A2", "sku_A3"} {
		_, err := s.Put(ctx, createTestRecord(id, "Garrafa "+id), false)
		require.NoError(t, err)
	}
	require.NoError(t, mr.Set("ai_response:keep", "x"))

	ok, err := s.Validate(ctx, "sku_A2")
	require.NoError(t, err)
	assert.True(t, ok)
	rec, err := s.Get(ctx, "sku_A2")
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, rec.Status)
	require.NotNil(t, rec.ValidatedAt)

	ok, err = s.Validate(ctx, "sku_missing")
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := s.Delete(ctx, "sku_A3")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = s.Delete(ctx, "sku_A3")
	require.NoError(t, err)
	assert.False(t, deleted)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Products)
	assert.Equal(t, 1, stats.ByStatus["validated"])
	assert.Equal(t, 1, stats.ByStatus["pending"])
	assert.Equal(t, 100.0, stats.AverageQuality)

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("ai_response:keep"))
}

func TestRedisStore_List(t *testing.T) {
	s, _ := createTestRedisStore(t)
	ctx := context.Background()

	for i, title := range []string{"Garrafa Azul", "Garrafa Verde", "Caneca"} {
		i := i
		s.now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Hour) }
		_, err := s.Put(ctx, createTestRecord("sku_L"+string(rune('1'+i)), title), false)
		require.NoError(t, err)
	}

	page, err := s.List(ctx, ListOptions{Search: "garrafa", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Garrafa Verde", page.Items[0].Name, "most recently updated first")
	assert.True(t, page.Items[0].HasContent)

	page, err = s.List(ctx, ListOptions{Search: "garrafa", Limit: 1, Page: 5})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = s.List(ctx, ListOptions{From: fixedNow.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Caneca", page.Items[0].Name)
}

func TestRedisStore_CommandErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisStore(db, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	mock.ExpectGet(Key("sku_A1")).SetErr(errors.New("connection refused"))
	_, err := s.Get(ctx, "sku_A1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	mock.ExpectGet(Key("sku_A1")).SetVal("{not json")
	_, err = s.Get(ctx, "sku_A1")
	require.Error(t, err)

	mock.ExpectDel(Key("sku_A1")).SetErr(errors.New("readonly"))
	_, err = s.Delete(ctx, "sku_A1")
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Postgres Store Tests
// ==========================

func createTestPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresStore(db, 0, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func recordJSON(t *testing.T, rec *Record) []byte {
	t.Helper()
	b, err := json.Marshal(prepare(rec, nil, fixedNow))
	require.NoError(t, err)
	return b
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := createTestPostgresStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM product_memory WHERE key_hash = $1")).
		WithArgs(Key("sku_A1"), fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(recordJSON(t, createTestRecord("sku_A1", "Garrafa"))))

	rec, err := s.Get(ctx, "sku_A1")
	require.NoError(t, err)
	assert.Equal(t, "Garrafa", rec.Product.Title)
	assert.Equal(t, 100, rec.QualityScore)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM product_memory")).
		WillReturnError(sql.ErrNoRows)
	_, err = s.Get(ctx, "sku_A2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put(t *testing.T) {
	tests := []struct {
		name      string
		overwrite bool
		setup     func(mock sqlmock.Sqlmock)
		want      bool
	}{
		{
			name: "insert new",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("WHERE product_memory.expires_at <= $8")).
					WithArgs(Key("sku_A1"), "sku_A1", sqlmock.AnyArg(), "pending", "pipeline", 100,
						fixedNow, fixedNow, fixedNow.Add(DefaultTTL)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: true,
		},
		{
			name: "live row is kept",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_memory")).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			want: false,
		},
		{
			name:      "overwrite reads then upserts",
			overwrite: true,
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM product_memory")).
					WillReturnError(sql.ErrNoRows)
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_memory")).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := createTestPostgresStore(t)
			tc.setup(mock)

			ok, err := s.Put(context.Background(), createTestRecord("sku_A1", "Garrafa"), tc.overwrite)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_ListClearSchema(t *testing.T) {
	s, mock := createTestPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS product_memory")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.EnsureSchema(ctx))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT record FROM product_memory WHERE expires_at > $1")).
		WithArgs(fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"record"}).
			AddRow(recordJSON(t, createTestRecord("sku_A1", "Garrafa"))).
			AddRow([]byte("garbage")).
			AddRow(recordJSON(t, createTestRecord("sku_A2", "Caneca"))))
	page, err := s.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "postgres", page.Statistics.Backend)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM product_memory")).
		WillReturnResult(sqlmock.NewResult(0, 4))
	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// In-Memory Store and Factory Tests
// ==========================

func TestInMemoryStore_Expiry(t *testing.T) {
	s := NewInMemoryStore(time.Hour)
	now := fixedNow
	s.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := s.Put(ctx, createTestRecord("sku_A1", "Garrafa"), false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Put(ctx, createTestRecord("sku_A1", "Outra"), false)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	_, err = s.Get(ctx, "sku_A1")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = s.Put(ctx, createTestRecord("sku_A1", "Outra"), false)
	require.NoError(t, err)
	assert.True(t, ok, "expired records can be replaced")

	ok, err = s.Validate(ctx, "sku_A1")
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Products)
	assert.Equal(t, 1, stats.ByStatus["validated"])
}

func TestNew_Backends(t *testing.T) {
	log := logger.NewTestLogger(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := New(config.MemoryConfig{}, rdb, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)

	s, err = New(config.MemoryConfig{}, nil, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &InMemoryStore{}, s)

	s, err = New(config.MemoryConfig{Backend: "postgres", TTLDays: 30}, nil, db, log)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, s.(*PostgresStore).ttl)

	_, err = New(config.MemoryConfig{Backend: "redis"}, nil, nil, log)
	assert.Error(t, err)
	_, err = New(config.MemoryConfig{Backend: "cassandra"}, nil, nil, log)
	assert.Error(t, err)
}
