package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
)

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS product_memory (
			key_hash      TEXT PRIMARY KEY,
			identifier    TEXT NOT NULL,
			record        JSONB NOT NULL,
			status        TEXT NOT NULL,
			origin        TEXT NOT NULL,
			quality_score INTEGER NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL,
			expires_at    TIMESTAMPTZ NOT NULL
		)`

	selectRecordSQL = `SELECT record FROM product_memory WHERE key_hash = $1 AND expires_at > $2`

	insertRecordSQL = `
		INSERT INTO product_memory (key_hash, identifier, record, status, origin, quality_score, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (key_hash) DO UPDATE SET
			identifier = EXCLUDED.identifier, record = EXCLUDED.record, status = EXCLUDED.status,
			origin = EXCLUDED.origin, quality_score = EXCLUDED.quality_score, created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at
		WHERE product_memory.expires_at <= $8`

	upsertRecordSQL = `
		INSERT INTO product_memory (key_hash, identifier, record, status, origin, quality_score, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (key_hash) DO UPDATE SET
			identifier = EXCLUDED.identifier, record = EXCLUDED.record, status = EXCLUDED.status,
			origin = EXCLUDED.origin, quality_score = EXCLUDED.quality_score, created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at`

	deleteRecordSQL = `DELETE FROM product_memory WHERE key_hash = $1`
	clearSQL        = `DELETE FROM product_memory`
	listSQL         = `SELECT record FROM product_memory WHERE expires_at > $1 ORDER BY updated_at DESC`
)

// PostgresStore is the durable memory backend. Expired rows are invisible and get replaced by
// the next non-forced Put.
type PostgresStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewPostgresStore(db *sql.DB, ttl time.Duration, log logger.Logger) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{
		db:     db,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "product_memory", "backend": "postgres"}),
		now:    time.Now,
	}
}

// EnsureSchema creates the backing table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create product_memory table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, identifier string) (*Record, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, selectRecordSQL, Key(identifier), s.now()).Scan(&raw)
	if err == sql.ErrNoRows {
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

func (s *PostgresStore) Put(ctx context.Context, rec *Record, overwrite bool) (bool, error) {
	now := s.now()
	query := insertRecordSQL
	var existing *Record
	if overwrite {
		query = upsertRecordSQL
		var err error
		existing, err = s.Get(ctx, rec.Identifier)
		if err != nil && err != ErrNotFound {
			return false, err
		}
	}

	out := prepare(rec, existing, now)
	written, err := s.write(ctx, query, out, now)
	if err != nil {
		return false, fmt.Errorf("put %s: %w", rec.Identifier, err)
	}
	if !written {
		s.logger.Info("product already in memory", map[string]interface{}{"identifier": rec.Identifier})
	}
	return written, nil
}

func (s *PostgresStore) write(ctx context.Context, query string, rec *Record, now time.Time) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, query,
		Key(rec.Identifier), rec.Identifier, data, string(rec.Status), string(rec.Origin),
		rec.QualityScore, rec.CreatedAt, now, now.Add(s.ttl),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) Delete(ctx context.Context, identifier string) (bool, error) {
	res, err := s.db.ExecContext(ctx, deleteRecordSQL, Key(identifier))
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", identifier, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, clearSQL)
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	s.logger.Info("product memory cleared", map[string]interface{}{"deleted": n})
	return int(n), nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return computeStats(records, "postgres"), nil
}

func (s *PostgresStore) List(ctx context.Context, opts ListOptions) (*Page, error) {
	records, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return paginate(records, opts, "postgres"), nil
}

func (s *PostgresStore) Validate(ctx context.Context, identifier string) (bool, error) {
	rec, err := s.Get(ctx, identifier)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	now := s.now()
	markValidated(rec, now)
	if _, err := s.write(ctx, upsertRecordSQL, rec, now); err != nil {
		return false, fmt.Errorf("validate %s: %w", identifier, err)
	}
	return true, nil
}

func (s *PostgresStore) all(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, listSQL, s.now())
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.logger.Warn("skipping undecodable record", map[string]interface{}{"error": err.Error()})
			continue
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
