package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/db"
	"github.com/sells-group/leadscout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests to inject a mock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	url           TEXT PRIMARY KEY,
	id            TEXT NOT NULL,
	source        TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL,
	author        TEXT NOT NULL,
	posted_at     TIMESTAMPTZ NOT NULL,
	engagement    INTEGER NOT NULL DEFAULT 0,
	qualification JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_source ON leads(source);
CREATE INDEX IF NOT EXISTS idx_leads_posted_at ON leads(posted_at);
CREATE INDEX IF NOT EXISTS idx_leads_qualified
	ON leads(((qualification->>'is_qualified')::boolean));
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) (Effect, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", eris.Wrap(err, "postgres: begin upsert")
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT id, source, title, content, author, posted_at, engagement, qualification
		 FROM leads WHERE url = $1 FOR UPDATE`,
		lead.URL,
	)

	existing, err := scanPgLead(row, lead.URL)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	now := time.Now().UTC()

	if existing == nil {
		qualJSON, err := pgQualification(lead.Qualification)
		if err != nil {
			return "", err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO leads (url, id, source, title, content, author, posted_at, engagement, qualification, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			lead.URL, lead.ID, string(lead.Source), lead.Title, lead.Content,
			lead.Author, lead.Timestamp.UTC(), lead.Engagement, qualJSON, now, now,
		)
		if err != nil {
			return "", eris.Wrapf(err, "postgres: insert lead %s", lead.URL)
		}
		if err := tx.Commit(ctx); err != nil {
			return "", eris.Wrap(err, "postgres: commit insert")
		}
		return EffectInserted, nil
	}

	merged := MergeLead(existing, lead)
	qualJSON, err := pgQualification(merged.Qualification)
	if err != nil {
		return "", err
	}
	_, err = tx.Exec(ctx,
		`UPDATE leads SET id = $1, source = $2, title = $3, content = $4, author = $5,
		 posted_at = $6, engagement = $7, qualification = $8, updated_at = $9
		 WHERE url = $10`,
		merged.ID, string(merged.Source), merged.Title, merged.Content, merged.Author,
		merged.Timestamp.UTC(), merged.Engagement, qualJSON, now, lead.URL,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: merge lead %s", lead.URL)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", eris.Wrap(err, "postgres: commit merge")
	}
	return EffectMerged, nil
}

// BulkUpsertLeads ingests a batch of freshly scraped leads with COPY. On
// URL conflict only the observation fields refresh, and only when the new
// posting is not older than the stored one; the qualification column is
// never touched, so stored verdicts survive re-scrapes. Leads carrying a
// verdict must go through UpsertLead instead.
func (s *PostgresStore) BulkUpsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(leads))
	for i := range leads {
		l := &leads[i]
		if l.Qualification != nil {
			return 0, eris.Errorf("bulk upsert: lead %s carries a verdict", l.URL)
		}
		rows = append(rows, []any{
			l.URL, l.ID, string(l.Source), l.Title, l.Content,
			l.Author, l.Timestamp.UTC(), l.Engagement, now, now,
		})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "leads",
		Columns:      []string{"url", "id", "source", "title", "content", "author", "posted_at", "engagement", "created_at", "updated_at"},
		ConflictKeys: []string{"url"},
		UpdateCols:   []string{"id", "source", "title", "content", "author", "posted_at", "engagement", "updated_at"},
		UpdateWhere:  "EXCLUDED.posted_at >= leads.posted_at",
	}, rows)
}

func (s *PostgresStore) GetLead(ctx context.Context, url string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, title, content, author, posted_at, engagement, qualification
		 FROM leads WHERE url = $1`,
		url,
	)
	return scanPgLead(row, url)
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT url, id, source, title, content, author, posted_at, engagement, qualification
		FROM leads WHERE 1=1`
	var args []any

	if filter.Source != "" {
		args = append(args, string(filter.Source))
		query += ` AND source = $1`
	}
	if filter.QualifiedOnly {
		query += ` AND (qualification->>'is_qualified')::boolean`
	}
	query += ` ORDER BY posted_at DESC`

	// Limit <= 0 means unbounded.
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	return collectPgLeads(rows)
}

func (s *PostgresStore) ListQualified(ctx context.Context, minConfidence float64) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, id, source, title, content, author, posted_at, engagement, qualification
		 FROM leads
		 WHERE (qualification->>'is_qualified')::boolean
		   AND (qualification->>'confidence_score')::float8 >= $1
		 ORDER BY (qualification->>'confidence_score')::float8 DESC`,
		minConfidence,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list qualified")
	}
	defer rows.Close()

	return collectPgLeads(rows)
}

func (s *PostgresStore) CountLeads(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count leads")
}

// helpers

func scanPgLead(row pgx.Row, url string) (*model.Lead, error) {
	var l model.Lead
	var source string
	var qualJSON []byte

	err := row.Scan(&l.ID, &source, &l.Title, &l.Content, &l.Author,
		&l.Timestamp, &l.Engagement, &qualJSON)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "%s", url)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan lead")
	}

	l.URL = url
	l.Source = model.Source(source)
	if err := decodePgQualification(qualJSON, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func collectPgLeads(rows pgx.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var source string
		var qualJSON []byte
		err := rows.Scan(&l.URL, &l.ID, &source, &l.Title, &l.Content,
			&l.Author, &l.Timestamp, &l.Engagement, &qualJSON)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead row")
		}
		l.Source = model.Source(source)
		if err := decodePgQualification(qualJSON, &l); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func pgQualification(q *model.QualificationResult) ([]byte, error) {
	if q == nil {
		return nil, nil
	}
	b, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "marshal qualification")
	}
	return b, nil
}

func decodePgQualification(raw []byte, l *model.Lead) error {
	if len(raw) == 0 {
		return nil
	}
	l.Qualification = &model.QualificationResult{}
	if err := json.Unmarshal(raw, l.Qualification); err != nil {
		return eris.Wrapf(err, "unmarshal qualification for %s", l.URL)
	}
	return nil
}
