package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode. Transactions begin with BEGIN IMMEDIATE so the read-merge-write
// upsert takes the write lock before reading; concurrent writers of the
// same URL then queue on busy_timeout instead of failing at commit.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+"_txlock=immediate")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	url           TEXT PRIMARY KEY,
	id            TEXT NOT NULL,
	source        TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	content       TEXT NOT NULL,
	author        TEXT NOT NULL,
	posted_at     DATETIME NOT NULL,
	engagement    INTEGER NOT NULL DEFAULT 0,
	qualification TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_source ON leads(source);
CREATE INDEX IF NOT EXISTS idx_leads_posted_at ON leads(posted_at);
CREATE INDEX IF NOT EXISTS idx_leads_qualified
	ON leads(json_extract(qualification, '$.is_qualified'));
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertLead inserts a new lead or merges into the record already stored for
// its URL. The read-merge-write runs in a transaction so concurrent writers
// of the same URL serialize.
func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) (Effect, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, source, title, content, author, posted_at, engagement, qualification
		 FROM leads WHERE url = ?`,
		lead.URL,
	)

	existing, err := scanLeadFields(row, lead.URL)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	now := time.Now().UTC()

	if existing == nil {
		qualJSON, err := marshalQualification(lead.Qualification)
		if err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO leads (url, id, source, title, content, author, posted_at, engagement, qualification, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			lead.URL, lead.ID, string(lead.Source), lead.Title, lead.Content,
			lead.Author, lead.Timestamp.UTC(), lead.Engagement, qualJSON, now, now,
		)
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: insert lead %s", lead.URL)
		}
		if err := tx.Commit(); err != nil {
			return "", eris.Wrap(err, "sqlite: commit insert")
		}
		return EffectInserted, nil
	}

	merged := MergeLead(existing, lead)
	qualJSON, err := marshalQualification(merged.Qualification)
	if err != nil {
		return "", err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE leads SET id = ?, source = ?, title = ?, content = ?, author = ?,
		 posted_at = ?, engagement = ?, qualification = ?, updated_at = ?
		 WHERE url = ?`,
		merged.ID, string(merged.Source), merged.Title, merged.Content, merged.Author,
		merged.Timestamp.UTC(), merged.Engagement, qualJSON, now, lead.URL,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: merge lead %s", lead.URL)
	}
	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit merge")
	}
	return EffectMerged, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, url string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, title, content, author, posted_at, engagement, qualification
		 FROM leads WHERE url = ?`,
		url,
	)
	return scanLeadFields(row, url)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT url, id, source, title, content, author, posted_at, engagement, qualification
		FROM leads WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if filter.QualifiedOnly {
		query += ` AND json_extract(qualification, '$.is_qualified') = 1`
	}
	query += ` ORDER BY posted_at DESC`

	// Limit <= 0 means unbounded. SQLite requires a LIMIT clause before
	// OFFSET, so the unbounded-with-offset case uses LIMIT -1.
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (s *SQLiteStore) ListQualified(ctx context.Context, minConfidence float64) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, id, source, title, content, author, posted_at, engagement, qualification
		 FROM leads
		 WHERE json_extract(qualification, '$.is_qualified') = 1
		   AND json_extract(qualification, '$.confidence_score') >= ?
		 ORDER BY json_extract(qualification, '$.confidence_score') DESC`,
		minConfidence,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list qualified")
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (s *SQLiteStore) CountLeads(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count leads")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

// scanLeadFields scans a row of lead columns minus the URL, which the
// caller already knows.
func scanLeadFields(row scannable, url string) (*model.Lead, error) {
	var l model.Lead
	var qualJSON sql.NullString

	err := row.Scan(&l.ID, &l.Source, &l.Title, &l.Content, &l.Author,
		&l.Timestamp, &l.Engagement, &qualJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "%s", url)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}

	l.URL = url
	if err := unmarshalQualification(qualJSON, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLeads(rows *sql.Rows) ([]model.Lead, error) {
	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var qualJSON sql.NullString
		err := rows.Scan(&l.URL, &l.ID, &l.Source, &l.Title, &l.Content,
			&l.Author, &l.Timestamp, &l.Engagement, &qualJSON)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead row")
		}
		if err := unmarshalQualification(qualJSON, &l); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func marshalQualification(q *model.QualificationResult) (sql.NullString, error) {
	if q == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(q)
	if err != nil {
		return sql.NullString{}, eris.Wrap(err, "marshal qualification")
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalQualification(raw sql.NullString, l *model.Lead) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	l.Qualification = &model.QualificationResult{}
	if err := json.Unmarshal([]byte(raw.String), l.Qualification); err != nil {
		return eris.Wrapf(err, "unmarshal qualification for %s", l.URL)
	}
	return nil
}
