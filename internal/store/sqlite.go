package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ironsheep/docscan-mcp/internal/pipeline"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("analysis not found")

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// Summary is one row of the analysis history.
type Summary struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"source" yaml:"source"`
	Score     *float64  `json:"score" yaml:"score"`
	Anomalies int       `json:"anomalies" yaml:"anomalies"`
	Errors    int       `json:"errors" yaml:"errors"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Record is a stored analysis with its full payload.
type Record struct {
	Summary
	Analysis *pipeline.Analysis `json:"analysis" yaml:"analysis"`
}

// SQLiteStore keeps analysis history using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
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
CREATE TABLE IF NOT EXISTS analyses (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL DEFAULT '',
	score      REAL,
	anomalies  INTEGER NOT NULL DEFAULT 0,
	errors     INTEGER NOT NULL DEFAULT 0,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_source ON analyses(source);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores a and returns its new id. The score column is NULL when fusion
// never completed.
func (s *SQLiteStore) Save(ctx context.Context, a *pipeline.Analysis) (string, error) {
	if a == nil {
		return "", eris.New("sqlite: nil analysis")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal analysis")
	}

	var score sql.NullFloat64
	anomalies := 0
	if a.Fusion != nil {
		score = sql.NullFloat64{Float64: a.Fusion.GlobalScore, Valid: true}
		anomalies = len(a.Fusion.Anomalies)
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, source, score, anomalies, errors, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, a.Source, score, anomalies, len(a.Errors), string(payload), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert analysis")
	}
	return id, nil
}

// Get returns the analysis stored under id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, score, anomalies, errors, created_at, payload FROM analyses WHERE id = ?`,
		id,
	)

	var (
		rec     Record
		score   sql.NullFloat64
		payload string
	)
	err := row.Scan(&rec.ID, &rec.Source, &score, &rec.Anomalies, &rec.Errors, &rec.CreatedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", id)
	}
	if score.Valid {
		rec.Score = &score.Float64
	}

	rec.Analysis = &pipeline.Analysis{}
	if err := json.Unmarshal([]byte(payload), rec.Analysis); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis")
	}
	return &rec, nil
}

// List returns the most recent analyses first. A non-positive limit means
// DefaultListLimit.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, score, anomalies, errors, created_at FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum   Summary
			score sql.NullFloat64
		)
		if err := rows.Scan(&sum.ID, &sum.Source, &score, &sum.Anomalies, &sum.Errors, &sum.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		if score.Valid {
			v := score.Float64
			sum.Score = &v
		}
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

// Delete removes the analysis stored under id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: delete %s", id)
	}
	return nil
}
