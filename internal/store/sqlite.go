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

	"github.com/sells-group/atlas/internal/model"
)

// SQLiteStore keeps runs in a local SQLite file. Timestamps are stored as
// Unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// NewSQLite opens (creating if needed) the database at dsn.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, p := range sqlitePragmas {
		if _, err = db.Exec(p); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", p)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	status     TEXT NOT NULL,
	profile    TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_status_idx ON runs(status);
CREATE INDEX IF NOT EXISTS runs_company_updated_idx ON runs(company COLLATE NOCASE, updated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) CreateRun(ctx context.Context, company string) (*model.Run, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	run := &model.Run{
		ID:        uuid.NewString(),
		Company:   company,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, company, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Company, string(run.Status), now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

// set applies assignments plus a fresh updated_at to one run.
func (s *SQLiteStore) set(ctx context.Context, op, runID string, set ...assignment) error {
	set = append(set, assignment{"updated_at", time.Now().UnixMilli()})
	q, args := sqliteDialect.update(runID, set...)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s %s", op, runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s %s", op, runID)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", op, runID)
	}
	return nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return s.set(ctx, "update status", runID, assignment{"status", string(status)})
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, profile *model.CompanyProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}
	return s.set(ctx, "complete", runID,
		assignment{"status", string(model.RunStatusComplete)},
		assignment{"profile", string(raw)},
		assignment{"error", ""},
	)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, reason string) error {
	return s.set(ctx, "fail", runID,
		assignment{"status", string(model.RunStatusFailed)},
		assignment{"error", reason},
	)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	run, err := scanSQLiteRun(s.db.QueryRowContext(ctx, runSelect+` WHERE id = ?`, runID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	case err != nil:
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	q, args := sqliteDialect.list(filter)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list runs")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	return runs, nil
}

func (s *SQLiteStore) LatestProfile(ctx context.Context, company string, since time.Time) (*model.Run, error) {
	q, args := sqliteDialect.latest(company, since.UnixMilli())
	run, err := scanSQLiteRun(s.db.QueryRowContext(ctx, q, args...))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, eris.Wrapf(err, "sqlite: latest profile for %s", company)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLiteRun leaves sql.ErrNoRows unwrapped for the caller to map.
func scanSQLiteRun(row rowScanner) (*model.Run, error) {
	var (
		run              model.Run
		profile          sql.NullString
		created, updated int64
	)
	if err := row.Scan(&run.ID, &run.Company, &run.Status, &profile, &run.Error, &created, &updated); err != nil {
		return nil, err
	}
	run.CreatedAt = time.UnixMilli(created).UTC()
	run.UpdatedAt = time.UnixMilli(updated).UTC()

	p, err := decodeProfile([]byte(profile.String))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: run %s", run.ID)
	}
	run.Profile = p
	return &run, nil
}

// decodeProfile returns nil for an empty or JSON-null column.
func decodeProfile(raw []byte) (*model.CompanyProfile, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var p model.CompanyProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, eris.Wrap(err, "decode profile")
	}
	return &p, nil
}
