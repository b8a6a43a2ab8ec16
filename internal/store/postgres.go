package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/atlas/internal/model"
)

// Pool is the part of *pgxpool.Pool the store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore keeps runs in Postgres, with profiles as JSONB.
type PostgresStore struct {
	pool Pool
}

// PoolConfig tunes the connection pool. Zero values keep the defaults.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

func (pc *PoolConfig) apply(cfg *pgxpool.Config) {
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	if pc == nil {
		return
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
}

// NewPostgres connects to databaseURL and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string, pc *PoolConfig) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse database url")
	}
	pc.apply(cfg)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	status     TEXT NOT NULL,
	profile    JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_status_idx ON runs(status);
CREATE INDEX IF NOT EXISTS runs_company_updated_idx ON runs(lower(company), updated_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, company string) (*model.Run, error) {
	now := time.Now().UTC()
	run := &model.Run{
		ID:        uuid.NewString(),
		Company:   company,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, company, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Company, string(run.Status), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

// set applies assignments plus a fresh updated_at to one run.
func (s *PostgresStore) set(ctx context.Context, op, runID string, set ...assignment) error {
	set = append(set, assignment{"updated_at", time.Now().UTC()})
	q, args := postgresDialect.update(runID, set...)
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s %s", op, runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s %s", op, runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	return s.set(ctx, "update status", runID, assignment{"status", string(status)})
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, profile *model.CompanyProfile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}
	return s.set(ctx, "complete", runID,
		assignment{"status", string(model.RunStatusComplete)},
		assignment{"profile", raw},
		assignment{"error", ""},
	)
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	return s.set(ctx, "fail", runID,
		assignment{"status", string(model.RunStatusFailed)},
		assignment{"error", reason},
	)
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	run, err := scanPostgresRun(s.pool.QueryRow(ctx, runSelect+` WHERE id = $1`, runID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	case err != nil:
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	q, args := postgresDialect.list(filter)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	return runs, nil
}

func (s *PostgresStore) LatestProfile(ctx context.Context, company string, since time.Time) (*model.Run, error) {
	q, args := postgresDialect.latest(company, since.UTC())
	run, err := scanPostgresRun(s.pool.QueryRow(ctx, q, args...))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, eris.Wrapf(err, "postgres: latest profile for %s", company)
	}
	return run, nil
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var (
		run     model.Run
		profile []byte
	)
	if err := row.Scan(&run.ID, &run.Company, &run.Status, &profile, &run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	p, err := decodeProfile(profile)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: run %s", run.ID)
	}
	run.Profile = p
	return &run, nil
}
