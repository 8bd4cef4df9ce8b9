package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the store. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection. Step
// ingestion runs these on every webhook hit.
var preparedStatements = map[string]string{
	"insert_input":   pgInsertInput,
	"recompute_path": pgRecomputePath,
	"get_path":       `SELECT ` + pgPathColumns + ` FROM ivr_paths WHERE call_sid = $1`,
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

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}

	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS ivr_inputs (
	id          TEXT PRIMARY KEY,
	call_sid    TEXT NOT NULL,
	from_number TEXT,
	to_number   TEXT,
	step_name   TEXT NOT NULL,
	digit_input TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ivr_paths (
	id              TEXT PRIMARY KEY,
	call_sid        TEXT UNIQUE NOT NULL,
	from_number     TEXT,
	to_number       TEXT,
	language_choice TEXT,
	state_choice    TEXT,
	service_choice  TEXT,
	model_choice    TEXT,
	hp_choice       TEXT,
	complete_path   TEXT,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ivr_inputs_call_sid ON ivr_inputs(call_sid);
CREATE INDEX IF NOT EXISTS idx_ivr_inputs_created_at ON ivr_inputs(created_at);
CREATE INDEX IF NOT EXISTS idx_ivr_paths_call_sid ON ivr_paths(call_sid);
CREATE INDEX IF NOT EXISTS idx_ivr_paths_updated_at ON ivr_paths(updated_at);
`

const pgInsertInput = `INSERT INTO ivr_inputs (id, call_sid, from_number, to_number, step_name, digit_input, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const pgRecomputePath = `UPDATE ivr_paths
SET complete_path = COALESCE(language_choice, '') || '-' ||
                    COALESCE(state_choice, '')    || '-' ||
                    COALESCE(service_choice, '')  || '-' ||
                    COALESCE(model_choice, '')    || '-' ||
                    COALESCE(hp_choice, '')
WHERE call_sid = $1`

const pgPathColumns = `id, call_sid, from_number, to_number,
	language_choice, state_choice, service_choice, model_choice, hp_choice,
	complete_path, updated_at`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordStep(ctx context.Context, ev model.StepEvent) error {
	col, ok := choiceColumn(ev.Step)
	if !ok {
		return eris.Wrapf(ErrInvalidStep, "postgres: step %q", ev.Step)
	}
	digit := flow.CleanDigit(ev.Digit)
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, pgInsertInput,
		uuid.New().String(), ev.CallSid, nullable(ev.From), nullable(ev.To), ev.Step, nullable(digit), now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert input for call %s", ev.CallSid)
	}

	// The ON CONFLICT row lock serializes concurrent writers on the same
	// call SID; different SIDs proceed independently.
	upsert := fmt.Sprintf(
		`INSERT INTO ivr_paths (id, call_sid, from_number, to_number, %s, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (call_sid) DO UPDATE SET %s = excluded.%s, updated_at = excluded.updated_at`,
		col, col, col,
	)
	_, err = tx.Exec(ctx, upsert,
		uuid.New().String(), ev.CallSid, nullable(ev.From), nullable(ev.To), nullable(digit), now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert path for call %s", ev.CallSid)
	}

	if _, err := tx.Exec(ctx, pgRecomputePath, ev.CallSid); err != nil {
		return eris.Wrapf(err, "postgres: recompute path for call %s", ev.CallSid)
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit")
}

func (s *PostgresStore) GetPath(ctx context.Context, callSid string) (*model.PathRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgPathColumns+` FROM ivr_paths WHERE call_sid = $1`,
		callSid,
	)

	rec, err := scanPath(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get path %s", callSid)
	}
	return rec, nil
}

func (s *PostgresStore) ListPaths(ctx context.Context, filter PathFilter) ([]model.PathRecord, error) {
	query := `SELECT ` + pgPathColumns + ` FROM ivr_paths WHERE 1=1`
	var args []any

	if filter.StartDate != "" {
		args = append(args, filter.StartDate)
		query += fmt.Sprintf(` AND updated_at::date >= $%d::date`, len(args))
	}
	if filter.EndDate != "" {
		args = append(args, filter.EndDate)
		query += fmt.Sprintf(` AND updated_at::date <= $%d::date`, len(args))
	}
	query += ` ORDER BY updated_at DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list paths")
	}
	defer rows.Close()

	var recs []model.PathRecord
	for rows.Next() {
		rec, err := scanPath(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan path")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list paths iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*IVRStats, error) {
	stats := &IVRStats{}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT call_sid) FROM ivr_inputs`,
	).Scan(&stats.TotalCalls)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count calls")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT complete_path, COUNT(*) AS count FROM ivr_paths
		 WHERE complete_path IS NOT NULL AND complete_path <> $1
		 GROUP BY complete_path ORDER BY count DESC, complete_path LIMIT 10`,
		flow.EmptyPath,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: top paths")
	}
	defer rows.Close()
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan top path")
		}
		stats.TopPaths = append(stats.TopPaths, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: top paths iterate")
	}

	for i, dest := range []*[]ChoiceCount{&stats.LanguageDist, &stats.StateDist, &stats.ServiceDist} {
		dist, err := s.distribution(ctx, i)
		if err != nil {
			return nil, err
		}
		*dest = dist
	}

	return stats, nil
}

func (s *PostgresStore) distribution(ctx context.Context, pos int) ([]ChoiceCount, error) {
	col, _ := choiceColumn(flow.Steps[pos].Name)
	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) AS count FROM ivr_paths WHERE %s IS NOT NULL
		 GROUP BY %s ORDER BY count DESC, %s`,
		col, col, col, col,
	)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s distribution", col)
	}
	defer rows.Close()

	var dist []ChoiceCount
	for rows.Next() {
		var cc ChoiceCount
		if err := rows.Scan(&cc.Digit, &cc.Count); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s distribution", col)
		}
		cc.Label = flow.StepLabel(pos, cc.Digit)
		dist = append(dist, cc)
	}
	return dist, eris.Wrapf(rows.Err(), "postgres: %s distribution iterate", col)
}
