package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
CREATE TABLE IF NOT EXISTS ivr_inputs (
	id          TEXT PRIMARY KEY,
	call_sid    TEXT NOT NULL,
	from_number TEXT,
	to_number   TEXT,
	step_name   TEXT NOT NULL,
	digit_input TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
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
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_ivr_inputs_call_sid ON ivr_inputs(call_sid);
CREATE INDEX IF NOT EXISTS idx_ivr_inputs_created_at ON ivr_inputs(created_at);
CREATE INDEX IF NOT EXISTS idx_ivr_paths_call_sid ON ivr_paths(call_sid);
CREATE INDEX IF NOT EXISTS idx_ivr_paths_updated_at ON ivr_paths(updated_at);
`

// sqliteRecomputePath rebuilds complete_path from the choice columns. Doing
// this in SQL inside the same transaction as the choice write keeps the
// derived column from ever drifting from its sources.
const sqliteRecomputePath = `
UPDATE ivr_paths
SET complete_path = COALESCE(language_choice, '') || '-' ||
                    COALESCE(state_choice, '')    || '-' ||
                    COALESCE(service_choice, '')  || '-' ||
                    COALESCE(model_choice, '')    || '-' ||
                    COALESCE(hp_choice, '')
WHERE call_sid = ?`

// sqliteTimeLayout is the text timestamp form that both SQLite's date
// functions and the driver's read-side time parsing accept. Binding a raw
// time.Time stores Go's String() form, which DATE() cannot parse.
const sqliteTimeLayout = "2006-01-02 15:04:05.000"

const sqlitePathColumns = `id, call_sid, from_number, to_number,
	language_choice, state_choice, service_choice, model_choice, hp_choice,
	complete_path, updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordStep(ctx context.Context, ev model.StepEvent) error {
	col, ok := choiceColumn(ev.Step)
	if !ok {
		return eris.Wrapf(ErrInvalidStep, "sqlite: step %q", ev.Step)
	}
	digit := flow.CleanDigit(ev.Digit)
	now := time.Now().UTC().Format(sqliteTimeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ivr_inputs (id, call_sid, from_number, to_number, step_name, digit_input, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), ev.CallSid, nullable(ev.From), nullable(ev.To), ev.Step, nullable(digit), now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert input for call %s", ev.CallSid)
	}

	// from/to stick from the first event; conflicts only overwrite the
	// choice column for this step (last write wins).
	upsert := fmt.Sprintf(
		`INSERT INTO ivr_paths (id, call_sid, from_number, to_number, %s, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(call_sid) DO UPDATE SET %s = excluded.%s, updated_at = excluded.updated_at`,
		col, col, col,
	)
	_, err = tx.ExecContext(ctx, upsert,
		uuid.New().String(), ev.CallSid, nullable(ev.From), nullable(ev.To), nullable(digit), now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert path for call %s", ev.CallSid)
	}

	if _, err := tx.ExecContext(ctx, sqliteRecomputePath, ev.CallSid); err != nil {
		return eris.Wrapf(err, "sqlite: recompute path for call %s", ev.CallSid)
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) GetPath(ctx context.Context, callSid string) (*model.PathRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqlitePathColumns+` FROM ivr_paths WHERE call_sid = ?`,
		callSid,
	)

	rec, err := scanPath(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get path %s", callSid)
	}
	return rec, nil
}

func (s *SQLiteStore) ListPaths(ctx context.Context, filter PathFilter) ([]model.PathRecord, error) {
	query := `SELECT ` + sqlitePathColumns + ` FROM ivr_paths WHERE 1=1`
	var args []any

	if filter.StartDate != "" {
		query += ` AND DATE(updated_at) >= DATE(?)`
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		query += ` AND DATE(updated_at) <= DATE(?)`
		args = append(args, filter.EndDate)
	}
	query += ` ORDER BY updated_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list paths")
	}
	defer rows.Close()

	var recs []model.PathRecord
	for rows.Next() {
		rec, err := scanPath(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan path")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list paths iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*IVRStats, error) {
	stats := &IVRStats{}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT call_sid) FROM ivr_inputs`,
	).Scan(&stats.TotalCalls)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count calls")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT complete_path, COUNT(*) as count FROM ivr_paths
		 WHERE complete_path IS NOT NULL AND complete_path != ?
		 GROUP BY complete_path ORDER BY count DESC, complete_path LIMIT 10`,
		flow.EmptyPath,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: top paths")
	}
	defer rows.Close()
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan top path")
		}
		stats.TopPaths = append(stats.TopPaths, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: top paths iterate")
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

func (s *SQLiteStore) distribution(ctx context.Context, pos int) ([]ChoiceCount, error) {
	col, _ := choiceColumn(flow.Steps[pos].Name)
	query := fmt.Sprintf(
		`SELECT %s, COUNT(*) as count FROM ivr_paths WHERE %s IS NOT NULL
		 GROUP BY %s ORDER BY count DESC, %s`,
		col, col, col, col,
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s distribution", col)
	}
	defer rows.Close()

	var dist []ChoiceCount
	for rows.Next() {
		var cc ChoiceCount
		if err := rows.Scan(&cc.Digit, &cc.Count); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s distribution", col)
		}
		cc.Label = flow.StepLabel(pos, cc.Digit)
		dist = append(dist, cc)
	}
	return dist, eris.Wrapf(rows.Err(), "sqlite: %s distribution iterate", col)
}

// helpers shared by both backends

// choiceColumn maps a step name to its ivr_paths column. Returning the column
// from a fixed table keeps step names out of SQL string interpolation.
func choiceColumn(step string) (string, bool) {
	if !flow.ValidStep(step) {
		return "", false
	}
	return step + "_choice", true
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPath(row scannable) (*model.PathRecord, error) {
	var rec model.PathRecord
	var from, to, lang, state, service, mdl, hp, path sql.NullString

	err := row.Scan(&rec.ID, &rec.CallSid, &from, &to,
		&lang, &state, &service, &mdl, &hp, &path, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	rec.FromNumber = strPtr(from)
	rec.ToNumber = strPtr(to)
	rec.LanguageChoice = strPtr(lang)
	rec.StateChoice = strPtr(state)
	rec.ServiceChoice = strPtr(service)
	rec.ModelChoice = strPtr(mdl)
	rec.HPChoice = strPtr(hp)
	rec.CompletePath = path.String
	return &rec, nil
}
