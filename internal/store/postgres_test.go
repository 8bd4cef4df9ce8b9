package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ivr-analytics/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

var pathColumns = []string{
	"id", "call_sid", "from_number", "to_number",
	"language_choice", "state_choice", "service_choice", "model_choice", "hp_choice",
	"complete_path", "updated_at",
}

func TestPostgres_RecordStep(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ivr_inputs`).
		WithArgs(pgxmock.AnyArg(), "CA100", "+919876543210", nil, "language", "1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO ivr_paths .+ ON CONFLICT \(call_sid\) DO UPDATE SET language_choice`).
		WithArgs(pgxmock.AnyArg(), "CA100", "+919876543210", nil, "1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE ivr_paths\s+SET complete_path`).
		WithArgs("CA100").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := st.RecordStep(context.Background(), model.StepEvent{
		CallSid: "CA100", Step: "language", Digit: "1", From: "+919876543210",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordStep_StripsQuotes(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ivr_inputs`).
		WithArgs(pgxmock.AnyArg(), "CA101", nil, nil, "state", "2", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO ivr_paths .+ DO UPDATE SET state_choice`).
		WithArgs(pgxmock.AnyArg(), "CA101", nil, nil, "2", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE ivr_paths\s+SET complete_path`).
		WithArgs("CA101").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := st.RecordStep(context.Background(), model.StepEvent{
		CallSid: "CA101", Step: "state", Digit: `"2"`,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordStep_InvalidStep(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	err := st.RecordStep(context.Background(), model.StepEvent{
		CallSid: "CA102", Step: "pincode", Digit: "1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStep)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordStep_RollbackOnError(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO ivr_inputs`).
		WithArgs(pgxmock.AnyArg(), "CA103", nil, nil, "language", "1", pgxmock.AnyArg()).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := st.RecordStep(context.Background(), model.StepEvent{
		CallSid: "CA103", Step: "language", Digit: "1",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetPath(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM ivr_paths WHERE call_sid = \$1`).
		WithArgs("CA104").
		WillReturnRows(pgxmock.NewRows(pathColumns).AddRow(
			"id-1", "CA104", "+919000000001", nil,
			"1", "2", nil, nil, nil,
			"1-2---", now,
		))

	rec, err := st.GetPath(context.Background(), "CA104")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "CA104", rec.CallSid)
	assert.Equal(t, str("1"), rec.LanguageChoice)
	assert.Nil(t, rec.ServiceChoice)
	assert.Equal(t, "1-2---", rec.CompletePath)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetPath_Missing(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM ivr_paths WHERE call_sid = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	rec, err := st.GetPath(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListPaths_DateFilter(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM ivr_paths WHERE 1=1 AND updated_at::date >= \$1::date AND updated_at::date <= \$2::date ORDER BY updated_at DESC LIMIT \$3`).
		WithArgs("2026-08-01", "2026-08-30", 50).
		WillReturnRows(pgxmock.NewRows(pathColumns).AddRow(
			"id-1", "CA105", nil, nil,
			"1", nil, nil, nil, nil,
			"1----", now,
		))

	paths, err := st.ListPaths(context.Background(), PathFilter{
		StartDate: "2026-08-01", EndDate: "2026-08-30", Limit: 50,
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "CA105", paths[0].CallSid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Stats(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(DISTINCT call_sid\) FROM ivr_inputs`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT complete_path, COUNT\(\*\) AS count FROM ivr_paths`).
		WithArgs("----").
		WillReturnRows(pgxmock.NewRows([]string{"complete_path", "count"}).
			AddRow("1-1---", 2).
			AddRow("2----", 1))
	mock.ExpectQuery(`SELECT language_choice, COUNT\(\*\) AS count FROM ivr_paths`).
		WillReturnRows(pgxmock.NewRows([]string{"language_choice", "count"}).
			AddRow("1", 2).
			AddRow("2", 1))
	mock.ExpectQuery(`SELECT state_choice, COUNT\(\*\) AS count FROM ivr_paths`).
		WillReturnRows(pgxmock.NewRows([]string{"state_choice", "count"}).
			AddRow("1", 2))
	mock.ExpectQuery(`SELECT service_choice, COUNT\(\*\) AS count FROM ivr_paths`).
		WillReturnRows(pgxmock.NewRows([]string{"service_choice", "count"}))

	stats, err := st.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalCalls)
	require.Len(t, stats.TopPaths, 2)
	assert.Equal(t, PathCount{Path: "1-1---", Count: 2}, stats.TopPaths[0])
	require.Len(t, stats.LanguageDist, 2)
	assert.Equal(t, ChoiceCount{Digit: "1", Label: "Hindi", Count: 2}, stats.LanguageDist[0])
	assert.Equal(t, ChoiceCount{Digit: "2", Label: "English", Count: 1}, stats.LanguageDist[1])
	require.Len(t, stats.StateDist, 1)
	assert.Equal(t, "Rajasthan", stats.StateDist[0].Label)
	assert.Empty(t, stats.ServiceDist)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS ivr_inputs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
