package executor

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberbi/ember/internal/querybuilder"
	"github.com/emberbi/ember/internal/result"
	"github.com/emberbi/ember/internal/schema"
)

func testSlicer() *schema.Slicer {
	return &schema.Slicer{
		Key:   "politics",
		Table: "politician",
		Metrics: []schema.Metric{
			{Key: "votes", Definition: "SUM(votes)"},
		},
		Dimensions: []schema.Dimension{
			{Key: "timestamp", Kind: schema.KindDatetime, Column: "timestamp", Interval: schema.IntervalDay},
			{Key: "political_party", Kind: schema.KindCategorical, Column: "political_party"},
			{Key: "candidate", Kind: schema.KindUnique, Column: "candidate_id", DisplayColumn: "candidate_name"},
		},
	}
}

func newMockExecutor(t *testing.T) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "sqlmock"), testSlicer()), mock
}

func TestExecuteBaseQuery(t *testing.T) {
	e, mock := newMockExecutor(t)
	ts := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT DATE_TRUNC('day', timestamp) AS "timestamp", political_party AS "political_party", ` +
		`SUM(votes) AS "votes" FROM politician GROUP BY DATE_TRUNC('day', timestamp), political_party`).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "political_party", "votes"}).
			AddRow(ts, "d", int64(5)).
			AddRow(ts, "r", int64(3)).
			AddRow(ts, "i", nil))

	table, err := e.Execute(context.Background(), querybuilder.Spec{
		Metrics:    []string{"votes"},
		Dimensions: []string{"timestamp", "political_party"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"timestamp", "political_party"}, table.Dimensions())
	assert.Equal(t, []result.Column{{Metric: "votes"}}, table.Columns())
	require.Equal(t, 3, table.Len())
	assert.Equal(t, result.TimeKey(ts), table.Row(0).Keys[0])
	assert.Equal(t, result.StringKey("d"), table.Row(0).Keys[1])
	assert.Equal(t, result.Number(5), table.Row(0).Cells[0])
	assert.True(t, table.Row(2).Cells[0].IsNull())
}

func TestExecuteDecodesDriverStrings(t *testing.T) {
	e, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT DATE_TRUNC('day', timestamp) AS "timestamp", political_party AS "political_party", ` +
		`SUM(votes) AS "votes" FROM politician GROUP BY DATE_TRUNC('day', timestamp), political_party`).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "political_party", "votes"}).
			AddRow("2019-01-01 00:00:00", []byte("d"), []byte("5")).
			AddRow("2019-01-02", "r", "3.5"))

	table, err := e.Execute(context.Background(), querybuilder.Spec{
		Metrics:    []string{"votes"},
		Dimensions: []string{"timestamp", "political_party"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, result.TimeKey(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)), table.Row(0).Keys[0])
	assert.Equal(t, result.StringKey("d"), table.Row(0).Keys[1])
	assert.Equal(t, result.Number(5), table.Row(0).Cells[0])
	assert.Equal(t, result.TimeKey(time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)), table.Row(1).Keys[0])
	assert.Equal(t, result.Number(3.5), table.Row(1).Cells[0])
}

func TestExecuteUniqueDimensionDisplay(t *testing.T) {
	e, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT candidate_id AS "candidate", candidate_name AS "candidate_display", ` +
		`SUM(votes) AS "votes" FROM politician GROUP BY candidate_id, candidate_name`).
		WillReturnRows(sqlmock.NewRows([]string{"candidate", "candidate_display", "votes"}).
			AddRow(int64(1), "Teddy Roosevelt", int64(50)).
			AddRow(int64(2), nil, int64(3)))

	table, err := e.Execute(context.Background(), querybuilder.Spec{
		Metrics:    []string{"votes"},
		Dimensions: []string{"candidate"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, 2, table.Len())
	// The id stays the row key; the display column rides along as the
	// key's label.
	assert.Equal(t, "1", table.Row(0).Keys[0].String())
	assert.Equal(t, "Teddy Roosevelt", table.Row(0).Keys[0].Label)
	assert.Equal(t, "Teddy Roosevelt", table.Row(0).Keys[0].Display())
	assert.Equal(t, result.Number(50), table.Row(0).Cells[0])
	// A null display falls back to the rendered id.
	assert.Empty(t, table.Row(1).Keys[0].Label)
	assert.Equal(t, "2", table.Row(1).Keys[0].Display())
}

func TestLatest(t *testing.T) {
	e, mock := newMockExecutor(t)
	ts := time.Date(2019, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT MAX(timestamp) AS "timestamp", MAX(political_party) AS "political_party" FROM politician`).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "political_party"}).
			AddRow(ts, "r"))

	latest, err := e.Latest(context.Background(), "timestamp", "political_party")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, result.TimeKey(ts), latest["timestamp"])
	assert.Equal(t, result.StringKey("r"), latest["political_party"])
}

func TestLatestEmptyTable(t *testing.T) {
	e, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT MAX(timestamp) AS "timestamp" FROM politician`).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp"}))

	_, err := e.Latest(context.Background(), "timestamp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 rows")
}

func TestExecuteMergesReferences(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.MatchExpectationsInOrder(false)
	ts1 := time.Date(2019, 1, 8, 0, 0, 0, 0, time.UTC)
	ts2 := time.Date(2019, 1, 9, 0, 0, 0, 0, time.UTC)

	baseSQL := `SELECT DATE_TRUNC('day', timestamp) AS "timestamp", SUM(votes) AS "votes" ` +
		`FROM politician GROUP BY DATE_TRUNC('day', timestamp)`
	refSQL := `SELECT DATE_TRUNC('day', timestamp + INTERVAL '1 WEEK') AS "timestamp", SUM(votes) AS "votes" ` +
		`FROM politician GROUP BY DATE_TRUNC('day', timestamp + INTERVAL '1 WEEK')`

	mock.ExpectQuery(baseSQL).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "votes"}).
			AddRow(ts1, int64(10)).
			AddRow(ts2, int64(8)))
	// Both references run the same shifted query. The last row has no
	// base counterpart and must be dropped.
	refRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"timestamp", "votes"}).
			AddRow(ts1, int64(4)).
			AddRow(ts2, int64(0)).
			AddRow(time.Date(2019, 1, 20, 0, 0, 0, 0, time.UTC), int64(99))
	}
	mock.ExpectQuery(refSQL).WillReturnRows(refRows())
	mock.ExpectQuery(refSQL).WillReturnRows(refRows())

	table, err := e.Execute(context.Background(), querybuilder.Spec{
		Metrics:    []string{"votes"},
		Dimensions: []string{"timestamp"},
		References: []schema.Reference{
			{Interval: schema.RefWeekOverWeek, Modifier: schema.RefDelta},
			{Interval: schema.RefWeekOverWeek, Modifier: schema.RefDeltaPercent},
		},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []result.Column{
		{Metric: "votes"},
		{Metric: "votes", Reference: "wow_d"},
		{Metric: "votes", Reference: "wow_p"},
	}, table.Columns())
	require.Equal(t, 2, table.Len())

	// ts1: base 10, prior 4: delta 6, delta-percent 150.
	assert.Equal(t, result.Number(10), table.Row(0).Cells[0])
	assert.Equal(t, result.Number(6), table.Row(0).Cells[1])
	assert.Equal(t, result.Number(150), table.Row(0).Cells[2])
	// ts2: base 8, prior 0: delta 8, but a zero prior makes
	// delta-percent null.
	assert.Equal(t, result.Number(8), table.Row(1).Cells[1])
	assert.True(t, table.Row(1).Cells[2].IsNull())
}

func TestExecuteValueReference(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.MatchExpectationsInOrder(false)
	ts := time.Date(2019, 1, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT DATE_TRUNC('day', timestamp) AS "timestamp", SUM(votes) AS "votes" ` +
		`FROM politician GROUP BY DATE_TRUNC('day', timestamp)`).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "votes"}).AddRow(ts, int64(10)))
	mock.ExpectQuery(`SELECT DATE_TRUNC('day', timestamp + INTERVAL '1 WEEK') AS "timestamp", SUM(votes) AS "votes" ` +
		`FROM politician GROUP BY DATE_TRUNC('day', timestamp + INTERVAL '1 WEEK')`).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "votes"}).AddRow(ts, int64(4)))

	table, err := e.Execute(context.Background(), querybuilder.Spec{
		Metrics:    []string{"votes"},
		Dimensions: []string{"timestamp"},
		References: []schema.Reference{{Interval: schema.RefWeekOverWeek}},
	})
	require.NoError(t, err)
	assert.Equal(t, result.Number(4), table.Row(0).Cells[1])
}

func TestExecuteScanErrors(t *testing.T) {
	e, mock := newMockExecutor(t)

	mock.ExpectQuery(`SELECT DATE_TRUNC('day', timestamp) AS "timestamp", SUM(votes) AS "votes" ` +
		`FROM politician GROUP BY DATE_TRUNC('day', timestamp)`).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "votes"}).
			AddRow("not a datetime", int64(1)))

	_, err := e.Execute(context.Background(), querybuilder.Spec{
		Metrics:    []string{"votes"},
		Dimensions: []string{"timestamp"},
	})
	require.ErrorIs(t, err, ErrScan)
}

func TestExecuteBuildErrorsSurface(t *testing.T) {
	e, _ := newMockExecutor(t)

	_, err := e.Execute(context.Background(), querybuilder.Spec{
		Metrics: []string{"turnout"},
	})
	require.ErrorIs(t, err, querybuilder.ErrUnknownMetric)
}
