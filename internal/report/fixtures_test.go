package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emberbi/ember/internal/result"
)

// stubWidget is a minimal paginator consumer for tests.
type stubWidget bool

func (w stubWidget) GroupPaginated() bool { return bool(w) }

var (
	tableWidget = stubWidget(false)
	chartWidget = stubWidget(true)
)

var (
	ts1 = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	ts2 = time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
)

func votesRow(ts time.Time, party string, votes float64) result.Row {
	return result.Row{
		Keys:  []result.Key{result.TimeKey(ts), result.StringKey(party)},
		Cells: []result.Value{result.Number(votes)},
	}
}

// votesTable mirrors the canonical test frame: two timestamp groups of
// six and seven rows, one votes metric. Group sums are 27 and 34.
func votesTable(t *testing.T) *result.Table {
	t.Helper()
	rows := []result.Row{
		votesRow(ts1, "a", 5),
		votesRow(ts1, "b", 1),
		votesRow(ts1, "c", 3),
		votesRow(ts1, "d", 9),
		votesRow(ts1, "e", 7),
		votesRow(ts1, "f", 2),
		votesRow(ts2, "g", 4),
		votesRow(ts2, "h", 8),
		votesRow(ts2, "i", 6),
		votesRow(ts2, "j", 2),
		votesRow(ts2, "k", 10),
		votesRow(ts2, "l", 1),
		votesRow(ts2, "m", 3),
	}
	table, err := result.NewTable(
		[]string{"timestamp", "political_party"},
		[]result.Column{{Metric: "votes"}},
		rows,
	)
	require.NoError(t, err)
	return table
}

// flatTable is a single-level frame of parties and votes, including a
// missing cell and a duplicate party value for tie-break tests.
func flatTable(t *testing.T) *result.Table {
	t.Helper()
	row := func(party string, votes result.Value) result.Row {
		return result.Row{Keys: []result.Key{result.StringKey(party)}, Cells: []result.Value{votes}}
	}
	rows := []result.Row{
		row("r", result.Number(20)),
		row("d", result.Number(30)),
		row("i", result.Null()),
		row("d", result.Number(50)),
		row("g", result.Number(10)),
	}
	table, err := result.NewTable(
		[]string{"political_party"},
		[]result.Column{{Metric: "votes"}},
		rows,
	)
	require.NoError(t, err)
	return table
}

// parties reads the party key from every row in order.
func parties(t *testing.T, table *result.Table) []string {
	t.Helper()
	level, ok := table.DimensionIndex("political_party")
	require.True(t, ok)
	out := make([]string, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		out = append(out, table.Row(i).Keys[level].String())
	}
	return out
}

// votes reads the votes cell from every row in order; missing cells
// read as -1 to keep expectations compact.
func votes(t *testing.T, table *result.Table) []float64 {
	t.Helper()
	col, ok := table.ColumnIndex("votes", "")
	require.True(t, ok)
	out := make([]float64, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		cell := table.Row(i).Cells[col]
		if cell.IsNull() {
			out = append(out, -1)
			continue
		}
		out = append(out, cell.Float)
	}
	return out
}

// timestamps reads the level-0 key from every row in order.
func timestamps(t *testing.T, table *result.Table) []time.Time {
	t.Helper()
	out := make([]time.Time, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		out = append(out, table.Row(i).Keys[0].Time)
	}
	return out
}
