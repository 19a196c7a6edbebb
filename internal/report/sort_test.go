package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberbi/ember/internal/result"
)

func TestSortByDimension(t *testing.T) {
	table := flatTable(t)

	t.Run("ascending", func(t *testing.T) {
		sorted, err := Sort(table, []Order{{Field: "political_party"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "d", "g", "i", "r"}, parties(t, sorted))
		// Stable: the two "d" rows keep their input order.
		assert.Equal(t, []float64{30, 50, 10, -1, 20}, votes(t, sorted))
	})

	t.Run("descending", func(t *testing.T) {
		sorted, err := Sort(table, []Order{{Field: "political_party", Direction: Descending}})
		require.NoError(t, err)
		assert.Equal(t, []string{"r", "i", "g", "d", "d"}, parties(t, sorted))
	})

	t.Run("input table unchanged", func(t *testing.T) {
		_, err := Sort(table, []Order{{Field: "political_party"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"r", "d", "i", "d", "g"}, parties(t, table))
	})
}

func TestSortByMetricNullsLast(t *testing.T) {
	table := flatTable(t)

	t.Run("ascending", func(t *testing.T) {
		sorted, err := Sort(table, []Order{{Field: "votes"}})
		require.NoError(t, err)
		assert.Equal(t, []float64{10, 20, 30, 50, -1}, votes(t, sorted))
	})

	t.Run("descending keeps nulls last", func(t *testing.T) {
		sorted, err := Sort(table, []Order{{Field: "votes", Direction: Descending}})
		require.NoError(t, err)
		assert.Equal(t, []float64{50, 30, 20, 10, -1}, votes(t, sorted))
	})
}

func TestSortMultiKey(t *testing.T) {
	table := flatTable(t)

	sorted, err := Sort(table, []Order{
		{Field: "political_party"},
		{Field: "votes", Direction: Descending},
	})
	require.NoError(t, err)
	// Ties on party "d" break by descending votes.
	assert.Equal(t, []string{"d", "d", "g", "i", "r"}, parties(t, sorted))
	assert.Equal(t, []float64{50, 30, 10, -1, 20}, votes(t, sorted))
}

func TestSortRoundTripReverses(t *testing.T) {
	table := votesTable(t)

	asc, err := Sort(table, []Order{{Field: "votes"}})
	require.NoError(t, err)
	desc, err := Sort(table, []Order{{Field: "votes", Direction: Descending}})
	require.NoError(t, err)

	ascVotes := votes(t, asc)
	descVotes := votes(t, desc)
	require.Equal(t, len(ascVotes), len(descVotes))
	for i := range ascVotes {
		assert.Equal(t, ascVotes[i], descVotes[len(descVotes)-1-i])
	}
}

func TestSortUnresolvedKey(t *testing.T) {
	table := flatTable(t)

	_, err := Sort(table, []Order{{Field: "turnout"}})
	var unresolved *UnresolvedSortKeyError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "turnout", unresolved.Key)
	assert.Contains(t, err.Error(), "turnout")

	_, err = Sort(table, []Order{{Field: "votes", Reference: "wow"}})
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "wow.votes", unresolved.Key)
}

func TestSortGroupedByMetric(t *testing.T) {
	table := votesTable(t)

	t.Run("ascending orders groups by sum then rows within", func(t *testing.T) {
		sorted, err := SortGrouped(table, []Order{{Field: "votes"}})
		require.NoError(t, err)
		// Sum(ts1)=27 < sum(ts2)=34, so ts1 stays first.
		assert.Equal(t, ts1, sorted.Row(0).Keys[0].Time)
		assert.Equal(t, []float64{1, 2, 3, 5, 7, 9, 1, 2, 3, 4, 6, 8, 10}, votes(t, sorted))
	})

	t.Run("descending repositions whole groups", func(t *testing.T) {
		sorted, err := SortGrouped(table, []Order{{Field: "votes", Direction: Descending}})
		require.NoError(t, err)
		// ts2's sum is larger, so its whole group moves first.
		assert.Equal(t, ts2, sorted.Row(0).Keys[0].Time)
		assert.Equal(t, []float64{10, 8, 6, 4, 3, 2, 1, 9, 7, 5, 3, 2, 1}, votes(t, sorted))
		// Group boundaries intact: first seven rows are all ts2.
		for i := 0; i < 7; i++ {
			assert.Equal(t, ts2, sorted.Row(i).Keys[0].Time)
		}
	})
}

func TestSortGroupedByLevelZeroDimension(t *testing.T) {
	table := votesTable(t)

	sorted, err := SortGrouped(table, []Order{{Field: "timestamp", Direction: Descending}})
	require.NoError(t, err)
	assert.Equal(t, ts2, sorted.Row(0).Keys[0].Time)
	// Rows inside each group keep their input order.
	assert.Equal(t, []float64{4, 8, 6, 2, 10, 1, 3, 5, 1, 3, 9, 7, 2}, votes(t, sorted))
}

func TestSortGroupedByInnerDimension(t *testing.T) {
	table := votesTable(t)

	sorted, err := SortGrouped(table, []Order{{Field: "political_party", Direction: Descending}})
	require.NoError(t, err)
	// Group order untouched; rows inside each group sort by party desc.
	assert.Equal(t, ts1, sorted.Row(0).Keys[0].Time)
	assert.Equal(t,
		[]string{"f", "e", "d", "c", "b", "a", "m", "l", "k", "j", "i", "h", "g"},
		parties(t, sorted))
}

func TestSortGroupedMultiKey(t *testing.T) {
	rows := []result.Row{
		votesRow(ts1, "d", 10),
		votesRow(ts1, "d", 30),
		votesRow(ts1, "r", 20),
		votesRow(ts2, "d", 5),
		votesRow(ts2, "r", 1),
	}
	table, err := result.NewTable(
		[]string{"timestamp", "political_party"},
		[]result.Column{{Metric: "votes"}},
		rows,
	)
	require.NoError(t, err)

	sorted, err := SortGrouped(table, []Order{
		{Field: "political_party"},
		{Field: "votes", Direction: Descending},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "d", "r", "d", "r"}, parties(t, sorted))
	assert.Equal(t, []float64{30, 10, 20, 5, 1}, votes(t, sorted))
}

func TestSortGroupedAllNullMetricGroupSortsLast(t *testing.T) {
	rows := []result.Row{
		{Keys: []result.Key{result.TimeKey(ts1), result.StringKey("a")}, Cells: []result.Value{result.Null()}},
		votesRow(ts2, "b", 1),
	}
	table, err := result.NewTable(
		[]string{"timestamp", "political_party"},
		[]result.Column{{Metric: "votes"}},
		rows,
	)
	require.NoError(t, err)

	sorted, err := SortGrouped(table, []Order{{Field: "votes", Direction: Descending}})
	require.NoError(t, err)
	// The all-null ts1 group aggregates to null and sorts last even
	// under descending order.
	assert.Equal(t, ts2, sorted.Row(0).Keys[0].Time)
	assert.Equal(t, ts1, sorted.Row(1).Keys[0].Time)
}

func TestSortGroupedFlatTableFallsBack(t *testing.T) {
	table := flatTable(t)

	sorted, err := SortGrouped(table, []Order{{Field: "votes"}})
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 50, -1}, votes(t, sorted))
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "asc", Ascending.String())
	assert.Equal(t, "desc", Descending.String())
}
