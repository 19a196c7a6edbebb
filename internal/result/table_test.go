package result

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCompare(t *testing.T) {
	day1 := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Key
		want int
	}{
		{"equal strings", StringKey("d"), StringKey("d"), 0},
		{"string less", StringKey("d"), StringKey("r"), -1},
		{"string greater", StringKey("r"), StringKey("d"), 1},
		{"number less", NumberKey(1), NumberKey(2), -1},
		{"time less", TimeKey(day1), TimeKey(day2), -1},
		{"time greater", TimeKey(day2), TimeKey(day1), 1},
		{"null after string", NullKey(), StringKey("a"), 1},
		{"string before null", StringKey("a"), NullKey(), -1},
		{"null equals null", NullKey(), NullKey(), 0},
		{"nan counts as null", NumberKey(math.NaN()), NumberKey(1), 1},
		{"value before nan", NumberKey(1), NumberKey(math.NaN()), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}
}

func TestValueCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"less", Number(1), Number(2), -1},
		{"greater", Number(2), Number(1), 1},
		{"equal", Number(2), Number(2), 0},
		{"null after value", Null(), Number(-100), 1},
		{"value before null", Number(-100), Null(), -1},
		{"nan after value", Number(math.NaN()), Number(1), 1},
		{"null equals nan", Null(), Number(math.NaN()), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}
}

func TestNewTableValidation(t *testing.T) {
	cols := []Column{{Metric: "votes"}}

	t.Run("no columns", func(t *testing.T) {
		_, err := NewTable([]string{"party"}, nil, nil)
		require.ErrorIs(t, err, ErrNoColumns)
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := NewTable([]string{"party"}, []Column{{Metric: "votes"}, {Metric: "votes"}}, nil)
		require.ErrorIs(t, err, ErrDuplicateColumn)
	})

	t.Run("row shape mismatch", func(t *testing.T) {
		rows := []Row{{Keys: []Key{StringKey("d"), StringKey("x")}, Cells: []Value{Number(1)}}}
		_, err := NewTable([]string{"party"}, cols, rows)
		require.ErrorIs(t, err, ErrRowShape)
	})

	t.Run("valid", func(t *testing.T) {
		rows := []Row{{Keys: []Key{StringKey("d")}, Cells: []Value{Number(1)}}}
		table, err := NewTable([]string{"party"}, cols, rows)
		require.NoError(t, err)
		assert.Equal(t, 1, table.Len())
		assert.Equal(t, []string{"party"}, table.Dimensions())
		assert.False(t, table.Grouped())
	})
}

func TestTableGroups(t *testing.T) {
	cols := []Column{{Metric: "votes"}}
	rows := []Row{
		{Keys: []Key{StringKey("a"), StringKey("x")}, Cells: []Value{Number(1)}},
		{Keys: []Key{StringKey("b"), StringKey("x")}, Cells: []Value{Number(2)}},
		// Non-contiguous member of group "a" still collects into it.
		{Keys: []Key{StringKey("a"), StringKey("y")}, Cells: []Value{Number(3)}},
	}
	table, err := NewTable([]string{"bucket", "party"}, cols, rows)
	require.NoError(t, err)
	require.True(t, table.Grouped())

	groups := table.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].Key.String())
	require.Len(t, groups[0].Rows, 2)
	assert.Equal(t, "y", groups[0].Rows[1].Keys[1].String())
	assert.Equal(t, "b", groups[1].Key.String())
	assert.Len(t, groups[1].Rows, 1)
}

func TestTableLookups(t *testing.T) {
	cols := []Column{{Metric: "votes"}, {Metric: "votes", Reference: "wow"}}
	table, err := NewTable([]string{"timestamp", "party"}, cols, nil)
	require.NoError(t, err)

	level, ok := table.DimensionIndex("party")
	require.True(t, ok)
	assert.Equal(t, 1, level)

	_, ok = table.DimensionIndex("missing")
	assert.False(t, ok)

	col, ok := table.ColumnIndex("votes", "wow")
	require.True(t, ok)
	assert.Equal(t, 1, col)

	_, ok = table.ColumnIndex("votes", "yoy")
	assert.False(t, ok)
}

func TestWithRowsDoesNotMutateOriginal(t *testing.T) {
	cols := []Column{{Metric: "votes"}}
	rows := []Row{
		{Keys: []Key{StringKey("a")}, Cells: []Value{Number(1)}},
		{Keys: []Key{StringKey("b")}, Cells: []Value{Number(2)}},
	}
	table, err := NewTable([]string{"party"}, cols, rows)
	require.NoError(t, err)

	reversed := table.WithRows([]Row{table.Row(1), table.Row(0)})
	assert.Equal(t, "a", table.Row(0).Keys[0].String())
	assert.Equal(t, "b", reversed.Row(0).Keys[0].String())
	assert.Equal(t, table.Columns(), reversed.Columns())
}
