// Package executor runs built slicer queries against a SQL database
// and materializes the rows into a result.Table. The base query and
// any reference queries run concurrently; reference rows are then
// merged onto the base row index as extra reference-qualified columns.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/emberbi/ember/internal/logging"
	"github.com/emberbi/ember/internal/querybuilder"
	"github.com/emberbi/ember/internal/result"
	"github.com/emberbi/ember/internal/schema"
)

// Executor executes queries for one slicer over one database handle.
type Executor struct {
	db     *sqlx.DB
	slicer *schema.Slicer
}

// New returns an Executor for the slicer.
func New(db *sqlx.DB, s *schema.Slicer) *Executor {
	return &Executor{db: db, slicer: s}
}

// rawRows is the scanned output of one query before decoding.
type rawRows struct {
	rows [][]any
}

// Execute builds and runs the base query plus one query per requested
// reference, concurrently, and returns the merged table. The table's
// row index has one level per requested dimension; its columns are the
// base metrics followed by reference-qualified metric columns in spec
// order.
func (e *Executor) Execute(ctx context.Context, spec querybuilder.Spec) (*result.Table, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	builder := querybuilder.New(e.slicer)
	base, err := builder.Build(spec)
	if err != nil {
		return nil, err
	}
	refQueries := make([]querybuilder.Query, len(spec.References))
	for i, ref := range spec.References {
		q, err := builder.BuildReference(spec, ref)
		if err != nil {
			return nil, err
		}
		refQueries[i] = q
	}

	var baseRaw rawRows
	refRaw := make([]rawRows, len(refQueries))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := e.query(gctx, base)
		if err != nil {
			return fmt.Errorf("base query: %w", err)
		}
		baseRaw = raw
		return nil
	})
	for i := range refQueries {
		g.Go(func() error {
			raw, err := e.query(gctx, refQueries[i])
			if err != nil {
				return fmt.Errorf("reference query %s: %w", spec.References[i].Key(), err)
			}
			refRaw[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table, err := e.merge(spec, baseRaw, refRaw)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("component", "executor").
		Str("slicer", e.slicer.Key).
		Int("rows", table.Len()).
		Int("reference_queries", len(refQueries)).
		Dur("elapsed", time.Since(start)).
		Msg("query executed")
	return table, nil
}

// Latest runs the latest-value query for the named dimensions and
// returns the most recent value of each, keyed by dimension key.
func (e *Executor) Latest(ctx context.Context, dims ...string) (map[string]result.Key, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	q, err := querybuilder.New(e.slicer).BuildLatest(dims...)
	if err != nil {
		return nil, err
	}
	raw, err := e.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("latest query: %w", err)
	}
	if len(raw.rows) != 1 {
		return nil, fmt.Errorf("latest query returned %d rows, want 1", len(raw.rows))
	}
	row := raw.rows[0]
	if len(row) != len(dims) {
		return nil, fmt.Errorf("latest query returned %d columns, want %d", len(row), len(dims))
	}

	out := make(map[string]result.Key, len(dims))
	for i, dk := range dims {
		d, ok := e.slicer.Dimension(dk)
		if !ok {
			return nil, fmt.Errorf("%w: %q", querybuilder.ErrUnknownDimension, dk)
		}
		k, err := decodeKey(row[i], d)
		if err != nil {
			return nil, err
		}
		out[dk] = k
	}

	log.Debug().
		Str("component", "executor").
		Str("slicer", e.slicer.Key).
		Int("dimensions", len(dims)).
		Dur("elapsed", time.Since(start)).
		Msg("latest values fetched")
	return out, nil
}

// query runs one statement and scans every row into a generic slice.
func (e *Executor) query(ctx context.Context, q querybuilder.Query) (rawRows, error) {
	rows, err := e.db.QueryxContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return rawRows{}, err
	}
	defer rows.Close()

	var raw rawRows
	for rows.Next() {
		cols, err := rows.SliceScan()
		if err != nil {
			return rawRows{}, err
		}
		raw.rows = append(raw.rows, cols)
	}
	return raw, rows.Err()
}
