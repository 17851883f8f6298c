package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/shopspring/decimal"

	"github.com/nikolay-makurin/extractor/internal/schema"
)

// Cursor is the shared query/iteration engine behind every SQL connector.
// It builds one dialect-specific streaming SELECT per table, bounds it by
// the replication key when one is declared, and hands back a lazy row
// sequence tied to a pooled connection that is released on Close.
type Cursor struct {
	db         *sql.DB
	dialect    goqu.DialectWrapper
	nullsFirst bool
	startDate  time.Time
}

// NewCursor wires a cursor to an open database handle. nullsFirst forces an
// explicit NULLS FIRST on the ordered extraction for engines whose default
// ascending null placement is not nulls-first, keeping resumption ordering
// stable across engines.
func NewCursor(db *sql.DB, dialect goqu.DialectWrapper, nullsFirst bool, startDate time.Time) *Cursor {
	return &Cursor{
		db:         db,
		dialect:    dialect,
		nullsFirst: nullsFirst,
		startDate:  startDate,
	}
}

// Extract opens a streaming query over the table. Rows are pulled one at a
// time; the connection is held for the lifetime of the returned iterator.
func (c *Cursor) Extract(ctx context.Context, stream *schema.Table, columns []string, checkpoint interface{}, partition map[string]interface{}) (RowIterator, error) {
	if len(partition) > 0 {
		return nil, fmt.Errorf("stream %q: %w", stream.Stream, ErrPartitioningUnsupported)
	}
	if len(columns) == 0 {
		columns = stream.ColumnNames()
	}

	query, args, err := c.buildQuery(stream, columns, checkpoint)
	if err != nil {
		return nil, fmt.Errorf("stream %q: build query: %w", stream.Stream, err)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stream %q: query: %w", stream.Stream, err)
	}

	return &sqlRowIterator{
		rows:    rows,
		columns: columns,
		types:   stream.Types,
	}, nil
}

func (c *Cursor) buildQuery(stream *schema.Table, columns []string, checkpoint interface{}) (string, []interface{}, error) {
	cols := make([]interface{}, len(columns))
	for i, col := range columns {
		cols[i] = goqu.C(col)
	}

	var table exp.Expression
	if stream.Schema != "" {
		table = goqu.S(stream.Schema).Table(stream.Name)
	} else {
		table = goqu.T(stream.Name)
	}
	ds := c.dialect.From(table).Select(cols...)

	if key := stream.ReplicationKey; key != "" {
		ord := goqu.C(key).Asc()
		if c.nullsFirst {
			ord = ord.NullsFirst()
		}
		ds = ds.Order(ord)

		bound, err := c.startingBoundary(stream, checkpoint)
		if err != nil {
			return "", nil, err
		}
		if bound != nil {
			// Inclusive lower bound: an exactly-matching last-emitted row
			// is re-emitted rather than lost; downstream de-duplicates by key.
			ds = ds.Where(goqu.C(key).Gte(bound))
		}
	}

	return ds.Prepared(true).ToSQL()
}

// startingBoundary resolves where the incremental scan begins. A temporal
// key starts at the prior checkpoint, falling back to the configured start
// date; an ordinal key starts at the checkpoint alone. No boundary means a
// full unbounded scan.
func (c *Cursor) startingBoundary(stream *schema.Table, checkpoint interface{}) (interface{}, error) {
	keyType := stream.Types[stream.ReplicationKey]
	if !keyType.IsTemporal() {
		return checkpoint, nil
	}

	if checkpoint != nil {
		ts, err := parseTemporal(checkpoint)
		if err != nil {
			return nil, fmt.Errorf("checkpoint for key %q: %w", stream.ReplicationKey, err)
		}
		return ts, nil
	}
	if !c.startDate.IsZero() {
		return c.startDate, nil
	}
	return nil, nil
}

var temporalLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTemporal(v interface{}) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		for _, layout := range temporalLayouts {
			if ts, err := time.Parse(layout, val); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", val)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp value %v (%T)", v, v)
	}
}

// sqlRowIterator adapts *sql.Rows to the pull sequence, coercing driver
// values to the shapes the normalizer and serializer understand.
type sqlRowIterator struct {
	rows    *sql.Rows
	columns []string
	types   map[string]schema.Type
	current RawRow
	err     error
}

func (it *sqlRowIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		it.err = it.rows.Err()
		return false
	}

	values := make([]interface{}, len(it.columns))
	ptrs := make([]interface{}, len(it.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		it.err = err
		return false
	}

	row := make(RawRow, len(it.columns))
	for i, name := range it.columns {
		coerced, err := coerceValue(it.types[name], values[i])
		if err != nil {
			it.err = fmt.Errorf("column %q: %w", name, err)
			return false
		}
		row[name] = coerced
	}
	it.current = row
	return true
}

func (it *sqlRowIterator) Row() RawRow { return it.current }

func (it *sqlRowIterator) Err() error { return it.err }

func (it *sqlRowIterator) Close() error { return it.rows.Close() }

// coerceValue rewrites raw driver values per the column's portable type.
// Exact numerics arrive as byte strings from the drivers and must become
// decimals, not floats, so no precision is lost before serialization.
func coerceValue(t schema.Type, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	switch val := v.(type) {
	case []byte:
		switch {
		case t.Kind == schema.KindNumber:
			d, err := decimal.NewFromString(string(val))
			if err != nil {
				return nil, err
			}
			return d, nil
		case t.Kind == schema.KindInteger:
			n, err := strconv.ParseInt(string(val), 10, 64)
			if err != nil {
				return nil, err
			}
			return n, nil
		case t.ContentEncoding == schema.EncodingBase64:
			// Copy: the driver may reuse its scan buffer on the next row.
			buf := make([]byte, len(val))
			copy(buf, val)
			return buf, nil
		default:
			return string(val), nil
		}
	case string:
		if t.Kind == schema.KindNumber {
			d, err := decimal.NewFromString(val)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
		return val, nil
	default:
		return v, nil
	}
}
