package source

import (
	"context"
	"errors"

	"github.com/nikolay-makurin/extractor/internal/schema"
)

var (
	// ErrPartitioningUnsupported is returned when extraction is invoked
	// with a non-empty partitioning context. Per-table sharded extraction
	// is not supported and must fail before any query is issued.
	ErrPartitioningUnsupported = errors.New("partitioned extraction is not supported")

	// ErrMapperNotImplemented is returned by a connector running in strict
	// type-mapping mode: the deployment expects fully external mappings and
	// reaching the built-in path is a programming gap, not a fallback.
	ErrMapperNotImplemented = errors.New("type mapping not implemented by the base mapper")
)

// RawRow is one row as produced by the driver, keyed by selected column
// name. Transient: consumed immediately by Normalize, never retained.
type RawRow map[string]interface{}

// RowIterator is a pull-based row sequence. The underlying connection and
// result cursor are held open for the lifetime of the iterator and released
// by Close, which is safe to call after early termination.
type RowIterator interface {
	Next() bool
	Row() RawRow
	Err() error
	Close() error
}

// Connector is the capability surface one database family implements:
// native-to-portable type mapping, incremental extraction and per-record
// normalization. Cross-family reuse happens by composing the shared cursor
// and normalizer, not by subclassing.
type Connector interface {
	Name() string

	// MapType converts a discovered column to its portable schema type.
	MapType(col schema.Column) (schema.Type, error)

	// Discover lists the columns of one table from the database catalog.
	Discover(ctx context.Context, schemaName, tableName string) ([]schema.Column, error)

	// Extract opens a streaming query over the table. checkpoint is the
	// prior run's replication-key bookmark (nil for a first run); partition
	// must be empty.
	Extract(ctx context.Context, stream *schema.Table, columns []string, checkpoint interface{}, partition map[string]interface{}) (RowIterator, error)

	// Normalize rewrites one raw row into JSON-representable values.
	// Returning false drops the row from output.
	Normalize(row RawRow, stream *schema.Table) (map[string]interface{}, bool)

	Close() error
}
