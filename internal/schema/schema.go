package schema

import (
	"strings"

	"github.com/goccy/go-json"
)

// Kind is the engine-agnostic type a column is described with downstream.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

const (
	FormatDateTime = "date-time"
	FormatDate     = "date"
	FormatTime     = "time"

	EncodingBase64 = "base64"
)

// Type is the portable schema type produced for one column. Immutable once
// resolved; cached per table for the lifetime of a sync.
type Type struct {
	Kind            Kind
	Nullable        bool
	Format          string
	ContentEncoding string
}

// IsTemporal reports whether values of this type carry a calendar instant,
// which decides how an incremental starting boundary is resolved.
func (t Type) IsTemporal() bool {
	return t.Format == FormatDateTime || t.Format == FormatDate
}

// MarshalJSON renders the type as a JSON-Schema property definition.
func (t Type) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 3)
	if t.Nullable {
		out["type"] = []string{string(t.Kind), "null"}
	} else {
		out["type"] = string(t.Kind)
	}
	if t.Format != "" {
		out["format"] = t.Format
	}
	if t.ContentEncoding != "" {
		out["contentEncoding"] = t.ContentEncoding
	}
	return json.Marshal(out)
}

// Column describes one column as reported by the database catalog.
type Column struct {
	Name       string
	NativeType string
	Nullable   bool
	Precision  int
	Scale      int
}

// Table is the resolved extraction unit: the stream name it is emitted
// under, its qualified source table, the discovered columns, their portable
// types and the optional replication key.
type Table struct {
	Stream         string
	Schema         string
	Name           string
	Columns        []Column
	Types          map[string]Type
	ReplicationKey string
}

// ColumnNames returns the discovered column names in catalog order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// JSONSchema renders the table as a JSON-Schema object definition for a
// SCHEMA envelope.
func (t *Table) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(t.Types))
	for name, typ := range t.Types {
		props[name] = typ
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
}

// DefaultType is the baseline native-to-portable conversion every SQL
// source needs. Engine-specific overrides run before it; anything it does
// not recognize degrades to a plain string rather than failing.
func DefaultType(col Column) Type {
	t := Type{Kind: KindString, Nullable: col.Nullable}

	switch normalizeNative(col.NativeType) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "CHARACTER", "CHARACTER VARYING", "BPCHAR",
		"TEXT", "NTEXT", "UNIQUEIDENTIFIER", "UUID", "XML", "NAME", "CITEXT":
		t.Kind = KindString
	case "TINYINT", "SMALLINT", "INT", "INTEGER", "BIGINT", "INT2", "INT4", "INT8",
		"SMALLSERIAL", "SERIAL", "BIGSERIAL":
		t.Kind = KindInteger
	case "FLOAT", "REAL", "DOUBLE PRECISION", "FLOAT4", "FLOAT8",
		"NUMERIC", "DECIMAL", "DEC":
		t.Kind = KindNumber
	case "BOOLEAN", "BOOL":
		t.Kind = KindBoolean
	case "JSON", "JSONB":
		t.Kind = KindObject
	case "ARRAY":
		t.Kind = KindArray
	case "DATE":
		t.Format = FormatDate
	case "TIME", "TIME WITHOUT TIME ZONE", "TIME WITH TIME ZONE", "TIMETZ":
		t.Format = FormatTime
	case "DATETIME", "DATETIME2", "SMALLDATETIME", "DATETIMEOFFSET",
		"TIMESTAMP WITHOUT TIME ZONE", "TIMESTAMP WITH TIME ZONE", "TIMESTAMPTZ":
		t.Format = FormatDateTime
	case "BINARY", "VARBINARY", "IMAGE", "BYTEA", "BLOB":
		t.ContentEncoding = EncodingBase64
	}
	return t
}

// normalizeNative uppercases a catalog type name and drops any length or
// precision suffix, so "varchar(50)" and "NVARCHAR" compare equal.
func normalizeNative(native string) string {
	native = strings.ToUpper(strings.TrimSpace(native))
	if i := strings.IndexByte(native, '('); i >= 0 {
		native = strings.TrimSpace(native[:i])
	}
	return native
}
