package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/nikolay-makurin/extractor/internal/config"
	"github.com/nikolay-makurin/extractor/internal/schema"
	"github.com/nikolay-makurin/extractor/internal/source"
)

const defaultPort = 1433

// Connector implements the extraction capabilities for the SQL Server
// family. The engine sorts nulls first in ascending order natively, so the
// shared cursor is built without an explicit NULLS FIRST clause.
type Connector struct {
	db     *sql.DB
	cursor *source.Cursor
	strict bool
}

// New opens a SQL Server connection from the resolved connection
// descriptor. The pooling bound is applied here, once, instead of mutating
// any driver-global state.
func New(cfg config.ConnectionConfig, startDate time.Time, strict bool) (*Connector, error) {
	db, err := sql.Open("sqlserver", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	return &Connector{
		db:     db,
		cursor: source.NewCursor(db, goqu.Dialect("sqlserver"), false, startDate),
		strict: strict,
	}, nil
}

// DSN builds the sqlserver:// connection URL from the descriptor.
func DSN(cfg config.ConnectionConfig) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	q := url.Values{}
	q.Set("database", cfg.Database)
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (c *Connector) Name() string { return "mssql" }

// MapType applies the SQL Server overrides ahead of the baseline table:
// exact numerics split on scale, money types are numbers, BIT is a
// boolean, and rowversion tokens are opaque strings rather than time
// values. In strict mode the deployment supplies all mappings externally
// and reaching this mapper at all is reported as a gap.
func (c *Connector) MapType(col schema.Column) (schema.Type, error) {
	if c.strict {
		return schema.Type{}, fmt.Errorf("mssql: %s: %w", col.NativeType, source.ErrMapperNotImplemented)
	}

	t := schema.Type{Nullable: col.Nullable}
	switch strings.ToUpper(col.NativeType) {
	case "NUMERIC", "DECIMAL":
		if col.Scale == 0 {
			t.Kind = schema.KindInteger
		} else {
			t.Kind = schema.KindNumber
		}
		return t, nil
	case "MONEY", "SMALLMONEY":
		t.Kind = schema.KindNumber
		return t, nil
	case "BIT":
		t.Kind = schema.KindBoolean
		return t, nil
	case "ROWVERSION", "TIMESTAMP":
		// Binary version tokens, not calendar timestamps.
		t.Kind = schema.KindString
		return t, nil
	}
	return schema.DefaultType(col), nil
}

func (c *Connector) Discover(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	return c.cursor.Discover(ctx, schemaName, tableName)
}

func (c *Connector) Extract(ctx context.Context, stream *schema.Table, columns []string, checkpoint interface{}, partition map[string]interface{}) (source.RowIterator, error) {
	return c.cursor.Extract(ctx, stream, columns, checkpoint, partition)
}

func (c *Connector) Normalize(row source.RawRow, stream *schema.Table) (map[string]interface{}, bool) {
	return source.Normalize(row, stream)
}

func (c *Connector) Close() error { return c.db.Close() }
