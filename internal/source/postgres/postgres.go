package postgres

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
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nikolay-makurin/extractor/internal/config"
	"github.com/nikolay-makurin/extractor/internal/schema"
	"github.com/nikolay-makurin/extractor/internal/source"
)

const defaultPort = 5432

// Connector implements the extraction capabilities for PostgreSQL through
// the pgx stdlib driver. Ascending order places nulls last by default
// here, so the shared cursor forces NULLS FIRST to keep resumption
// ordering identical across engines.
type Connector struct {
	db     *sql.DB
	cursor *source.Cursor
	strict bool
}

// New opens a PostgreSQL connection from the resolved connection
// descriptor, applying the explicit pooling bound once.
func New(cfg config.ConnectionConfig, startDate time.Time, strict bool) (*Connector, error) {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	return &Connector{
		db:     db,
		cursor: source.NewCursor(db, goqu.Dialect("postgres"), true, startDate),
		strict: strict,
	}, nil
}

// DSN builds the postgres:// connection URL from the descriptor.
func DSN(cfg config.ConnectionConfig) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (c *Connector) Name() string { return "postgres" }

// MapType applies the PostgreSQL overrides ahead of the baseline table:
// constrained exact numerics split on scale and the money type is a
// number. Strict mode behaves as in the SQL Server connector.
func (c *Connector) MapType(col schema.Column) (schema.Type, error) {
	if c.strict {
		return schema.Type{}, fmt.Errorf("postgres: %s: %w", col.NativeType, source.ErrMapperNotImplemented)
	}

	t := schema.Type{Nullable: col.Nullable}
	switch strings.ToUpper(col.NativeType) {
	case "NUMERIC", "DECIMAL":
		// Unconstrained numeric reports no precision; only a declared
		// zero scale is a true integer column.
		if col.Precision > 0 && col.Scale == 0 {
			t.Kind = schema.KindInteger
		} else {
			t.Kind = schema.KindNumber
		}
		return t, nil
	case "MONEY":
		t.Kind = schema.KindNumber
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
