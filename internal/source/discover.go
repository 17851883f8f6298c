package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/nikolay-makurin/extractor/internal/schema"
)

// Discover lists the columns of one table from the standard
// information_schema catalog, in ordinal position order. Identifiers are
// lowercase so the same query works against engines that fold unquoted
// names down as well as case-insensitive ones.
func (c *Cursor) Discover(ctx context.Context, schemaName, tableName string) ([]schema.Column, error) {
	ds := c.dialect.
		From(goqu.S("information_schema").Table("columns")).
		Select(
			goqu.C("column_name"),
			goqu.C("data_type"),
			goqu.C("is_nullable"),
			goqu.C("numeric_precision"),
			goqu.C("numeric_scale"),
		).
		Where(goqu.C("table_name").Eq(tableName)).
		Order(goqu.C("ordinal_position").Asc())
	if schemaName != "" {
		ds = ds.Where(goqu.C("table_schema").Eq(schemaName))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("discover %s: build query: %w", tableName, err)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("discover %s: query: %w", tableName, err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			name, dataType, nullable string
			precision, scale         sql.NullInt64
		)
		if err := rows.Scan(&name, &dataType, &nullable, &precision, &scale); err != nil {
			return nil, fmt.Errorf("discover %s: scan: %w", tableName, err)
		}
		cols = append(cols, schema.Column{
			Name:       name,
			NativeType: dataType,
			Nullable:   nullable == "YES",
			Precision:  int(precision.Int64),
			Scale:      int(scale.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("discover %s: %w", tableName, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("discover %s: table not found in catalog", tableName)
	}
	return cols, nil
}
