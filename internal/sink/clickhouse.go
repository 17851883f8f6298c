package sink

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/nikolay-makurin/extractor/internal/config"
	"github.com/nikolay-makurin/extractor/pkg/types"
)

// ClickHouseSink mirrors extracted records into ClickHouse tables named
// after their stream, one prepared batch insert per stream per flush.
type ClickHouseSink struct {
	conn driver.Conn
}

func NewClickHouseSink(cfg config.ClickHouseTarget) (*ClickHouseSink, error) {
	opts, err := clickhouse.ParseDSN(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}
	return &ClickHouseSink{conn: conn}, nil
}

func (s *ClickHouseSink) Write(ctx context.Context, batch *types.Batch) error {
	// Group by stream
	byStream := make(map[string][]*types.Record)
	for _, rec := range batch.Records {
		byStream[rec.Stream] = append(byStream[rec.Stream], rec)
	}

	for stream, records := range byStream {
		// All records of a stream share one resolved schema, so the first
		// record's columns describe the whole group.
		cols := make([]string, 0, len(records[0].Values))
		for k := range records[0].Values {
			cols = append(cols, k)
		}
		sort.Strings(cols)

		query := fmt.Sprintf("INSERT INTO %s (%s)", stream, strings.Join(cols, ", "))
		chBatch, err := s.conn.PrepareBatch(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare batch failed for %s: %w", stream, err)
		}

		for _, rec := range records {
			vals := make([]interface{}, len(cols))
			for i, col := range cols {
				vals[i] = rec.Values[col]
			}
			if err := chBatch.Append(vals...); err != nil {
				return err
			}
		}

		if err := chBatch.Send(); err != nil {
			return fmt.Errorf("batch send failed for %s: %w", stream, err)
		}
	}
	return nil
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
