package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nikolay-makurin/extractor/internal/config"
	"github.com/nikolay-makurin/extractor/internal/schema"
	"github.com/nikolay-makurin/extractor/internal/singer"
	"github.com/nikolay-makurin/extractor/internal/sink"
	"github.com/nikolay-makurin/extractor/internal/source"
	"github.com/nikolay-makurin/extractor/internal/telemetry"
	"github.com/nikolay-makurin/extractor/pkg/types"
)

// Runner drives one table sync at a time: emit SCHEMA, pull rows from the
// connector's cursor, normalize, batch, flush to the sinks, advance the
// checkpoint and emit STATE after each accepted batch. The whole loop is a
// single-threaded synchronous pull; stopping iteration releases the
// cursor's connection.
type Runner struct {
	cfg        config.PipelineConfig
	out        io.Writer
	sinks      sink.Sink
	checkpoint *CheckpointManager
	enc        singer.LineEncoder
}

func NewRunner(cfg config.PipelineConfig, out io.Writer, sinks sink.Sink, cm *CheckpointManager) *Runner {
	return &Runner{
		cfg:        cfg,
		out:        out,
		sinks:      sinks,
		checkpoint: cm,
	}
}

// connector is the slice of the source capability surface the runner
// needs.
type connector interface {
	Extract(ctx context.Context, stream *schema.Table, columns []string, checkpoint interface{}, partition map[string]interface{}) (source.RowIterator, error)
	Normalize(row source.RawRow, stream *schema.Table) (map[string]interface{}, bool)
}

// SyncStream extracts one table end to end. Errors are fatal for this
// stream and propagated unmodified; the caller decides whether other
// streams continue.
func (r *Runner) SyncStream(ctx context.Context, conn connector, stream *schema.Table, columns []string) error {
	start := time.Now()
	defer func() {
		telemetry.SyncDuration.WithLabelValues(stream.Stream).Observe(time.Since(start).Seconds())
	}()

	if err := r.emitSchema(stream); err != nil {
		return err
	}

	it, err := conn.Extract(ctx, stream, columns, r.checkpoint.Get(stream.Stream), nil)
	if err != nil {
		return err
	}
	defer it.Close()

	batch := &types.Batch{Records: make([]*types.Record, 0, r.cfg.BatchSize)}
	for it.Next() {
		telemetry.RowsExtracted.WithLabelValues(stream.Stream).Inc()

		values, ok := conn.Normalize(it.Row(), stream)
		if !ok {
			continue
		}
		rec := &types.Record{
			Stream:      stream.Stream,
			Values:      values,
			ExtractedAt: time.Now().UTC(),
		}
		if stream.ReplicationKey != "" {
			rec.Key = values[stream.ReplicationKey]
		}
		batch.Records = append(batch.Records, rec)
		if rec.Key != nil {
			batch.LastKey = rec.Key
		}

		if len(batch.Records) >= r.cfg.BatchSize {
			if err := r.flush(ctx, stream, batch); err != nil {
				return err
			}
		}
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("stream %q: %w", stream.Stream, err)
	}
	return r.flush(ctx, stream, batch)
}

func (r *Runner) flush(ctx context.Context, stream *schema.Table, batch *types.Batch) error {
	if len(batch.Records) == 0 {
		return nil
	}

	start := time.Now()
	err := r.sinks.Write(ctx, batch)
	telemetry.SinkLatency.WithLabelValues(stream.Stream).Observe(time.Since(start).Seconds())
	telemetry.BatchSize.WithLabelValues(stream.Stream).Observe(float64(len(batch.Records)))

	if err != nil {
		telemetry.RecordsEmitted.WithLabelValues("error", stream.Stream).Add(float64(len(batch.Records)))
		return fmt.Errorf("stream %q: flush: %w", stream.Stream, err)
	}
	telemetry.RecordsEmitted.WithLabelValues("success", stream.Stream).Add(float64(len(batch.Records)))

	if batch.LastKey != nil {
		r.checkpoint.Advance(stream.Stream, batch.LastKey)
		if err := r.emitState(); err != nil {
			return err
		}
	}

	batch.Records = batch.Records[:0]
	batch.LastKey = nil
	return nil
}

func (r *Runner) emitSchema(stream *schema.Table) error {
	msg := singer.SchemaMessage{
		Type:          singer.MessageSchema,
		Stream:        stream.Stream,
		Schema:        stream.JSONSchema(),
		KeyProperties: []string{},
	}
	if stream.ReplicationKey != "" {
		msg.BookmarkProperties = []string{stream.ReplicationKey}
	}
	return r.writeLine(msg)
}

func (r *Runner) emitState() error {
	return r.writeLine(singer.NewStateMessage(r.checkpoint.Snapshot()))
}

func (r *Runner) writeLine(v interface{}) error {
	line, err := r.enc.EncodeLine(v)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if _, err := r.out.Write(line); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}
