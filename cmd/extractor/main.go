package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikolay-makurin/extractor/internal/config"
	"github.com/nikolay-makurin/extractor/internal/pipeline"
	"github.com/nikolay-makurin/extractor/internal/schema"
	"github.com/nikolay-makurin/extractor/internal/sink"
	"github.com/nikolay-makurin/extractor/internal/source"
	"github.com/nikolay-makurin/extractor/internal/source/mssql"
	"github.com/nikolay-makurin/extractor/internal/source/postgres"
	"github.com/nikolay-makurin/extractor/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Telemetry
	telemetry.Init(cfg.Telemetry.Address)
	slog.Info("Starting extractor", "driver", cfg.Connection.Driver, "streams", len(cfg.Streams))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg))
}

func run(ctx context.Context, cfg *config.Config) int {
	startDate, _ := cfg.ParseStartDate()

	// 3. Checkpoints
	cm, err := pipeline.LoadState(cfg.StateFile)
	if err != nil {
		slog.Error("Failed to load state", "error", err)
		return 1
	}

	// 4. Connector
	var conn source.Connector
	switch cfg.Connection.Driver {
	case config.DriverPostgres:
		conn, err = postgres.New(cfg.Connection, startDate, cfg.StrictTypes)
	default:
		conn, err = mssql.New(cfg.Connection, startDate, cfg.StrictTypes)
	}
	if err != nil {
		slog.Error("Failed to init connector", "driver", cfg.Connection.Driver, "error", err)
		return 1
	}
	defer conn.Close()

	// 5. Sinks: the message stream on stdout, plus any configured mirrors.
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	sinks := []sink.Sink{sink.NewJSONLSink(out)}
	for _, t := range cfg.Targets.ClickHouse {
		s, err := sink.NewClickHouseSink(t)
		if err != nil {
			slog.Error("Failed to init clickhouse sink", "name", t.Name, "error", err)
			return 1
		}
		sinks = append(sinks, sink.NewRetrySink(t.Name, s, t.Retry))
		slog.Info("Initialized ClickHouse sink", "name", t.Name)
	}
	broadcastSink := sink.NewBroadcastSink(sinks)
	defer broadcastSink.Close()

	// 6. Runner
	runner := pipeline.NewRunner(cfg.Pipeline, out, broadcastSink, cm)

	// 7. Sync streams one at a time. A failed stream aborts only itself.
	exitCode := 0
	for _, sc := range cfg.Streams {
		if ctx.Err() != nil {
			break
		}
		tbl, err := resolveStream(ctx, conn, sc)
		if err != nil {
			slog.Error("Failed to resolve stream", "stream", sc.Name, "error", err)
			exitCode = 1
			continue
		}

		start := time.Now()
		if err := runner.SyncStream(ctx, conn, tbl, sc.Columns); err != nil {
			slog.Error("Stream sync failed", "stream", sc.Name, "error", err)
			exitCode = 1
			continue
		}
		slog.Info("Stream synced", "stream", sc.Name, "duration", time.Since(start))
	}

	// 8. Persist checkpoints for the next run.
	if err := cm.SaveState(cfg.StateFile); err != nil {
		slog.Error("Failed to save state", "error", err)
		exitCode = 1
	}
	return exitCode
}

// resolveStream discovers the table's columns and maps each to its
// portable type, producing the cached per-sync schema the cursor and
// normalizer work from.
func resolveStream(ctx context.Context, conn source.Connector, sc config.StreamConfig) (*schema.Table, error) {
	cols, err := conn.Discover(ctx, sc.Schema, sc.Table)
	if err != nil {
		return nil, err
	}
	if len(sc.Columns) > 0 {
		cols = selectColumns(cols, sc.Columns)
	}

	types := make(map[string]schema.Type, len(cols))
	for _, col := range cols {
		t, err := conn.MapType(col)
		if err != nil {
			return nil, err
		}
		types[col.Name] = t
	}

	return &schema.Table{
		Stream:         sc.Name,
		Schema:         sc.Schema,
		Name:           sc.Table,
		Columns:        cols,
		Types:          types,
		ReplicationKey: sc.ReplicationKey,
	}, nil
}

func selectColumns(cols []schema.Column, selected []string) []schema.Column {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}
	out := cols[:0]
	for _, col := range cols {
		if want[col.Name] {
			out = append(out, col)
		}
	}
	return out
}
