package sink

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nikolay-makurin/extractor/pkg/types"
)

func TestJSONLSinkWrite(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONLSink(&buf)

	extracted := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	batch := &types.Batch{
		Records: []*types.Record{
			{
				Stream: "orders",
				Values: map[string]interface{}{
					"id":     int64(1),
					"amount": decimal.RequireFromString("99.99"),
				},
				ExtractedAt: extracted,
			},
			{
				Stream:      "orders",
				Values:      map[string]interface{}{"id": int64(2), "amount": nil},
				ExtractedAt: extracted,
			},
		},
	}

	if err := s.Write(context.Background(), batch); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	first := lines[0]
	if !strings.Contains(first, `"type":"RECORD"`) || !strings.Contains(first, `"stream":"orders"`) {
		t.Errorf("Unexpected envelope: %s", first)
	}
	if !strings.Contains(first, `"amount":99.99`) {
		t.Errorf("Expected exact bare number, got: %s", first)
	}
	if !strings.Contains(first, `"time_extracted":"2024-06-15T10:30:00Z"`) {
		t.Errorf("Expected extraction timestamp, got: %s", first)
	}
	if !strings.Contains(lines[1], `"amount":null`) {
		t.Errorf("Expected explicit null, got: %s", lines[1])
	}
}

func TestJSONLSinkCloseFlushes(t *testing.T) {
	fw := &flushRecorder{}
	s := NewJSONLSink(fw)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !fw.flushed {
		t.Error("Expected Close to flush a buffered writer")
	}
}

type flushRecorder struct {
	flushed bool
}

func (f *flushRecorder) Write(p []byte) (int, error) { return len(p), nil }
func (f *flushRecorder) Flush() error                { f.flushed = true; return nil }
