package sink

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nikolay-makurin/extractor/internal/singer"
	"github.com/nikolay-makurin/extractor/pkg/types"
)

// JSONLSink emits RECORD envelopes as JSON lines on a byte stream,
// typically stdout. The line encoder's buffer is reused across records;
// every line is written out before the next one is encoded.
type JSONLSink struct {
	out io.Writer
	enc singer.LineEncoder
}

func NewJSONLSink(out io.Writer) *JSONLSink {
	return &JSONLSink{out: out}
}

func (s *JSONLSink) Write(ctx context.Context, batch *types.Batch) error {
	for _, rec := range batch.Records {
		msg := singer.RecordMessage{
			Type:          singer.MessageRecord,
			Stream:        rec.Stream,
			Record:        rec.Values,
			TimeExtracted: rec.ExtractedAt.UTC().Format(time.RFC3339),
		}
		line, err := s.enc.EncodeLine(msg)
		if err != nil {
			return fmt.Errorf("encode record for %s: %w", rec.Stream, err)
		}
		if _, err := s.out.Write(line); err != nil {
			return fmt.Errorf("write record for %s: %w", rec.Stream, err)
		}
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if f, ok := s.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
