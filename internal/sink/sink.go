package sink

import (
	"context"

	"github.com/nikolay-makurin/extractor/pkg/types"
)

// Sink receives batches of normalized records. The primary sink is the
// line-delimited message stream; additional sinks mirror records into
// other stores.
type Sink interface {
	Write(ctx context.Context, batch *types.Batch) error
	Close() error
}
