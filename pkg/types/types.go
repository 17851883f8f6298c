package types

import "time"

// Record is one normalized row ready for serialization. Values hold only
// JSON-representable kinds plus decimal.Decimal, which the singer encoder
// turns into an exact JSON number.
type Record struct {
	Stream      string
	Values      map[string]interface{}
	Key         interface{} // normalized replication-key value, nil when the stream has none
	ExtractedAt time.Time
}

// Batch groups records delivered to sinks in one write. Rows arrive in
// ascending replication-key order, so LastKey is the batch's checkpoint
// candidate.
type Batch struct {
	Records []*Record
	LastKey interface{}
}
