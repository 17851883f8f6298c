// Package singer encodes extraction output as line-delimited Singer-style
// protocol messages: RECORD for data, SCHEMA for stream structure, STATE
// for resumable checkpoints.
package singer

type MessageType string

const (
	MessageRecord MessageType = "RECORD"
	MessageSchema MessageType = "SCHEMA"
	MessageState  MessageType = "STATE"
)

type RecordMessage struct {
	Type          MessageType            `json:"type"`
	Stream        string                 `json:"stream"`
	Record        map[string]interface{} `json:"record"`
	TimeExtracted string                 `json:"time_extracted,omitempty"`
}

type SchemaMessage struct {
	Type               MessageType            `json:"type"`
	Stream             string                 `json:"stream"`
	Schema             map[string]interface{} `json:"schema"`
	KeyProperties      []string               `json:"key_properties"`
	BookmarkProperties []string               `json:"bookmark_properties,omitempty"`
}

type StateMessage struct {
	Type  MessageType            `json:"type"`
	Value map[string]interface{} `json:"value"`
}

// NewStateMessage wraps per-stream bookmarks in a STATE envelope.
func NewStateMessage(bookmarks map[string]interface{}) StateMessage {
	return StateMessage{
		Type:  MessageState,
		Value: map[string]interface{}{"bookmarks": bookmarks},
	}
}
