package pipeline

import (
	"fmt"
	"os"
	"sync"

	"github.com/nikolay-makurin/extractor/internal/singer"
)

// CheckpointManager tracks the last delivered replication-key value per
// stream. Extraction is key-ascending within a stream, so the bookmark only
// moves forward; it is advanced after a batch has been accepted by every
// sink, never before, making a resume re-read at most the boundary row.
type CheckpointManager struct {
	mu        sync.Mutex
	bookmarks map[string]interface{}
}

func NewCheckpointManager(seed map[string]interface{}) *CheckpointManager {
	if seed == nil {
		seed = make(map[string]interface{})
	}
	return &CheckpointManager{bookmarks: seed}
}

// Get returns the stream's bookmark, nil when none has been recorded.
func (cm *CheckpointManager) Get(stream string) interface{} {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.bookmarks[stream]
}

// Advance records the stream's newest delivered key value.
func (cm *CheckpointManager) Advance(stream string, key interface{}) {
	if key == nil {
		return
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.bookmarks[stream] = key
}

// Snapshot copies the current bookmarks for a STATE envelope.
func (cm *CheckpointManager) Snapshot() map[string]interface{} {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	out := make(map[string]interface{}, len(cm.bookmarks))
	for k, v := range cm.bookmarks {
		out[k] = v
	}
	return out
}

// LoadState seeds a checkpoint manager from a prior run's state file. A
// missing file is a first run, not an error.
func LoadState(path string) (*CheckpointManager, error) {
	if path == "" {
		return NewCheckpointManager(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewCheckpointManager(nil), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	state, err := singer.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	bookmarks, _ := state["bookmarks"].(map[string]interface{})
	return NewCheckpointManager(bookmarks), nil
}

// SaveState persists the current bookmarks so the next run resumes from
// them.
func (cm *CheckpointManager) SaveState(path string) error {
	if path == "" {
		return nil
	}
	data, err := singer.Encode(map[string]interface{}{"bookmarks": cm.Snapshot()})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
