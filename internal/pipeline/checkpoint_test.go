package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCheckpointManager(t *testing.T) {
	cm := NewCheckpointManager(nil)

	if v := cm.Get("users"); v != nil {
		t.Errorf("Expected nil bookmark for fresh stream, got %v", v)
	}

	cm.Advance("users", "2024-01-01T00:00:00+00:00")
	if v := cm.Get("users"); v != "2024-01-01T00:00:00+00:00" {
		t.Errorf("Expected advanced bookmark, got %v", v)
	}

	// nil keys never clobber a recorded bookmark
	cm.Advance("users", nil)
	if v := cm.Get("users"); v != "2024-01-01T00:00:00+00:00" {
		t.Errorf("Expected bookmark to survive nil advance, got %v", v)
	}

	cm.Advance("orders", int64(42))
	snap := cm.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Expected 2 bookmarks in snapshot, got %d", len(snap))
	}
	if snap["orders"] != int64(42) {
		t.Errorf("Expected orders bookmark 42, got %v", snap["orders"])
	}

	// Snapshot is a copy, not a view
	snap["orders"] = int64(99)
	if v := cm.Get("orders"); v != int64(42) {
		t.Errorf("Snapshot mutation leaked into manager: %v", v)
	}
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	cm := NewCheckpointManager(nil)
	cm.Advance("users", "2024-01-01T00:00:00+00:00")
	cm.Advance("orders", decimal.RequireFromString("1000000000000.0001"))

	if err := cm.SaveState(path); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	loaded, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if v := loaded.Get("users"); v != "2024-01-01T00:00:00+00:00" {
		t.Errorf("Expected users bookmark to round trip, got %v", v)
	}
	d, ok := loaded.Get("orders").(decimal.Decimal)
	if !ok {
		t.Fatalf("Expected orders bookmark to decode as decimal, got %T", loaded.Get("orders"))
	}
	if d.String() != "1000000000000.0001" {
		t.Errorf("Expected full-precision bookmark, got %s", d.String())
	}
}

func TestLoadStateMissingFile(t *testing.T) {
	cm, err := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Missing state file should be a first run, got: %v", err)
	}
	if v := cm.Get("users"); v != nil {
		t.Errorf("Expected empty bookmarks, got %v", v)
	}
}

func TestLoadStateMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadState(path); err == nil {
		t.Error("Expected error for malformed state file")
	}
}
