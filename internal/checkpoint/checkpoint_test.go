package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sync_progress.json")
	return NewManager(path), path
}

func TestFreshStart(t *testing.T) {
	m, _ := newTestManager(t)

	found, err := m.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if found {
		t.Error("Expected no checkpoint on fresh start")
	}
	if m.Completed("Spring") {
		t.Error("No collection should be completed on fresh start")
	}
	if m.ResumeOffset("Spring") != 0 {
		t.Error("Resume offset should be 0 on fresh start")
	}
}

func TestProgressRoundTrip(t *testing.T) {
	m, path := newTestManager(t)

	m.MarkProgress("Spring", 7, 7)
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewManager(path)
	found, err := reloaded.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !found {
		t.Fatal("Expected checkpoint to exist after Save")
	}
	if got := reloaded.ResumeOffset("Spring"); got != 7 {
		t.Errorf("Expected resume offset 7, got %d", got)
	}
	if got := reloaded.ResumeOffset("Autumn"); got != 0 {
		t.Errorf("Other collections must not resume, got offset %d", got)
	}
}

func TestMarkComplete(t *testing.T) {
	m, path := newTestManager(t)

	m.MarkProgress("Spring", 12, 12)
	m.MarkComplete("Spring")

	if !m.Completed("Spring") {
		t.Error("Expected Spring to be completed")
	}
	if m.ResumeOffset("Spring") != 0 {
		t.Error("Completion must clear the mid-collection offset")
	}

	// Completing twice must not duplicate the entry.
	m.MarkComplete("Spring")
	if n := len(m.State().CompletedCollections); n != 1 {
		t.Errorf("Expected 1 completed collection, got %d", n)
	}

	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded := NewManager(path)
	if _, err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reloaded.Completed("Spring") {
		t.Error("Completion must survive reload")
	}
}

func TestClearCollection(t *testing.T) {
	m, _ := newTestManager(t)

	m.MarkComplete("Spring")
	m.MarkComplete("Autumn")
	m.ClearCollection("Spring")

	if m.Completed("Spring") {
		t.Error("Expected Spring completion to be cleared")
	}
	if !m.Completed("Autumn") {
		t.Error("Clearing one collection must not affect others")
	}
}

func TestClear(t *testing.T) {
	m, path := newTestManager(t)

	m.MarkProgress("Spring", 3, 3)
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := m.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected checkpoint file to be removed")
	}
	if m.ResumeOffset("Spring") != 0 {
		t.Error("Expected in-memory state to be reset")
	}

	// Clearing an already-missing file is not an error.
	if err := m.Clear(); err != nil {
		t.Errorf("Second Clear failed: %v", err)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	m, path := newTestManager(t)

	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}
	if _, err := m.Load(); err == nil {
		t.Error("Expected error for corrupt checkpoint file")
	}
}
