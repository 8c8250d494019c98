// Package checkpoint persists pipeline progress to a local JSON file so a
// restarted run skips finished collections and resumes mid-collection.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"
)

// Checkpoint is the durable progress marker. A single (collection, offset)
// pair fully describes in-flight progress because collections are processed
// one at a time.
type Checkpoint struct {
	LastCollection       string    `json:"lastCollection"`
	LastRecordOffset     int       `json:"lastRecordOffset"`
	CompletedCollections []string  `json:"completedCollections"`
	TotalProcessed       int       `json:"totalProcessed"`
	Timestamp            time.Time `json:"timestamp"`
}

type Manager struct {
	path string
	cp   Checkpoint
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads a prior run's checkpoint. Returns false when none exists.
func (m *Manager) Load() (bool, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &m.cp); err != nil {
		return false, fmt.Errorf("corrupt checkpoint file %s: %w", m.path, err)
	}
	slog.Info("Checkpoint loaded",
		"lastCollection", m.cp.LastCollection,
		"lastRecordOffset", m.cp.LastRecordOffset,
		"completed", len(m.cp.CompletedCollections),
		"totalProcessed", m.cp.TotalProcessed)
	return true, nil
}

func (m *Manager) Save() error {
	m.cp.Timestamp = time.Now()
	data, err := json.MarshalIndent(m.cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Clear removes the checkpoint file entirely; used when an invocation
// finishes all targeted collections.
func (m *Manager) Clear() error {
	m.cp = Checkpoint{}
	err := os.Remove(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Completed reports whether a collection finished in a prior (interrupted)
// invocation and must be skipped.
func (m *Manager) Completed(collectionID string) bool {
	return slices.Contains(m.cp.CompletedCollections, collectionID)
}

// ResumeOffset returns the record offset to resume from, 0 for a fresh
// collection.
func (m *Manager) ResumeOffset(collectionID string) int {
	if m.cp.LastCollection == collectionID && m.cp.LastRecordOffset > 0 {
		return m.cp.LastRecordOffset
	}
	return 0
}

// MarkProgress records mid-collection progress after a committed batch.
func (m *Manager) MarkProgress(collectionID string, offset, totalProcessed int) {
	m.cp.LastCollection = collectionID
	m.cp.LastRecordOffset = offset
	m.cp.TotalProcessed = totalProcessed
}

// MarkComplete adds the collection to the completed set and clears any
// mid-collection state.
func (m *Manager) MarkComplete(collectionID string) {
	if !m.Completed(collectionID) {
		m.cp.CompletedCollections = append(m.cp.CompletedCollections, collectionID)
	}
	if m.cp.LastCollection == collectionID {
		m.cp.LastCollection = ""
		m.cp.LastRecordOffset = 0
	}
}

// ClearCollection drops one collection's completion mark, forcing a rescan
// of that collection only.
func (m *Manager) ClearCollection(collectionID string) {
	m.cp.CompletedCollections = slices.DeleteFunc(m.cp.CompletedCollections, func(s string) bool {
		return s == collectionID
	})
	if m.cp.LastCollection == collectionID {
		m.cp.LastCollection = ""
		m.cp.LastRecordOffset = 0
	}
}

// State returns a copy of the current checkpoint, for logging and tests.
func (m *Manager) State() Checkpoint {
	cp := m.cp
	cp.CompletedCollections = slices.Clone(m.cp.CompletedCollections)
	return cp
}
