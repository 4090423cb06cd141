package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// ErrRunNotFound is returned when no manifest exists for a run id.
var ErrRunNotFound = errors.New("run manifest not found")

// RunManifest records what a run read, wrote and how it ended.
type RunManifest struct {
	RunID       string         `json:"runId"`
	Seed        int64          `json:"seed"`
	InputDir    string         `json:"inputDir"`
	Layouts     []string       `json:"layouts"`
	Files       []string       `json:"files"`
	Rows        map[string]int `json:"rows"`
	Status      RunStatus      `json:"status"`
	Message     string         `json:"message,omitempty"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// RunKey returns the document id of a run manifest.
func RunKey(runID string) string {
	return "run::" + runID
}

// Finish marks the manifest completed, or failed when runErr is not nil.
func (m *RunManifest) Finish(now time.Time, runErr error) {
	t := now.UTC()
	m.CompletedAt = &t
	if runErr != nil {
		m.Status = StatusFailed
		m.Message = runErr.Error()
		return
	}
	m.Status = StatusCompleted
	m.Message = ""
}

// ManifestStore persists run manifests
type ManifestStore struct {
	collection *gocb.Collection
}

// NewManifestStore creates a store over the given collection
func NewManifestStore(collection *gocb.Collection) *ManifestStore {
	return &ManifestStore{collection: collection}
}

// Begin records a new running manifest. Reusing a run id is an error.
func (s *ManifestStore) Begin(ctx context.Context, m *RunManifest) error {
	m.Status = StatusRunning
	_, err := s.collection.Insert(RunKey(m.RunID), m, &gocb.InsertOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", m.RunID, err)
	}
	return nil
}

// Complete stores the final state of a manifest
func (s *ManifestStore) Complete(ctx context.Context, m *RunManifest) error {
	_, err := s.collection.Upsert(RunKey(m.RunID), m, &gocb.UpsertOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", m.RunID, err)
	}
	return nil
}

// Get loads the manifest of a run
func (s *ManifestStore) Get(ctx context.Context, runID string) (*RunManifest, error) {
	res, err := s.collection.Get(RunKey(runID), &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	var m RunManifest
	if err := res.Content(&m); err != nil {
		return nil, fmt.Errorf("failed to parse run manifest: %w", err)
	}
	return &m, nil
}
