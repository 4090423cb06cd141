// Package couchbase records runs in a Couchbase bucket and serializes runs
// that write to the same output directory.
package couchbase

import (
	"context"
	"os"
)

// Client bundles the connection, the output lock and the manifest store
type Client struct {
	connManager *ConnectionManager
	lock        *RunLock
	manifests   *ManifestStore
	owner       string
}

// NewClient connects to the registry bucket
func NewClient(cfg Config) (*Client, error) {
	connManager, err := NewConnectionManager(cfg)
	if err != nil {
		return nil, err
	}

	owner, _ := os.Hostname()
	col := connManager.Collection()
	return &Client{
		connManager: connManager,
		lock:        NewRunLock(col, DefaultLockTTL),
		manifests:   NewManifestStore(col),
		owner:       owner,
	}, nil
}

// Close releases a held lock and closes the connection
func (c *Client) Close() error {
	if c.lock.Held() {
		_ = c.lock.Release(context.Background())
	}
	return c.connManager.Close()
}

// Lock takes the output lock for the run
func (c *Client) Lock(ctx context.Context, runID string) error {
	return c.lock.Acquire(ctx, runID, c.owner)
}

// Unlock releases the output lock
func (c *Client) Unlock(ctx context.Context) error {
	return c.lock.Release(ctx)
}

// BeginRun records the start of a run
func (c *Client) BeginRun(ctx context.Context, m *RunManifest) error {
	return c.manifests.Begin(ctx, m)
}

// CompleteRun records the end state of a run
func (c *Client) CompleteRun(ctx context.Context, m *RunManifest) error {
	return c.manifests.Complete(ctx, m)
}

// GetRun loads a recorded run
func (c *Client) GetRun(ctx context.Context, runID string) (*RunManifest, error) {
	return c.manifests.Get(ctx, runID)
}
