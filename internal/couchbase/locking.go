package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// LockKey is the document id of the output lock.
const LockKey = "dischargefmt::lock"

// DefaultLockTTL bounds how long a crashed run can hold the lock.
const DefaultLockTTL = time.Hour

// ErrLocked is returned when another run holds the output lock.
var ErrLocked = errors.New("output lock held by another run")

// LockDocument is stored under LockKey while a run writes output.
type LockDocument struct {
	Owner     string    `json:"owner"`
	RunID     string    `json:"runId"`
	LockedAt  time.Time `json:"lockedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the lock is past its expiry at now.
func (d LockDocument) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && now.After(d.ExpiresAt)
}

// RunLock serializes runs writing into the same output directory.
type RunLock struct {
	collection *gocb.Collection
	ttl        time.Duration
	cas        gocb.Cas
	runID      string
}

// NewRunLock creates a lock over the given collection
func NewRunLock(collection *gocb.Collection, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RunLock{collection: collection, ttl: ttl}
}

// Acquire takes the lock for runID. A stale lock left by a crashed run is
// removed and the insert retried once.
func (l *RunLock) Acquire(ctx context.Context, runID, owner string) error {
	if l.runID != "" {
		return fmt.Errorf("lock already held by this process for run %s", l.runID)
	}

	for attempt := 0; attempt < 2; attempt++ {
		now := time.Now().UTC()
		doc := LockDocument{Owner: owner, RunID: runID, LockedAt: now, ExpiresAt: now.Add(l.ttl)}
		res, err := l.collection.Insert(LockKey, doc, &gocb.InsertOptions{Expiry: l.ttl, Context: ctx})
		if err == nil {
			l.cas = res.Cas()
			l.runID = runID
			log.Info().Str("runId", runID).Time("expiresAt", doc.ExpiresAt).Msg("Output lock acquired")
			return nil
		}
		if !errors.Is(err, gocb.ErrDocumentExists) {
			return fmt.Errorf("failed to create lock document: %w", err)
		}

		held, cas, err := l.current(ctx)
		if err != nil {
			return err
		}
		if held == nil {
			continue
		}
		if !held.Expired(now) {
			return fmt.Errorf("%w: run %s since %s", ErrLocked, held.RunID, held.LockedAt.Format(time.RFC3339))
		}
		log.Warn().Str("staleRunId", held.RunID).Time("expiresAt", held.ExpiresAt).Msg("Removing expired output lock")
		if _, err := l.collection.Remove(LockKey, &gocb.RemoveOptions{Cas: cas, Context: ctx}); err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
			return fmt.Errorf("failed to remove expired lock: %w", err)
		}
	}
	return ErrLocked
}

func (l *RunLock) current(ctx context.Context) (*LockDocument, gocb.Cas, error) {
	res, err := l.collection.Get(LockKey, &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to check lock status: %w", err)
	}
	var doc LockDocument
	if err := res.Content(&doc); err != nil {
		return nil, 0, fmt.Errorf("failed to parse lock document: %w", err)
	}
	return &doc, res.Cas(), nil
}

// Release removes the lock if this process holds it.
func (l *RunLock) Release(ctx context.Context) error {
	if l.runID == "" {
		return nil
	}
	_, err := l.collection.Remove(LockKey, &gocb.RemoveOptions{Cas: l.cas, Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return fmt.Errorf("failed to remove lock document: %w", err)
	}
	log.Info().Str("runId", l.runID).Msg("Output lock released")
	l.runID = ""
	l.cas = 0
	return nil
}

// Held reports whether this process holds the lock
func (l *RunLock) Held() bool {
	return l.runID != ""
}
