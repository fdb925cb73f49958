// Package timer implements the prayer stopwatch: a start/pause/reset state
// machine whose state is persisted as a snapshot so a run survives the
// process being suspended or killed.
package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"prayer-tracker/internal/shared/kvstore"
)

// MaxElapsedSeconds bounds a stored elapsed value; larger ones are treated as
// corrupt. One hundred years.
const MaxElapsedSeconds int64 = 100 * 365 * 24 * 60 * 60

// Snapshot is the persisted minimum needed to rebuild a timer.
type Snapshot struct {
	ElapsedSeconds       int64     `json:"elapsed_seconds"`
	IsRunning            bool      `json:"is_running"`
	LastPersistTimestamp time.Time `json:"last_persist_timestamp"`
}

// IdleSnapshot is the snapshot of a reset timer.
func IdleSnapshot(now time.Time) Snapshot {
	return Snapshot{LastPersistTimestamp: now}
}

// Encode serializes the snapshot as JSON.
func (s Snapshot) Encode() ([]byte, error) {
	s.LastPersistTimestamp = s.LastPersistTimestamp.UTC()
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a JSON snapshot. Negative elapsed values are clamped
// to zero; values above MaxElapsedSeconds are rejected.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.ElapsedSeconds < 0 {
		s.ElapsedSeconds = 0
	}
	if s.ElapsedSeconds > MaxElapsedSeconds {
		return Snapshot{}, fmt.Errorf("decode snapshot: elapsed %d out of range", s.ElapsedSeconds)
	}
	return s, nil
}

// Reconstruct returns the true elapsed seconds of the snapshot's timer at now.
// A paused snapshot is returned as-is. For a running snapshot the whole
// seconds since it was written are added; if the clock has moved backward the
// result is held at the snapshot's value rather than decreasing. The sum
// saturates at math.MaxInt64.
func Reconstruct(s Snapshot, now time.Time) int64 {
	if !s.IsRunning {
		return s.ElapsedSeconds
	}
	delta := int64(now.Sub(s.LastPersistTimestamp) / time.Second)
	if delta < 0 {
		return s.ElapsedSeconds
	}
	if delta > math.MaxInt64-s.ElapsedSeconds {
		return math.MaxInt64
	}
	return s.ElapsedSeconds + delta
}

// State is the mode a timer rebuilt from s would be in.
func (s Snapshot) State() State {
	switch {
	case s.IsRunning:
		return StateRunning
	case s.ElapsedSeconds > 0:
		return StatePaused
	default:
		return StateIdle
	}
}

// Peek reads the persisted timer and reports it as of now without writing
// anything back. A missing snapshot reads as an idle timer.
func Peek(ctx context.Context, store kvstore.Store, key string, now time.Time) (Status, error) {
	data, err := store.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Status{State: StateIdle}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return Status{}, err
	}
	return Status{State: snap.State(), ElapsedSeconds: Reconstruct(snap, now)}, nil
}
