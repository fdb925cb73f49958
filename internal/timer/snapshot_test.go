package timer

import (
	"context"
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"

	"prayer-tracker/internal/shared/kvstore"
)

var t0 = time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)

func TestReconstruct(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		now  time.Time
		want int64
	}{
		{"paused is authoritative", Snapshot{42, false, t0}, t0.Add(time.Hour), 42},
		{"running adds delta", Snapshot{10, true, t0}, t0.Add(125 * time.Second), 135},
		{"running floors partial seconds", Snapshot{0, true, t0}, t0.Add(1999 * time.Millisecond), 1},
		{"running at persist instant", Snapshot{7, true, t0}, t0, 7},
		// A clock set backward must never make the timer lose time.
		{"backward clock is clamped", Snapshot{60, true, t0}, t0.Add(-10 * time.Minute), 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reconstruct(tt.snap, tt.now); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSnapshot_EncodeDecode(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	in := Snapshot{ElapsedSeconds: 90, IsRunning: true, LastPersistTimestamp: time.Date(2024, 2, 1, 1, 2, 3, 400, loc)}

	data, err := in.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	out, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.ElapsedSeconds != 90 || !out.IsRunning || !out.LastPersistTimestamp.Equal(in.LastPersistTimestamp) {
		t.Fatalf("unexpected snapshot: %+v", out)
	}
}

func TestDecodeSnapshot_ClampsNegativeElapsed(t *testing.T) {
	out, err := DecodeSnapshot([]byte(`{"elapsed_seconds":-5,"is_running":false,"last_persist_timestamp":"2024-02-01T06:00:00Z"}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.ElapsedSeconds != 0 {
		t.Fatalf("expected clamp to 0, got %d", out.ElapsedSeconds)
	}
}

func TestReconstruct_SaturatesOnOverflow(t *testing.T) {
	snap := Snapshot{ElapsedSeconds: math.MaxInt64 - 5, IsRunning: true, LastPersistTimestamp: t0}
	if got := Reconstruct(snap, t0.Add(10*time.Second)); got != math.MaxInt64 {
		t.Fatalf("expected saturation at MaxInt64, got %d", got)
	}
}

func TestDecodeSnapshot_RejectsOutOfRangeElapsed(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`{"elapsed_seconds":9223372036854775802,"is_running":true,"last_persist_timestamp":"2024-02-01T06:00:00Z"}`))
	if err == nil {
		t.Fatal("expected out-of-range elapsed to be rejected")
	}

	data, _ := Snapshot{ElapsedSeconds: MaxElapsedSeconds, LastPersistTimestamp: t0}.Encode()
	if _, err := DecodeSnapshot(data); err != nil {
		t.Fatalf("expected the bound itself to decode, got %v", err)
	}
}

func TestDecodeSnapshot_RejectsGarbage(t *testing.T) {
	if _, err := DecodeSnapshot([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func drawSnapshot(t *rapid.T) Snapshot {
	return Snapshot{
		ElapsedSeconds:       rapid.Int64Range(0, 7*24*3600).Draw(t, "elapsed"),
		IsRunning:            rapid.Bool().Draw(t, "running"),
		LastPersistTimestamp: t0.Add(time.Duration(rapid.Int64Range(-1e6, 1e6).Draw(t, "persistOffsetSec")) * time.Second),
	}
}

func drawInstant(t *rapid.T, label string) time.Time {
	return t0.Add(time.Duration(rapid.Int64Range(-2e9, 2e9).Draw(t, label)) * time.Millisecond)
}

func TestReconstruct_Property_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := drawSnapshot(t)
		now := drawInstant(t, "now")
		if Reconstruct(snap, now) != Reconstruct(snap, now) {
			t.Fatal("reconstruct is not deterministic")
		}
	})
}

func TestReconstruct_Property_MonotonicForwardClock(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := drawSnapshot(t)
		snap.IsRunning = true
		t1 := drawInstant(t, "t1")
		t2 := t1.Add(time.Duration(rapid.Int64Range(0, 1e6).Draw(t, "forwardMs")) * time.Millisecond)
		if Reconstruct(snap, t2) < Reconstruct(snap, t1) {
			t.Fatalf("elapsed decreased from %v to %v", t1, t2)
		}
	})
}

// Policy: a backward clock jump holds elapsed at the persisted value.
func TestReconstruct_Property_ClampOnBackwardClock(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := drawSnapshot(t)
		back := time.Duration(rapid.Int64Range(1, 1e9).Draw(t, "backMs")) * time.Millisecond
		now := snap.LastPersistTimestamp.Add(-back)
		if got := Reconstruct(snap, now); got != snap.ElapsedSeconds {
			t.Fatalf("expected clamp to %d, got %d", snap.ElapsedSeconds, got)
		}
	})
}

func TestReconstruct_Property_NeverBelowPersisted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := drawSnapshot(t)
		now := drawInstant(t, "now")
		if got := Reconstruct(snap, now); got < snap.ElapsedSeconds {
			t.Fatalf("reconstructed %d below persisted %d", got, snap.ElapsedSeconds)
		}
	})
}

func TestSnapshot_State(t *testing.T) {
	tests := []struct {
		snap Snapshot
		want State
	}{
		{Snapshot{0, false, t0}, StateIdle},
		{Snapshot{5, false, t0}, StatePaused},
		{Snapshot{0, true, t0}, StateRunning},
		{Snapshot{5, true, t0}, StateRunning},
	}
	for _, tt := range tests {
		if got := tt.snap.State(); got != tt.want {
			t.Errorf("State(%+v) = %s, want %s", tt.snap, got, tt.want)
		}
	}
}

func TestPeek(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()

	st, err := Peek(ctx, store, "k", t0)
	if err != nil || st.State != StateIdle || st.ElapsedSeconds != 0 {
		t.Fatalf("expected idle for missing snapshot, got %+v, %v", st, err)
	}

	data, _ := Snapshot{ElapsedSeconds: 60, IsRunning: true, LastPersistTimestamp: t0}.Encode()
	store.Set(ctx, "k", data)

	st, err = Peek(ctx, store, "k", t0.Add(90*time.Second))
	if err != nil || st.State != StateRunning || st.ElapsedSeconds != 150 {
		t.Fatalf("expected running at 150s, got %+v, %v", st, err)
	}

	// Peek never writes.
	after, _ := store.Get(ctx, "k")
	if string(after) != string(data) {
		t.Fatalf("snapshot was rewritten: %s", after)
	}

	store.Set(ctx, "k", []byte("garbage"))
	if _, err := Peek(ctx, store, "k", t0); err == nil {
		t.Fatal("expected decode error")
	}
}
