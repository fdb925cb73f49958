package timer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"prayer-tracker/internal/sessions/models"

	"prayer-tracker/internal/shared/clock"
	"prayer-tracker/internal/shared/config"
	"prayer-tracker/internal/shared/kvstore"
)

// Controller errors
var (
	ErrInvalidTransition = errors.New("invalid timer transition")
	ErrClosed            = errors.New("timer controller closed")
)

// Recorder turns a committed run into a ledger record.
type Recorder interface {
	Record(ctx context.Context, elapsedSeconds int64, label string) (*models.SessionRecord, error)
}

// Config contains runtime options for Controller.
type Config struct {
	TickInterval time.Duration
	SnapshotKey  string
	Logf         func(format string, args ...any)
}

// Controller is the stopwatch state machine. Elapsed time while running is
// always derived from startRef, never accumulated tick by tick. Snapshots are
// written on transitions only; ticks just publish.
type Controller struct {
	mu       sync.Mutex
	clock    clock.Clock
	store    kvstore.Store
	recorder Recorder
	options  Config

	state    State
	elapsed  int64 // frozen value when idle or paused; value at start when running
	startRef time.Time

	// dirty is set while the store holds an older state than memory.
	dirty bool

	ticker   clock.Ticker
	stopTick chan struct{}
	events   []chan Event
	closed   bool
}

// New creates an idle Controller. Call ResumeFromPersisted to pick up a run
// left by a previous process.
func New(store kvstore.Store, recorder Recorder, clk clock.Clock, options Config) *Controller {
	if options.TickInterval <= 0 {
		options.TickInterval = config.DefaultTickInterval
	}
	if options.SnapshotKey == "" {
		options.SnapshotKey = config.SnapshotKey
	}
	if options.Logf == nil {
		options.Logf = log.Printf
	}
	if clk == nil {
		clk = clock.System
	}
	return &Controller{
		clock:    clk,
		store:    store,
		recorder: recorder,
		options:  options,
		state:    StateIdle,
	}
}

// Subscribe registers a new observer channel. Delivery never blocks; a full
// channel drops the event.
func (c *Controller) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch
	}
	c.events = append(c.events, ch)
	if c.state == StateRunning && c.stopTick == nil {
		c.startTickLocked()
	}
	return ch
}

// Status reports the current state and elapsed seconds.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, ElapsedSeconds: c.elapsedLocked(c.clock.Now())}
}

// Start begins or continues counting from the idle or paused state.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state == StateRunning {
		return fmt.Errorf("%w: start while running", ErrInvalidTransition)
	}

	now := c.clock.Now()
	c.enterRunningLocked(now, c.elapsed)
	c.persistLocked(ctx, Snapshot{ElapsedSeconds: c.elapsed, IsRunning: true, LastPersistTimestamp: now})
	c.emitLocked(Event{Type: EventStateChange, State: StateRunning, ElapsedSeconds: c.elapsed, At: now})
	return nil
}

// Pause freezes a running timer.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state != StateRunning {
		return fmt.Errorf("%w: pause while %s", ErrInvalidTransition, c.state)
	}

	now := c.clock.Now()
	elapsed := c.elapsedLocked(now)
	c.stopTickLocked()
	c.state = StatePaused
	c.elapsed = elapsed
	c.persistLocked(ctx, Snapshot{ElapsedSeconds: elapsed, IsRunning: false, LastPersistTimestamp: now})
	c.emitLocked(Event{Type: EventStateChange, State: StatePaused, ElapsedSeconds: elapsed, At: now})
	return nil
}

// Reset discards the current run without recording it.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.resetLocked(ctx, c.clock.Now())
	return nil
}

// CommitAndReset records the current run and resets the timer. A run below
// the recording minimum comes back as *models.RejectedError and the timer is
// reset anyway. Any other recording failure leaves the timer untouched so the
// run can be committed again.
func (c *Controller) CommitAndReset(ctx context.Context, label string) (*models.SessionRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	now := c.clock.Now()
	elapsed := c.elapsedLocked(now)
	if elapsed <= 0 {
		return nil, fmt.Errorf("%w: nothing to commit", ErrInvalidTransition)
	}

	rec, err := c.recorder.Record(ctx, elapsed, label)
	if err != nil {
		if errors.Is(err, models.ErrSessionTooShort) {
			c.resetLocked(ctx, now)
		}
		return nil, err
	}

	c.resetLocked(ctx, now)
	return rec, nil
}

// ResumeFromPersisted rebuilds the timer from the last snapshot, adding the
// time that passed while the process was not running. A running snapshot is
// re-persisted against the current clock so later reconstructions start from
// the corrected value. If the store cannot be read, or a previous write to it
// failed, the in-memory state is kept and written out again.
func (c *Controller) ResumeFromPersisted(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	now := c.clock.Now()
	if c.dirty {
		c.persistLocked(ctx, c.snapshotLocked(now))
		return nil
	}
	snap, ok := c.loadLocked(ctx, now)
	if !ok {
		return nil
	}

	c.stopTickLocked()
	elapsed := Reconstruct(snap, now)
	if snap.IsRunning {
		c.enterRunningLocked(now, elapsed)
		c.persistLocked(ctx, Snapshot{ElapsedSeconds: elapsed, IsRunning: true, LastPersistTimestamp: now})
	} else {
		c.elapsed = elapsed
		c.state = snap.State()
	}

	c.emitLocked(Event{Type: EventStateChange, State: c.state, ElapsedSeconds: elapsed, At: now})
	return nil
}

// Close stops the tick and closes all observers. The last persisted snapshot
// is left in place for the next ResumeFromPersisted.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTickLocked()
	for _, ch := range c.events {
		close(ch)
	}
	c.events = nil
}

func (c *Controller) elapsedLocked(now time.Time) int64 {
	if c.state != StateRunning {
		return c.elapsed
	}
	e := int64(now.Sub(c.startRef) / time.Second)
	if e < c.elapsed {
		return c.elapsed
	}
	return e
}

// snapshotLocked is the snapshot matching the in-memory state at now.
func (c *Controller) snapshotLocked(now time.Time) Snapshot {
	return Snapshot{
		ElapsedSeconds:       c.elapsedLocked(now),
		IsRunning:            c.state == StateRunning,
		LastPersistTimestamp: now,
	}
}

func (c *Controller) enterRunningLocked(now time.Time, elapsed int64) {
	if elapsed > MaxElapsedSeconds {
		elapsed = MaxElapsedSeconds
	}
	c.elapsed = elapsed
	c.startRef = now.Add(-time.Duration(elapsed) * time.Second)
	c.state = StateRunning
	c.startTickLocked()
}

func (c *Controller) resetLocked(ctx context.Context, now time.Time) {
	c.stopTickLocked()
	c.state = StateIdle
	c.elapsed = 0
	c.persistLocked(ctx, IdleSnapshot(now))
	c.emitLocked(Event{Type: EventStateChange, State: StateIdle, At: now})
}

// startTickLocked runs the publish ticker only while someone is listening.
func (c *Controller) startTickLocked() {
	c.stopTickLocked()
	if len(c.events) == 0 {
		return
	}
	stop := make(chan struct{})
	ticker := c.clock.NewTicker(c.options.TickInterval)
	c.ticker = ticker
	c.stopTick = stop
	go c.runTicks(ticker, stop)
}

func (c *Controller) stopTickLocked() {
	if c.stopTick == nil {
		return
	}
	c.ticker.Stop()
	close(c.stopTick)
	c.ticker = nil
	c.stopTick = nil
}

func (c *Controller) runTicks(ticker clock.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			c.tick(stop)
		}
	}
}

func (c *Controller) tick(stop chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A tick from a cancelled generation must not publish.
	if c.stopTick != stop || c.state != StateRunning {
		return
	}
	now := c.clock.Now()
	c.emitLocked(Event{Type: EventTick, State: StateRunning, ElapsedSeconds: c.elapsedLocked(now), At: now})
}

func (c *Controller) loadLocked(ctx context.Context, now time.Time) (Snapshot, bool) {
	data, err := c.store.Get(ctx, c.options.SnapshotKey)
	if errors.Is(err, kvstore.ErrNotFound) {
		snap := IdleSnapshot(now)
		c.persistLocked(ctx, snap)
		return snap, true
	}
	if err != nil {
		c.options.Logf("timer: failed to read snapshot: %v", err)
		return Snapshot{}, false
	}

	snap, err := DecodeSnapshot(data)
	if err != nil {
		c.options.Logf("timer: ignoring unreadable snapshot: %v", err)
		return Snapshot{}, false
	}
	return snap, true
}

func (c *Controller) persistLocked(ctx context.Context, snap Snapshot) {
	data, err := snap.Encode()
	if err != nil {
		c.options.Logf("timer: %v", err)
		return
	}
	if err := c.store.Set(ctx, c.options.SnapshotKey, data); err != nil {
		c.dirty = true
		c.options.Logf("timer: failed to persist snapshot: %v", err)
		return
	}
	c.dirty = false
}

func (c *Controller) emitLocked(event Event) {
	for _, ch := range c.events {
		select {
		case ch <- event:
		default:
		}
	}
}
