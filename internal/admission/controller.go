// Package admission gates inference requests behind a bounded FIFO queue.
//
// Every arrival is either rejected (queue full), deferred (it takes a slot
// behind other work and is told its position and estimated wait) or admitted
// (its work runs and the slot is reclaimed when it finishes).
//
// Two modes exist. ModeInline runs admitted work on the caller's goroutine
// and never serves deferred entries: they keep their slot until restart.
// ModeDispatch hands every entry to a pool of workers that serve the queue
// in arrival order, so deferred work eventually runs and releases its slot.
package admission

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/modelgate/internal/logger"
)

// DefaultCapacity is the queue capacity used when none is configured.
const DefaultCapacity = 100

type Mode string

const (
	ModeDispatch Mode = "dispatch"
	ModeInline   Mode = "inline"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeDispatch:
		return ModeDispatch, nil
	case ModeInline:
		return ModeInline, nil
	default:
		return "", fmt.Errorf("unknown admission mode %q (want %q or %q)", s, ModeDispatch, ModeInline)
	}
}

type Config struct {
	Capacity int
	Mode     Mode
	// Workers is the dispatch pool size. Arrivals at a position below it are
	// admitted; the rest are deferred.
	Workers int
	// WorkTimeout bounds each downstream call. Zero means no deadline.
	WorkTimeout time.Duration
	// MaxQueueWait evicts dispatch-mode entries that waited longer before a
	// worker reached them. Zero means no limit.
	MaxQueueWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Mode == "" {
		c.Mode = ModeDispatch
	}
	if c.Workers == 0 || c.Mode == ModeInline {
		c.Workers = 1
	}
	return c
}

func (c Config) validate() error {
	var errs []error
	if c.Capacity < 1 {
		errs = append(errs, fmt.Errorf("capacity must be at least 1, got %d", c.Capacity))
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Workers > c.Capacity {
		errs = append(errs, fmt.Errorf("workers (%d) must not exceed capacity (%d)", c.Workers, c.Capacity))
	}
	if c.WorkTimeout < 0 {
		errs = append(errs, fmt.Errorf("work timeout must not be negative, got %s", c.WorkTimeout))
	}
	if c.MaxQueueWait < 0 {
		errs = append(errs, fmt.Errorf("max queue wait must not be negative, got %s", c.MaxQueueWait))
	}
	return errors.Join(errs...)
}

// Work is the downstream call guarded by the controller.
type Work func(ctx context.Context) (any, error)

// Controller decides, for each arrival, whether to reject, defer or admit
// it, and makes sure admitted work gives its slot back.
type Controller struct {
	cfg      Config
	profile  *Profile
	log      logger.Logger
	metrics  *Metrics
	notifier Notifier
	now      func() time.Time
	newID    func() string

	// mu guards queue, pending, jobs and closed. Capacity check, position,
	// estimate and enqueue happen under one critical section.
	mu      sync.Mutex
	queue   *Queue
	pending *list.List
	jobs    map[string]*Job
	closed  bool

	ready   chan struct{}
	running atomic.Bool
}

type Option func(*Controller)

func WithLogger(log logger.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

func NewController(cfg Config, profile *Profile, opts ...Option) (*Controller, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("admission: %w", err)
	}
	if profile == nil {
		return nil, errors.New("admission: profile is required")
	}
	c := &Controller{
		cfg:     cfg,
		profile: profile,
		log:     logger.Default(),
		now:     time.Now,
		newID:   uuid.NewString,
		queue:   NewQueue(),
		pending: list.New(),
		jobs:    make(map[string]*Job),
		ready:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.setCapacity(cfg.Capacity)
	c.metrics.setQueueLength(0)
	return c, nil
}

func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) Profile() *Profile {
	return c.profile
}

// Len returns the number of occupied slots.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Len()
}

// Admit handles one arrival of the given work class.
//
// A rejected arrival returns an error wrapping ErrRejected. A deferred one
// returns a nil error; in dispatch mode Decision.Job tracks it until a worker
// serves it. An admitted arrival returns once its work finished, with the
// work's error, and its slot already reclaimed.
func (c *Controller) Admit(ctx context.Context, workClass string, work Work) (Decision, error) {
	if work == nil {
		return Decision{}, errors.New("admission: work is required")
	}
	entry := &Entry{
		ID:                c.newID(),
		WorkClass:         workClass,
		EnqueuedAt:        c.now(),
		EstimatedDuration: c.profile.Estimate(workClass),
	}
	log := c.log.With("id", entry.ID, "work_class", workClass)

	// Expired entries must not count against capacity.
	c.expireStale()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.metrics.observeDecision(OutcomeRejected, 0)
		return Decision{Outcome: OutcomeRejected, EntryID: entry.ID, Position: -1}, fmt.Errorf("%w: %w", ErrRejected, ErrClosed)
	}
	if c.queue.IsFull(c.cfg.Capacity) {
		size := c.queue.Len()
		c.mu.Unlock()
		c.metrics.observeDecision(OutcomeRejected, 0)
		log.Warn("request rejected", "queue_size", size, "capacity", c.cfg.Capacity)
		return Decision{Outcome: OutcomeRejected, EntryID: entry.ID, Position: -1}, fmt.Errorf("%w: %w", ErrRejected, ErrCapacityExceeded)
	}
	d := Decision{
		EntryID:       entry.ID,
		Position:      c.queue.NextPosition(),
		EstimatedWait: c.queue.EstimatedWait(entry),
	}
	c.queue.Enqueue(entry)
	if c.cfg.Mode == ModeDispatch {
		d.Job = c.schedule(ctx, entry, work, d.Position < c.cfg.Workers)
	}
	c.metrics.setQueueLength(c.queue.Len())
	c.mu.Unlock()

	if c.cfg.Mode == ModeDispatch {
		return c.awaitDispatch(ctx, log, d)
	}
	return c.runInline(ctx, log, d, entry, work)
}

func (c *Controller) runInline(ctx context.Context, log logger.Logger, d Decision, entry *Entry, work Work) (Decision, error) {
	if d.Position > 0 {
		// The entry keeps its slot; nothing in inline mode ever serves it.
		d.Outcome = OutcomeDeferred
		c.metrics.observeDecision(OutcomeDeferred, d.EstimatedWait)
		log.Info("request deferred", "position", d.Position, "estimated_wait", d.EstimatedWait)
		return d, nil
	}

	d.Outcome = OutcomeAdmitted
	c.metrics.observeDecision(OutcomeAdmitted, d.EstimatedWait)
	log.Debug("request admitted", "estimated", entry.EstimatedDuration)

	start := c.now()
	result, err := c.runWork(ctx, work)
	d.Elapsed = c.now().Sub(start)
	d.Result = result
	c.reclaimHead(entry)

	notify(ctx, c.notifier, c.log, Completion{
		EntryID:   entry.ID,
		WorkClass: entry.WorkClass,
		Estimated: entry.EstimatedDuration,
		Elapsed:   d.Elapsed,
		Err:       err,
	})
	return d, err
}

// reclaimHead gives the admitted entry's slot back. An empty queue here is a
// controller defect and aborts the request.
func (c *Controller) reclaimHead(entry *Entry) {
	c.mu.Lock()
	head, err := c.queue.DequeueHead()
	size := c.queue.Len()
	c.metrics.setQueueLength(size)
	c.mu.Unlock()

	if err != nil {
		c.metrics.invariantViolation()
		c.log.Error("slot reclaim failed", "id", entry.ID, "error", err)
		panic(fmt.Errorf("admission: reclaim slot of %s: %w", entry.ID, err))
	}
	if head != entry {
		c.metrics.invariantViolation()
		c.log.Error("slot reclaim released a different entry", "id", entry.ID, "released", head.ID)
	}
}

// runWork calls work under the configured deadline and turns panics into
// errors so the slot is always reclaimed.
func (c *Controller) runWork(ctx context.Context, work Work) (result any, err error) {
	if c.cfg.WorkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WorkTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic in downstream work: %v", r)
		}
	}()
	return work(ctx)
}

// EntryStatus is a point-in-time view of one queued entry.
type EntryStatus struct {
	ID                string
	WorkClass         string
	Position          int
	EnqueuedAt        time.Time
	EstimatedDuration time.Duration
	// EstimatedWait is the cumulative estimate up to and including this entry.
	EstimatedWait time.Duration
	State         JobState
}

type Status struct {
	Mode     Mode
	Capacity int
	Workers  int
	Size     int
	Entries  []EntryStatus
}

// Status returns a snapshot of the queue.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Mode:     c.cfg.Mode,
		Capacity: c.cfg.Capacity,
		Workers:  c.cfg.Workers,
		Size:     c.queue.Len(),
		Entries:  make([]EntryStatus, 0, c.queue.Len()),
	}
	var cumulative time.Duration
	c.queue.Each(func(pos int, e *Entry) bool {
		cumulative += e.EstimatedDuration
		es := EntryStatus{
			ID:                e.ID,
			WorkClass:         e.WorkClass,
			Position:          pos,
			EnqueuedAt:        e.EnqueuedAt,
			EstimatedDuration: e.EstimatedDuration,
			EstimatedWait:     cumulative,
			State:             JobQueued,
		}
		if job, ok := c.jobs[e.ID]; ok {
			es.State = job.State()
		} else if c.cfg.Mode == ModeInline && pos == 0 {
			es.State = JobRunning
		}
		st.Entries = append(st.Entries, es)
		return true
	})
	return st
}

func (c *Controller) position(e *Entry) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Position(e)
}
