package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samcharles93/modelgate/internal/logger"
)

// schedule creates the job for a freshly enqueued entry and appends it to
// the pending list. Must be called with c.mu held.
func (c *Controller) schedule(ctx context.Context, entry *Entry, work Work, admitted bool) *Job {
	if !admitted {
		// Deferred work outlives the request that submitted it.
		ctx = context.WithoutCancel(ctx)
	}
	job := newJob(ctx, c, entry, work, admitted)
	job.pending = c.pending.PushBack(job)
	c.jobs[entry.ID] = job
	c.signal()
	return job
}

func (c *Controller) signal() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}

func (c *Controller) awaitDispatch(ctx context.Context, log logger.Logger, d Decision) (Decision, error) {
	job := d.Job
	if !job.admitted {
		d.Outcome = OutcomeDeferred
		c.metrics.observeDecision(OutcomeDeferred, d.EstimatedWait)
		log.Info("request deferred", "position", d.Position, "estimated_wait", d.EstimatedWait)
		return d, nil
	}

	d.Outcome = OutcomeAdmitted
	c.metrics.observeDecision(OutcomeAdmitted, d.EstimatedWait)
	log.Debug("request admitted", "position", d.Position, "estimated", job.EstimatedDuration())

	select {
	case <-job.Done():
	case <-ctx.Done():
		if err := job.Cancel(); err == nil {
			log.Info("caller left before its request was served", "error", ctx.Err())
		}
		// A running job shares the caller's context and stops with it.
		<-job.Done()
	}
	res, _ := job.Result()
	d.Result = res.Value
	d.Elapsed = res.Elapsed
	return d, res.Err
}

// Run serves the queue until ctx is cancelled. In dispatch mode it starts
// the worker pool; in inline mode there is nothing to serve and it only
// waits. Afterwards the controller rejects new arrivals and evicts whatever
// is still queued.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("admission: controller is already running")
	}
	if c.cfg.Mode != ModeDispatch {
		<-ctx.Done()
		c.shutdown()
		return nil
	}

	c.log.Info("dispatcher started", "workers", c.cfg.Workers, "capacity", c.cfg.Capacity)
	var wg sync.WaitGroup
	for i := range c.cfg.Workers {
		log := c.log.With("worker", i)
		wg.Go(func() { c.worker(ctx, log) })
	}
	if ttl := c.cfg.MaxQueueWait; ttl > 0 {
		wg.Go(func() { c.sweep(ctx, sweepInterval(ttl)) })
	}
	wg.Wait()
	c.shutdown()
	c.log.Info("dispatcher stopped")
	return nil
}

func (c *Controller) worker(ctx context.Context, log logger.Logger) {
	for {
		// Once stopping, whatever is still pending belongs to shutdown.
		if ctx.Err() != nil {
			return
		}
		job := c.next()
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-c.ready:
			}
			continue
		}
		c.serve(job, log)
	}
}

// next pops the oldest pending job, waking another worker if more remain.
func (c *Controller) next() *Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	front := c.pending.Front()
	if front == nil {
		return nil
	}
	job := c.pending.Remove(front).(*Job)
	job.pending = nil
	if c.pending.Len() > 0 {
		c.signal()
	}
	return job
}

func (c *Controller) serve(job *Job, log logger.Logger) {
	log = log.With("id", job.ID(), "work_class", job.WorkClass())

	if ttl := c.cfg.MaxQueueWait; ttl > 0 && !job.admitted {
		if waited := c.now().Sub(job.EnqueuedAt()); waited > ttl && c.expire(job, waited, log) {
			return
		}
	}
	if !job.transition(JobQueued, JobRunning) {
		return
	}

	start := c.now()
	result, err := c.runWork(job.ctx, job.work)
	elapsed := c.now().Sub(start)
	c.release(job)

	state := JobCompleted
	if err != nil {
		state = JobFailed
	}
	job.finish(state, JobResult{Value: result, Elapsed: elapsed, Err: err})
	notify(job.ctx, c.notifier, c.log, Completion{
		EntryID:   job.ID(),
		WorkClass: job.WorkClass(),
		Estimated: job.EstimatedDuration(),
		Elapsed:   elapsed,
		Err:       err,
	})
}

// sweepInterval is how often pending jobs are checked against ttl.
func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, 10*time.Millisecond), time.Second)
}

// sweep evicts expired deferred jobs while the workers are busy, so their
// slots do not keep new arrivals out.
func (c *Controller) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.expireStale()
		}
	}
}

// expireStale evicts every deferred job that waited longer than
// MaxQueueWait and returns how many it evicted.
func (c *Controller) expireStale() int {
	ttl := c.cfg.MaxQueueWait
	if ttl <= 0 || c.cfg.Mode != ModeDispatch {
		return 0
	}
	now := c.now()

	c.mu.Lock()
	var stale []*Job
	for el := c.pending.Front(); el != nil; el = el.Next() {
		job := el.Value.(*Job)
		if now.Sub(job.EnqueuedAt()) <= ttl {
			// Pending jobs are in arrival order.
			break
		}
		// An admitted caller is waiting for its worker, not for the queue.
		if !job.admitted {
			stale = append(stale, job)
		}
	}
	c.mu.Unlock()

	n := 0
	for _, job := range stale {
		if c.expire(job, now.Sub(job.EnqueuedAt()), c.log.With("id", job.ID(), "work_class", job.WorkClass())) {
			n++
		}
	}
	return n
}

// expire moves a queued job to JobExpired and releases its slot. It reports
// false when the job already left the queued state.
func (c *Controller) expire(job *Job, waited time.Duration, log logger.Logger) bool {
	if !job.transition(JobQueued, JobExpired) {
		return false
	}
	c.release(job)
	c.metrics.observeEviction("ttl")
	log.Info("queued request expired", "waited", waited, "ttl", c.cfg.MaxQueueWait)
	job.finish(JobExpired, JobResult{Err: fmt.Errorf("%w: %w", ErrEvicted, ErrTTLExpired)})
	return true
}

// release gives the job's slot back.
func (c *Controller) release(job *Job) {
	c.mu.Lock()
	if job.pending != nil {
		c.pending.Remove(job.pending)
		job.pending = nil
	}
	delete(c.jobs, job.ID())
	err := c.queue.Remove(job.entry)
	c.metrics.setQueueLength(c.queue.Len())
	c.mu.Unlock()

	if err != nil {
		c.metrics.invariantViolation()
		c.log.Error("slot release failed", "id", job.ID(), "error", err)
	}
}

func (c *Controller) cancel(job *Job) error {
	if !job.transition(JobQueued, JobCancelled) {
		return ErrNotCancellable
	}
	c.release(job)
	c.metrics.observeEviction("cancelled")
	job.finish(JobCancelled, JobResult{Err: fmt.Errorf("%w: %w", ErrEvicted, ErrCancelled)})
	return nil
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.closed = true
	var queued []*Job
	for el := c.pending.Front(); el != nil; el = el.Next() {
		queued = append(queued, el.Value.(*Job))
	}
	c.mu.Unlock()

	for _, job := range queued {
		if !job.transition(JobQueued, JobCancelled) {
			continue
		}
		c.release(job)
		c.metrics.observeEviction("shutdown")
		job.finish(JobCancelled, JobResult{Err: fmt.Errorf("%w: %w", ErrEvicted, ErrClosed)})
	}
	if len(queued) > 0 {
		c.log.Warn("evicted queued requests on shutdown", "count", len(queued))
	}
}
