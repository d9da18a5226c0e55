package admission

import (
	"container/list"
	"context"
	"strconv"
	"sync/atomic"
	"time"
)

// JobState is the lifecycle state of a dispatched job.
type JobState int32

const (
	JobQueued JobState = iota
	JobRunning
	JobCompleted
	JobFailed
	JobCancelled
	JobExpired
)

func (s JobState) String() string {
	switch s {
	case JobQueued:
		return "queued"
	case JobRunning:
		return "in_progress"
	case JobCompleted:
		return "completed"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	case JobExpired:
		return "expired"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether no further transition can happen.
func (s JobState) Terminal() bool {
	return s >= JobCompleted
}

// JobResult is the final result of a job.
type JobResult struct {
	Value   any
	Elapsed time.Duration
	Err     error
}

// Job tracks an entry served by the dispatcher. The admitted caller waits on
// Done; deferred callers keep the Job and poll it.
type Job struct {
	entry    *Entry
	work     Work
	ctx      context.Context
	ctrl     *Controller
	admitted bool

	// pending is the element in the controller's pending list while queued.
	pending *list.Element

	state atomic.Int32
	done  chan struct{}

	result JobResult
}

func newJob(ctx context.Context, ctrl *Controller, entry *Entry, work Work, admitted bool) *Job {
	return &Job{
		entry:    entry,
		work:     work,
		ctx:      ctx,
		ctrl:     ctrl,
		admitted: admitted,
		done:     make(chan struct{}),
	}
}

func (j *Job) ID() string {
	return j.entry.ID
}

func (j *Job) WorkClass() string {
	return j.entry.WorkClass
}

func (j *Job) EnqueuedAt() time.Time {
	return j.entry.EnqueuedAt
}

func (j *Job) EstimatedDuration() time.Duration {
	return j.entry.EstimatedDuration
}

func (j *Job) State() JobState {
	return JobState(j.state.Load())
}

// Done is closed once the job reached a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Result returns the final result once Done is closed.
func (j *Job) Result() (JobResult, bool) {
	select {
	case <-j.done:
		return j.result, true
	default:
		return JobResult{}, false
	}
}

// Position returns the job's current 0-based queue position, or -1 once it
// left the queue.
func (j *Job) Position() int {
	return j.ctrl.position(j.entry)
}

// Cancel abandons a queued job and reclaims its slot immediately. It fails
// with ErrNotCancellable once a worker picked the job up.
func (j *Job) Cancel() error {
	return j.ctrl.cancel(j)
}

func (j *Job) transition(from, to JobState) bool {
	return j.state.CompareAndSwap(int32(from), int32(to))
}

func (j *Job) finish(state JobState, result JobResult) {
	j.result = result
	j.state.Store(int32(state))
	close(j.done)
}
