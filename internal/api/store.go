package api

import (
	"context"
	"sync"
	"time"

	"github.com/samcharles93/modelgate/internal/admission"
)

// DefaultJobRetention is how long a finished job stays visible.
const DefaultJobRetention = 10 * time.Minute

type jobRecord struct {
	Job           *admission.Job
	Model         string
	Prompt        string
	Created       time.Time
	EstimatedWait time.Duration

	// finishedAt is set by the first prune pass that sees the job terminal.
	finishedAt time.Time
}

// JobStore keeps deferred jobs so callers can poll or cancel them.
type JobStore struct {
	mu        sync.Mutex
	jobs      map[string]*jobRecord
	retention time.Duration
}

func NewJobStore(retention time.Duration) *JobStore {
	if retention <= 0 {
		retention = DefaultJobRetention
	}
	return &JobStore{
		jobs:      make(map[string]*jobRecord),
		retention: retention,
	}
}

func (s *JobStore) Add(rec *jobRecord) {
	s.mu.Lock()
	s.jobs[rec.Job.ID()] = rec
	s.mu.Unlock()
}

func (s *JobStore) Get(id string) (*jobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[id]
	return rec, ok
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Prune drops jobs that finished at least one retention period before now
// and returns how many were dropped.
func (s *JobStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, rec := range s.jobs {
		if !rec.Job.State().Terminal() {
			continue
		}
		if rec.finishedAt.IsZero() {
			rec.finishedAt = now
		}
		if now.Sub(rec.finishedAt) >= s.retention {
			delete(s.jobs, id)
			pruned++
		}
	}
	return pruned
}

// Run prunes on every tick until ctx is cancelled.
func (s *JobStore) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = s.retention / 2
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Prune(now)
		}
	}
}
