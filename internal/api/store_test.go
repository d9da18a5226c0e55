package api

import (
	"context"
	"testing"
	"time"

	"github.com/samcharles93/modelgate/internal/admission"
	"github.com/samcharles93/modelgate/internal/logger"
)

func TestJobStorePrune(t *testing.T) {
	t.Parallel()

	profile, _ := admission.NewProfile(0, nil)
	controller, err := admission.NewController(admission.Config{Capacity: 3, Workers: 1}, profile, admission.WithLogger(logger.Discard()))
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = controller.Run(ctx) }()

	block := make(chan struct{})
	defer close(block)
	go func() {
		_, _ = controller.Admit(context.Background(), "m", func(ctx context.Context) (any, error) {
			<-block
			return nil, nil
		})
	}()
	// The first arrival occupies the only worker until block is closed.
	deadline := time.Now().Add(5 * time.Second)
	for controller.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first arrival never enqueued")
		}
		time.Sleep(time.Millisecond)
	}

	queued, err := controller.Admit(context.Background(), "m", func(context.Context) (any, error) { return nil, nil })
	if err != nil || queued.Job == nil {
		t.Fatalf("expected deferred job, got %+v err=%v", queued, err)
	}
	finished, err := controller.Admit(context.Background(), "m", func(context.Context) (any, error) { return nil, nil })
	if err != nil || finished.Job == nil {
		t.Fatalf("expected deferred job, got %+v err=%v", finished, err)
	}
	if err := finished.Job.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	store := NewJobStore(time.Minute)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.Add(&jobRecord{Job: queued.Job, Model: "m", Created: now})
	store.Add(&jobRecord{Job: finished.Job, Model: "m", Created: now})

	if n := store.Prune(now); n != 0 {
		t.Fatalf("first pass pruned %d, want 0", n)
	}
	if n := store.Prune(now.Add(30 * time.Second)); n != 0 {
		t.Fatalf("pruned %d before retention elapsed", n)
	}
	if n := store.Prune(now.Add(time.Minute)); n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, ok := store.Get(finished.Job.ID()); ok {
		t.Fatal("finished job still stored")
	}
	if _, ok := store.Get(queued.Job.ID()); !ok {
		t.Fatal("queued job must never be pruned")
	}
	if store.Len() != 1 {
		t.Fatalf("Len = %d, want 1", store.Len())
	}
}

func TestNewJobStoreDefaultRetention(t *testing.T) {
	t.Parallel()
	if s := NewJobStore(0); s.retention != DefaultJobRetention {
		t.Fatalf("retention = %s", s.retention)
	}
}
