package admission

import (
	"context"
	"time"

	"github.com/samcharles93/modelgate/internal/logger"
)

// Completion reports how long admitted work actually took.
type Completion struct {
	EntryID   string
	WorkClass string
	Estimated time.Duration
	Elapsed   time.Duration
	Err       error
}

func (c Completion) Failed() bool {
	return c.Err != nil
}

// Notifier is told about every completed or failed admitted request.
// Implementations must not block for long; they run on the request path.
type Notifier interface {
	Notify(ctx context.Context, c Completion)
}

type NotifierFunc func(ctx context.Context, c Completion)

func (f NotifierFunc) Notify(ctx context.Context, c Completion) {
	f(ctx, c)
}

// Notifiers fans a completion out to each notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, c Completion) {
	for _, n := range ns {
		if n != nil {
			n.Notify(ctx, c)
		}
	}
}

// LogNotifier writes one structured line per completion.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) Notify(_ context.Context, c Completion) {
	if n.Log == nil {
		return
	}
	args := []any{
		"id", c.EntryID,
		"work_class", c.WorkClass,
		"elapsed", c.Elapsed,
		"estimated", c.Estimated,
	}
	if c.Err != nil {
		n.Log.Warn("request failed", append(args, "error", c.Err)...)
		return
	}
	n.Log.Info("request completed", args...)
}

// notify never lets a misbehaving notifier take the result down with it.
func notify(ctx context.Context, n Notifier, log logger.Logger, c Completion) {
	if n == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("completion notifier panicked", "id", c.EntryID, "panic", r)
		}
	}()
	n.Notify(ctx, c)
}
