package admission

import (
	"strconv"
	"time"
)

// Outcome is the admission decision for one arrival. Its String form is used
// as a metrics label.
type Outcome int

const (
	// OutcomeRejected means the queue was full; nothing was enqueued.
	OutcomeRejected Outcome = iota
	// OutcomeDeferred means the arrival took a slot behind other work and the
	// caller was answered with its position and estimated wait.
	OutcomeDeferred
	// OutcomeAdmitted means the work ran for the caller and its slot has been
	// reclaimed.
	OutcomeAdmitted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeAdmitted:
		return "admitted"
	default:
		return "unknown(" + strconv.Itoa(int(o)) + ")"
	}
}

// Decision describes what happened to an arrival.
type Decision struct {
	Outcome Outcome
	EntryID string
	// Position is the 0-based rank the entry took in the queue.
	Position int
	// EstimatedWait covers every entry ahead plus the entry itself.
	EstimatedWait time.Duration

	// Result and Elapsed are set for admitted arrivals.
	Result  any
	Elapsed time.Duration

	// Job is set in dispatch mode for admitted and deferred arrivals.
	Job *Job
}
