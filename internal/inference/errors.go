package inference

import (
	"errors"
	"fmt"
)

// ErrInference is wrapped by every error an Engine returns for a failed
// generation.
var ErrInference = errors.New("inference failed")

// Error carries the model and, for remote engines, the upstream status.
type Error struct {
	Model      string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inference for model %q failed with status %d: %v", e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("inference for model %q failed: %v", e.Model, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{ErrInference, e.Err}
}

func newError(model string, status int, err error) error {
	return &Error{Model: model, StatusCode: status, Err: err}
}
