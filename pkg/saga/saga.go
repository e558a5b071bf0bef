// Package saga runs a sequence of steps that span systems without a shared
// transaction (object storage + database). When a step fails, the steps that
// already ran are compensated in reverse order.
//
//	s := saga.New("cover_upload", 30*time.Second)
//	s.AddStep("store blob", putBlob, deleteBlob)
//	s.AddStep("insert row", insertRow, nil)
//	err := s.Execute(ctx)
//
// Compensations must be idempotent; a failed compensation is logged and the
// remaining ones still run.
package saga

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/pkg/metrics"
)

// Step is one forward action and its undo.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga is single use; build a new one per request.
type Saga struct {
	name     string
	steps    []Step
	executed []Step
	timeout  time.Duration
}

// New creates a saga. A zero timeout means the caller's context alone bounds it.
func New(name string, timeout time.Duration) *Saga {
	return &Saga{
		name:    name,
		steps:   make([]Step, 0, 2),
		timeout: timeout,
	}
}

// AddStep appends a step; compensate may be nil for the last step.
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// StepError reports which step failed. It unwraps to the step's error.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Execute runs the steps in order and compensates on the first failure.
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.compensate(ctx)
			metrics.RecordSaga(s.name, "timeout")
			return &StepError{Step: step.Name, Err: err}
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				s.compensate(ctx)
				metrics.RecordSaga(s.name, "failure")
				return &StepError{Step: step.Name, Err: err}
			}
		}

		s.executed = append(s.executed, step)
	}

	metrics.RecordSaga(s.name, "success")
	return nil
}

// compensate runs on a context detached from the caller's cancellation so
// an aborted request still cleans up.
func (s *Saga) compensate(ctx context.Context) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		metrics.RecordCompensation()
		if err := step.Compensate(cctx); err != nil {
			slog.ErrorContext(cctx, "saga compensation failed",
				"saga", s.name,
				"step", step.Name,
				"error", err,
			)
		}
	}
	s.executed = nil
}
