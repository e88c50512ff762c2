package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrRunInProgress is returned when a trigger arrives while a run is already
// executing. Overlapping triggers are skipped, never queued.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// Runner serializes pipeline executions behind a single in-flight guard.
type Runner struct {
	pipeline *Pipeline
	running  atomic.Bool
}

func NewRunner(pipeline *Pipeline) *Runner {
	return &Runner{pipeline: pipeline}
}

func (r *Runner) Run(ctx context.Context) (*RunStats, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	return r.pipeline.Run(ctx), nil
}

// Running reports whether a run is currently in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}
