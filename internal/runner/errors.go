package runner

import "errors"

// Runner errors
var (
	// ErrStageOrder is returned when a pipeline stage is entered out of order.
	ErrStageOrder = errors.New("runner: stage out of order")
	// ErrStopped ends a control loop that was asked to stop.
	ErrStopped = errors.New("runner: stopped")
	ErrClosed  = errors.New("runner: closed")
)
