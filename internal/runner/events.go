package runner

import (
	"time"

	"github.com/zeusync/simrunner/internal/core/events/bus"
	"github.com/zeusync/simrunner/internal/core/observability/log"
	"github.com/zeusync/simrunner/internal/core/sim"
)

// Event types published on the bus.
const (
	EventStage          = "runner.stage"
	EventLoopStarted    = "runner.loop.started"
	EventLoopFinished   = "runner.loop.finished"
	EventLoopStopped    = "runner.loop.stopped"
	EventLoopAborted    = "runner.loop.aborted"
	EventRecordingSaved = "runner.recording.saved"
)

// StageChange is the data of EventStage.
type StageChange struct {
	From, To Stage
}

// LoopResult is the data of the loop events.
type LoopResult struct {
	Steps   int64
	Elapsed time.Duration
	Err     error
}

// RecordingSaved is the data of EventRecordingSaved.
type RecordingSaved struct {
	Camera    string
	Recording sim.Recording
}

// LogObserver writes every bus delivery to a logger at debug level.
type LogObserver struct {
	Logger log.Log
}

func (o LogObserver) OnPublish(string, bus.Event) {}

func (o LogObserver) OnDelivered(topic string, event bus.Event, handlers int, err error) {
	fields := []log.Field{
		log.String("event", event.Type()),
		log.String("source", event.Source()),
		log.Int("handlers", handlers),
	}
	if topic != "" {
		fields = append(fields, log.String("topic", topic))
	}
	if err != nil {
		o.Logger.Warn("Event handler failed", append(fields, log.Error(err))...)
		return
	}
	o.Logger.Debug("Event delivered", fields...)
}
