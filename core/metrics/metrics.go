package metrics

import (
	"time"

	"github.com/evbridge/skoda-mqtt/core/model"
)

// Sink records bridge activity for observability purposes.
type Sink interface {
	// RecordPoll records the outcome and duration of one status fetch,
	// periodic or command-triggered.
	RecordPoll(success bool, duration time.Duration) error

	// RecordCommand records the outcome of one remote action.
	RecordCommand(action string, outcome string) error

	// RecordState records the latest published vehicle snapshot.
	RecordState(s model.VehicleState) error
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) RecordPoll(bool, time.Duration) error { return nil }
func (NopSink) RecordCommand(string, string) error   { return nil }
func (NopSink) RecordState(model.VehicleState) error { return nil }
