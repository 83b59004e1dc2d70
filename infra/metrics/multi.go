package metrics

import (
	"errors"
	"time"

	coremetrics "github.com/evbridge/skoda-mqtt/core/metrics"
	"github.com/evbridge/skoda-mqtt/core/model"
)

// MultiSink fans every record out to several sinks and joins their errors.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordPoll(success bool, duration time.Duration) error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.RecordPoll(success, duration))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordCommand(action string, outcome string) error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.RecordCommand(action, outcome))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordState(st model.VehicleState) error {
	var errs []error
	for _, s := range m.sinks {
		errs = append(errs, s.RecordState(st))
	}
	return errors.Join(errs...)
}

// Close flushes the sinks that buffer writes.
func (m *MultiSink) Close() {
	for _, s := range m.sinks {
		if closer, ok := s.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}
