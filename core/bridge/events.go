package bridge

import (
	"time"

	"github.com/evbridge/skoda-mqtt/core/model"
	"github.com/evbridge/skoda-mqtt/core/vehicle"
)

// EventType classifies a bridge lifecycle event.
type EventType string

const (
	// EventStatePublished fires after a snapshot was published, whether the
	// refresh was periodic or command-triggered.
	EventStatePublished EventType = "state_published"
	// EventPollFailed fires when a status fetch failed and the previous
	// snapshot was retained.
	EventPollFailed EventType = "poll_failed"
	// EventCommandExecuted fires after a remote action succeeded.
	EventCommandExecuted EventType = "command_executed"
	// EventCommandFailed fires after a remote action failed.
	EventCommandFailed EventType = "command_failed"
	// EventCommandRejected fires for an unknown command suffix.
	EventCommandRejected EventType = "command_rejected"
)

// Event is published on the internal bus for every observable transition.
// The metrics sinks consume these instead of being called from the core.
type Event struct {
	Type     EventType
	Action   vehicle.Action
	Suffix   string
	State    model.VehicleState
	Duration time.Duration
	Time     time.Time
}
