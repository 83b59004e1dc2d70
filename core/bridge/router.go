package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evbridge/skoda-mqtt/core/logger"
	"github.com/evbridge/skoda-mqtt/core/vehicle"
	"github.com/evbridge/skoda-mqtt/internal/eventbus"
)

// ErrUnknownCommand is returned for a command suffix outside the known set.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one inbound command message. The payload is carried for
// logging only; all known commands are payload-agnostic triggers.
type Command struct {
	Suffix  string
	Payload []byte
}

// Refresher triggers one out-of-band status fetch and publish cycle.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Router maps inbound command suffixes to vehicle actions. Dispatches are
// serialized: a command arriving while another executes waits for it, so two
// conflicting actions never run concurrently against the vehicle.
type Router struct {
	api     vehicle.API
	ref     Refresher
	timeout time.Duration
	log     logger.Logger
	bus     *eventbus.Bus[Event]

	sem chan struct{}
}

// NewRouter creates a router executing actions against api and refreshing
// state through ref after each successful action.
func NewRouter(api vehicle.API, ref Refresher, timeout time.Duration, log logger.Logger, bus *eventbus.Bus[Event]) *Router {
	return &Router{api: api, ref: ref, timeout: timeout, log: log, bus: bus, sem: make(chan struct{}, 1)}
}

// Dispatch handles one command to completion. It never panics and never
// propagates a failure beyond its return value; the MQTT delivery path
// ignores it, tests observe it.
func (r *Router) Dispatch(ctx context.Context, cmd Command) error {
	action, ok := vehicle.ParseAction(cmd.Suffix)
	if !ok {
		r.log.Warnf("rejected command with unknown suffix %q", cmd.Suffix)
		r.bus.Publish(Event{Type: EventCommandRejected, Suffix: cmd.Suffix, Time: time.Now()})
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Suffix)
	}

	// one command at a time
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-r.sem }()

	id := uuid.NewString()
	r.log.Infof("executing command %s (%s)", action, id)

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	err := r.api.Command(execCtx, action)
	cancel()
	if err != nil {
		r.log.Errorf("command %s (%s) failed: %v", action, id, err)
		r.bus.Publish(Event{Type: EventCommandFailed, Action: action, Suffix: cmd.Suffix, Time: time.Now()})
		return fmt.Errorf("execute %s: %w", action, err)
	}
	r.bus.Publish(Event{Type: EventCommandExecuted, Action: action, Suffix: cmd.Suffix, Time: time.Now()})

	// Push the effect of the command to subscribers ahead of the next
	// scheduled poll. A failed refresh only costs the early update; the
	// periodic poll will publish it later.
	if err := r.ref.Refresh(ctx); err != nil {
		r.log.Errorf("post-command refresh after %s (%s): %v", action, id, err)
	}
	return nil
}
