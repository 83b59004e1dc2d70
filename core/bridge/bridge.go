package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/evbridge/skoda-mqtt/core/discovery"
	"github.com/evbridge/skoda-mqtt/core/logger"
	"github.com/evbridge/skoda-mqtt/core/model"
	"github.com/evbridge/skoda-mqtt/core/state"
	"github.com/evbridge/skoda-mqtt/core/topics"
	"github.com/evbridge/skoda-mqtt/core/vehicle"
	"github.com/evbridge/skoda-mqtt/internal/eventbus"
)

// Publisher is the messaging transport consumed by the bridge.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retain bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
}

// Config holds the runtime knobs for the poll loop. Values are expected to
// be validated at configuration-load time.
type Config struct {
	TopicPrefix      string
	DiscoveryPrefix  string
	DiscoveryEnabled bool
	PollInterval     time.Duration
	RetryInterval    time.Duration
	CommandTimeout   time.Duration
}

// Bridge owns the single VehicleState of the process and every publish to
// the state topic. The periodic poll and the post-command refresh both go
// through Refresh, which serializes them under one mutex.
type Bridge struct {
	api vehicle.API
	pub Publisher
	dev discovery.Device
	cfg Config
	log logger.Logger
	bus *eventbus.Bus[Event]

	mu       sync.Mutex
	current  model.VehicleState
	failures int
}

// New wires a bridge from its collaborators.
func New(api vehicle.API, pub Publisher, dev discovery.Device, cfg Config, log logger.Logger, bus *eventbus.Bus[Event]) *Bridge {
	return &Bridge{api: api, pub: pub, dev: dev, cfg: cfg, log: log, bus: bus}
}

// State returns the last successfully projected snapshot.
func (b *Bridge) State() model.VehicleState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Announce publishes the availability and discovery documents. All payloads
// are retained and identical across calls, so running this on every
// (re)connect is safe.
func (b *Bridge) Announce() error {
	if err := b.pub.Publish(topics.Availability(b.cfg.TopicPrefix), []byte("online"), 1, true); err != nil {
		return fmt.Errorf("publish availability: %w", err)
	}
	if !b.cfg.DiscoveryEnabled {
		return nil
	}
	entries := discovery.Build(b.dev, b.cfg.TopicPrefix, b.cfg.DiscoveryPrefix)
	for _, e := range entries {
		if err := b.pub.Publish(e.Topic, e.Payload, 1, true); err != nil {
			return fmt.Errorf("publish discovery %s: %w", e.Topic, err)
		}
	}
	b.log.Infof("announced %d discovery entities for %s", len(entries), b.dev.ID)
	return nil
}

// SubscribeCommands subscribes the command wildcard and routes inbound
// messages through the router. No dispatch is started once ctx is done.
func (b *Bridge) SubscribeCommands(ctx context.Context, r *Router) error {
	wildcard := topics.CommandWildcard(b.cfg.TopicPrefix)
	return b.pub.Subscribe(wildcard, 1, func(topic string, payload []byte) {
		if ctx.Err() != nil {
			return
		}
		suffix, ok := topics.CommandSuffix(b.cfg.TopicPrefix, topic)
		if !ok {
			return
		}
		// payload is deliberately ignored: every command is a bare trigger
		r.Dispatch(ctx, Command{Suffix: suffix, Payload: payload})
	})
}

// Run drives the poll loop until ctx is cancelled. A failed tick retains the
// previous snapshot and retries sooner than the regular cadence; failures
// never terminate the loop.
func (b *Bridge) Run(ctx context.Context) error {
	b.log.Infof("poll loop started, interval %s", b.cfg.PollInterval)
	for {
		wait := b.cfg.PollInterval
		if err := b.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait = b.retryDelay()
			b.log.Errorf("poll failed, next attempt in %s: %v", wait, err)
		}
		select {
		case <-ctx.Done():
			b.log.Infof("poll loop stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

// Refresh fetches the vehicle status and, on success, publishes a fresh
// retained snapshot to the state topic. On failure nothing is published and
// the previous snapshot is kept. This is the shared critical section of the
// poll loop and the command router.
func (b *Bridge) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	fetchCtx, cancel := context.WithTimeout(ctx, b.cfg.CommandTimeout)
	defer cancel()
	doc, err := b.api.Status(fetchCtx)
	if err != nil {
		b.failures++
		b.bus.Publish(Event{Type: EventPollFailed, Duration: time.Since(start), Time: time.Now()})
		return fmt.Errorf("fetch status: %w", err)
	}

	snapshot := state.Project(doc)
	payload, err := state.Serialize(snapshot)
	if err != nil {
		b.failures++
		return fmt.Errorf("serialize state: %w", err)
	}
	if err := b.pub.Publish(topics.State(b.cfg.TopicPrefix), payload, 0, true); err != nil {
		b.failures++
		b.bus.Publish(Event{Type: EventPollFailed, Duration: time.Since(start), Time: time.Now()})
		return fmt.Errorf("publish state: %w", err)
	}

	b.current = snapshot
	b.failures = 0
	b.bus.Publish(Event{Type: EventStatePublished, State: snapshot, Duration: time.Since(start), Time: time.Now()})
	b.log.Debugw("state published", map[string]any{
		"soc":      snapshot.Battery.SoC,
		"range_km": snapshot.Battery.RangeKm,
		"charging": snapshot.Battery.Charging,
	})
	return nil
}

// retryDelay doubles per consecutive failure, bounded by the poll interval.
func (b *Bridge) retryDelay() time.Duration {
	b.mu.Lock()
	n := b.failures
	b.mu.Unlock()

	delay := b.cfg.RetryInterval
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= b.cfg.PollInterval {
			break
		}
	}
	if delay > b.cfg.PollInterval {
		delay = b.cfg.PollInterval
	}
	return delay
}
