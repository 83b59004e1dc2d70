package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/evbridge/skoda-mqtt/config"
	"github.com/evbridge/skoda-mqtt/core/bridge"
	"github.com/evbridge/skoda-mqtt/core/discovery"
	coremetrics "github.com/evbridge/skoda-mqtt/core/metrics"
	"github.com/evbridge/skoda-mqtt/core/topics"
	"github.com/evbridge/skoda-mqtt/infra/logger"
	"github.com/evbridge/skoda-mqtt/infra/metrics"
	"github.com/evbridge/skoda-mqtt/infra/mqtt"
	"github.com/evbridge/skoda-mqtt/infra/skoda"
	"github.com/evbridge/skoda-mqtt/internal/eventbus"
)

// Service wires the bridge, the transports and the observability sinks.
type Service struct {
	cfg    *config.Config
	log    logger.Logger
	client *mqtt.PahoClient
	bus    *eventbus.Bus[bridge.Event]
	sink   coremetrics.Sink

	mu     sync.Mutex
	bridge *bridge.Bridge
	router *bridge.Router
	ctx    context.Context
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	logg.Debugw("configuration loaded", cfg.Redacted())

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	svc := &Service{
		cfg:  cfg,
		log:  logg,
		bus:  eventbus.New[bridge.Event](),
		sink: sink,
	}

	mqttCfg := cfg.MQTT
	mqttCfg.WillTopic = topics.Availability(cfg.Bridge.TopicPrefix)
	mqttCfg.WillPayload = "offline"
	client, err := mqtt.NewPahoClient(mqttCfg, svc.onConnect)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	svc.client = client

	api := skoda.NewClient(cfg.Skoda)
	dev := discovery.NewDevice(cfg.Skoda.VIN, cfg.Discovery.DeviceName,
		cfg.Discovery.DeviceManufacturer, cfg.Discovery.DeviceModel)
	bcfg := cfg.BridgeConfig()

	svc.mu.Lock()
	svc.bridge = bridge.New(api, client, dev, bcfg, logger.New("bridge"), svc.bus)
	svc.router = bridge.NewRouter(api, svc.bridge, bcfg.CommandTimeout, logger.New("command_router"), svc.bus)
	svc.mu.Unlock()
	return svc, nil
}

// onConnect runs on every MQTT (re)connection: retained broker state for a
// fresh session cannot be assumed, so discovery, availability and the
// command subscription are re-established each time.
func (s *Service) onConnect() {
	s.mu.Lock()
	b, r, ctx := s.bridge, s.router, s.ctx
	s.mu.Unlock()
	if b == nil || ctx == nil {
		// initial connect during construction; Run does the first announce
		return
	}
	if err := b.Announce(); err != nil {
		s.log.Errorf("announce after reconnect: %v", err)
	}
	if err := b.SubscribeCommands(ctx, r); err != nil {
		s.log.Errorf("resubscribe after reconnect: %v", err)
	}
}

// Run starts the bridge and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	b, r := s.bridge, s.router
	s.mu.Unlock()

	go s.consumeEvents(s.bus.Subscribe())
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	if err := b.Announce(); err != nil {
		s.log.Errorf("initial announce: %v", err)
	}
	if err := b.SubscribeCommands(ctx, r); err != nil {
		return fmt.Errorf("subscribe commands: %w", err)
	}
	return b.Run(ctx)
}

func (s *Service) consumeEvents(events <-chan bridge.Event) {
	for ev := range events {
		var err error
		switch ev.Type {
		case bridge.EventStatePublished:
			if err = s.sink.RecordPoll(true, ev.Duration); err == nil {
				err = s.sink.RecordState(ev.State)
			}
		case bridge.EventPollFailed:
			err = s.sink.RecordPoll(false, ev.Duration)
		case bridge.EventCommandExecuted:
			err = s.sink.RecordCommand(string(ev.Action), "success")
		case bridge.EventCommandFailed:
			err = s.sink.RecordCommand(string(ev.Action), "failed")
		case bridge.EventCommandRejected:
			err = s.sink.RecordCommand(ev.Suffix, "rejected")
		}
		if err != nil {
			s.log.Warnf("metrics record: %v", err)
		}
	}
}

// Close flips availability to offline and releases every resource. The
// explicit offline publish covers the graceful path; the last will covers
// the ungraceful one.
func (s *Service) Close() error {
	if s.client != nil {
		avail := topics.Availability(s.cfg.Bridge.TopicPrefix)
		if err := s.client.Publish(avail, []byte("offline"), 1, true); err != nil {
			s.log.Errorf("publish offline: %v", err)
		}
		s.client.Disconnect()
	}
	s.bus.Close()
	if closer, ok := s.sink.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}
