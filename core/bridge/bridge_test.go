package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/evbridge/skoda-mqtt/core/discovery"
	"github.com/evbridge/skoda-mqtt/core/model"
	"github.com/evbridge/skoda-mqtt/core/vehicle"
	"github.com/evbridge/skoda-mqtt/internal/eventbus"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

func testConfig() Config {
	return Config{
		TopicPrefix:      "skoda/enyaq",
		DiscoveryPrefix:  "homeassistant",
		DiscoveryEnabled: true,
		PollInterval:     50 * time.Millisecond,
		RetryInterval:    10 * time.Millisecond,
		CommandTimeout:   time.Second,
	}
}

func fullStatus() vehicle.StatusDocument {
	return vehicle.StatusDocument{
		"battery": map[string]any{
			"soc": float64(75), "range_km": float64(280),
			"charging": false, "plugged_in": true,
		},
		"doors": map[string]any{"locked": true},
	}
}

func newTestBridge(api *MockAPI, pub *MockPublisher) *Bridge {
	dev := discovery.NewDevice("VIN123", "Skoda Enyaq", "Skoda", "Enyaq iV")
	return New(api, pub, dev, testConfig(), nopLogger{}, eventbus.New[Event]())
}

func TestRefreshPublishesRetainedState(t *testing.T) {
	api := &MockAPI{StatusDoc: fullStatus()}
	pub := &MockPublisher{}
	b := newTestBridge(api, pub)

	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	recs := pub.Published("skoda/enyaq/state")
	if len(recs) != 1 {
		t.Fatalf("expected 1 state publish, got %d", len(recs))
	}
	if !recs[0].Retain {
		t.Error("state publish must be retained")
	}
	var got model.VehicleState
	if err := json.Unmarshal(recs[0].Payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.Battery.SoC != 75 || got.Battery.RangeKm != 280 || !got.Battery.PluggedIn || !got.Doors.Locked {
		t.Errorf("unexpected state payload: %+v", got)
	}
	if got.LastUpdated == "" {
		t.Error("last_updated not set")
	}
	if b.State().Battery.SoC != 75 {
		t.Errorf("in-memory snapshot not updated: %+v", b.State())
	}
}

func TestRefreshFailureKeepsPreviousState(t *testing.T) {
	api := &MockAPI{StatusDoc: fullStatus()}
	pub := &MockPublisher{}
	b := newTestBridge(api, pub)

	if err := b.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := b.State()

	api.mu.Lock()
	api.StatusErr = errors.New("rate limited")
	api.mu.Unlock()

	if err := b.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := len(pub.Published("skoda/enyaq/state")); got != 1 {
		t.Errorf("failed refresh must not publish, got %d publishes", got)
	}
	if b.State() != before {
		t.Errorf("previous snapshot must be retained: %+v", b.State())
	}
}

func TestAnnouncePublishesAvailabilityAndDiscovery(t *testing.T) {
	api := &MockAPI{StatusDoc: fullStatus()}
	pub := &MockPublisher{}
	b := newTestBridge(api, pub)

	if err := b.Announce(); err != nil {
		t.Fatalf("announce: %v", err)
	}

	avail := pub.Published("skoda/enyaq/availability")
	if len(avail) != 1 || string(avail[0].Payload) != "online" || !avail[0].Retain {
		t.Fatalf("availability publish wrong: %+v", avail)
	}
	var configs int
	for _, r := range pub.Records() {
		if r.Topic != "skoda/enyaq/availability" {
			if !r.Retain {
				t.Errorf("discovery publish to %s not retained", r.Topic)
			}
			configs++
		}
	}
	if configs != 8 {
		t.Errorf("expected 8 discovery publishes, got %d", configs)
	}

	// Announcing twice is safe and yields identical documents.
	if err := b.Announce(); err != nil {
		t.Fatalf("second announce: %v", err)
	}
}

func TestAnnounceDiscoveryDisabled(t *testing.T) {
	api := &MockAPI{StatusDoc: fullStatus()}
	pub := &MockPublisher{}
	dev := discovery.NewDevice("VIN123", "Skoda Enyaq", "Skoda", "Enyaq iV")
	cfg := testConfig()
	cfg.DiscoveryEnabled = false
	b := New(api, pub, dev, cfg, nopLogger{}, eventbus.New[Event]())

	if err := b.Announce(); err != nil {
		t.Fatalf("announce: %v", err)
	}
	if got := len(pub.Records()); got != 1 {
		t.Errorf("expected only the availability publish, got %d", got)
	}
}

func TestRunPollsUntilCancelled(t *testing.T) {
	api := &MockAPI{StatusDoc: fullStatus()}
	pub := &MockPublisher{}
	b := newTestBridge(api, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(pub.Published("skoda/enyaq/state")) < 2 {
		select {
		case <-deadline:
			t.Fatal("poll loop never reached two publishes")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop on cancel")
	}
}

func TestRunSurvivesFailures(t *testing.T) {
	api := &MockAPI{StatusErr: errors.New("network down")}
	pub := &MockPublisher{}
	b := newTestBridge(api, pub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = b.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for api.StatusCalls() < 3 {
		select {
		case <-deadline:
			t.Fatal("loop did not keep retrying after failures")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := len(pub.Published("skoda/enyaq/state")); got != 0 {
		t.Errorf("no state may be published while fetches fail, got %d", got)
	}
	cancel()
	<-done
}

func TestRetryDelayBackoffBounded(t *testing.T) {
	api := &MockAPI{}
	pub := &MockPublisher{}
	b := newTestBridge(api, pub)
	b.cfg.RetryInterval = 10 * time.Millisecond
	b.cfg.PollInterval = 60 * time.Millisecond

	b.failures = 1
	if got := b.retryDelay(); got != 10*time.Millisecond {
		t.Errorf("first retry delay: %v", got)
	}
	b.failures = 2
	if got := b.retryDelay(); got != 20*time.Millisecond {
		t.Errorf("second retry delay: %v", got)
	}
	b.failures = 10
	if got := b.retryDelay(); got != 60*time.Millisecond {
		t.Errorf("delay must cap at the poll interval, got %v", got)
	}
}
