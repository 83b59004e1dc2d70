package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/evbridge/skoda-mqtt/core/vehicle"
)

// MockAPI is a configurable vehicle.API used in tests.
type MockAPI struct {
	mu           sync.Mutex
	StatusDoc    vehicle.StatusDocument
	StatusErr    error
	CommandErr   error
	CommandDelay time.Duration

	statusCalls  int
	commandCalls []vehicle.Action
	inFlight     int
	maxInFlight  int
}

func (m *MockAPI) Status(ctx context.Context) (vehicle.StatusDocument, error) {
	m.mu.Lock()
	m.statusCalls++
	doc, err := m.StatusDoc, m.StatusErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *MockAPI) Command(ctx context.Context, action vehicle.Action) error {
	m.mu.Lock()
	m.commandCalls = append(m.commandCalls, action)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay, err := m.CommandDelay, m.CommandErr
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
	return err
}

// StatusCalls reports how many times Status was invoked.
func (m *MockAPI) StatusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusCalls
}

// CommandCalls returns the executed actions in order.
func (m *MockAPI) CommandCalls() []vehicle.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vehicle.Action(nil), m.commandCalls...)
}

// MaxInFlight reports the highest number of concurrently executing commands.
func (m *MockAPI) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// PublishRecord captures one publish call on the mock transport.
type PublishRecord struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// MockPublisher records publishes and subscriptions in memory.
type MockPublisher struct {
	mu         sync.Mutex
	PublishErr error
	records    []PublishRecord
	handlers   map[string]func(topic string, payload []byte)
}

func (m *MockPublisher) Publish(topic string, payload []byte, qos byte, retain bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.records = append(m.records, PublishRecord{Topic: topic, Payload: append([]byte(nil), payload...), QoS: qos, Retain: retain})
	return nil
}

func (m *MockPublisher) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[string]func(string, []byte))
	}
	m.handlers[topic] = handler
	return nil
}

// Records returns a copy of every publish observed so far.
func (m *MockPublisher) Records() []PublishRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishRecord(nil), m.records...)
}

// Published returns the publishes to one topic.
func (m *MockPublisher) Published(topic string) []PublishRecord {
	var out []PublishRecord
	for _, r := range m.Records() {
		if r.Topic == topic {
			out = append(out, r)
		}
	}
	return out
}

// Deliver simulates an inbound message on a subscribed wildcard.
func (m *MockPublisher) Deliver(topic string, payload []byte) {
	m.mu.Lock()
	handlers := make([]func(string, []byte), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}
