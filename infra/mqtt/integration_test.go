package mqtt

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegration verifies publish/subscribe round trips against a real
// Mosquitto broker.
func TestIntegration(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start container: %v", err)
	}
	defer func() {
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %v", err)
		}
	}()

	// give broker time to fully start
	time.Sleep(500 * time.Millisecond)

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	cfg := Config{Broker: fmt.Sprintf("tcp://%s:%s", host, port.Port())}
	cfg.SetDefaults()

	var cli *PahoClient
	var connectErr error
	for i := 0; i < 5; i++ {
		cli, connectErr = NewPahoClient(cfg, nil)
		if connectErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if connectErr != nil {
		t.Fatalf("failed to connect: %v", connectErr)
	}
	defer cli.Disconnect()

	msgCh := make(chan string, 1)
	if err := cli.Subscribe("skoda/enyaq/cmd/#", 1, func(topic string, payload []byte) {
		msgCh <- topic + ":" + string(payload)
	}); err != nil {
		t.Fatalf("failed to subscribe: %v", err)
	}

	if err := cli.Publish("skoda/enyaq/cmd/lock", []byte("PRESS"), 1, false); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	select {
	case got := <-msgCh:
		if got != "skoda/enyaq/cmd/lock:PRESS" {
			t.Fatalf("unexpected message: %s", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}

	// retained state publish survives a fresh subscription
	if err := cli.Publish("skoda/enyaq/state", []byte(`{"battery":{"soc":50}}`), 0, true); err != nil {
		t.Fatalf("failed to publish state: %v", err)
	}
	stateCh := make(chan []byte, 1)
	if err := cli.Subscribe("skoda/enyaq/state", 0, func(_ string, payload []byte) {
		stateCh <- payload
	}); err != nil {
		t.Fatalf("failed to subscribe to state: %v", err)
	}
	select {
	case payload := <-stateCh:
		if string(payload) != `{"battery":{"soc":50}}` {
			t.Fatalf("unexpected retained state: %s", payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retained state not received")
	}
}
