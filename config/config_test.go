package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `skoda:
  username: "user@example.com"
  password: "secret"
  vin: "TMBJB9NY1RF000001"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "bridge"
  username: "mq"
  password: "mqpass"
bridge:
  topic_prefix: "skoda/enyaq"
  poll_interval_seconds: 600
  command_timeout_seconds: 10
discovery:
  prefix: "homeassistant"
metrics:
  prometheus_enabled: true
  prometheus_port: "9102"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"skoda.username", cfg.Skoda.Username, "user@example.com"},
		{"skoda.vin", cfg.Skoda.VIN, "TMBJB9NY1RF000001"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "bridge"},
		{"topic_prefix", cfg.Bridge.TopicPrefix, "skoda/enyaq"},
		{"poll_interval", cfg.Bridge.PollIntervalSeconds, 600},
		{"command_timeout", cfg.Bridge.CommandTimeoutSeconds, 10},
		{"discovery.prefix", cfg.Discovery.Prefix, "homeassistant"},
		{"prometheus_enabled", cfg.Metrics.PrometheusEnabled, true},
		{"prometheus_port", cfg.Metrics.PrometheusPort, "9102"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `skoda:
  username: "user"
  password: "secret"
  vin: "VIN123"
mqtt:
  broker: "tcp://localhost:1883"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Bridge.PollIntervalSeconds != 300 {
		t.Errorf("default poll interval: %d", cfg.Bridge.PollIntervalSeconds)
	}
	if cfg.Bridge.CommandTimeoutSeconds != 30 {
		t.Errorf("default command timeout: %d", cfg.Bridge.CommandTimeoutSeconds)
	}
	if cfg.Bridge.TopicPrefix != "skoda/enyaq" {
		t.Errorf("default topic prefix: %s", cfg.Bridge.TopicPrefix)
	}
	if cfg.Discovery.Disabled {
		t.Error("discovery should be enabled by default")
	}
	if cfg.Discovery.DeviceName != "Skoda Enyaq" || cfg.Discovery.DeviceModel != "Enyaq iV" {
		t.Errorf("device metadata defaults: %+v", cfg.Discovery)
	}
	if cfg.Skoda.TimeoutSeconds != 30 {
		t.Errorf("default skoda timeout: %d", cfg.Skoda.TimeoutSeconds)
	}
	if cfg.MQTT.ClientID == "" {
		t.Error("client id default missing")
	}
}

func TestLoadClampsShortPollInterval(t *testing.T) {
	path := writeConfig(t, `skoda:
  username: "user"
  password: "secret"
  vin: "VIN123"
mqtt:
  broker: "tcp://localhost:1883"
bridge:
  poll_interval_seconds: 100
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Bridge.PollIntervalSeconds != MinPollIntervalSeconds {
		t.Errorf("poll interval not clamped: %d", cfg.Bridge.PollIntervalSeconds)
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing skoda credentials", `mqtt:
  broker: "tcp://localhost:1883"
`},
		{"missing vin", `skoda:
  username: "user"
  password: "secret"
mqtt:
  broker: "tcp://localhost:1883"
`},
		{"missing broker", `skoda:
  username: "user"
  password: "secret"
  vin: "VIN123"
`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, c.data)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `skoda:
  username: "user"
  password: "file-secret"
  vin: "VIN123"
mqtt:
  broker: "tcp://localhost:1883"
`)
	t.Setenv("SKB_SKODA__PASSWORD", "env-secret")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Skoda.Password != "env-secret" {
		t.Errorf("env override not applied: %s", cfg.Skoda.Password)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected unsupported format error")
	}
}

func TestRedactedMasksSecrets(t *testing.T) {
	path := writeConfig(t, `skoda:
  username: "user"
  password: "secret"
  vin: "VIN123"
mqtt:
  broker: "tcp://localhost:1883"
  password: "mqpass"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	red := cfg.Redacted()
	if red["skoda.password"] != "***" || red["mqtt.password"] != "***" {
		t.Errorf("secrets not masked: %v", red)
	}
	if red["skoda.username"] != "user" {
		t.Errorf("non-secret mangled: %v", red["skoda.username"])
	}
}
