package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	coremetrics "github.com/evbridge/skoda-mqtt/core/metrics"
	"github.com/evbridge/skoda-mqtt/infra/mqtt"
	"github.com/evbridge/skoda-mqtt/infra/skoda"
)

// Config is the root configuration document.
type Config struct {
	Skoda     skoda.Config       `json:"skoda"`
	MQTT      mqtt.Config        `json:"mqtt"`
	Bridge    BridgeConfig       `json:"bridge"`
	Discovery DiscoveryConfig    `json:"discovery"`
	Metrics   coremetrics.Config `json:"metrics"`
}

// Load reads the configuration file, applies SKB_-prefixed environment
// overrides, fills defaults and validates. Any validation error is fatal for
// the caller: the process must not enter the poll loop on a bad config.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides, e.g. SKB_SKODA__PASSWORD.
	if err := k.Load(env.Provider("SKB_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "skb_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Skoda.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Bridge.SetDefaults()
	cfg.Discovery.SetDefaults()
	cfg.Metrics.SetDefaults()

	if err := cfg.Skoda.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Bridge.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Redacted renders the configuration for startup logging with secrets masked.
func (c *Config) Redacted() map[string]any {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	return map[string]any{
		"skoda.username":             c.Skoda.Username,
		"skoda.password":             mask(c.Skoda.Password),
		"skoda.vin":                  c.Skoda.VIN,
		"mqtt.broker":                c.MQTT.Broker,
		"mqtt.client_id":             c.MQTT.ClientID,
		"mqtt.username":              c.MQTT.Username,
		"mqtt.password":              mask(c.MQTT.Password),
		"bridge.topic_prefix":        c.Bridge.TopicPrefix,
		"bridge.poll_interval_s":     c.Bridge.PollIntervalSeconds,
		"bridge.command_timeout_s":   c.Bridge.CommandTimeoutSeconds,
		"discovery.disabled":         c.Discovery.Disabled,
		"discovery.prefix":           c.Discovery.Prefix,
		"metrics.prometheus_enabled": c.Metrics.PrometheusEnabled,
		"metrics.influx_enabled":     c.Metrics.InfluxEnabled,
	}
}
