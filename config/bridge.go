package config

import (
	"fmt"
	"time"

	"github.com/evbridge/skoda-mqtt/core/bridge"
)

// MinPollIntervalSeconds is the floor for the poll cadence. The upstream API
// rate-limits aggressively; configured values below the floor are clamped up.
const MinPollIntervalSeconds = 300

// BridgeConfig defines the poll loop and command handling knobs.
type BridgeConfig struct {
	TopicPrefix           string `json:"topic_prefix"`
	PollIntervalSeconds   int    `json:"poll_interval_seconds"`
	RetryIntervalSeconds  int    `json:"retry_interval_seconds"`
	CommandTimeoutSeconds int    `json:"command_timeout_seconds"`
}

// SetDefaults applies sane defaults and clamps the poll interval to the floor.
func (c *BridgeConfig) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "skoda/enyaq"
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = MinPollIntervalSeconds
	}
	if c.PollIntervalSeconds < MinPollIntervalSeconds {
		c.PollIntervalSeconds = MinPollIntervalSeconds
	}
	if c.RetryIntervalSeconds <= 0 {
		c.RetryIntervalSeconds = 60
	}
	if c.CommandTimeoutSeconds <= 0 {
		c.CommandTimeoutSeconds = 30
	}
}

// Validate checks the clamped invariants hold.
func (c BridgeConfig) Validate() error {
	if c.PollIntervalSeconds < MinPollIntervalSeconds {
		return fmt.Errorf("poll_interval_seconds must be at least %d", MinPollIntervalSeconds)
	}
	if c.TopicPrefix == "" {
		return fmt.Errorf("topic_prefix is required")
	}
	return nil
}

// DiscoveryConfig controls Home Assistant discovery publishing and the
// device metadata shared by every entity.
type DiscoveryConfig struct {
	Disabled           bool   `json:"disabled"`
	Prefix             string `json:"prefix"`
	DeviceName         string `json:"device_name"`
	DeviceManufacturer string `json:"device_manufacturer"`
	DeviceModel        string `json:"device_model"`
}

// SetDefaults fills the discovery prefix and the device metadata.
func (c *DiscoveryConfig) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = "homeassistant"
	}
	if c.DeviceName == "" {
		c.DeviceName = "Skoda Enyaq"
	}
	if c.DeviceManufacturer == "" {
		c.DeviceManufacturer = "Skoda"
	}
	if c.DeviceModel == "" {
		c.DeviceModel = "Enyaq iV"
	}
}

// BridgeConfig converts the section into the core bridge configuration.
func (c *Config) BridgeConfig() bridge.Config {
	return bridge.Config{
		TopicPrefix:      c.Bridge.TopicPrefix,
		DiscoveryPrefix:  c.Discovery.Prefix,
		DiscoveryEnabled: !c.Discovery.Disabled,
		PollInterval:     time.Duration(c.Bridge.PollIntervalSeconds) * time.Second,
		RetryInterval:    time.Duration(c.Bridge.RetryIntervalSeconds) * time.Second,
		CommandTimeout:   time.Duration(c.Bridge.CommandTimeoutSeconds) * time.Second,
	}
}
