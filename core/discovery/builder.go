package discovery

import (
	"encoding/json"

	"github.com/evbridge/skoda-mqtt/core/model"
	"github.com/evbridge/skoda-mqtt/core/topics"
	"github.com/evbridge/skoda-mqtt/core/vehicle"
)

// EntityKind is the Home Assistant component type of a discovered entity.
type EntityKind string

const (
	KindSensor       EntityKind = "sensor"
	KindBinarySensor EntityKind = "binary_sensor"
	KindButton       EntityKind = "button"
)

// Device identifies the vehicle shared by every discovered entity.
type Device struct {
	ID           string
	Name         string
	Manufacturer string
	Model        string
	SWVersion    string
}

// NewDevice derives the stable device identity from the VIN.
func NewDevice(vin, name, manufacturer, mdl string) Device {
	return Device{
		ID:           "skoda_" + vin,
		Name:         name,
		Manufacturer: manufacturer,
		Model:        mdl,
		SWVersion:    "1.0.0",
	}
}

// Descriptor describes one entity from the fixed discovery table. Sensors and
// binary sensors carry a structured field path into the state document;
// buttons carry the command suffix they publish to instead.
type Descriptor struct {
	Kind          EntityKind
	Key           string
	Name          string
	Unit          string
	DeviceClass   string
	StateClass    string
	Icon          string
	Path          model.FieldPath
	CommandSuffix string
}

// Descriptors returns the fixed entity table: two sensors, two binary
// sensors and one button per remote action. The table never changes at
// runtime.
func Descriptors() []Descriptor {
	return []Descriptor{
		{Kind: KindSensor, Key: "battery_soc", Name: "Battery Level", Unit: "%",
			DeviceClass: "battery", StateClass: "measurement", Path: model.FieldBatterySoC},
		{Kind: KindSensor, Key: "range", Name: "Range", Unit: "km",
			Icon: "mdi:map-marker-distance", StateClass: "measurement", Path: model.FieldBatteryRangeKm},
		{Kind: KindBinarySensor, Key: "charging", Name: "Charging",
			DeviceClass: "battery_charging", Path: model.FieldBatteryCharging},
		{Kind: KindBinarySensor, Key: "plugged_in", Name: "Plugged In",
			DeviceClass: "plug", Path: model.FieldBatteryPluggedIn},
		{Kind: KindButton, Key: "start_charging", Name: "Start Charging",
			Icon: "mdi:battery-charging", CommandSuffix: string(vehicle.ActionStartCharging)},
		{Kind: KindButton, Key: "stop_charging", Name: "Stop Charging",
			Icon: "mdi:battery-off", CommandSuffix: string(vehicle.ActionStopCharging)},
		{Kind: KindButton, Key: "lock", Name: "Lock Vehicle",
			Icon: "mdi:lock", CommandSuffix: string(vehicle.ActionLock)},
		{Kind: KindButton, Key: "unlock", Name: "Unlock Vehicle",
			Icon: "mdi:lock-open", CommandSuffix: string(vehicle.ActionUnlock)},
	}
}

// Entry is one ready-to-publish discovery document.
type Entry struct {
	Topic   string
	Payload []byte
}

// payload is the wire shape Home Assistant expects for a discovery config.
type payload struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	StateTopic        string     `json:"state_topic,omitempty"`
	ValueTemplate     string     `json:"value_template,omitempty"`
	UnitOfMeasurement string     `json:"unit_of_measurement,omitempty"`
	DeviceClass       string     `json:"device_class,omitempty"`
	StateClass        string     `json:"state_class,omitempty"`
	Icon              string     `json:"icon,omitempty"`
	PayloadOn         any        `json:"payload_on,omitempty"`
	PayloadOff        any        `json:"payload_off,omitempty"`
	CommandTopic      string     `json:"command_topic,omitempty"`
	PayloadPress      string     `json:"payload_press,omitempty"`
	AvailabilityTopic string     `json:"availability_topic"`
	Device            deviceInfo `json:"device"`
}

type deviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// Build renders every discovery document for the device. It is deterministic:
// identical inputs yield identical entries in a fixed order. Every non-button
// template references the single shared state topic so all entities ride one
// retained publish.
func Build(dev Device, topicPrefix, discoveryPrefix string) []Entry {
	info := deviceInfo{
		Identifiers:  []string{dev.ID},
		Name:         dev.Name,
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		SWVersion:    dev.SWVersion,
	}
	stateTopic := topics.State(topicPrefix)
	availTopic := topics.Availability(topicPrefix)

	entries := make([]Entry, 0, len(Descriptors()))
	for _, d := range Descriptors() {
		p := payload{
			Name:              d.Name,
			UniqueID:          dev.ID + "_" + d.Key,
			UnitOfMeasurement: d.Unit,
			DeviceClass:       d.DeviceClass,
			StateClass:        d.StateClass,
			Icon:              d.Icon,
			AvailabilityTopic: availTopic,
			Device:            info,
		}
		switch d.Kind {
		case KindButton:
			p.CommandTopic = topics.Command(topicPrefix, d.CommandSuffix)
			p.PayloadPress = "PRESS"
		case KindBinarySensor:
			p.StateTopic = stateTopic
			p.ValueTemplate = d.Path.Template()
			p.PayloadOn = true
			p.PayloadOff = false
		default:
			p.StateTopic = stateTopic
			p.ValueTemplate = d.Path.Template()
		}
		body, _ := json.Marshal(p)
		entries = append(entries, Entry{
			Topic:   topics.DiscoveryConfig(discoveryPrefix, string(d.Kind), dev.ID, d.Key),
			Payload: body,
		})
	}
	return entries
}
