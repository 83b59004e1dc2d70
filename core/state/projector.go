package state

import (
	"encoding/json"
	"time"

	"github.com/evbridge/skoda-mqtt/core/model"
	"github.com/evbridge/skoda-mqtt/core/vehicle"
)

// Project maps a raw upstream status document into a VehicleState. It is
// total: a missing or reshaped field degrades to its zero default instead of
// failing, so a partial upstream answer still yields a publishable snapshot.
// Values present upstream are relayed verbatim, consistent or not.
func Project(doc vehicle.StatusDocument) model.VehicleState {
	var s model.VehicleState
	if battery, ok := section(doc, "battery"); ok {
		s.Battery.SoC = intField(battery, "soc")
		s.Battery.RangeKm = intField(battery, "range_km")
		s.Battery.Charging = boolField(battery, "charging")
		s.Battery.PluggedIn = boolField(battery, "plugged_in")
	}
	if doors, ok := section(doc, "doors"); ok {
		s.Doors.Locked = boolField(doors, "locked")
	}
	return s
}

// Serialize renders the snapshot as the single JSON state payload.
// last_updated is stamped at serialization time, not at fetch time.
func Serialize(s model.VehicleState) ([]byte, error) {
	return SerializeAt(s, time.Now())
}

// SerializeAt is Serialize with an explicit clock, used by tests.
func SerializeAt(s model.VehicleState, now time.Time) ([]byte, error) {
	s.LastUpdated = now.Format(model.TimestampLayout)
	return json.Marshal(s)
}

func section(doc vehicle.StatusDocument, key string) (map[string]any, bool) {
	v, ok := doc[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		// encoding/json decodes every number as float64.
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return 0
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}
