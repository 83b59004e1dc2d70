package model

// FieldPath identifies a value inside the published state document. The
// discovery payloads need a string template for the downstream consumer, but
// internally every accessor is one of these known constants so a typo cannot
// produce a template pointing at a field that is never published.
type FieldPath int

const (
	FieldBatterySoC FieldPath = iota
	FieldBatteryRangeKm
	FieldBatteryCharging
	FieldBatteryPluggedIn
	FieldDoorsLocked
)

// JSONPath returns the dotted path of the field inside VehicleState JSON.
func (f FieldPath) JSONPath() string {
	switch f {
	case FieldBatterySoC:
		return "battery.soc"
	case FieldBatteryRangeKm:
		return "battery.range_km"
	case FieldBatteryCharging:
		return "battery.charging"
	case FieldBatteryPluggedIn:
		return "battery.plugged_in"
	case FieldDoorsLocked:
		return "doors.locked"
	}
	return ""
}

// Template renders the value-extraction template consumed by Home Assistant.
func (f FieldPath) Template() string {
	return "{{ value_json." + f.JSONPath() + " }}"
}

// Extract reads the field value out of a snapshot.
func (f FieldPath) Extract(s VehicleState) any {
	switch f {
	case FieldBatterySoC:
		return s.Battery.SoC
	case FieldBatteryRangeKm:
		return s.Battery.RangeKm
	case FieldBatteryCharging:
		return s.Battery.Charging
	case FieldBatteryPluggedIn:
		return s.Battery.PluggedIn
	case FieldDoorsLocked:
		return s.Doors.Locked
	}
	return nil
}
