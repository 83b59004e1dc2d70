package model

// BatteryState holds the charge-related portion of a vehicle snapshot.
type BatteryState struct {
	SoC       int  `json:"soc"`        // state of charge, percent
	RangeKm   int  `json:"range_km"`   // estimated remaining range
	Charging  bool `json:"charging"`   // a charging session is active
	PluggedIn bool `json:"plugged_in"` // a cable is connected
}

// DoorState holds the lock status of the vehicle.
type DoorState struct {
	Locked bool `json:"locked"`
}

// VehicleState is the canonical snapshot published on the state topic.
// It is replaced wholesale on every refresh; there are no partial updates.
// The bridge relays whatever the upstream API reports, including
// combinations such as charging without a plugged cable.
type VehicleState struct {
	Battery     BatteryState `json:"battery"`
	Doors       DoorState    `json:"doors"`
	LastUpdated string       `json:"last_updated"`
}

// TimestampLayout formats last_updated with fixed microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"
