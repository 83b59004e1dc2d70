package vehicle

import "context"

// Action is a remote command supported by the vehicle.
type Action string

const (
	ActionStartCharging Action = "start_charging"
	ActionStopCharging  Action = "stop_charging"
	ActionLock          Action = "lock"
	ActionUnlock        Action = "unlock"
)

// Actions lists every supported action in a stable order.
func Actions() []Action {
	return []Action{ActionStartCharging, ActionStopCharging, ActionLock, ActionUnlock}
}

// ParseAction maps a command-topic suffix to an Action.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionStartCharging, ActionStopCharging, ActionLock, ActionUnlock:
		return Action(s), true
	}
	return "", false
}

// StatusDocument is the raw vehicle-status response from the upstream API.
// It is kept loosely typed on purpose: projection into VehicleState tolerates
// any missing or reshaped field.
type StatusDocument map[string]any

// API is the upstream vehicle-control collaborator. Implementations must
// honour the context deadline on every call.
type API interface {
	// Status fetches the current vehicle status document.
	Status(ctx context.Context) (StatusDocument, error)

	// Command executes a remote action on the vehicle.
	Command(ctx context.Context, action Action) error
}
