package egon

import "strings"

// Action is a command accepted by action.html
type Action string

const (
	// ActionOn turns a light on
	ActionOn Action = "ON"
	// ActionOff turns a light off
	ActionOff Action = "OFF"
	// ActionUp opens a blind
	ActionUp Action = "UP"
	// ActionDown closes a blind
	ActionDown Action = "DOWN"
	// ActionStop stops a moving blind
	ActionStop Action = "STOP"
)

// Actions lists the commands the module is known to accept
var Actions = []Action{ActionOn, ActionOff, ActionUp, ActionDown, ActionStop}

// Known reports whether a is one of Actions
func (a Action) Known() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// ParseAction normalizes user input ("on", " Stop ") to an Action. The
// result is returned even when it is not a known action, because the
// module decides what it accepts.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	return a, a.Known()
}

// Values reported by state.html for lights and blinds
const (
	StateUpStop   = "up_stop"
	StateDownStop = "down_stop"
	StateUpRun    = "up_run"
	StateDownRun  = "down_run"
	StateOn       = "on"
	StateOff      = "off"
)

// DescribeState returns a human-readable label for a state value. Unknown
// values are returned unchanged.
func DescribeState(value string) string {
	switch value {
	case StateUpStop:
		return "opened"
	case StateDownStop:
		return "closed"
	case StateUpRun:
		return "opening"
	case StateDownRun:
		return "closing"
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	default:
		return value
	}
}
