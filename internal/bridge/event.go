package bridge

import (
	"time"

	"github.com/jimm98y/EgonAPI/internal/egon"
)

// EventType tags every message the bridge sends
type EventType string

const (
	EventSnapshot     EventType = "snapshot"
	EventState        EventType = "state"
	EventActionResult EventType = "action_result"
	EventError        EventType = "error"
)

// CommandAction is the only command clients can send
const CommandAction = "action"

// ChangeView is the wire form of one egon.Change
type ChangeView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Previous string `json:"previous"`
	Value    string `json:"value"`
}

// Event is sent to WebSocket clients and publishers
type Event struct {
	Type          EventType               `json:"type"`
	Module        string                  `json:"module,omitempty"`
	Time          time.Time               `json:"time"`
	Changes       []ChangeView            `json:"changes,omitempty"`
	Configuration *egon.ConfigurationView `json:"configuration,omitempty"`
	ID            string                  `json:"id,omitempty"`
	Action        string                  `json:"action,omitempty"`
	OK            *bool                   `json:"ok,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

// Command is a message received from a WebSocket client
type Command struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Action string `json:"action"`
}

// NewStateEvent converts a poll delta
func NewStateEvent(module string, delta egon.StateDelta, at time.Time) Event {
	changes := make([]ChangeView, len(delta))
	for i, c := range delta {
		changes[i] = ChangeView{
			ID:       c.Element.ID,
			Name:     c.Element.Name,
			Type:     c.Element.Type,
			Previous: c.Element.Value,
			Value:    c.Value,
		}
	}
	return Event{Type: EventState, Module: module, Time: at, Changes: changes}
}

// NewSnapshotEvent carries the whole configuration, sent on attach
func NewSnapshotEvent(module string, cfg *egon.Configuration, at time.Time) Event {
	view := cfg.View()
	return Event{Type: EventSnapshot, Module: module, Time: at, Configuration: &view}
}

func newActionResult(module, id string, action egon.Action, ok bool, at time.Time) Event {
	return Event{Type: EventActionResult, Module: module, Time: at, ID: id, Action: string(action), OK: &ok}
}

func newErrorEvent(module, msg string, at time.Time) Event {
	return Event{Type: EventError, Module: module, Time: at, Error: msg}
}
