package models

import "fmt"

// Action is a lifecycle operation a user can request on a cluster
type Action string

const (
	ActionResume  Action = "resume"
	ActionPause   Action = "pause"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// ParseAction validates a raw action name
func ParseAction(raw string) (Action, error) {
	action := Action(raw)
	if !action.Valid() {
		return "", fmt.Errorf("unknown cluster action %q", raw)
	}
	return action, nil
}

func (a Action) Valid() bool {
	switch a {
	case ActionResume, ActionPause, ActionStop, ActionRestart:
		return true
	}
	return false
}

func (a Action) String() string {
	return string(a)
}
