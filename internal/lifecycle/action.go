package lifecycle

import (
	"fmt"
	"strings"
)

// ActionKind is one of the lifecycle operations that can be applied to a profile.
type ActionKind int

const (
	ActionStart ActionKind = iota + 1
	ActionStop
	ActionRestart
	ActionUpdate
	ActionBackup
	ActionShutdown
)

// AllActions lists every action kind in a stable order.
var AllActions = []ActionKind{
	ActionStart,
	ActionStop,
	ActionRestart,
	ActionUpdate,
	ActionBackup,
	ActionShutdown,
}

// String returns the lower-case verb used on every surface.
func (k ActionKind) String() string {
	switch k {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionRestart:
		return "restart"
	case ActionUpdate:
		return "update"
	case ActionBackup:
		return "backup"
	case ActionShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Valid reports whether k is one of the defined action kinds.
func (k ActionKind) Valid() bool {
	return k >= ActionStart && k <= ActionShutdown
}

// ParseActionKind resolves a verb case-insensitively.
func ParseActionKind(verb string) (ActionKind, error) {
	v := strings.ToLower(strings.TrimSpace(verb))
	for _, k := range AllActions {
		if k.String() == v {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", verb)
}
