// Package alarm turns window features and the active threshold set into a
// debounced alarm state.
package alarm

// State is the externally visible alarm condition.
type State int

const (
	Disconnected State = iota
	Normal
	Warning
	Danger
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	}
	return "unknown"
}

// StatusCode returns the integer the downstream display firmware expects:
// 0 disconnected, 1 normal, 2 warning, 3 danger.
func (s State) StatusCode() int {
	if s < Disconnected || s > Danger {
		return 0
	}
	return int(s)
}
