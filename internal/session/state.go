package session

import "fmt"

// State is where the push channel is in its lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateBootstrapping
	StateSynchronized
	StateDegraded
)

var stateNames = [...]string{
	StateDisconnected:  "disconnected",
	StateConnecting:    "connecting",
	StateBootstrapping: "bootstrapping",
	StateSynchronized:  "synchronized",
	StateDegraded:      "degraded",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", b)
}

// Writable reports whether edits can be sent in this state.
func (s State) Writable() bool { return s == StateSynchronized }
