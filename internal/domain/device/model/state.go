package model

// State is the single authoritative device state.
type State int

const (
	StateInit State = iota
	StateWaitingForPairing
	StateProvisioningNetwork
	StateConnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateWaitingForPairing:
		return "WaitingForPairing"
	case StateProvisioningNetwork:
		return "ProvisioningNetwork"
	case StateConnected:
		return "Connected"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
