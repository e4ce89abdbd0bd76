package device

import "kumbara-device-go/internal/domain/device/model"

// Transition is the whole state table. ok is false when ev has no effect
// in cur; next is then cur.
func Transition(cur model.State, ev Event) (next model.State, ok bool) {
	switch e := ev.(type) {
	case ResetRecognized:
		return model.StateInit, true

	case BootCompleted:
		if cur != model.StateInit {
			return cur, false
		}
		if e.HasCredentials && e.HasAuth {
			return model.StateProvisioningNetwork, true
		}
		return model.StateWaitingForPairing, true

	case PairAccepted:
		switch cur {
		case model.StateWaitingForPairing, model.StateError:
			return model.StateProvisioningNetwork, true
		}
		return cur, false

	case ProvisioningRequested:
		// A configure joins right away only on a paired device. In
		// WaitingForPairing and Init the credentials are stored and
		// PairAccepted starts the join, so an unpaired device never
		// provisions even though it could.
		switch cur {
		case model.StateConnected, model.StateError, model.StateProvisioningNetwork:
			return model.StateProvisioningNetwork, true
		}
		return cur, false

	case ProvisioningSucceeded:
		if cur == model.StateProvisioningNetwork {
			return model.StateConnected, true
		}
		return cur, false

	case ProvisioningFailed:
		if cur == model.StateProvisioningNetwork {
			return model.StateError, true
		}
		return cur, false
	}
	return cur, false
}
