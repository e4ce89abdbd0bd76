package device

// Event is a trigger for Transition. The set is closed.
type Event interface {
	event()
	String() string
}

// BootCompleted fires once identity and persisted keys are loaded.
type BootCompleted struct {
	HasCredentials bool
	HasAuth        bool
}

// PairAccepted fires after a matching pair intent was persisted.
type PairAccepted struct{}

// ProvisioningRequested fires after a configure intent carried new credentials.
type ProvisioningRequested struct{}

type ProvisioningSucceeded struct{}

// ProvisioningFailed fires when the retry budget is exhausted.
type ProvisioningFailed struct{}

type ResetRecognized struct{}

func (BootCompleted) event()         {}
func (PairAccepted) event()          {}
func (ProvisioningRequested) event() {}
func (ProvisioningSucceeded) event() {}
func (ProvisioningFailed) event()    {}
func (ResetRecognized) event()       {}

func (BootCompleted) String() string         { return "BootCompleted" }
func (PairAccepted) String() string          { return "PairAccepted" }
func (ProvisioningRequested) String() string { return "ProvisioningRequested" }
func (ProvisioningSucceeded) String() string { return "ProvisioningSucceeded" }
func (ProvisioningFailed) String() string    { return "ProvisioningFailed" }
func (ResetRecognized) String() string       { return "ResetRecognized" }
