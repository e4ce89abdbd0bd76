package device

import (
	"context"

	"kumbara-device-go/internal/domain/command"
	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/input"
	"kumbara-device-go/internal/domain/provisioning"
	"kumbara-device-go/internal/domain/status"
	"kumbara-device-go/internal/domain/transaction"
	"kumbara-device-go/internal/platform/storage"
)

// The interfaces below are what the machine needs from its collaborators.
// The concrete types live in their own packages.

type IdentityLoader interface {
	Load(ctx context.Context) (model.DeviceIdentity, error)
}

type CommandHandler interface {
	Handle(ctx context.Context, dc *model.Context, raw []byte) (command.Outcome, error)
}

type Provisioner interface {
	Connect(ctx context.Context, creds model.NetworkCredentials) (provisioning.Result, error)
}

type TransactionReporter interface {
	Report(ctx context.Context, endpoint model.ServerEndpoint, gate transaction.Gate, ev transaction.Event) (transaction.Receipt, error)
}

type StatusReporter interface {
	Report(ctx context.Context, in status.Input) error
}

type BatterySampler interface {
	Sample(ctx context.Context) (int, error)
}

// Journal records report attempts locally. Optional.
type Journal interface {
	Append(ctx context.Context, entry storage.TransactionLog) error
}

// Pins samples the coin sensor and the reset button.
type Pins interface {
	Levels(ctx context.Context) (input.Levels, error)
}

// LED drives the status LED. on means lit.
type LED interface {
	Set(on bool) error
}

// SignalReader reports the wireless signal strength in dBm.
type SignalReader interface {
	RSSI(ctx context.Context) (int, error)
}
