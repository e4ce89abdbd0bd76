package eventbus

import (
	"time"

	"kumbara-device-go/internal/domain/device/model"
)

const (
	TopicDeviceBoot    = "device:boot"
	TopicDevicePairing = "device:pairing"
	TopicDeviceState   = "device:state"
	TopicDeviceStatus  = "device:status"
	TopicDeviceReset   = "device:reset"

	TopicTransactionReported = "tx:reported"
	TopicTransactionFailed   = "tx:failed"

	TopicControlConnected   = "control:connected"
	TopicCommandHandled     = "command:handled"
	TopicNetworkProvisioned = "network:provisioned"
	TopicStatusReported     = "status:reported"
)

// Topics lists every topic published on the bus.
var Topics = []string{
	TopicDeviceBoot,
	TopicDevicePairing,
	TopicDeviceState,
	TopicDeviceStatus,
	TopicDeviceReset,
	TopicTransactionReported,
	TopicTransactionFailed,
	TopicControlConnected,
	TopicCommandHandled,
	TopicNetworkProvisioned,
	TopicStatusReported,
}

type BootData struct {
	DeviceID string `json:"device_id"`
}

type PairingData struct {
	DeviceID string `json:"device_id"`
	Code     string `json:"-"`
}

type StateData struct {
	From     model.State    `json:"from"`
	To       model.State    `json:"to"`
	At       time.Time      `json:"at"`
	Snapshot model.Snapshot `json:"snapshot"`
}

type StatusData struct {
	Snapshot model.Snapshot `json:"snapshot"`
}

type ResetData struct {
	AtBoot bool `json:"at_boot"`
}

type TransactionData struct {
	DeviceID  string    `json:"device_id"`
	Amount    float64   `json:"amount"`
	RemoteID  string    `json:"remote_id,omitempty"`
	Balance   *float64  `json:"balance,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ControlData struct {
	Connected bool `json:"connected"`
}

type CommandData struct {
	Action   string `json:"action"`
	Accepted bool   `json:"accepted"`
}

type ProvisioningData struct {
	SSID     string        `json:"ssid"`
	Attempts int           `json:"attempts"`
	Success  bool          `json:"success"`
	Elapsed  time.Duration `json:"elapsed"`
}

type StatusReportData struct {
	Delivered  bool `json:"delivered"`
	StatusCode int  `json:"status_code,omitempty"`
}
