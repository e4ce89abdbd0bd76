package model

import "time"

// Context is the one owned object holding everything the firmware kept in
// globals. Only the device machine goroutine mutates it.
type Context struct {
	Identity    DeviceIdentity
	Pairing     *PairingSession
	Credentials NetworkCredentials
	Auth        AuthSession
	Endpoint    ServerEndpoint
	UserID      string
	DeviceName  string

	State            State
	NetworkConnected bool
	ControlConnected bool
	BatteryLevel     int
	BootedAt         time.Time
}

// NewContext returns the power-on context.
func NewContext() *Context {
	return &Context{State: StateInit, BatteryLevel: 100}
}

// Snapshot is a read-only copy of Context for other goroutines.
type Snapshot struct {
	DeviceID         string     `json:"deviceId"`
	DeviceName       string     `json:"deviceName,omitempty"`
	State            State      `json:"state"`
	PairingCode      string     `json:"-"`
	NetworkSSID      string     `json:"networkSsid,omitempty"`
	NetworkConnected bool       `json:"networkConnected"`
	ControlConnected bool       `json:"controlConnected"`
	Authenticated    bool       `json:"authenticated"`
	LinkedAccountID  string     `json:"linkedAccountId,omitempty"`
	AuthExpiresAt    *time.Time `json:"authExpiresAt,omitempty"`
	ServerURL        string     `json:"serverUrl"`
	BatteryLevel     int        `json:"batteryLevel"`
	TakenAt          time.Time  `json:"takenAt"`
}

// Snapshot copies the context. The pairing code is only set while the
// device is waiting for pairing and never leaves the process as JSON; the
// companion learns it from the device screen.
func (c *Context) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		DeviceID:         c.Identity.ID,
		DeviceName:       c.DeviceName,
		State:            c.State,
		NetworkSSID:      c.Credentials.SSID,
		NetworkConnected: c.NetworkConnected,
		ControlConnected: c.ControlConnected,
		Authenticated:    c.Auth.Present(),
		LinkedAccountID:  c.Auth.LinkedAccountID,
		AuthExpiresAt:    c.Auth.ExpiresAt,
		ServerURL:        c.Endpoint.BaseURL,
		BatteryLevel:     c.BatteryLevel,
		TakenAt:          now,
	}
	if c.State == StateWaitingForPairing && c.Pairing != nil {
		s.PairingCode = c.Pairing.Code
	}
	return s
}
