// Package display renders the device screens. The shipped implementation
// writes them to the log; a panel driver would satisfy the same interface.
package display

import (
	"fmt"
	"strings"
	"sync"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/platform/logging"
)

type Display interface {
	ShowBoot(deviceID string)
	ShowPairing(deviceID, code string)
	ShowProvisioning(ssid string)
	ShowStatus(s model.Snapshot)
	ShowTransactionSuccess(amount float64, currency string)
	ShowTransactionFailure(reason string)
	ShowReset()
	ShowError(message string)
}

// Bind drives d from bus events.
func Bind(bus *eventbus.Bus, d Display, currency string) error {
	subs := map[string]interface{}{
		eventbus.TopicDeviceBoot: func(e eventbus.BootData) {
			d.ShowBoot(e.DeviceID)
		},
		eventbus.TopicDevicePairing: func(e eventbus.PairingData) {
			d.ShowPairing(e.DeviceID, e.Code)
		},
		eventbus.TopicDeviceState: func(e eventbus.StateData) {
			switch e.To {
			case model.StateProvisioningNetwork:
				d.ShowProvisioning(e.Snapshot.NetworkSSID)
			case model.StateConnected:
				d.ShowStatus(e.Snapshot)
			case model.StateError:
				d.ShowError("WiFi connection failed")
			case model.StateWaitingForPairing:
				if e.Snapshot.PairingCode != "" {
					d.ShowPairing(e.Snapshot.DeviceID, e.Snapshot.PairingCode)
				}
			}
		},
		eventbus.TopicDeviceStatus: func(e eventbus.StatusData) {
			d.ShowStatus(e.Snapshot)
		},
		eventbus.TopicTransactionReported: func(e eventbus.TransactionData) {
			d.ShowTransactionSuccess(e.Amount, currency)
		},
		eventbus.TopicTransactionFailed: func(e eventbus.TransactionData) {
			d.ShowTransactionFailure(e.Reason)
		},
		eventbus.TopicDeviceReset: func(eventbus.ResetData) {
			d.ShowReset()
		},
	}
	for topic, fn := range subs {
		if err := bus.Subscribe(topic, fn); err != nil {
			return err
		}
	}
	return nil
}

// LogDisplay writes each screen as one log line and remembers the last one.
type LogDisplay struct {
	logger *logging.Logger

	mu   sync.Mutex
	last string
}

func NewLogDisplay(logger *logging.Logger) *LogDisplay {
	return &LogDisplay{logger: logger}
}

// Last returns the most recent screen.
func (l *LogDisplay) Last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

func (l *LogDisplay) show(lines ...string) {
	screen := strings.Join(lines, " | ")
	l.mu.Lock()
	l.last = screen
	l.mu.Unlock()
	l.logger.InfoTag(logging.TagDisplay, "%s", screen)
}

func (l *LogDisplay) ShowBoot(deviceID string) {
	l.show("KUMBARA KONTROL", "Device ID: "+tail(deviceID, 8))
}

func (l *LogDisplay) ShowPairing(deviceID, code string) {
	l.show("KUMBARA", "BLE pairing", "Code: "+code, "Device: "+tail(deviceID, 8))
}

func (l *LogDisplay) ShowProvisioning(ssid string) {
	l.show("CONNECTING", "WiFi: "+ssid)
}

func (l *LogDisplay) ShowStatus(s model.Snapshot) {
	lines := []string{
		"CONNECTED",
		"WiFi: " + okOrNone(s.NetworkConnected),
		"Server: " + okOrNone(s.Authenticated),
		fmt.Sprintf("Battery: %%%d", s.BatteryLevel),
	}
	if s.LinkedAccountID != "" {
		lines = append(lines, "Account: "+tail(s.LinkedAccountID, 8))
	}
	lines = append(lines, "Ready for coins")
	l.show(lines...)
}

func (l *LogDisplay) ShowTransactionSuccess(amount float64, currency string) {
	l.show(fmt.Sprintf("+%.2f %s ADDED", amount, currency))
}

func (l *LogDisplay) ShowTransactionFailure(reason string) {
	l.show("ERROR: " + reason)
}

func (l *LogDisplay) ShowReset() {
	l.show("RESET...")
}

func (l *LogDisplay) ShowError(message string) {
	l.show("ERROR", message)
}

func okOrNone(ok bool) string {
	if ok {
		return "OK"
	}
	return "NONE"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
