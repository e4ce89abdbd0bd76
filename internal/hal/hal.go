// Package hal adapts the kiosk hardware (coin sensor, reset button, status
// LED, battery ADC, wireless radio) to the device machine. A simulated board
// stands in on hosts without the hardware.
package hal

import (
	"context"
	"fmt"
	"strings"

	"kumbara-device-go/internal/domain/input"
	"kumbara-device-go/internal/platform/config"
	"kumbara-device-go/internal/platform/logging"
)

const (
	ModeSimulated = "simulated"
	ModeSysfs     = "sysfs"
)

type Pins interface {
	Levels(ctx context.Context) (input.Levels, error)
}

type LED interface {
	Set(on bool) error
}

type ADC interface {
	ReadRaw(ctx context.Context) (int, error)
}

// Radio joins wireless networks and reports link quality.
type Radio interface {
	Join(ctx context.Context, ssid, password string) error
	Connected(ctx context.Context) (bool, error)
	RSSI(ctx context.Context) (int, error)
}

// Board groups the peripherals. Sim is set only in simulated mode.
type Board struct {
	Mode  string
	Pins  Pins
	LED   LED
	ADC   ADC
	Radio Radio
	Sim   *Simulator
}

// NewBoard wires the peripherals named by cfg.
func NewBoard(cfg config.HALConfig, logger *logging.Logger) (*Board, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch mode {
	case "", ModeSimulated:
		sim := NewSimulator(nil)
		logger.InfoTag(logging.TagBoot, "using simulated board")
		return &Board{Mode: ModeSimulated, Pins: sim, LED: sim, ADC: sim, Radio: sim, Sim: sim}, nil
	case ModeSysfs:
		radio, err := NewRadio(cfg.WiFiInterface, logger)
		if err != nil {
			return nil, err
		}
		logger.InfoTag(logging.TagBoot, "using sysfs board, radio on %s", cfg.WiFiInterface)
		return &Board{
			Mode: ModeSysfs,
			Pins: &SysfsPins{
				Coin:   GPIO{Path: cfg.CoinPin, ActiveLow: true},
				Button: GPIO{Path: cfg.ButtonPin, ActiveLow: true},
			},
			LED:   &SysfsLED{Pin: GPIO{Path: cfg.LEDPin}},
			ADC:   &SysfsADC{Path: cfg.BatteryPath},
			Radio: radio,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported hal mode: %s", cfg.Mode)
	}
}
