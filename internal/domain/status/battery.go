package status

import (
	"context"

	"kumbara-device-go/internal/platform/errors"
)

// ADCMax is the full-scale reading of the 12-bit battery ADC.
const ADCMax = 4095

// ADC reads the raw battery divider voltage.
type ADC interface {
	ReadRaw(ctx context.Context) (int, error)
}

type BatteryMonitor struct {
	adc ADC
}

func NewBatteryMonitor(adc ADC) *BatteryMonitor {
	return &BatteryMonitor{adc: adc}
}

// Sample maps the raw reading linearly onto 0..100 and clamps.
func (b *BatteryMonitor) Sample(ctx context.Context) (int, error) {
	raw, err := b.adc.ReadRaw(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.KindPlatform, "battery.sample", "read adc", err)
	}
	return Level(raw), nil
}

// Level converts a raw ADC value to percent.
func Level(raw int) int {
	pct := raw * 100 / ADCMax
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
