package hal

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"kumbara-device-go/internal/domain/input"
)

// GPIO is a sysfs value file such as /sys/class/gpio/gpio4/value.
type GPIO struct {
	Path      string
	ActiveLow bool
}

// Active reads the pin and applies the polarity.
func (g GPIO) Active() (bool, error) {
	b, err := os.ReadFile(g.Path)
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(string(b)) {
	case "1":
		return !g.ActiveLow, nil
	case "0":
		return g.ActiveLow, nil
	default:
		return false, fmt.Errorf("gpio %s: unexpected value %q", g.Path, strings.TrimSpace(string(b)))
	}
}

func (g GPIO) Write(active bool) error {
	v := active != g.ActiveLow
	val := "0"
	if v {
		val = "1"
	}
	return os.WriteFile(g.Path, []byte(val), 0o644)
}

// SysfsPins reads the coin sensor and reset button. Both are wired with
// pull-ups, so a low level means active.
type SysfsPins struct {
	Coin   GPIO
	Button GPIO
}

func (p *SysfsPins) Levels(context.Context) (input.Levels, error) {
	coin, err := p.Coin.Active()
	if err != nil {
		return input.Levels{}, err
	}
	button, err := p.Button.Active()
	if err != nil {
		return input.Levels{}, err
	}
	return input.Levels{CoinActive: coin, ButtonPressed: button}, nil
}

type SysfsLED struct {
	Pin GPIO
}

func (l *SysfsLED) Set(on bool) error {
	return l.Pin.Write(on)
}

// SysfsADC reads an IIO raw channel, e.g. in_voltage0_raw.
type SysfsADC struct {
	Path string
}

func (a *SysfsADC) ReadRaw(context.Context) (int, error) {
	b, err := os.ReadFile(a.Path)
	if err != nil {
		return 0, err
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("adc %s: %w", a.Path, err)
	}
	return raw, nil
}
