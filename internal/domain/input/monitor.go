// Package input turns raw coin-sensor and button levels into debounced
// coin edges and a long-press reset gesture.
package input

import "time"

const (
	DefaultDebounce  = 1000 * time.Millisecond
	DefaultResetHold = 3000 * time.Millisecond
)

// Levels is one sample of the two inputs.
type Levels struct {
	CoinActive    bool
	ButtonPressed bool
}

// Signals is what a single Poll recognised.
type Signals struct {
	Coin  bool
	Reset bool
}

// Monitor is not safe for concurrent use; the device loop owns it.
type Monitor struct {
	debounce  time.Duration
	resetHold time.Duration

	coinPrev     bool
	lastCoin     time.Time
	coinAccepted bool

	pressStart time.Time
	pressing   bool
	resetFired bool
}

func NewMonitor(debounce, resetHold time.Duration) *Monitor {
	if debounce < 0 {
		debounce = DefaultDebounce
	}
	if resetHold <= 0 {
		resetHold = DefaultResetHold
	}
	return &Monitor{debounce: debounce, resetHold: resetHold}
}

// Poll samples the inputs at now. now must come from a monotonic source.
// Coin edges are only honoured when coinEnabled is set.
func (m *Monitor) Poll(now time.Time, lv Levels, coinEnabled bool) Signals {
	var sig Signals

	rising := lv.CoinActive && !m.coinPrev
	m.coinPrev = lv.CoinActive
	if rising && coinEnabled {
		if !m.coinAccepted || now.Sub(m.lastCoin) >= m.debounce {
			m.coinAccepted = true
			m.lastCoin = now
			sig.Coin = true
		}
	}

	switch {
	case !lv.ButtonPressed:
		m.pressing = false
		m.resetFired = false
	case !m.pressing:
		m.pressing = true
		m.pressStart = now
	case !m.resetFired && now.Sub(m.pressStart) >= m.resetHold:
		m.resetFired = true
		sig.Reset = true
	}

	return sig
}

// HeldAtBoot reports whether the reset input is already held when the
// device powers on.
func HeldAtBoot(lv Levels) bool {
	return lv.ButtonPressed
}
