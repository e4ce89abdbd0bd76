package hal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raulk/clock"

	"kumbara-device-go/internal/domain/input"
)

// ErrNotAssociated is returned by RSSI while the radio has no link.
var ErrNotAssociated = errors.New("radio not associated")

// Simulator is an in-memory board driven through its control methods.
type Simulator struct {
	clock clock.Clock

	mu         sync.Mutex
	coinQueued int
	coinHigh   bool
	pressed    bool
	releaseAt  time.Time
	led        bool
	raw        int
	networks   map[string]string
	ssid       string
	linked     bool
	rssi       int
}

// NewSimulator returns a simulator with a full battery and an open radio
// that accepts any network. A nil clock uses the wall clock.
func NewSimulator(clk clock.Clock) *Simulator {
	if clk == nil {
		clk = clock.New()
	}
	return &Simulator{clock: clk, raw: 4095, rssi: -55}
}

// Levels implements Pins. Every queued coin shows as one high sample
// followed by one low sample so each coin is a separate edge.
func (s *Simulator) Levels(context.Context) (input.Levels, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coin := false
	switch {
	case s.coinHigh:
		s.coinHigh = false
	case s.coinQueued > 0:
		s.coinQueued--
		s.coinHigh = true
		coin = true
	}

	button := s.pressed
	if !s.releaseAt.IsZero() {
		if s.clock.Now().Before(s.releaseAt) {
			button = true
		} else {
			s.releaseAt = time.Time{}
		}
	}
	return input.Levels{CoinActive: coin, ButtonPressed: button}, nil
}

// InsertCoin queues n coin pulses.
func (s *Simulator) InsertCoin(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.coinQueued += n
	s.mu.Unlock()
}

// SetButton holds or releases the button until changed again.
func (s *Simulator) SetButton(pressed bool) {
	s.mu.Lock()
	s.pressed = pressed
	s.releaseAt = time.Time{}
	s.mu.Unlock()
}

// HoldButton presses the button for d, then releases it.
func (s *Simulator) HoldButton(d time.Duration) {
	s.mu.Lock()
	s.pressed = false
	s.releaseAt = s.clock.Now().Add(d)
	s.mu.Unlock()
}

// Set implements LED.
func (s *Simulator) Set(on bool) error {
	s.mu.Lock()
	s.led = on
	s.mu.Unlock()
	return nil
}

func (s *Simulator) LEDOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.led
}

// ReadRaw implements ADC.
func (s *Simulator) ReadRaw(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw, nil
}

func (s *Simulator) SetBatteryRaw(raw int) {
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
}

// AddNetwork restricts joins to the registered networks.
func (s *Simulator) AddNetwork(ssid, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.networks == nil {
		s.networks = make(map[string]string)
	}
	s.networks[ssid] = password
}

// Join implements Radio. The link comes up immediately when the network
// is known and the password matches.
func (s *Simulator) Join(_ context.Context, ssid, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ssid = ssid
	if ssid == "" {
		s.linked = false
		return nil
	}
	if s.networks == nil {
		s.linked = true
		return nil
	}
	want, ok := s.networks[ssid]
	s.linked = ok && want == password
	return nil
}

func (s *Simulator) Connected(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linked, nil
}

func (s *Simulator) RSSI(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.linked {
		return 0, ErrNotAssociated
	}
	return s.rssi, nil
}

// DropLink simulates losing the access point.
func (s *Simulator) DropLink() {
	s.mu.Lock()
	s.linked = false
	s.mu.Unlock()
}
