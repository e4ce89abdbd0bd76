package input

import (
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
)

func coinPulse(m *Monitor, clk *clock.Mock, enabled bool) bool {
	sig := m.Poll(clk.Now(), Levels{CoinActive: true}, enabled)
	m.Poll(clk.Now(), Levels{}, enabled)
	return sig.Coin
}

func TestCoinDebounce(t *testing.T) {
	tests := []struct {
		name  string
		gaps  []time.Duration
		wants []bool
	}{
		{
			name:  "close edges collapse into the first",
			gaps:  []time.Duration{0, 200 * time.Millisecond, 500 * time.Millisecond},
			wants: []bool{true, false, false},
		},
		{
			name:  "edges a second apart are distinct",
			gaps:  []time.Duration{0, time.Second, 1500 * time.Millisecond},
			wants: []bool{true, true, true},
		},
		{
			name:  "window measured from last accepted edge",
			gaps:  []time.Duration{0, 600 * time.Millisecond, 399 * time.Millisecond, time.Millisecond},
			wants: []bool{true, false, false, true},
		},
		{
			name:  "just under the window",
			gaps:  []time.Duration{0, 999 * time.Millisecond},
			wants: []bool{true, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewMock()
			m := NewMonitor(DefaultDebounce, DefaultResetHold)
			for i, gap := range tt.gaps {
				clk.Add(gap)
				assert.Equal(t, tt.wants[i], coinPulse(m, clk, true), "edge %d", i)
			}
		})
	}
}

func TestCoinIgnoredWhenDisabled(t *testing.T) {
	clk := clock.NewMock()
	m := NewMonitor(DefaultDebounce, DefaultResetHold)

	assert.False(t, coinPulse(m, clk, false))
	clk.Add(100 * time.Millisecond)
	// a rejected edge does not start a debounce window
	assert.True(t, coinPulse(m, clk, true))
}

func TestCoinHeldLevelIsOneEdge(t *testing.T) {
	clk := clock.NewMock()
	m := NewMonitor(DefaultDebounce, DefaultResetHold)

	assert.True(t, m.Poll(clk.Now(), Levels{CoinActive: true}, true).Coin)
	for i := 0; i < 30; i++ {
		clk.Add(100 * time.Millisecond)
		assert.False(t, m.Poll(clk.Now(), Levels{CoinActive: true}, true).Coin)
	}
}

func holdButton(m *Monitor, clk *clock.Mock, hold time.Duration, step time.Duration) int {
	resets := 0
	if m.Poll(clk.Now(), Levels{ButtonPressed: true}, false).Reset {
		resets++
	}
	for elapsed := time.Duration(0); elapsed < hold; {
		d := step
		if hold-elapsed < d {
			d = hold - elapsed
		}
		clk.Add(d)
		elapsed += d
		if m.Poll(clk.Now(), Levels{ButtonPressed: true}, false).Reset {
			resets++
		}
	}
	clk.Add(step)
	m.Poll(clk.Now(), Levels{}, false)
	return resets
}

func TestResetGesture(t *testing.T) {
	tests := []struct {
		name string
		hold time.Duration
		want int
	}{
		{"short tap", 50 * time.Millisecond, 0},
		{"just under", 2999 * time.Millisecond, 0},
		{"exactly hold", 3000 * time.Millisecond, 1},
		{"long hold fires once", 10 * time.Second, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewMock()
			m := NewMonitor(DefaultDebounce, DefaultResetHold)
			assert.Equal(t, tt.want, holdButton(m, clk, tt.hold, 100*time.Millisecond))
		})
	}
}

func TestResetRearmsAfterRelease(t *testing.T) {
	clk := clock.NewMock()
	m := NewMonitor(DefaultDebounce, DefaultResetHold)

	assert.Equal(t, 0, holdButton(m, clk, 2*time.Second, 100*time.Millisecond))
	// a release must restart the hold timer
	assert.Equal(t, 0, holdButton(m, clk, 2*time.Second, 100*time.Millisecond))
	assert.Equal(t, 1, holdButton(m, clk, 3*time.Second, 100*time.Millisecond))
	assert.Equal(t, 1, holdButton(m, clk, 3*time.Second, 100*time.Millisecond))
}

func TestHeldAtBoot(t *testing.T) {
	assert.True(t, HeldAtBoot(Levels{ButtonPressed: true}))
	assert.False(t, HeldAtBoot(Levels{CoinActive: true}))
}
