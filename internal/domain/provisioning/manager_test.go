package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/platform/logging"
)

type fakeJoiner struct {
	mu        sync.Mutex
	joins     []string
	polls     int
	upAfter   int
	joinErr   error
	statusErr error
}

func (f *fakeJoiner) Join(_ context.Context, ssid, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, ssid)
	return f.joinErr
}

func (f *fakeJoiner) Connected(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.statusErr != nil {
		return false, f.statusErr
	}
	return f.upAfter > 0 && f.polls >= f.upAfter, nil
}

func newManager(j Joiner, bus *eventbus.Bus) *Manager {
	return NewManager(j, clock.New(), bus, logging.Discard(), Options{Attempts: DefaultAttempts, Delay: 0})
}

func TestConnectExhaustsExactlyTwentyAttempts(t *testing.T) {
	bus := eventbus.New()
	var got []eventbus.ProvisioningData
	require.NoError(t, bus.Subscribe(eventbus.TopicNetworkProvisioned, func(d eventbus.ProvisioningData) {
		got = append(got, d)
	}))

	j := &fakeJoiner{}
	res, err := newManager(j, bus).Connect(context.Background(), model.NetworkCredentials{SSID: "nowhere"})

	assert.ErrorIs(t, err, ErrRetryBudgetExhausted)
	assert.Equal(t, 20, res.Attempts)
	assert.Equal(t, 20, j.polls)
	assert.Equal(t, []string{"nowhere"}, j.joins)
	require.Len(t, got, 1)
	assert.False(t, got[0].Success)
	assert.Equal(t, 20, got[0].Attempts)
}

func TestConnectStopsOnFirstSuccess(t *testing.T) {
	j := &fakeJoiner{upAfter: 3}
	res, err := newManager(j, nil).Connect(context.Background(), model.NetworkCredentials{SSID: "home", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, j.polls)
}

func TestConnectJoinErrorStillPolls(t *testing.T) {
	j := &fakeJoiner{joinErr: errors.New("busy"), statusErr: errors.New("no carrier")}
	res, err := newManager(j, nil).Connect(context.Background(), model.NetworkCredentials{SSID: "home"})

	assert.ErrorIs(t, err, ErrRetryBudgetExhausted)
	assert.Equal(t, 20, res.Attempts)
}

func TestConnectWithoutCredentials(t *testing.T) {
	j := &fakeJoiner{}
	_, err := newManager(j, nil).Connect(context.Background(), model.NetworkCredentials{})
	assert.Error(t, err)
	assert.Empty(t, j.joins)
	assert.Zero(t, j.polls)
}

func TestConnectHonoursDelayAndCancellation(t *testing.T) {
	j := &fakeJoiner{}
	m := NewManager(j, clock.New(), nil, logging.Discard(), Options{Attempts: 20, Delay: 20 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	res, err := m.Connect(ctx, model.NetworkCredentials{SSID: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, res.Attempts, 20)
	assert.GreaterOrEqual(t, res.Elapsed, 60*time.Millisecond)
}
