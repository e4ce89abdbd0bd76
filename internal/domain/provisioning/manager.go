// Package provisioning joins the device to a wireless network with a
// bounded, fixed-delay retry policy.
package provisioning

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/raulk/clock"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/logging"
)

const (
	DefaultAttempts = 20
	DefaultDelay    = time.Second
)

var ErrRetryBudgetExhausted = stderrors.New("network join retry budget exhausted")

// Joiner is the local-network stack.
type Joiner interface {
	// Join starts associating with the network and returns immediately.
	Join(ctx context.Context, ssid, password string) error
	// Connected reports whether the link is up with an address.
	Connected(ctx context.Context) (bool, error)
}

type Options struct {
	Attempts int
	Delay    time.Duration
}

type Manager struct {
	joiner Joiner
	clock  clock.Clock
	bus    *eventbus.Bus
	logger *logging.Logger
	opts   Options
}

func NewManager(joiner Joiner, clk clock.Clock, bus *eventbus.Bus, logger *logging.Logger, opts Options) *Manager {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay < 0 {
		opts.Delay = DefaultDelay
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Manager{joiner: joiner, clock: clk, bus: bus, logger: logger, opts: opts}
}

// Result describes one provisioning run.
type Result struct {
	Attempts int
	Elapsed  time.Duration
}

// Connect blocks until the link is up or every attempt failed. Each attempt
// waits the fixed delay and then checks the link once.
func (m *Manager) Connect(ctx context.Context, creds model.NetworkCredentials) (Result, error) {
	if !creds.Present() {
		return Result{}, errors.New(errors.KindDomain, "provisioning.connect", "no network credentials")
	}

	start := m.clock.Now()
	m.logger.InfoTag(logging.TagWiFi, "joining %s", creds.SSID)

	if err := m.joiner.Join(ctx, creds.SSID, creds.Password); err != nil {
		// the link may still come up; keep polling within the budget
		m.logger.WarnTag(logging.TagWiFi, "join request failed: %v", err)
	}

	res := Result{}
	for res.Attempts < m.opts.Attempts {
		if err := m.wait(ctx); err != nil {
			res.Elapsed = m.clock.Since(start)
			return res, err
		}
		res.Attempts++

		ok, err := m.joiner.Connected(ctx)
		if err != nil {
			m.logger.DebugTag(logging.TagWiFi, "status check %d failed: %v", res.Attempts, err)
		}
		if ok {
			res.Elapsed = m.clock.Since(start)
			m.logger.InfoTag(logging.TagWiFi, "joined %s after %d attempts", creds.SSID, res.Attempts)
			m.publish(creds.SSID, res, true)
			return res, nil
		}
	}

	res.Elapsed = m.clock.Since(start)
	m.logger.ErrorTag(logging.TagWiFi, "could not join %s after %d attempts", creds.SSID, res.Attempts)
	m.publish(creds.SSID, res, false)
	return res, ErrRetryBudgetExhausted
}

func (m *Manager) wait(ctx context.Context) error {
	if m.opts.Delay <= 0 {
		return ctx.Err()
	}
	t := m.clock.Timer(m.opts.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Manager) publish(ssid string, res Result, ok bool) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(eventbus.TopicNetworkProvisioned, eventbus.ProvisioningData{
		SSID:     ssid,
		Attempts: res.Attempts,
		Success:  ok,
		Elapsed:  res.Elapsed,
	})
}
