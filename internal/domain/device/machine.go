// Package device hosts the state machine that owns the kiosk's single
// authoritative state and drives every other component from one loop.
package device

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raulk/clock"

	"kumbara-device-go/internal/domain/configstore"
	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/domain/input"
	"kumbara-device-go/internal/domain/status"
	"kumbara-device-go/internal/domain/transaction"
	"kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/logging"
	"kumbara-device-go/internal/platform/storage"
)

// ErrRestartRequested is returned by Run after the store was wiped. The
// caller restarts the machine.
var ErrRestartRequested = stderrors.New("restart requested")

// ErrQueueFull is returned by Deliver when the inbound queue is saturated.
var ErrQueueFull = stderrors.New("inbound queue full")

type Options struct {
	PollInterval      time.Duration
	StatusInterval    time.Duration
	BatteryInterval   time.Duration
	CoinDebounce      time.Duration
	ResetHold         time.Duration
	SuccessHold       time.Duration
	FailureHold       time.Duration
	ResetScreenHold   time.Duration
	BlinkInterval     time.Duration
	BlinkCount        int
	DefaultServerURL  string
	TransactionAmount float64
	QueueDepth        int
}

func DefaultOptions() Options {
	return Options{
		PollInterval:      100 * time.Millisecond,
		StatusInterval:    60 * time.Second,
		BatteryInterval:   300 * time.Second,
		CoinDebounce:      input.DefaultDebounce,
		ResetHold:         input.DefaultResetHold,
		SuccessHold:       3 * time.Second,
		FailureHold:       2 * time.Second,
		ResetScreenHold:   2 * time.Second,
		BlinkInterval:     100 * time.Millisecond,
		BlinkCount:        5,
		DefaultServerURL:  "http://192.168.1.21:3000",
		TransactionAmount: transaction.DefaultAmount,
		QueueDepth:        32,
	}
}

type Dependencies struct {
	Store        configstore.Store
	Identity     IdentityLoader
	Commands     CommandHandler
	Provisioner  Provisioner
	Transactions TransactionReporter
	Status       StatusReporter
	Battery      BatterySampler
	Journal      Journal
	Pins         Pins
	LED          LED
	Radio        SignalReader
	Bus          *eventbus.Bus
	Clock        clock.Clock
	Logger       *logging.Logger
}

type inboundKind int

const (
	inboundMessage inboundKind = iota
	inboundConnected
	inboundDisconnected
)

type inbound struct {
	kind    inboundKind
	payload []byte
}

// Machine is driven by Run on a single goroutine. Deliver,
// SetControlConnected and Snapshot are safe from any goroutine.
type Machine struct {
	deps Dependencies
	opts Options

	dc      *model.Context
	monitor *input.Monitor

	pendingProvision bool
	lastStatus       time.Time
	lastBattery      time.Time

	qmu   sync.Mutex
	queue []inbound

	snapshot atomic.Pointer[model.Snapshot]
	present  atomic.Bool
}

func NewMachine(deps Dependencies, opts Options) *Machine {
	def := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = def.PollInterval
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = def.StatusInterval
	}
	if opts.BatteryInterval <= 0 {
		opts.BatteryInterval = def.BatteryInterval
	}
	if opts.ResetHold <= 0 {
		opts.ResetHold = def.ResetHold
	}
	if opts.TransactionAmount <= 0 {
		opts.TransactionAmount = def.TransactionAmount
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = def.QueueDepth
	}
	if opts.DefaultServerURL == "" {
		opts.DefaultServerURL = def.DefaultServerURL
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	m := &Machine{deps: deps, opts: opts, dc: model.NewContext()}
	snap := m.dc.Snapshot(deps.Clock.Now())
	m.snapshot.Store(&snap)
	return m
}

// Deliver queues a control-channel message for the next loop iteration.
func (m *Machine) Deliver(_ context.Context, payload []byte) error {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	if len(m.queue) >= m.opts.QueueDepth {
		return ErrQueueFull
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.queue = append(m.queue, inbound{kind: inboundMessage, payload: buf})
	return nil
}

// SetControlConnected records a control-channel connect or disconnect.
// These are never dropped.
func (m *Machine) SetControlConnected(connected bool) {
	kind := inboundDisconnected
	if connected {
		kind = inboundConnected
	}
	m.present.Store(connected)
	m.qmu.Lock()
	m.queue = append(m.queue, inbound{kind: kind})
	m.qmu.Unlock()
}

// Snapshot returns the state as of the end of the last loop iteration.
func (m *Machine) Snapshot() model.Snapshot {
	return *m.snapshot.Load()
}

// Run boots and then polls until ctx is done or a reset is recognised.
func (m *Machine) Run(ctx context.Context) error {
	if err := m.Boot(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ticker := m.deps.Clock.Ticker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Step(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Boot brings the context from power-on to its first steady state.
func (m *Machine) Boot(ctx context.Context) error {
	log := m.deps.Logger
	now := m.deps.Clock.Now()

	m.dc = model.NewContext()
	m.dc.BootedAt = now
	m.monitor = input.NewMonitor(m.opts.CoinDebounce, m.opts.ResetHold)
	m.pendingProvision = false
	m.takeInbound()
	m.setLED(true)
	if m.present.Load() {
		m.handleControl(true)
	}

	if lv, err := m.deps.Pins.Levels(ctx); err == nil && input.HeldAtBoot(lv) {
		log.WarnTag(logging.TagBoot, "reset button held at power on")
		return m.reset(ctx, true)
	}

	ident, err := m.deps.Identity.Load(ctx)
	if err != nil {
		return errors.Wrap(errors.KindBootstrap, "device.boot", "load identity", err)
	}
	m.dc.Identity = ident
	m.deps.Bus.Publish(eventbus.TopicDeviceBoot, eventbus.BootData{DeviceID: ident.ID})

	if err := m.loadPersisted(ctx); err != nil {
		return err
	}

	pairing, err := model.NewPairingSession(now)
	if err != nil {
		return err
	}
	m.dc.Pairing = pairing

	if level, err := m.deps.Battery.Sample(ctx); err == nil {
		m.dc.BatteryLevel = level
	} else {
		log.WarnTag(logging.TagStatus, "battery sample failed: %v", err)
	}

	m.apply(BootCompleted{
		HasCredentials: m.dc.Credentials.Present(),
		HasAuth:        m.dc.Auth.Present(),
	})
	if m.dc.State == model.StateWaitingForPairing {
		log.InfoTag(logging.TagBoot, "pairing code ready for %s", ident.ID)
		m.deps.Bus.Publish(eventbus.TopicDevicePairing, eventbus.PairingData{DeviceID: ident.ID, Code: pairing.Code})
	}
	m.schedule()

	m.lastStatus = now
	m.lastBattery = now
	m.publishSnapshot()
	return nil
}

func (m *Machine) loadPersisted(ctx context.Context) error {
	get := func(key, def string) (string, error) {
		v, err := m.deps.Store.Get(ctx, key, def)
		if err != nil {
			return "", errors.Wrap(errors.KindStorage, "device.boot", "load "+key, err)
		}
		return v, nil
	}

	values := map[string]string{}
	for _, key := range []string{
		configstore.KeyWiFiSSID,
		configstore.KeyWiFiPassword,
		configstore.KeyAuthToken,
		configstore.KeyLinkedAccountID,
		configstore.KeyUserID,
		configstore.KeyDeviceName,
	} {
		v, err := get(key, "")
		if err != nil {
			return err
		}
		values[key] = v
	}
	server, err := get(configstore.KeyServerURL, m.opts.DefaultServerURL)
	if err != nil {
		return err
	}
	if server == "" {
		server = m.opts.DefaultServerURL
	}

	m.dc.Credentials = model.NetworkCredentials{
		SSID:     values[configstore.KeyWiFiSSID],
		Password: values[configstore.KeyWiFiPassword],
	}
	m.dc.Auth = model.NewAuthSession(values[configstore.KeyAuthToken], values[configstore.KeyLinkedAccountID])
	m.dc.Endpoint = model.ServerEndpoint{BaseURL: server}
	m.dc.UserID = values[configstore.KeyUserID]
	m.dc.DeviceName = values[configstore.KeyDeviceName]
	return nil
}

// Step runs one loop iteration: a provisioning run requested in the
// previous iteration, then queued control-channel events in order, then
// the inputs, then the interval jobs.
func (m *Machine) Step(ctx context.Context) error {
	if m.pendingProvision {
		m.pendingProvision = false
		if err := m.provision(ctx); err != nil {
			return err
		}
	}

	for _, in := range m.takeInbound() {
		switch in.kind {
		case inboundMessage:
			m.handleMessage(ctx, in.payload)
		case inboundConnected, inboundDisconnected:
			m.handleControl(in.kind == inboundConnected)
		}
	}

	now := m.deps.Clock.Now()
	lv, err := m.deps.Pins.Levels(ctx)
	if err != nil {
		m.deps.Logger.DebugTag(logging.TagInput, "pin read failed: %v", err)
	}
	sig := m.monitor.Poll(now, lv, m.dc.State == model.StateConnected)
	if sig.Reset {
		m.deps.Logger.WarnTag(logging.TagInput, "reset button held for %s", m.opts.ResetHold)
		return m.reset(ctx, false)
	}
	if sig.Coin {
		m.deps.Logger.InfoTag(logging.TagInput, "coin detected")
		if err := m.reportTransaction(ctx, now); err != nil {
			return err
		}
	}

	if now.Sub(m.lastStatus) >= m.opts.StatusInterval {
		m.lastStatus = now
		m.reportStatus(ctx)
	}
	if now.Sub(m.lastBattery) >= m.opts.BatteryInterval {
		m.lastBattery = now
		m.sampleBattery(ctx)
	}

	m.publishSnapshot()
	return ctx.Err()
}

func (m *Machine) takeInbound() []inbound {
	m.qmu.Lock()
	defer m.qmu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

func (m *Machine) handleMessage(ctx context.Context, payload []byte) {
	out, err := m.deps.Commands.Handle(ctx, m.dc, payload)
	if err != nil {
		m.deps.Logger.ErrorTag(logging.TagControl, "%s not applied: %v", out.Action, err)
		return
	}
	if out.PairAccepted {
		m.apply(PairAccepted{})
		m.schedule()
	}
	if out.RequestProvisioning {
		m.apply(ProvisioningRequested{})
		m.schedule()
	}
}

func (m *Machine) handleControl(connected bool) {
	m.dc.ControlConnected = connected
	if connected {
		m.deps.Logger.InfoTag(logging.TagControl, "companion connected")
	} else {
		m.deps.Logger.InfoTag(logging.TagControl, "companion disconnected, advertising again")
	}
	// lit while nobody is connected
	m.setLED(!connected)
	m.deps.Bus.Publish(eventbus.TopicControlConnected, eventbus.ControlData{Connected: connected})
}

// schedule queues a provisioning run for the next Step when the machine
// sits in ProvisioningNetwork with credentials to use.
func (m *Machine) schedule() {
	if m.dc.State == model.StateProvisioningNetwork && m.dc.Credentials.Present() {
		m.pendingProvision = true
	}
}

func (m *Machine) provision(ctx context.Context) error {
	if m.dc.State != model.StateProvisioningNetwork {
		return nil
	}
	m.dc.NetworkConnected = false
	_, err := m.deps.Provisioner.Connect(ctx, m.dc.Credentials)
	switch {
	case err == nil:
		m.dc.NetworkConnected = true
		m.apply(ProvisioningSucceeded{})
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		m.apply(ProvisioningFailed{})
	}
	return nil
}

func (m *Machine) reportTransaction(ctx context.Context, now time.Time) error {
	ev := transaction.Event{
		DeviceID:       m.dc.Identity.ID,
		Amount:         m.opts.TransactionAmount,
		TimestampLocal: now,
	}
	gate := transaction.Gate{
		Connected:     m.dc.NetworkConnected && m.dc.State == model.StateConnected,
		Authenticated: m.dc.Auth.Present(),
	}

	receipt, err := m.deps.Transactions.Report(ctx, m.dc.Endpoint, gate, ev)
	if stderrors.Is(err, transaction.ErrNotReady) {
		return nil
	}
	m.journal(ctx, ev, receipt, err)

	data := eventbus.TransactionData{
		DeviceID:  ev.DeviceID,
		Amount:    ev.Amount,
		RemoteID:  receipt.RemoteID,
		Balance:   receipt.Balance,
		Timestamp: ev.TimestampLocal,
	}
	if err != nil {
		data.Reason = err.Error()
		m.deps.Bus.Publish(eventbus.TopicTransactionFailed, data)
		if err := m.pause(ctx, m.opts.FailureHold); err != nil {
			return err
		}
	} else {
		m.deps.Bus.Publish(eventbus.TopicTransactionReported, data)
		for i := 0; i < m.opts.BlinkCount; i++ {
			m.setLED(false)
			if err := m.pause(ctx, m.opts.BlinkInterval); err != nil {
				return err
			}
			m.setLED(true)
			if err := m.pause(ctx, m.opts.BlinkInterval); err != nil {
				return err
			}
		}
		if err := m.pause(ctx, m.opts.SuccessHold); err != nil {
			return err
		}
	}
	m.publishStatus()
	return nil
}

func (m *Machine) journal(ctx context.Context, ev transaction.Event, receipt transaction.Receipt, reportErr error) {
	if m.deps.Journal == nil {
		return
	}
	entry := storage.TransactionLog{
		DeviceID:   ev.DeviceID,
		Amount:     ev.Amount,
		Accepted:   reportErr == nil,
		RemoteID:   receipt.RemoteID,
		OccurredAt: ev.TimestampLocal,
	}
	if reportErr != nil {
		entry.Detail = reportErr.Error()
	}
	if err := m.deps.Journal.Append(ctx, entry); err != nil {
		m.deps.Logger.WarnTag(logging.TagStore, "journal append failed: %v", err)
	}
}

func (m *Machine) reportStatus(ctx context.Context) {
	rssi := 0
	if m.deps.Radio != nil {
		if v, err := m.deps.Radio.RSSI(ctx); err == nil {
			rssi = v
		}
	}
	err := m.deps.Status.Report(ctx, status.Input{
		DeviceID:         m.dc.Identity.ID,
		Endpoint:         m.dc.Endpoint,
		Token:            m.dc.Auth.Token,
		NetworkConnected: m.dc.NetworkConnected,
		BatteryLevel:     m.dc.BatteryLevel,
		WiFiSignal:       rssi,
		Uptime:           m.deps.Clock.Since(m.dc.BootedAt),
	})
	if err != nil && !stderrors.Is(err, status.ErrSkipped) {
		m.deps.Logger.DebugTag(logging.TagStatus, "status report dropped: %v", err)
	}
}

func (m *Machine) sampleBattery(ctx context.Context) {
	level, err := m.deps.Battery.Sample(ctx)
	if err != nil {
		m.deps.Logger.WarnTag(logging.TagStatus, "battery sample failed: %v", err)
		return
	}
	m.dc.BatteryLevel = level
	if m.dc.State == model.StateConnected {
		m.publishStatus()
	}
}

// reset wipes the store and hands control back to the caller for a restart.
func (m *Machine) reset(ctx context.Context, atBoot bool) error {
	m.deps.Bus.Publish(eventbus.TopicDeviceReset, eventbus.ResetData{AtBoot: atBoot})
	if err := m.deps.Store.Clear(ctx); err != nil {
		m.deps.Logger.ErrorTag(logging.TagStore, "clearing store failed: %v", err)
		return errors.Wrap(errors.KindStorage, "device.reset", "clear store", err)
	}
	m.deps.Logger.WarnTag(logging.TagStore, "all settings cleared")
	if err := m.pause(ctx, m.opts.ResetScreenHold); err != nil {
		return err
	}
	m.apply(ResetRecognized{})
	m.publishSnapshot()
	return ErrRestartRequested
}

func (m *Machine) apply(ev Event) {
	from := m.dc.State
	to, ok := Transition(from, ev)
	if !ok {
		m.deps.Logger.DebugTag(logging.TagState, "%s ignored in %s", ev, from)
		return
	}
	m.dc.State = to
	if from == to {
		return
	}
	m.deps.Logger.InfoTag(logging.TagState, "%s -> %s (%s)", from, to, ev)
	m.deps.Bus.Publish(eventbus.TopicDeviceState, eventbus.StateData{
		From:     from,
		To:       to,
		At:       m.deps.Clock.Now(),
		Snapshot: m.dc.Snapshot(m.deps.Clock.Now()),
	})
}

func (m *Machine) publishStatus() {
	m.deps.Bus.Publish(eventbus.TopicDeviceStatus, eventbus.StatusData{Snapshot: m.dc.Snapshot(m.deps.Clock.Now())})
}

func (m *Machine) publishSnapshot() {
	snap := m.dc.Snapshot(m.deps.Clock.Now())
	m.snapshot.Store(&snap)
}

func (m *Machine) setLED(on bool) {
	if m.deps.LED == nil {
		return
	}
	if err := m.deps.LED.Set(on); err != nil {
		m.deps.Logger.DebugTag(logging.TagInput, "led write failed: %v", err)
	}
}

// pause blocks the loop for d on the machine clock.
func (m *Machine) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := m.deps.Clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
