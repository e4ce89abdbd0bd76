package observability

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/platform/logging"
)

func TestMetricsFollowBus(t *testing.T) {
	bus := eventbus.New()
	m := NewMetrics()
	require.NoError(t, m.Bind(bus))

	bus.Publish(eventbus.TopicDeviceState, eventbus.StateData{From: model.StateInit, To: model.StateWaitingForPairing})
	bus.Publish(eventbus.TopicDeviceState, eventbus.StateData{From: model.StateWaitingForPairing, To: model.StateProvisioningNetwork})
	bus.Publish(eventbus.TopicTransactionReported, eventbus.TransactionData{Amount: 1})
	bus.Publish(eventbus.TopicTransactionReported, eventbus.TransactionData{Amount: 1})
	bus.Publish(eventbus.TopicTransactionFailed, eventbus.TransactionData{Amount: 1})
	bus.Publish(eventbus.TopicCommandHandled, eventbus.CommandData{Action: "pair"})
	bus.Publish(eventbus.TopicCommandHandled, eventbus.CommandData{})
	bus.Publish(eventbus.TopicNetworkProvisioned, eventbus.ProvisioningData{Attempts: 20})
	bus.Publish(eventbus.TopicControlConnected, eventbus.ControlData{Connected: true})
	bus.Publish(eventbus.TopicDeviceReset, eventbus.ResetData{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("ProvisioningNetwork")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("WaitingForPairing")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transactions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transactions.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("pair", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("unknown", "failed")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.ProvisioningAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProvisioningRuns.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ControlConnected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resets))
}

func TestCommandActionLabelIsBounded(t *testing.T) {
	bus := eventbus.New()
	m := NewMetrics()
	require.NoError(t, m.Bind(bus))

	for i := 0; i < 1000; i++ {
		bus.Publish(eventbus.TopicCommandHandled, eventbus.CommandData{Action: fmt.Sprintf("junk-%d", i)})
	}
	bus.Publish(eventbus.TopicCommandHandled, eventbus.CommandData{Action: "configure", Accepted: true})

	assert.Equal(t, 2, testutil.CollectAndCount(m.Commands))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.Commands.WithLabelValues("unknown", "failed")))
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.Transactions.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `kumbara_transactions_total{result="ok"} 1`), string(body))
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()
	_, end := StartSpan(ctx, "device", "noop")
	assert.NotPanics(t, func() { end(nil) })

	logger := logging.Discard()
	shutdown, err := Setup(ctx, Config{Enabled: true}, logger.Slog())
	require.NoError(t, err)
	assert.True(t, Enabled())
	_, end = StartSpan(ctx, "device", "boot")
	end(io.EOF)
	require.NoError(t, shutdown(ctx))
}
