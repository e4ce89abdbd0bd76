package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/platform/httpclient"
	"kumbara-device-go/internal/platform/logging"
)

func newReporter(bus *eventbus.Bus) *Reporter {
	return NewReporter(httpclient.New(httpclient.Options{Timeout: time.Second}), bus, logging.Discard()).
		WithUptime(func() (time.Duration, error) { return 90*time.Second + 250*time.Millisecond, nil })
}

func TestReportPostsHeartbeat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/devices/a1b2c3/status", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 87.0, body["batteryLevel"])
		assert.Equal(t, -61.0, body["wifiSignal"])
		assert.Equal(t, "90250", body["lastSeen"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	bus := eventbus.New()
	var got []eventbus.StatusReportData
	require.NoError(t, bus.Subscribe(eventbus.TopicStatusReported, func(d eventbus.StatusReportData) { got = append(got, d) }))

	err := newReporter(bus).Report(context.Background(), Input{
		DeviceID:         "a1b2c3",
		Endpoint:         model.ServerEndpoint{BaseURL: srv.URL},
		Token:            "tok-1",
		NetworkConnected: true,
		BatteryLevel:     87,
		WiFiSignal:       -61,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Delivered)
}

func TestReportPrefersDeviceUptime(t *testing.T) {
	var lastSeen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		lastSeen.Store(body["lastSeen"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newReporter(eventbus.New()).Report(context.Background(), Input{
		DeviceID:         "a1b2c3",
		Endpoint:         model.ServerEndpoint{BaseURL: srv.URL},
		Token:            "tok-1",
		NetworkConnected: true,
		Uptime:           4*time.Second + 321*time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, "4321", lastSeen.Load())
}

func TestReportSkippedWithoutNetworkOrToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }))
	defer srv.Close()

	r := newReporter(eventbus.New())
	endpoint := model.ServerEndpoint{BaseURL: srv.URL}
	assert.ErrorIs(t, r.Report(context.Background(), Input{Endpoint: endpoint, Token: "t"}), ErrSkipped)
	assert.ErrorIs(t, r.Report(context.Background(), Input{Endpoint: endpoint, NetworkConnected: true}), ErrSkipped)
	assert.Zero(t, calls.Load())
}

func TestReportFailureIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := newReporter(eventbus.New()).Report(context.Background(), Input{
		DeviceID: "d", Endpoint: model.ServerEndpoint{BaseURL: srv.URL}, Token: "t", NetworkConnected: true,
	})
	assert.Error(t, err)
}

type stubADC struct {
	raw int
	err error
}

func (s stubADC) ReadRaw(context.Context) (int, error) { return s.raw, s.err }

func TestBatteryLevel(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{0, 0},
		{-20, 0},
		{2048, 50},
		{4095, 100},
		{5000, 100},
	}
	for _, tt := range tests {
		got, err := NewBatteryMonitor(stubADC{raw: tt.raw}).Sample(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "raw %d", tt.raw)
	}

	_, err := NewBatteryMonitor(stubADC{err: errors.New("io")}).Sample(context.Background())
	assert.Error(t, err)
}
