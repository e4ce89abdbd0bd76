package transaction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/platform/httpclient"
	"kumbara-device-go/internal/platform/logging"
)

func newReporter() *Reporter {
	return NewReporter(httpclient.New(httpclient.Options{Timeout: time.Second}), logging.Discard(), Options{
		Secret:      "esp32-secret-key-2025",
		Description: "ESP32-C3 Para Yatırma",
	})
}

var ready = Gate{Connected: true, Authenticated: true}

func TestReportSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, IngestPath, r.URL.Path)
		assert.Equal(t, "esp32-secret-key-2025", r.Header.Get(SecretHeader))
		assert.Empty(t, r.Header.Get("Authorization"), "ingestion authenticates the device, not the session")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a1b2c3", body["deviceId"])
		assert.Equal(t, "deposit", body["type"])
		assert.Equal(t, 1.0, body["amount"])
		assert.Equal(t, "ESP32-C3 Para Yatırma", body["description"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"transaction":{"id":"tx-9","balance":12.5}}`))
	}))
	defer srv.Close()

	receipt, err := newReporter().Report(context.Background(), model.ServerEndpoint{BaseURL: srv.URL}, ready, Event{
		DeviceID: "a1b2c3", Amount: 1.0, TimestampLocal: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "tx-9", receipt.RemoteID)
	require.NotNil(t, receipt.Balance)
	assert.Equal(t, 12.5, *receipt.Balance)
}

func TestReportRejectedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Cihaza bağlı hesap yok"}`))
	}))
	defer srv.Close()

	receipt, err := newReporter().Report(context.Background(), model.ServerEndpoint{BaseURL: srv.URL}, ready, Event{DeviceID: "d", Amount: 1})
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, http.StatusBadRequest, receipt.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestReportNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newReporter().Report(context.Background(), model.ServerEndpoint{BaseURL: url}, ready, Event{DeviceID: "d", Amount: 1})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestReportGate(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }))
	defer srv.Close()

	for _, gate := range []Gate{{}, {Connected: true}, {Authenticated: true}} {
		_, err := newReporter().Report(context.Background(), model.ServerEndpoint{BaseURL: srv.URL}, gate, Event{DeviceID: "d", Amount: 1})
		assert.ErrorIs(t, err, ErrNotReady)
	}
	assert.Zero(t, calls.Load())
}
