package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformerrors "kumbara-device-go/internal/platform/errors"
	platformtesting "kumbara-device-go/internal/platform/testing"
)

func TestInitGraphOrder(t *testing.T) {
	want := []string{
		"config:load",
		"logging:init-provider",
		"eventbus:init",
		"observability:setup-metrics",
		"storage:init-store",
		"hal:init-board",
		"device:init-machine",
	}
	var got []string
	for _, step := range InitGraph() {
		got = append(got, step.ID)
	}
	assert.Equal(t, want, got)
}

func TestExecuteInitStepsChecksDependencies(t *testing.T) {
	steps := []initStep{{
		ID:        "device:init-machine",
		DependsOn: []string{"storage:init-store"},
		Execute:   func(context.Context, *appState) error { return nil },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindBootstrap))

	err = executeInitSteps(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestExecuteInitStepsWrapsWithStepKind(t *testing.T) {
	steps := []initStep{{
		ID:      "storage:init-store",
		Kind:    platformerrors.KindStorage,
		Execute: func(context.Context, *appState) error { return io.ErrUnexpectedEOF },
	}}
	err := executeInitSteps(context.Background(), steps, &appState{})
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindStorage))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestExecuteInitGraph(t *testing.T) {
	state := &appState{config: platformtesting.SetupTestConfig(t)}
	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))
	defer state.close()

	assert.Equal(t, "preloaded", state.configPath)
	assert.NotNil(t, state.logger)
	assert.NotNil(t, state.bus)
	assert.NotNil(t, state.metrics)
	assert.NotNil(t, state.observabilityShutdown)
	assert.NotNil(t, state.store)
	assert.NotNil(t, state.journal)
	require.NotNil(t, state.board)
	assert.NotNil(t, state.board.Sim)
	assert.NotNil(t, state.machine)
}

func TestInitGraphRejectsUnknownHALMode(t *testing.T) {
	cfg := platformtesting.SetupTestConfig(t)
	cfg.HAL.Mode = "gpiochip"
	state := &appState{config: cfg}
	defer state.close()

	err := executeInitSteps(context.Background(), InitGraph(), state)
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindPlatform))
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func getJSON(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("request failed: %s", body)
	}
	return sonic.Unmarshal(env.Data, out)
}

type stateView struct {
	State            string `json:"state"`
	NetworkConnected bool   `json:"networkConnected"`
	ControlConnected bool   `json:"controlConnected"`
}

func TestServeEndToEnd(t *testing.T) {
	var deposits atomic.Int32
	ledger := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/esp32/transaction" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		n := deposits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"transaction":{"id":"tx-%d","balance":%d}}`, n, n)
	}))
	defer ledger.Close()

	cfg := platformtesting.SetupTestConfig(t)
	cfg.Timing.PollInterval = 10 * time.Millisecond
	cfg.Timing.ProvisioningDelay = 10 * time.Millisecond
	cfg.Timing.SuccessHold = 0
	cfg.Timing.FailureHold = 0
	cfg.Timing.BlinkInterval = time.Millisecond
	cfg.Log.Dir = ""

	state := &appState{config: cfg}
	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))
	defer state.close()

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- serve(ctx, state, ready) }()
	<-ready

	api := "http://" + state.webAddr.String()

	require.Eventually(t, func() bool {
		var v stateView
		return getJSON(api+"/api/device/state", &v) == nil && v.State == "WaitingForPairing"
	}, 2*time.Second, 20*time.Millisecond)
	code := state.machine.Snapshot().PairingCode
	require.Len(t, code, 6)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+state.controlAddr.String()+cfg.Control.Path, nil)
	require.NoError(t, err)
	defer conn.Close()

	configure := fmt.Sprintf(`{"action":"configure","ssid":"HomeNet","password":"pw","server":%q}`, ledger.URL)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(configure)))
	pair := fmt.Sprintf(`{"action":"pair","code":%q,"token":"tok","accountId":"acc-1"}`, code)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(pair)))

	var view stateView
	require.Eventually(t, func() bool {
		var v stateView
		if err := getJSON(api+"/api/device/state", &v); err != nil || v.State != "Connected" {
			return false
		}
		view = v
		return true
	}, 3*time.Second, 20*time.Millisecond)
	assert.True(t, view.NetworkConnected)
	assert.True(t, view.ControlConnected)

	resp, err := http.Post(api+"/api/sim/coin", "application/json", strings.NewReader(`{"count":1}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool { return deposits.Load() == 1 }, 3*time.Second, 20*time.Millisecond)

	type logView struct {
		Accepted bool   `json:"accepted"`
		RemoteID string `json:"remote_id"`
	}
	var logs []logView
	require.Eventually(t, func() bool {
		var got []logView
		if err := getJSON(api+"/api/device/transactions", &got); err != nil || len(got) != 1 {
			return false
		}
		logs = got
		return true
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, logs[0].Accepted)
	assert.Equal(t, "tx-1", logs[0].RemoteID)

	metrics, err := http.Get(api + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(metrics.Body)
	metrics.Body.Close()
	assert.Contains(t, string(body), `kumbara_transactions_total{result="ok"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
