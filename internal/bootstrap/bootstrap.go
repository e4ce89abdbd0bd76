// Package bootstrap assembles the device from configuration and runs it
// until the process is signalled.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raulk/clock"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"kumbara-device-go/internal/domain/command"
	"kumbara-device-go/internal/domain/configstore"
	"kumbara-device-go/internal/domain/device"
	"kumbara-device-go/internal/domain/display"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/domain/identity"
	"kumbara-device-go/internal/domain/provisioning"
	"kumbara-device-go/internal/domain/status"
	"kumbara-device-go/internal/domain/transaction"
	"kumbara-device-go/internal/hal"
	platformconfig "kumbara-device-go/internal/platform/config"
	platformerrors "kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/httpclient"
	"kumbara-device-go/internal/platform/logging"
	"kumbara-device-go/internal/platform/observability"
	"kumbara-device-go/internal/platform/storage"
	httptransport "kumbara-device-go/internal/transport/http"
	"kumbara-device-go/internal/transport/http/deviceapi"
	"kumbara-device-go/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config                *platformconfig.Config
	configPath            string
	logger                *logging.Logger
	bus                   *eventbus.Bus
	metrics               *observability.Metrics
	observabilityShutdown observability.ShutdownFunc
	db                    *gorm.DB
	store                 configstore.Store
	journal               *storage.TransactionJournal
	board                 *hal.Board
	display               *display.LogDisplay
	machine               *device.Machine

	// set by serve once the listeners are bound
	controlAddr net.Addr
	webAddr     net.Addr
}

// Run loads the configuration, builds every component and blocks until
// SIGINT/SIGTERM or a fatal error.
func Run(ctx context.Context) error {
	state := &appState{}

	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		state.close()
		return err
	}
	defer state.close()

	logBootstrapGraph(steps, state.logger)

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(signalCtx, state, nil)
}

func logBootstrapGraph(steps []initStep, logger *logging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag(logging.TagBoot, "init graph:")
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			logger.InfoTag(logging.TagBoot, "  %s (%s)", step.ID, step.Title)
			continue
		}
		logger.InfoTag(logging.TagBoot, "  %s (%s) <- %s", step.ID, step.Title, strings.Join(step.DependsOn, ", "))
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Initialise event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "observability:setup-metrics",
			Title:     "Setup metrics and span logging",
			DependsOn: []string{"eventbus:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-store",
			Title:     "Open database and preference store",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initStoreStep,
		},
		{
			ID:        "hal:init-board",
			Title:     "Initialise board peripherals",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindPlatform,
			Execute:   initBoardStep,
		},
		{
			ID:        "device:init-machine",
			Title:     "Assemble device machine",
			DependsOn: []string{"eventbus:init", "storage:init-store", "hal:init-board"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initMachineStep,
		},
	}
}

// loadConfigStep keeps a preloaded config, which tests rely on.
func loadConfigStep(_ context.Context, state *appState) error {
	if state.config != nil {
		state.configPath = "preloaded"
		return nil
	}
	res, err := platformconfig.NewLoader().WithDotEnv(true).Load()
	if err != nil {
		return err
	}
	state.config = res.Config
	state.configPath = res.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	cfg := state.config.Log
	logger, err := logging.New(logging.Config{
		Level:    cfg.Level,
		Dir:      cfg.Dir,
		Filename: cfg.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to create logger", err)
	}
	state.logger = logger
	logger.InfoTag(logging.TagBoot, "%s starting, config from %s", state.config.Device.Name, state.configPath)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	state.bus = eventbus.New()
	if err := eventbus.Trace(state.bus, state.logger); err != nil {
		return err
	}
	state.display = display.NewLogDisplay(state.logger)
	return display.Bind(state.bus, state.display, state.config.Device.Currency)
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}, state.logger.Slog())
	if err != nil {
		return err
	}
	state.observabilityShutdown = shutdown

	state.metrics = observability.NewMetrics()
	return state.metrics.Bind(state.bus)
}

func initStoreStep(ctx context.Context, state *appState) error {
	cfg := state.config.Store
	db, err := storage.Open(cfg.SQLite.Path)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:open", "failed to open database", err)
	}
	state.db = db
	state.journal = storage.NewTransactionJournal(db)

	store, err := configstore.New(configstore.Config{
		Driver:    cfg.Driver,
		Namespace: cfg.Namespace,
		Redis: &configstore.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}, configstore.Dependencies{SQLiteDB: db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-store", "failed to create preference store", err)
	}
	state.store = store
	state.logger.InfoTag(logging.TagStore, "preference store %s ready", cfg.Driver)
	return nil
}

func initBoardStep(_ context.Context, state *appState) error {
	board, err := hal.NewBoard(state.config.HAL, state.logger)
	if err != nil {
		return err
	}
	state.board = board
	return nil
}

func initMachineStep(_ context.Context, state *appState) error {
	cfg := state.config
	logger := state.logger
	clk := clock.New()

	client := httpclient.New(httpclient.Options{
		Timeout: cfg.Device.RequestTimeout,
		Logger:  logger,
	})

	state.machine = device.NewMachine(device.Dependencies{
		Store:    state.store,
		Identity: identity.NewProvider(state.store, logger),
		Commands: command.NewHandler(state.store, state.bus, logger),
		Provisioner: provisioning.NewManager(state.board.Radio, clk, state.bus, logger, provisioning.Options{
			Attempts: cfg.Timing.ProvisioningAttempts,
			Delay:    cfg.Timing.ProvisioningDelay,
		}),
		Transactions: transaction.NewReporter(client, logger, transaction.Options{
			Secret:      cfg.Device.Secret,
			Description: cfg.Device.TransactionDescription,
		}),
		Status:  status.NewReporter(client, state.bus, logger),
		Battery: status.NewBatteryMonitor(state.board.ADC),
		Journal: state.journal,
		Pins:    state.board.Pins,
		LED:     state.board.LED,
		Radio:   state.board.Radio,
		Bus:     state.bus,
		Clock:   clk,
		Logger:  logger,
	}, machineOptions(cfg))
	return nil
}

func machineOptions(cfg *platformconfig.Config) device.Options {
	t := cfg.Timing
	return device.Options{
		PollInterval:      t.PollInterval,
		StatusInterval:    t.StatusInterval,
		BatteryInterval:   t.BatteryInterval,
		CoinDebounce:      t.CoinDebounce,
		ResetHold:         t.ResetHold,
		SuccessHold:       t.SuccessHold,
		FailureHold:       t.FailureHold,
		ResetScreenHold:   t.ResetScreenHold,
		BlinkInterval:     t.BlinkInterval,
		BlinkCount:        t.BlinkCount,
		DefaultServerURL:  cfg.Device.DefaultServerURL,
		TransactionAmount: cfg.Device.TransactionAmount,
		QueueDepth:        cfg.Control.QueueDepth,
	}
}

// serve binds the listeners, then runs the machine and both servers until
// ctx ends. ready, when set, is closed once the listeners are bound.
func serve(ctx context.Context, state *appState, ready chan<- struct{}) error {
	cfg := state.config
	logger := state.logger

	var controlLn, webLn net.Listener
	if cfg.Control.Enabled {
		ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Control.IP, strconv.Itoa(cfg.Control.Port)))
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindTransport, "control:listen", "failed to bind control channel", err)
		}
		controlLn = ln
		state.controlAddr = ln.Addr()
	}
	if cfg.Web.Enabled {
		ln, err := net.Listen("tcp", net.JoinHostPort(cfg.Web.IP, strconv.Itoa(cfg.Web.Port)))
		if err != nil {
			if controlLn != nil {
				_ = controlLn.Close()
			}
			return platformerrors.Wrap(platformerrors.KindTransport, "http:listen", "failed to bind local api", err)
		}
		webLn = ln
		state.webAddr = ln.Addr()
	}

	group, groupCtx := errgroup.WithContext(ctx)

	var handler http.Handler
	if webLn != nil {
		h, err := buildHTTPHandler(groupCtx, state)
		if err != nil {
			_ = webLn.Close()
			if controlLn != nil {
				_ = controlLn.Close()
			}
			return err
		}
		handler = h
	}

	if controlLn != nil {
		server := ws.NewServer(ws.ServerConfig{Path: cfg.Control.Path}, state.machine, logger)
		group.Go(func() error {
			return server.Serve(groupCtx, controlLn)
		})
	}

	if webLn != nil {
		httpServer := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
		group.Go(func() error {
			go func() {
				<-groupCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.ErrorTag(logging.TagHTTP, "shutdown failed: %v", err)
				}
			}()
			logger.InfoTag(logging.TagHTTP, "local api on http://%s", webLn.Addr())
			if err := httpServer.Serve(webLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		return runMachine(groupCtx, state.machine, logger)
	})

	if ready != nil {
		close(ready)
	}

	err := group.Wait()
	if err != nil {
		logger.ErrorTag(logging.TagBoot, "stopped with error: %v", err)
		return err
	}
	logger.InfoTag(logging.TagBoot, "all services stopped")
	return nil
}

func buildHTTPHandler(ctx context.Context, state *appState) (http.Handler, error) {
	router, err := httptransport.Build(httptransport.Options{
		Debug:  strings.EqualFold(state.config.Log.Level, "debug"),
		Logger: state.logger,
	})
	if err != nil {
		return nil, err
	}

	var board deviceapi.Board
	if state.board.Sim != nil {
		board = state.board.Sim
	}
	svc, err := deviceapi.NewService(state.machine, state.journal, board, state.logger)
	if err != nil {
		return nil, err
	}
	svc.Register(ctx, router.API)
	router.Engine.GET("/metrics", gin.WrapH(state.metrics.Handler()))
	return router.Engine, nil
}

// runMachine reboots the machine after a factory reset until ctx ends.
func runMachine(ctx context.Context, m *device.Machine, logger *logging.Logger) error {
	for {
		err := m.Run(ctx)
		if errors.Is(err, device.ErrRestartRequested) {
			logger.InfoTag(logging.TagBoot, "restarting device")
			continue
		}
		return err
	}
}

func (s *appState) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.store != nil {
		if err := s.store.Close(ctx); err != nil {
			s.logger.WarnTag(logging.TagStore, "preference store close: %v", err)
		}
	}
	if s.db != nil {
		if err := storage.Close(s.db); err != nil {
			s.logger.WarnTag(logging.TagStore, "database close: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		_ = s.observabilityShutdown(ctx)
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}
