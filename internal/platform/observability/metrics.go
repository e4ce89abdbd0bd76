package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kumbara-device-go/internal/domain/eventbus"
)

const namespace = "kumbara"

// Metrics is a private registry fed from the event bus.
type Metrics struct {
	registry *prometheus.Registry

	State                *prometheus.GaugeVec
	Transactions         *prometheus.CounterVec
	StatusReports        *prometheus.CounterVec
	Commands             *prometheus.CounterVec
	ProvisioningRuns     *prometheus.CounterVec
	ProvisioningAttempts prometheus.Counter
	ControlConnected     prometheus.Gauge
	Resets               prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "device_state",
			Help:      "1 for the current device state, 0 otherwise.",
		}, []string{"state"}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Deposit reports by result.",
		}, []string{"result"}),
		StatusReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_reports_total",
			Help:      "Heartbeat posts by result.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Control-channel messages by action and result.",
		}, []string{"action", "result"}),
		ProvisioningRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_runs_total",
			Help:      "Network join runs by result.",
		}, []string{"result"}),
		ProvisioningAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_attempts_total",
			Help:      "Individual link checks made while joining.",
		}),
		ControlConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "control_connected",
			Help:      "1 while a companion is connected.",
		}),
		Resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Factory resets performed.",
		}),
	}

	m.registry.MustRegister(
		m.State,
		m.Transactions,
		m.StatusReports,
		m.Commands,
		m.ProvisioningRuns,
		m.ProvisioningAttempts,
		m.ControlConnected,
		m.Resets,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// Bind subscribes the collectors to the bus.
func (m *Metrics) Bind(bus *eventbus.Bus) error {
	subs := map[string]interface{}{
		eventbus.TopicDeviceState: func(d eventbus.StateData) {
			m.State.Reset()
			m.State.WithLabelValues(d.To.String()).Set(1)
		},
		eventbus.TopicTransactionReported: func(eventbus.TransactionData) {
			m.Transactions.WithLabelValues("ok").Inc()
		},
		eventbus.TopicTransactionFailed: func(eventbus.TransactionData) {
			m.Transactions.WithLabelValues("failed").Inc()
		},
		eventbus.TopicStatusReported: func(d eventbus.StatusReportData) {
			m.StatusReports.WithLabelValues(result(d.Delivered)).Inc()
		},
		eventbus.TopicCommandHandled: func(d eventbus.CommandData) {
			action := d.Action
			if action != "configure" && action != "pair" {
				action = "unknown"
			}
			m.Commands.WithLabelValues(action, result(d.Accepted)).Inc()
		},
		eventbus.TopicNetworkProvisioned: func(d eventbus.ProvisioningData) {
			m.ProvisioningRuns.WithLabelValues(result(d.Success)).Inc()
			m.ProvisioningAttempts.Add(float64(d.Attempts))
		},
		eventbus.TopicControlConnected: func(d eventbus.ControlData) {
			if d.Connected {
				m.ControlConnected.Set(1)
			} else {
				m.ControlConnected.Set(0)
			}
		},
		eventbus.TopicDeviceReset: func(eventbus.ResetData) {
			m.Resets.Inc()
		},
	}
	for topic, fn := range subs {
		if err := bus.Subscribe(topic, fn); err != nil {
			return err
		}
	}
	return nil
}
