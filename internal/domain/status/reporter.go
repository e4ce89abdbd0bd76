// Package status sends the periodic device heartbeat and samples the
// battery level.
package status

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shirou/gopsutil/v3/host"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/logging"
)

var ErrSkipped = stderrors.New("status report skipped")

// UptimeFunc reports how long the host has been up.
type UptimeFunc func() (time.Duration, error)

// HostUptime reads the system uptime.
func HostUptime() (time.Duration, error) {
	secs, err := host.Uptime()
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// Input is what a single heartbeat carries.
type Input struct {
	DeviceID         string
	Endpoint         model.ServerEndpoint
	Token            string
	NetworkConnected bool
	BatteryLevel     int
	WiFiSignal       int
	// Uptime is the time since boot; zero falls back to host uptime.
	Uptime time.Duration
}

type statusRequest struct {
	BatteryLevel int    `json:"batteryLevel"`
	WiFiSignal   int    `json:"wifiSignal"`
	LastSeen     string `json:"lastSeen"`
}

type Reporter struct {
	client *resty.Client
	bus    *eventbus.Bus
	logger *logging.Logger
	uptime UptimeFunc
}

func NewReporter(client *resty.Client, bus *eventbus.Bus, logger *logging.Logger) *Reporter {
	return &Reporter{client: client, bus: bus, logger: logger, uptime: HostUptime}
}

// WithUptime overrides the uptime source.
func (r *Reporter) WithUptime(fn UptimeFunc) *Reporter {
	r.uptime = fn
	return r
}

// Report posts the heartbeat. Failures are returned for logging only; the
// next interval supersedes them.
func (r *Reporter) Report(ctx context.Context, in Input) error {
	if !in.NetworkConnected || in.Token == "" {
		return ErrSkipped
	}

	lastSeen := in.Uptime
	if lastSeen <= 0 && r.uptime != nil {
		up, err := r.uptime()
		if err != nil {
			r.logger.DebugTag(logging.TagStatus, "uptime unavailable: %v", err)
		}
		lastSeen = up
	}

	url := in.Endpoint.URL(fmt.Sprintf("/api/devices/%s/status", in.DeviceID))
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(in.Token).
		SetBody(statusRequest{
			BatteryLevel: in.BatteryLevel,
			WiFiSignal:   in.WiFiSignal,
			LastSeen:     strconv.FormatInt(lastSeen.Milliseconds(), 10),
		}).
		Post(url)
	if err != nil {
		r.logger.WarnTag(logging.TagStatus, "status update failed: %v", err)
		r.publish(false, 0)
		return errors.Wrap(errors.KindNetwork, "status.report", "post "+url, err)
	}
	if !resp.IsSuccess() {
		r.logger.WarnTag(logging.TagStatus, "status update rejected: %d", resp.StatusCode())
		r.publish(false, resp.StatusCode())
		return errors.New(errors.KindNetwork, "status.report", fmt.Sprintf("status %d", resp.StatusCode()))
	}

	r.logger.DebugTag(logging.TagStatus, "status updated: %d", resp.StatusCode())
	r.publish(true, resp.StatusCode())
	return nil
}

func (r *Reporter) publish(ok bool, code int) {
	r.bus.Publish(eventbus.TopicStatusReported, eventbus.StatusReportData{Delivered: ok, StatusCode: code})
}
