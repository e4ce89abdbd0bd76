// Package transaction turns a detected coin into a remote ledger entry.
// Delivery is single-shot: a failed report is logged and discarded.
package transaction

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/logging"
)

const (
	IngestPath    = "/api/esp32/transaction"
	SecretHeader  = "X-ESP32-Secret"
	TypeDeposit   = "deposit"
	DefaultAmount = 1.0
)

var (
	// ErrNotReady means the device is not connected or not authenticated.
	ErrNotReady = stderrors.New("device not ready to report transactions")
	// ErrRejected means the server answered with a non-2xx status.
	ErrRejected = stderrors.New("transaction rejected by server")
)

// Event is one physical deposit. It is never persisted.
type Event struct {
	DeviceID       string
	Amount         float64
	TimestampLocal time.Time
}

// Gate carries the readiness checks made by the caller.
type Gate struct {
	Connected     bool
	Authenticated bool
}

func (g Gate) Open() bool {
	return g.Connected && g.Authenticated
}

// Receipt is what the server confirmed.
type Receipt struct {
	StatusCode int
	RemoteID   string
	Balance    *float64
}

type Options struct {
	Secret      string
	Description string
}

type Reporter struct {
	client *resty.Client
	logger *logging.Logger
	opts   Options
}

func NewReporter(client *resty.Client, logger *logging.Logger, opts Options) *Reporter {
	return &Reporter{client: client, logger: logger, opts: opts}
}

type ingestRequest struct {
	DeviceID    string  `json:"deviceId"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type ingestResponse struct {
	Success     bool `json:"success"`
	Transaction struct {
		ID      string   `json:"id"`
		Balance *float64 `json:"balance"`
	} `json:"transaction"`
	Error string `json:"error"`
}

// Report makes exactly one delivery attempt. Any 2xx is success.
func (r *Reporter) Report(ctx context.Context, endpoint model.ServerEndpoint, gate Gate, ev Event) (Receipt, error) {
	if !gate.Open() {
		r.logger.WarnTag(logging.TagTx, "dropping deposit: connected=%t authenticated=%t", gate.Connected, gate.Authenticated)
		return Receipt{}, ErrNotReady
	}

	url := endpoint.URL(IngestPath)
	r.logger.InfoTag(logging.TagTx, "reporting deposit of %.2f for %s", ev.Amount, ev.DeviceID)

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(SecretHeader, r.opts.Secret).
		SetBody(ingestRequest{
			DeviceID:    ev.DeviceID,
			Type:        TypeDeposit,
			Amount:      ev.Amount,
			Description: r.opts.Description,
		}).
		Post(url)
	if err != nil {
		r.logger.ErrorTag(logging.TagTx, "deposit report failed: %v", err)
		return Receipt{}, errors.Wrap(errors.KindNetwork, "transaction.report", "post "+url, err)
	}

	receipt := Receipt{StatusCode: resp.StatusCode()}
	var body ingestResponse
	if len(resp.Body()) > 0 {
		if err := sonic.Unmarshal(resp.Body(), &body); err != nil {
			r.logger.DebugTag(logging.TagTx, "unparsable response body: %v", err)
		}
	}

	if !resp.IsSuccess() {
		r.logger.ErrorTag(logging.TagTx, "deposit rejected with %d: %s", resp.StatusCode(), body.Error)
		return receipt, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode())
	}

	receipt.RemoteID = body.Transaction.ID
	receipt.Balance = body.Transaction.Balance
	r.logger.InfoTag(logging.TagTx, "deposit accepted, remote id %q", receipt.RemoteID)
	return receipt, nil
}
