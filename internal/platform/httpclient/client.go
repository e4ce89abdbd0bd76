// Package httpclient builds the resty client shared by every outbound call
// to the ledger server.
package httpclient

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"kumbara-device-go/internal/platform/logging"
)

const DefaultTimeout = 10 * time.Second

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *logging.Logger
}

// New returns a client with retries disabled. Every call is single-shot.
func New(opts Options) *resty.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "kumbara-device"
	}

	c := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	if opts.Logger != nil {
		logger := opts.Logger
		c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			logger.DebugTag(logging.TagHTTP, "%s %s -> %d in %s",
				resp.Request.Method, resp.Request.URL, resp.StatusCode(), resp.Time())
			return nil
		})
	}
	return c
}
