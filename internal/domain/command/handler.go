package command

import (
	"context"

	"kumbara-device-go/internal/domain/configstore"
	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/domain/eventbus"
	"kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/logging"
)

// Outcome tells the device machine what, if anything, to do next.
type Outcome struct {
	Action   string
	Accepted bool
	// RequestProvisioning is set when a configure carried an SSID.
	RequestProvisioning bool
	// PairAccepted is set when the pairing code matched and the session
	// was persisted.
	PairAccepted bool
}

type Handler struct {
	store  configstore.Store
	bus    *eventbus.Bus
	logger *logging.Logger
}

func NewHandler(store configstore.Store, bus *eventbus.Bus, logger *logging.Logger) *Handler {
	return &Handler{store: store, bus: bus, logger: logger}
}

// Handle applies one message. The context is only updated after every
// write for the intent is durable. Rejected messages return a zero
// Outcome and no error; only storage failures are errors.
func (h *Handler) Handle(ctx context.Context, dc *model.Context, raw []byte) (Outcome, error) {
	var (
		out Outcome
		err error
	)

	switch in := Decode(raw).(type) {
	case ConfigureIntent:
		out, err = h.configure(ctx, dc, in)
	case PairIntent:
		out, err = h.pair(ctx, dc, in)
	case UnknownIntent:
		h.logger.DebugTag(logging.TagControl, "ignoring message (%s) action=%q", in.Reason, in.Action)
		out = Outcome{Action: ActionUnknown}
	}

	h.bus.Publish(eventbus.TopicCommandHandled, eventbus.CommandData{Action: out.Action, Accepted: out.Accepted})
	return out, err
}

func (h *Handler) configure(ctx context.Context, dc *model.Context, in ConfigureIntent) (Outcome, error) {
	out := Outcome{Action: ActionConfigure}

	creds := dc.Credentials
	endpoint := dc.Endpoint
	userID := dc.UserID
	deviceName := dc.DeviceName

	var writes [][2]string
	if in.SSID.Present {
		// credentials are replaced as a pair
		creds = model.NetworkCredentials{SSID: in.SSID.Value, Password: in.Password.Or("")}
		writes = append(writes,
			[2]string{configstore.KeyWiFiSSID, creds.SSID},
			[2]string{configstore.KeyWiFiPassword, creds.Password})
	} else if in.Password.Present {
		creds.Password = in.Password.Value
		writes = append(writes, [2]string{configstore.KeyWiFiPassword, creds.Password})
	}
	if in.Server.Present && in.Server.Value != "" {
		endpoint = model.ServerEndpoint{BaseURL: in.Server.Value}
		writes = append(writes, [2]string{configstore.KeyServerURL, endpoint.BaseURL})
	}
	if in.UserID.Present {
		userID = in.UserID.Value
		writes = append(writes, [2]string{configstore.KeyUserID, userID})
	}
	if in.DeviceName.Present {
		deviceName = in.DeviceName.Value
		writes = append(writes, [2]string{configstore.KeyDeviceName, deviceName})
	}

	if len(writes) == 0 {
		h.logger.DebugTag(logging.TagControl, "configure without usable fields")
		return out, nil
	}

	for _, w := range writes {
		if err := h.store.Put(ctx, w[0], w[1]); err != nil {
			h.logger.ErrorTag(logging.TagStore, "persist %s failed: %v", w[0], err)
			return out, errors.Wrap(errors.KindStorage, "command.configure", "persist "+w[0], err)
		}
	}

	dc.Credentials = creds
	dc.Endpoint = endpoint
	dc.UserID = userID
	dc.DeviceName = deviceName

	h.logger.InfoTag(logging.TagControl, "configuration received: ssid=%q server=%q user=%q name=%q",
		creds.SSID, endpoint.BaseURL, userID, deviceName)

	out.Accepted = true
	out.RequestProvisioning = in.SSID.Present && creds.Present()
	return out, nil
}

func (h *Handler) pair(ctx context.Context, dc *model.Context, in PairIntent) (Outcome, error) {
	out := Outcome{Action: ActionPair}
	if !in.Code.Present || !dc.Pairing.Matches(in.Code.Value) {
		// the candidate code is never logged
		h.logger.WarnTag(logging.TagControl, "pairing rejected")
		return out, nil
	}

	session := model.NewAuthSession(in.Token.Or(""), in.AccountID.Or(""))
	if err := h.store.Put(ctx, configstore.KeyAuthToken, session.Token); err != nil {
		h.logger.ErrorTag(logging.TagStore, "persist auth token failed: %v", err)
		return out, errors.Wrap(errors.KindStorage, "command.pair", "persist auth token", err)
	}
	if err := h.store.Put(ctx, configstore.KeyLinkedAccountID, session.LinkedAccountID); err != nil {
		h.logger.ErrorTag(logging.TagStore, "persist account id failed: %v", err)
		return out, errors.Wrap(errors.KindStorage, "command.pair", "persist account id", err)
	}

	dc.Auth = session
	h.logger.InfoTag(logging.TagControl, "paired with account %s", session.LinkedAccountID)
	out.Accepted = true
	out.PairAccepted = true
	return out, nil
}
