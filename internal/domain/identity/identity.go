// Package identity derives and persists the stable device identifier.
package identity

import (
	"context"
	"encoding/hex"
	"net"
	"strings"

	"github.com/google/uuid"

	"kumbara-device-go/internal/domain/configstore"
	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/platform/errors"
	"kumbara-device-go/internal/platform/logging"
)

// HardwareAddrFunc returns candidate hardware addresses in preference order.
type HardwareAddrFunc func() ([]net.HardwareAddr, error)

type Provider struct {
	store  configstore.Store
	logger *logging.Logger
	addrs  HardwareAddrFunc
}

func NewProvider(store configstore.Store, logger *logging.Logger) *Provider {
	return &Provider{store: store, logger: logger, addrs: interfaceAddrs}
}

// WithHardwareAddrs overrides interface discovery.
func (p *Provider) WithHardwareAddrs(fn HardwareAddrFunc) *Provider {
	p.addrs = fn
	return p
}

// Load returns the persisted identity, creating it on first boot.
func (p *Provider) Load(ctx context.Context) (model.DeviceIdentity, error) {
	id, err := p.store.Get(ctx, configstore.KeyDeviceID, "")
	if err != nil {
		return model.DeviceIdentity{}, errors.Wrap(errors.KindStorage, "identity.load", "read device id", err)
	}
	if id != "" {
		return model.DeviceIdentity{ID: id}, nil
	}

	id = p.derive()
	if err := p.store.Put(ctx, configstore.KeyDeviceID, id); err != nil {
		return model.DeviceIdentity{}, errors.Wrap(errors.KindStorage, "identity.load", "persist device id", err)
	}
	p.logger.InfoTag(logging.TagBoot, "created device id %s", id)
	return model.DeviceIdentity{ID: id}, nil
}

func (p *Provider) derive() string {
	if p.addrs != nil {
		addrs, err := p.addrs()
		if err != nil {
			p.logger.WarnTag(logging.TagBoot, "hardware address lookup failed: %v", err)
		}
		for _, addr := range addrs {
			if len(addr) >= 6 && !allZero(addr) {
				return hex.EncodeToString(addr)
			}
		}
	}
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func interfaceAddrs() ([]net.HardwareAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]net.HardwareAddr, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		out = append(out, iface.HardwareAddr)
	}
	return out, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
