// Package configstore is the durable key to string mapping that survives
// power cycles. Every write is durable when Put returns.
package configstore

import (
	"context"
	"errors"
)

// Persisted keys.
const (
	KeyDeviceID        = "deviceId"
	KeyAuthToken       = "authToken"
	KeyLinkedAccountID = "linkedAccountId"
	KeyWiFiSSID        = "wifiSSID"
	KeyWiFiPassword    = "wifiPassword"
	KeyServerURL       = "serverUrl"
	KeyUserID          = "userId"
	KeyDeviceName      = "deviceName"
)

// Keys lists every key the device persists.
var Keys = []string{
	KeyDeviceID,
	KeyAuthToken,
	KeyLinkedAccountID,
	KeyWiFiSSID,
	KeyWiFiPassword,
	KeyServerURL,
	KeyUserID,
	KeyDeviceName,
}

var ErrClosed = errors.New("config store closed")

// Store is the minimal contract the device components depend on.
type Store interface {
	// Get returns def when key is absent.
	Get(ctx context.Context, key, def string) (string, error)
	Put(ctx context.Context, key, value string) error
	// Clear removes every key in the namespace.
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

type Config struct {
	Driver    string
	Namespace string
	Redis     *RedisConfig
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

const defaultNamespace = "kumbara"

func (c Config) namespace() string {
	if c.Namespace == "" {
		return defaultNamespace
	}
	return c.Namespace
}
