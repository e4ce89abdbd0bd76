package model

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceIdentity is created once and never changes afterwards.
type DeviceIdentity struct {
	ID string `json:"id"`
}

// NetworkCredentials is overwritten as a whole by each configure intent.
type NetworkCredentials struct {
	SSID     string `json:"ssid"`
	Password string `json:"-"`
}

func (c NetworkCredentials) Present() bool {
	return c.SSID != ""
}

// AuthSession is the bearer credential obtained on a successful pair.
type AuthSession struct {
	Token           string     `json:"-"`
	LinkedAccountID string     `json:"linkedAccountId"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// NewAuthSession builds a session and, when the token happens to be a JWT,
// records its expiry. The signature is not checked; the device has no key
// and only uses the expiry for display.
func NewAuthSession(token, accountID string) AuthSession {
	s := AuthSession{Token: token, LinkedAccountID: accountID}
	if strings.Count(token, ".") != 2 {
		return s
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return s
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		s.ExpiresAt = &t
	}
	return s
}

// Present reports whether the device is authenticated.
func (s AuthSession) Present() bool {
	return s.Token != "" && s.LinkedAccountID != ""
}

type ServerEndpoint struct {
	BaseURL string `json:"baseUrl"`
}

// URL joins path onto the base URL without doubling slashes.
func (e ServerEndpoint) URL(path string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
