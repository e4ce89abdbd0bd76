package model

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"kumbara-device-go/internal/platform/errors"
)

// PairingSession holds the one active pairing code for this boot.
type PairingSession struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPairingSession generates a fresh 6-digit code.
func NewPairingSession(now time.Time) (*PairingSession, error) {
	code, err := generateSixDigitCode()
	if err != nil {
		return nil, errors.Wrap(errors.KindDomain, "pairing.new", "failed to generate code", err)
	}
	return &PairingSession{Code: code, CreatedAt: now}, nil
}

// Matches reports exact equality with the active code. An empty candidate
// never matches.
func (p *PairingSession) Matches(candidate string) bool {
	if p == nil || p.Code == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(p.Code), []byte(candidate)) == 1
}

// generateSixDigitCode returns a number in [100000, 999999].
func generateSixDigitCode() (string, error) {
	min := big.NewInt(100000)
	span := big.NewInt(900000)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}

	code := n.Add(n, min)
	return fmt.Sprintf("%06d", code.Int64()), nil
}
