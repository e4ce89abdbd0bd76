//go:build !linux

package hal

import (
	"errors"

	"kumbara-device-go/internal/platform/logging"
)

func NewRadio(string, *logging.Logger) (Radio, error) {
	return nil, errors.New("wireless radio is supported on linux only")
}
