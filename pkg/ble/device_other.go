//go:build !linux && !darwin

package ble

import (
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/currantlabs/ble"
	"github.com/pkg/errors"
)

func NewDevice() (ble.Device, error) {
	return nil, errors.Wrap(transport.ErrNotSupported, "NewDevice issue")
}
