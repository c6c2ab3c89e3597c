//go:build darwin

package ble

import (
	"github.com/currantlabs/ble"
	"github.com/currantlabs/ble/darwin"
	"github.com/pkg/errors"
)

// NewDevice opens the CoreBluetooth device
func NewDevice() (ble.Device, error) {
	d, err := darwin.NewDevice()
	if err != nil {
		return nil, errors.Wrap(err, "NewDevice issue")
	}
	return d, nil
}
