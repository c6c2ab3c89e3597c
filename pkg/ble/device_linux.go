//go:build linux

package ble

import (
	"github.com/currantlabs/ble"
	"github.com/currantlabs/ble/linux"
	"github.com/pkg/errors"
)

// NewDevice opens the default HCI device
func NewDevice() (ble.Device, error) {
	d, err := linux.NewDevice()
	if err != nil {
		return nil, errors.Wrap(err, "NewDevice issue")
	}
	return d, nil
}
