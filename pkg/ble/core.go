// Package ble implements the transport boundary on github.com/currantlabs/ble.
package ble

import (
	"context"

	"github.com/currantlabs/ble"
)

const (
	maxConnectAttempts = 3
	opQueueSize        = 32
)

// coreMethods is the part of a ble.Device the central drives
type coreMethods interface {
	Dial(context.Context, ble.Addr) (ble.Client, error)
	Scan(context.Context, bool, ble.AdvHandler) error
	Stop() error
}

// gattClient is the part of a ble.Client a connected peripheral uses
type gattClient interface {
	ReadCharacteristic(*ble.Characteristic) ([]byte, error)
	WriteCharacteristic(*ble.Characteristic, []byte, bool) error
	DiscoverProfile(bool) (*ble.Profile, error)
	Subscribe(*ble.Characteristic, bool, ble.NotificationHandler) error
	Unsubscribe(*ble.Characteristic, bool) error
	ExchangeMTU(int) (int, error)
	CancelConnection() error
	Disconnected() <-chan struct{}
}
