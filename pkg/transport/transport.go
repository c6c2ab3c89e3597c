// Package transport is the boundary between the session orchestrator and a BLE stack.
//
// Every operation is asynchronous: a nil error means the request was issued and its
// completion will arrive later as an Event on the handler installed with SetHandler.
// Backends deliver events for one peripheral in order, never concurrently.
package transport

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrCharacteristicNotFound is returned for operations on a characteristic the peripheral does not expose
	ErrCharacteristicNotFound = errors.New("characteristic not found")
	// ErrNotConnected is returned for operations on a released peripheral
	ErrNotConnected = errors.New("peripheral not connected")
	// ErrNotSupported is returned for operations the backend cannot perform
	ErrNotSupported = errors.New("operation not supported by backend")
)

// WriteType selects between acknowledged and unacknowledged writes
type WriteType int

const (
	WithResponse WriteType = iota
	WithoutResponse
)

func (w WriteType) String() string {
	return []string{"WithResponse", "WithoutResponse"}[w]
}

// ConnectionPriority is a link parameter preset
type ConnectionPriority int

const (
	PriorityBalanced ConnectionPriority = iota
	PriorityHigh
	PriorityLowPower
)

// Property is the GATT characteristic property bit field
type Property uint8

const (
	PropRead            Property = 0x02
	PropWriteNoResponse Property = 0x04
	PropWrite           Property = 0x08
	PropNotify          Property = 0x10
	PropIndicate        Property = 0x20
)

func (p Property) CanRead() bool  { return p&PropRead != 0 }
func (p Property) CanWrite() bool { return p&PropWrite != 0 }

// CanSubscribe is true for notify and indicate characteristics
func (p Property) CanSubscribe() bool { return p&(PropNotify|PropIndicate) != 0 }

// Central scans for and connects to peripherals
type Central interface {
	SetHandler(func(Event))
	Scan(ctx context.Context, services []string) error
	StopScan() error
	Connect(ctx context.Context, address string) error
	CreateBond(ctx context.Context, address string) error
	CancelConnection(address string) error
	Close() error
}

// Peripheral is a connected remote device.
// Characteristics are addressed by (service, characteristic) UUID pairs in any textual form.
type Peripheral interface {
	Address() string
	Name() string
	HasCharacteristic(service, characteristic string) bool
	Properties(service, characteristic string) Property
	IsNotifying(service, characteristic string) bool
	ReadCharacteristic(service, characteristic string) error
	WriteCharacteristic(service, characteristic string, value []byte, writeType WriteType) error
	// SetNotify reports the per-item outcome immediately; the resulting
	// notification state change arrives as a NotificationStateChanged event.
	SetNotify(service, characteristic string, enable bool) error
	RequestMTU(mtu int) error
	RequestConnectionPriority(priority ConnectionPriority) error
}
