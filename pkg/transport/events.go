package transport

import (
	"fmt"
	"sync"
)

// EventType is the kind of transport callback an Event carries
type EventType int

const (
	Discovered EventType = iota
	BondStateChanged
	Connected
	ConnectionFailed
	ServicesDiscovered
	Disconnected
	CharacteristicUpdate
	CharacteristicWrite
	NotificationStateChanged
	MTUChanged
	ScanFailed
)

var eventTypeNames = []string{
	"Discovered",
	"BondStateChanged",
	"Connected",
	"ConnectionFailed",
	"ServicesDiscovered",
	"Disconnected",
	"CharacteristicUpdate",
	"CharacteristicWrite",
	"NotificationStateChanged",
	"MTUChanged",
	"ScanFailed",
}

func (t EventType) String() string {
	return eventTypeNames[t]
}

// BondState of a peripheral
type BondState int

const (
	BondNone BondState = iota
	Bonding
	Bonded
)

func (s BondState) String() string {
	return []string{"None", "Bonding", "Bonded"}[s]
}

// Event is a transport completion or unsolicited callback.
// Err is nil on success; which other fields are set depends on Type.
type Event struct {
	Type       EventType
	Address    string
	Name       string
	Peripheral Peripheral

	// Discovered
	Services []string
	RSSI     int
	Bond     BondState

	// CharacteristicUpdate, CharacteristicWrite, NotificationStateChanged
	Service        string
	Characteristic string
	Value          []byte
	Enabled        bool

	// MTUChanged
	MTU int

	Err error
}

func (e Event) String() string {
	s := fmt.Sprintf("%s %s", e.Type, e.Address)
	if e.Characteristic != "" {
		s += fmt.Sprintf(" %s/%s", e.Service, e.Characteristic)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// HandlerSlot holds the event handler of a backend. Emit before SetHandler drops the event.
type HandlerSlot struct {
	mutex sync.RWMutex
	fn    func(Event)
}

func (h *HandlerSlot) Set(fn func(Event)) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.fn = fn
}

func (h *HandlerSlot) Emit(e Event) {
	h.mutex.RLock()
	fn := h.fn
	h.mutex.RUnlock()
	if fn != nil {
		fn(e)
	}
}
