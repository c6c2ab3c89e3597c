package internal

import (
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/currantlabs/ble"
)

// DummyAdv is a canned advertisement
type DummyAdv struct {
	Addr         ble.Addr
	Name         string
	Rssi         int
	ServiceUUIDs []ble.UUID
}

func NewDummyAdv(addr string, name string, services ...string) DummyAdv {
	uuids := []ble.UUID{}
	for _, s := range services {
		uuids = append(uuids, ble.MustParse(s))
	}
	return DummyAdv{ble.NewAddr(addr), name, -60, uuids}
}

func (a DummyAdv) LocalName() string              { return a.Name }
func (a DummyAdv) ManufacturerData() []byte       { return nil }
func (a DummyAdv) ServiceData() []ble.ServiceData { return nil }
func (a DummyAdv) Services() []ble.UUID           { return a.ServiceUUIDs }
func (a DummyAdv) OverflowService() []ble.UUID    { return nil }
func (a DummyAdv) TxPowerLevel() int              { return 0 }
func (a DummyAdv) Connectable() bool              { return true }
func (a DummyAdv) SolicitedService() []ble.UUID   { return nil }
func (a DummyAdv) RSSI() int                      { return a.Rssi }
func (a DummyAdv) Address() ble.Addr              { return a.Addr }

// TestChar describes a characteristic of a TestService
type TestChar struct {
	UUID     string
	Property transport.Property
}

// TestService builds a discovered service as a GATT client would see it
func TestService(uuid string, chars ...TestChar) *ble.Service {
	s := &ble.Service{UUID: ble.MustParse(uuid)}
	for _, c := range chars {
		s.Characteristics = append(s.Characteristics, &ble.Characteristic{
			UUID:     ble.MustParse(c.UUID),
			Property: ble.Property(c.Property),
		})
	}
	return s
}
