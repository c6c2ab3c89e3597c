package internal

import (
	"context"
	"sync"

	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
)

// Call is one recorded transport request
type Call struct {
	Op             string
	Address        string
	Service        string
	Characteristic string
	Value          []byte
	WriteType      transport.WriteType
	Enable         bool
	MTU            int
	Services       []string
}

type charKey struct {
	service        string
	characteristic string
}

func newCharKey(service, characteristic string) charKey {
	return charKey{util.NormalizeUUID(service), util.NormalizeUUID(characteristic)}
}

// FakePeripheral records every request and completes nothing on its own;
// tests feed the completion events they want.
type FakePeripheral struct {
	mutex     sync.Mutex
	addr      string
	name      string
	chars     map[charKey]transport.Property
	notifying map[charKey]bool
	calls     []Call

	NotifyErr map[string]error
	MTUErr    error
}

func NewFakePeripheral(addr, name string) *FakePeripheral {
	return &FakePeripheral{
		addr: addr, name: name,
		chars:     map[charKey]transport.Property{},
		notifying: map[charKey]bool{},
		NotifyErr: map[string]error{},
	}
}

// AddCharacteristic exposes a characteristic with the given properties
func (p *FakePeripheral) AddCharacteristic(service, characteristic string, props transport.Property) *FakePeripheral {
	p.chars[newCharKey(service, characteristic)] = props
	return p
}

// FailNotify makes SetNotify on characteristic fail with err
func (p *FakePeripheral) FailNotify(characteristic string, err error) {
	p.NotifyErr[util.NormalizeUUID(characteristic)] = err
}

// SetNotifying forces the notification state without recording a call
func (p *FakePeripheral) SetNotifying(service, characteristic string, enable bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.notifying[newCharKey(service, characteristic)] = enable
}

func (p *FakePeripheral) record(c Call) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	c.Address = p.addr
	p.calls = append(p.calls, c)
}

// Calls returns a copy of the recorded requests
func (p *FakePeripheral) Calls() []Call {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]Call{}, p.calls...)
}

// CallsOf returns the recorded requests of one operation
func (p *FakePeripheral) CallsOf(op string) []Call {
	ret := []Call{}
	for _, c := range p.Calls() {
		if c.Op == op {
			ret = append(ret, c)
		}
	}
	return ret
}

// Writes returns the recorded writes to characteristic
func (p *FakePeripheral) Writes(characteristic string) []Call {
	ret := []Call{}
	for _, c := range p.CallsOf("Write") {
		if util.UuidEqualStr(c.Characteristic, characteristic) {
			ret = append(ret, c)
		}
	}
	return ret
}

func (p *FakePeripheral) ResetCalls() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.calls = nil
}

func (p *FakePeripheral) Address() string { return p.addr }
func (p *FakePeripheral) Name() string    { return p.name }

func (p *FakePeripheral) HasCharacteristic(service, characteristic string) bool {
	_, ok := p.chars[newCharKey(service, characteristic)]
	return ok
}

func (p *FakePeripheral) Properties(service, characteristic string) transport.Property {
	return p.chars[newCharKey(service, characteristic)]
}

func (p *FakePeripheral) IsNotifying(service, characteristic string) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.notifying[newCharKey(service, characteristic)]
}

func (p *FakePeripheral) ReadCharacteristic(service, characteristic string) error {
	p.record(Call{Op: "Read", Service: service, Characteristic: characteristic})
	if !p.HasCharacteristic(service, characteristic) {
		return transport.ErrCharacteristicNotFound
	}
	return nil
}

func (p *FakePeripheral) WriteCharacteristic(service, characteristic string, value []byte, wt transport.WriteType) error {
	p.record(Call{Op: "Write", Service: service, Characteristic: characteristic, Value: value, WriteType: wt})
	if !p.HasCharacteristic(service, characteristic) {
		return transport.ErrCharacteristicNotFound
	}
	return nil
}

func (p *FakePeripheral) SetNotify(service, characteristic string, enable bool) error {
	p.record(Call{Op: "SetNotify", Service: service, Characteristic: characteristic, Enable: enable})
	if err, ok := p.NotifyErr[util.NormalizeUUID(characteristic)]; ok {
		return err
	}
	if !p.HasCharacteristic(service, characteristic) {
		return transport.ErrCharacteristicNotFound
	}
	p.SetNotifying(service, characteristic, enable)
	return nil
}

func (p *FakePeripheral) RequestMTU(mtu int) error {
	p.record(Call{Op: "RequestMTU", MTU: mtu})
	return p.MTUErr
}

func (p *FakePeripheral) RequestConnectionPriority(_ transport.ConnectionPriority) error {
	p.record(Call{Op: "RequestConnectionPriority"})
	return transport.ErrNotSupported
}

// FakeCentral records requests and lets tests push events through the installed handler
type FakeCentral struct {
	mutex   sync.Mutex
	handler transport.HandlerSlot
	calls   []Call

	CancelPanics bool
	CancelErr    error
	ConnectErr   error
}

func NewFakeCentral() *FakeCentral { return &FakeCentral{} }

func (c *FakeCentral) record(call Call) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.calls = append(c.calls, call)
}

func (c *FakeCentral) Calls() []Call {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]Call{}, c.calls...)
}

// CallsOf returns the recorded requests of one operation
func (c *FakeCentral) CallsOf(op string) []Call {
	ret := []Call{}
	for _, call := range c.Calls() {
		if call.Op == op {
			ret = append(ret, call)
		}
	}
	return ret
}

// Emit delivers e to the installed handler
func (c *FakeCentral) Emit(e transport.Event) { c.handler.Emit(e) }

func (c *FakeCentral) SetHandler(fn func(transport.Event)) { c.handler.Set(fn) }

func (c *FakeCentral) Scan(_ context.Context, services []string) error {
	c.record(Call{Op: "Scan", Services: services})
	return nil
}

func (c *FakeCentral) StopScan() error {
	c.record(Call{Op: "StopScan"})
	return nil
}

func (c *FakeCentral) Connect(_ context.Context, address string) error {
	c.record(Call{Op: "Connect", Address: address})
	return c.ConnectErr
}

func (c *FakeCentral) CreateBond(_ context.Context, address string) error {
	c.record(Call{Op: "CreateBond", Address: address})
	return nil
}

func (c *FakeCentral) CancelConnection(address string) error {
	c.record(Call{Op: "CancelConnection", Address: address})
	if c.CancelPanics {
		panic("connection already released")
	}
	return c.CancelErr
}

func (c *FakeCentral) Close() error {
	c.record(Call{Op: "Close"})
	return nil
}
