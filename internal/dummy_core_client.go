package internal

import (
	"errors"
	"sync"

	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/currantlabs/ble"
)

// DummyWrite is one write a DummyCoreClient received
type DummyWrite struct {
	Characteristic string
	Value          []byte
	NoRsp          bool
}

// DummyCoreClient is an in-memory ble.Client serving a fixed profile
type DummyCoreClient struct {
	mutex        sync.Mutex
	addr         string
	name         string
	profile      *ble.Profile
	reads        map[string][]byte
	writes       []DummyWrite
	handlers     map[string]ble.NotificationHandler
	disconnected chan struct{}
	once         sync.Once
	TxMTU        int
	ProfileErr   error
}

func NewDummyCoreClient(addr string, name string, services ...*ble.Service) *DummyCoreClient {
	return &DummyCoreClient{
		addr: addr, name: name,
		profile:      &ble.Profile{Services: services},
		reads:        map[string][]byte{},
		handlers:     map[string]ble.NotificationHandler{},
		disconnected: make(chan struct{}),
		TxMTU:        util.MTU,
	}
}

func dummyCharKey(c *ble.Characteristic) string { return util.NormalizeUUID(c.UUID.String()) }

// SetRead sets the value returned for reads of a characteristic
func (c *DummyCoreClient) SetRead(char string, value []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.reads[util.NormalizeUUID(char)] = value
}

func (c *DummyCoreClient) Writes() []DummyWrite {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]DummyWrite{}, c.writes...)
}

func (c *DummyCoreClient) Subscribed(char string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.handlers[util.NormalizeUUID(char)]
	return ok
}

// Notify pushes a value to the subscriber of char; false if nobody is subscribed
func (c *DummyCoreClient) Notify(char string, value []byte) bool {
	c.mutex.Lock()
	h, ok := c.handlers[util.NormalizeUUID(char)]
	c.mutex.Unlock()
	if ok {
		h(value)
	}
	return ok
}

func (c *DummyCoreClient) ReadCharacteristic(char *ble.Characteristic) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	v, ok := c.reads[dummyCharKey(char)]
	if !ok {
		return nil, errors.New("read not permitted")
	}
	return v, nil
}

func (c *DummyCoreClient) WriteCharacteristic(char *ble.Characteristic, value []byte, noRsp bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.writes = append(c.writes, DummyWrite{dummyCharKey(char), value, noRsp})
	return nil
}

func (c *DummyCoreClient) Address() ble.Addr     { return ble.NewAddr(c.addr) }
func (c *DummyCoreClient) Name() string          { return c.name }
func (c *DummyCoreClient) Profile() *ble.Profile { return c.profile }
func (c *DummyCoreClient) DiscoverProfile(force bool) (*ble.Profile, error) {
	if c.ProfileErr != nil {
		return nil, c.ProfileErr
	}
	return c.profile, nil
}
func (c *DummyCoreClient) DiscoverServices(filter []ble.UUID) ([]*ble.Service, error) {
	return c.profile.Services, nil
}
func (c *DummyCoreClient) DiscoverIncludedServices(filter []ble.UUID, s *ble.Service) ([]*ble.Service, error) {
	return nil, nil
}
func (c *DummyCoreClient) DiscoverCharacteristics(filter []ble.UUID, s *ble.Service) ([]*ble.Characteristic, error) {
	return s.Characteristics, nil
}
func (c *DummyCoreClient) DiscoverDescriptors(filter []ble.UUID, char *ble.Characteristic) ([]*ble.Descriptor, error) {
	return nil, nil
}
func (c *DummyCoreClient) ReadLongCharacteristic(char *ble.Characteristic) ([]byte, error) {
	return c.ReadCharacteristic(char)
}
func (c *DummyCoreClient) ReadDescriptor(d *ble.Descriptor) ([]byte, error)  { return nil, nil }
func (c *DummyCoreClient) WriteDescriptor(d *ble.Descriptor, v []byte) error { return nil }
func (c *DummyCoreClient) ReadRSSI() int                                     { return -60 }
func (c *DummyCoreClient) ExchangeMTU(rxMTU int) (txMTU int, err error) {
	if rxMTU < c.TxMTU {
		return rxMTU, nil
	}
	return c.TxMTU, nil
}
func (c *DummyCoreClient) Subscribe(char *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.handlers[dummyCharKey(char)] = h
	return nil
}
func (c *DummyCoreClient) Unsubscribe(char *ble.Characteristic, ind bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.handlers, dummyCharKey(char))
	return nil
}
func (c *DummyCoreClient) ClearSubscriptions() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.handlers = map[string]ble.NotificationHandler{}
	return nil
}

// CancelConnection drops the link; calling it again is a no-op
func (c *DummyCoreClient) CancelConnection() error {
	c.once.Do(func() { close(c.disconnected) })
	return nil
}
func (c *DummyCoreClient) Disconnected() <-chan struct{} { return c.disconnected }
