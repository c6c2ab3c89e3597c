package internal

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/currantlabs/ble"
)

// DummyDevice is an in-memory ble.Device: scans replay canned advertisements,
// dials hand out registered DummyCoreClients, and served services are recorded.
type DummyDevice struct {
	mutex        sync.Mutex
	adverts      []ble.Advertisement
	clients      map[string]*DummyCoreClient
	dialFailures int
	dials        int
	services     []*ble.Service
	advertised   string
	stopped      bool
	ScanErr      error
}

func NewDummyDevice(adverts ...ble.Advertisement) *DummyDevice {
	return &DummyDevice{adverts: adverts, clients: map[string]*DummyCoreClient{}}
}

// AddClient makes addr dialable
func (d *DummyDevice) AddClient(addr string, c *DummyCoreClient) *DummyDevice {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.clients[strings.ToUpper(addr)] = c
	return d
}

// FailDials makes the next n dials fail
func (d *DummyDevice) FailDials(n int) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.dialFailures = n
}

func (d *DummyDevice) Dials() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.dials
}

func (d *DummyDevice) Services() []*ble.Service {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.services
}

func (d *DummyDevice) AdvertisedName() string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.advertised
}

func (d *DummyDevice) Stopped() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.stopped
}

func (d *DummyDevice) AddService(svc *ble.Service) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.services = append(d.services, svc)
	return nil
}
func (d *DummyDevice) RemoveAllServices() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.services = nil
	return nil
}
func (d *DummyDevice) SetServices(svcs []*ble.Service) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.services = svcs
	return nil
}
func (d *DummyDevice) Stop() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.stopped = true
	return nil
}
func (d *DummyDevice) AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error {
	d.mutex.Lock()
	d.advertised = name
	d.mutex.Unlock()
	<-ctx.Done()
	return ctx.Err()
}
func (d *DummyDevice) AdvertiseMfgData(ctx context.Context, id uint16, b []byte) error { return nil }
func (d *DummyDevice) AdvertiseServiceData16(ctx context.Context, id uint16, b []byte) error {
	return nil
}
func (d *DummyDevice) AdvertiseIBeaconData(ctx context.Context, b []byte) error { return nil }
func (d *DummyDevice) AdvertiseIBeacon(ctx context.Context, u ble.UUID, major, minor uint16, pwr int8) error {
	return nil
}

func (d *DummyDevice) Dial(ctx context.Context, a ble.Addr) (ble.Client, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.dials++
	if d.dialFailures > 0 {
		d.dialFailures--
		return nil, errors.New("page timeout")
	}
	c, ok := d.clients[strings.ToUpper(a.String())]
	if !ok {
		return nil, errors.New("no such peripheral")
	}
	return c, nil
}

// Scan replays the canned advertisements and then blocks until ctx is done
func (d *DummyDevice) Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error {
	if d.ScanErr != nil {
		return d.ScanErr
	}
	for _, a := range d.adverts {
		h(a)
	}
	<-ctx.Done()
	return ctx.Err()
}
