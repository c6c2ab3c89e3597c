// Package tinyble implements the transport boundary on tinygo.org/x/bluetooth
// (BlueZ, CoreBluetooth or WinRT depending on the host).
package tinyble

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// radio is the part of a bluetooth.Adapter the central drives
type radio interface {
	Enable() error
	SetConnectHandler(func(device bluetooth.Device, connected bool))
	Scan(func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
	Connect(bluetooth.Address, bluetooth.ConnectionParams) (bluetooth.Device, error)
}

// Central is a transport.Central on a tinygo bluetooth adapter.
// Bonding and link parameters are owned by the OS stack.
type Central struct {
	radio       radio
	dial        func(ctx context.Context, address string) (link, error)
	handler     transport.HandlerSlot
	logger      logrus.FieldLogger
	timeout     time.Duration
	mutex       sync.Mutex
	peripherals map[string]*Peripheral
	names       map[string]string
	scanning    bool
}

// NewCentral enables adapter (bluetooth.DefaultAdapter when nil)
func NewCentral(adapter *bluetooth.Adapter, timeout time.Duration, logger logrus.FieldLogger) (*Central, error) {
	if adapter == nil {
		adapter = bluetooth.DefaultAdapter
	}
	c := newCentral(adapter, timeout, logger)
	if err := c.radio.Enable(); err != nil {
		return nil, errors.Wrap(err, "Enable issue")
	}
	c.radio.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if !connected {
			c.onLinkLost(device.Address.String())
		}
	})
	return c, nil
}

func newCentral(r radio, timeout time.Duration, logger logrus.FieldLogger) *Central {
	if timeout <= 0 {
		timeout = util.ConnectTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Central{
		radio: r, timeout: timeout,
		logger:      logger.WithField("backend", "tinygo"),
		peripherals: map[string]*Peripheral{},
		names:       map[string]string{},
	}
	c.dial = c.connectDevice
	return c
}

func key(address string) string { return strings.ToUpper(address) }

// parseUUID accepts every form util.NormalizeUUID does
func parseUUID(s string) (bluetooth.UUID, error) {
	if !util.IsValidUUID(s) {
		return bluetooth.UUID{}, errors.Errorf("invalid uuid %q", s)
	}
	n := util.NormalizeUUID(s)
	return bluetooth.ParseUUID(n[0:8] + "-" + n[8:12] + "-" + n[12:16] + "-" + n[16:20] + "-" + n[20:])
}

func (c *Central) SetHandler(fn func(transport.Event)) { c.handler.Set(fn) }

// Scan reports advertisements carrying one of services (any advertisement when
// services is empty) until ctx is done or StopScan.
func (c *Central) Scan(ctx context.Context, services []string) error {
	want := []bluetooth.UUID{}
	for _, s := range services {
		u, err := parseUUID(s)
		if err != nil {
			return err
		}
		want = append(want, u)
	}
	c.mutex.Lock()
	if c.scanning {
		c.mutex.Unlock()
		return errors.New("scan already running")
	}
	c.scanning = true
	c.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.radio.StopScan()
		case <-done:
		}
	}()
	go func() {
		err := c.radio.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			c.onScanResult(r.Address.String(), r.LocalName(), int(r.RSSI), r.HasServiceUUID, want)
		})
		close(done)
		c.mutex.Lock()
		c.scanning = false
		c.mutex.Unlock()
		if err != nil && ctx.Err() == nil {
			c.handler.Emit(transport.Event{Type: transport.ScanFailed, Err: errors.Wrap(err, "Scan issue")})
		}
	}()
	return nil
}

func (c *Central) onScanResult(addr, name string, rssi int, has func(bluetooth.UUID) bool, want []bluetooth.UUID) {
	services := []string{}
	for _, u := range want {
		if has(u) {
			services = append(services, util.NormalizeUUID(u.String()))
		}
	}
	if len(want) > 0 && len(services) == 0 {
		return
	}
	c.mutex.Lock()
	if name != "" {
		c.names[key(addr)] = name
	}
	c.mutex.Unlock()
	c.handler.Emit(transport.Event{Type: transport.Discovered, Address: addr, Name: name, Services: services, RSSI: rssi})
}

func (c *Central) StopScan() error {
	c.mutex.Lock()
	scanning := c.scanning
	c.mutex.Unlock()
	if !scanning {
		return nil
	}
	return errors.Wrap(c.radio.StopScan(), "StopScan issue")
}

// Connect links to address in the background.
// The outcome arrives as Connected then ServicesDiscovered, or ConnectionFailed.
func (c *Central) Connect(ctx context.Context, address string) error {
	c.mutex.Lock()
	_, busy := c.peripherals[key(address)]
	c.mutex.Unlock()
	if busy {
		return errors.Errorf("already connected to %s", address)
	}
	go func() {
		l, err := c.dial(ctx, address)
		if err != nil {
			c.handler.Emit(transport.Event{Type: transport.ConnectionFailed, Address: address, Err: errors.Wrap(err, "Connect issue")})
			return
		}
		c.mutex.Lock()
		p := newPeripheral(address, c.names[key(address)], l, c.handler.Emit, c.logger)
		p.onRelease = func() { c.forget(address, p) }
		c.peripherals[key(address)] = p
		c.mutex.Unlock()
		p.start()
	}()
	return nil
}

// connectDevice bounds the adapter's own connect with ctx and the connect timeout
func (c *Central) connectDevice(ctx context.Context, address string) (link, error) {
	var addr bluetooth.Address
	addr.Set(address)
	type result struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		device, err := c.radio.Connect(addr, bluetooth.ConnectionParams{})
		ch <- result{device, err}
	}()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return &deviceLink{device: &r.device}, nil
	}
}

func (c *Central) onLinkLost(address string) {
	c.mutex.Lock()
	p, ok := c.peripherals[key(address)]
	c.mutex.Unlock()
	if ok {
		p.post(p.release)
	}
}

func (c *Central) forget(address string, p *Peripheral) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.peripherals[key(address)] == p {
		delete(c.peripherals, key(address))
	}
}

func (c *Central) CreateBond(ctx context.Context, address string) error {
	return transport.ErrNotSupported
}

// CancelConnection drops the link; the Disconnected event follows
func (c *Central) CancelConnection(address string) error {
	c.mutex.Lock()
	p, ok := c.peripherals[key(address)]
	c.mutex.Unlock()
	if !ok {
		return transport.ErrNotConnected
	}
	err := p.link.Disconnect()
	p.post(p.release)
	return errors.Wrap(err, "Disconnect issue")
}

func (c *Central) Close() error {
	c.StopScan()
	c.mutex.Lock()
	addrs := []string{}
	for _, p := range c.peripherals {
		addrs = append(addrs, p.addr)
	}
	c.mutex.Unlock()
	for _, a := range addrs {
		if err := c.CancelConnection(a); err != nil {
			c.logger.WithError(err).WithField("address", a).Warn("CancelConnection issue")
		}
	}
	return nil
}
