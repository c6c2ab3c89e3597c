package ble

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/currantlabs/ble"
	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Central is a transport.Central on a currantlabs ble.Device.
// Bonding is left to the host stack and reported as unsupported.
type Central struct {
	methods     coreMethods
	handler     transport.HandlerSlot
	logger      logrus.FieldLogger
	timeout     time.Duration
	mutex       sync.Mutex
	peripherals map[string]*Peripheral
	names       map[string]string
	scanCancel  context.CancelFunc
	scanID      int
}

// NewCentral drives device. A zero timeout means util.ConnectTimeout per dial attempt.
func NewCentral(device ble.Device, timeout time.Duration, logger logrus.FieldLogger) *Central {
	return newCentral(device, timeout, logger)
}

func newCentral(methods coreMethods, timeout time.Duration, logger logrus.FieldLogger) *Central {
	if timeout <= 0 {
		timeout = util.ConnectTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Central{
		methods: methods, timeout: timeout,
		logger:      logger.WithField("backend", "currant"),
		peripherals: map[string]*Peripheral{},
		names:       map[string]string{},
	}
}

func key(address string) string { return strings.ToUpper(address) }

func (c *Central) SetHandler(fn func(transport.Event)) { c.handler.Set(fn) }

// Scan reports advertisements as Discovered events until ctx is done or StopScan.
// Advertisements listing none of services are skipped; ones listing no services pass.
func (c *Central) Scan(ctx context.Context, services []string) error {
	c.mutex.Lock()
	if c.scanCancel != nil {
		c.mutex.Unlock()
		return errors.New("scan already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.scanID++
	id := c.scanID
	c.scanCancel = cancel
	c.mutex.Unlock()

	want := mapset.NewSet()
	for _, s := range services {
		want.Add(util.NormalizeUUID(s))
	}
	go func() {
		err := util.CatchErrs(func() error {
			return c.methods.Scan(ctx, false, func(a ble.Advertisement) { c.onAdvertisement(a, want) })
		})
		c.mutex.Lock()
		if c.scanID == id {
			c.scanCancel = nil
		}
		c.mutex.Unlock()
		cancel()
		if err != nil && !isCanceled(err) {
			c.handler.Emit(transport.Event{Type: transport.ScanFailed, Err: errors.Wrap(err, "Scan issue")})
		}
	}()
	return nil
}

func (c *Central) onAdvertisement(a ble.Advertisement, want mapset.Set) {
	services := []string{}
	match := want.Cardinality() == 0
	for _, u := range a.Services() {
		s := util.NormalizeUUID(u.String())
		services = append(services, s)
		match = match || want.Contains(s)
	}
	if len(services) > 0 && !match {
		return
	}
	addr := a.Address().String()
	if name := a.LocalName(); name != "" {
		c.mutex.Lock()
		c.names[key(addr)] = name
		c.mutex.Unlock()
	}
	c.handler.Emit(transport.Event{
		Type: transport.Discovered, Address: addr, Name: a.LocalName(),
		Services: services, RSSI: a.RSSI(),
	})
}

func (c *Central) StopScan() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.scanCancel != nil {
		c.scanCancel()
		c.scanCancel = nil
	}
	return nil
}

// Connect dials address in the background, retrying a bounded number of times.
// The outcome arrives as Connected then ServicesDiscovered, or ConnectionFailed.
func (c *Central) Connect(ctx context.Context, address string) error {
	c.mutex.Lock()
	_, busy := c.peripherals[key(address)]
	c.mutex.Unlock()
	if busy {
		return errors.Errorf("already connected to %s", address)
	}
	go c.dial(ctx, address)
	return nil
}

func (c *Central) dial(ctx context.Context, address string) {
	var cln ble.Client
	err := retry(c.logger.WithField("address", address), "Dial", maxConnectAttempts, func(int) error {
		dctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		var e error
		cln, e = c.methods.Dial(dctx, ble.NewAddr(address))
		return e
	})
	if err != nil {
		c.handler.Emit(transport.Event{Type: transport.ConnectionFailed, Address: address, Err: err})
		return
	}
	c.mutex.Lock()
	name := c.names[key(address)]
	c.mutex.Unlock()
	p := newPeripheral(address, name, cln, c.handler.Emit, c.logger)
	p.onRelease = func() { c.forget(address, p) }
	c.mutex.Lock()
	c.peripherals[key(address)] = p
	c.mutex.Unlock()
	p.start()
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
	return errors.Wrap(p.cln.CancelConnection(), "CancelConnection issue")
}

// Close stops scanning, drops every link and stops the device
func (c *Central) Close() error {
	c.StopScan()
	c.mutex.Lock()
	peripherals := []*Peripheral{}
	for _, p := range c.peripherals {
		peripherals = append(peripherals, p)
	}
	c.mutex.Unlock()
	for _, p := range peripherals {
		err := util.Timeout(p.cln.CancelConnection, c.timeout)
		if err != nil {
			c.logger.WithError(err).WithField("address", p.addr).Warn("CancelConnection issue")
		}
	}
	return errors.Wrap(c.methods.Stop(), "Stop issue")
}
