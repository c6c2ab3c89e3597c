package tinyble

import (
	"sync"

	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

const (
	opQueueSize = 32
	readBufSize = 512
	// tinygo exposes no portable property bits, so every characteristic is
	// offered for everything and the peripheral rejects what it does not support
	assumedProps = transport.PropRead | transport.PropWrite | transport.PropNotify
)

// gattChar is the part of a bluetooth.DeviceCharacteristic a peripheral uses
type gattChar interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	WriteWithoutResponse([]byte) (int, error)
	EnableNotifications(func([]byte)) error
}

// link is an established connection
type link interface {
	// Discover returns every characteristic keyed by charKey
	Discover() (map[string]gattChar, error)
	Disconnect() error
}

type deviceLink struct {
	device *bluetooth.Device
}

func (l *deviceLink) Discover() (map[string]gattChar, error) {
	services, err := l.device.DiscoverServices(nil)
	if err != nil {
		return nil, errors.Wrap(err, "DiscoverServices issue")
	}
	chars := map[string]gattChar{}
	for i := range services {
		svc := &services[i]
		found, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "DiscoverCharacteristics issue (%s)", svc.UUID().String())
		}
		for j := range found {
			chars[charKey(svc.UUID().String(), found[j].UUID().String())] = &found[j]
		}
	}
	return chars, nil
}

func (l *deviceLink) Disconnect() error { return l.device.Disconnect() }

func charKey(service, char string) string {
	return util.NormalizeUUID(service) + "/" + util.NormalizeUUID(char)
}

// Peripheral is a connected tinygo device. GATT operations and the events
// they produce run on one worker goroutine, in request order.
type Peripheral struct {
	addr        string
	name        string
	link        link
	emit        func(transport.Event)
	logger      logrus.FieldLogger
	mutex       sync.RWMutex
	chars       map[string]gattChar
	notifying   mapset.Set
	requested   map[string]bool
	ops         chan func()
	done        chan struct{}
	releaseOnce sync.Once
	onRelease   func()
}

func newPeripheral(addr, name string, l link, emit func(transport.Event), logger logrus.FieldLogger) *Peripheral {
	return &Peripheral{
		addr: addr, name: name, link: l, emit: emit,
		logger:    logger.WithField("address", addr),
		chars:     map[string]gattChar{},
		notifying: mapset.NewSet(),
		requested: map[string]bool{},
		ops:       make(chan func(), opQueueSize),
		done:      make(chan struct{}),
	}
}

func (p *Peripheral) start() {
	go p.work()
	p.post(func() {
		p.emit(transport.Event{Type: transport.Connected, Address: p.addr, Name: p.name, Peripheral: p})
		chars, err := p.link.Discover()
		if err != nil {
			p.emit(transport.Event{Type: transport.ServicesDiscovered, Address: p.addr, Peripheral: p, Err: err})
			return
		}
		p.mutex.Lock()
		p.chars = chars
		p.mutex.Unlock()
		p.logger.Debugf("discovered %d characteristics", len(chars))
		p.emit(transport.Event{Type: transport.ServicesDiscovered, Address: p.addr, Peripheral: p})
	})
}

func (p *Peripheral) work() {
	for {
		select {
		case op := <-p.ops:
			op()
		case <-p.done:
			return
		}
	}
}

func (p *Peripheral) post(op func()) error {
	select {
	case <-p.done:
		return transport.ErrNotConnected
	default:
	}
	select {
	case p.ops <- op:
		return nil
	case <-p.done:
		return transport.ErrNotConnected
	}
}

// release ends the worker and reports the link down, once
func (p *Peripheral) release() {
	p.releaseOnce.Do(func() {
		close(p.done)
		p.mutex.Lock()
		p.notifying.Clear()
		p.requested = map[string]bool{}
		p.mutex.Unlock()
		if p.onRelease != nil {
			p.onRelease()
		}
		p.emit(transport.Event{Type: transport.Disconnected, Address: p.addr, Name: p.name})
	})
}

func (p *Peripheral) characteristic(service, char string) (gattChar, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	c, ok := p.chars[charKey(service, char)]
	if !ok {
		return nil, errors.Wrapf(transport.ErrCharacteristicNotFound, "%s/%s", util.ShortUUID(service), util.ShortUUID(char))
	}
	return c, nil
}

func (p *Peripheral) Address() string { return p.addr }
func (p *Peripheral) Name() string    { return p.name }

func (p *Peripheral) HasCharacteristic(service, char string) bool {
	_, err := p.characteristic(service, char)
	return err == nil
}

func (p *Peripheral) Properties(service, char string) transport.Property {
	if !p.HasCharacteristic(service, char) {
		return 0
	}
	return assumedProps
}

func (p *Peripheral) IsNotifying(service, char string) bool {
	return p.notifying.Contains(charKey(service, char))
}

func (p *Peripheral) ReadCharacteristic(service, char string) error {
	c, err := p.characteristic(service, char)
	if err != nil {
		return err
	}
	return p.post(func() {
		buf := make([]byte, readBufSize)
		n, err := c.Read(buf)
		if err != nil {
			buf, n = nil, 0
		}
		p.emit(transport.Event{
			Type: transport.CharacteristicUpdate, Address: p.addr,
			Service: service, Characteristic: char, Value: buf[:n],
			Err: errors.Wrap(err, "Read issue"),
		})
	})
}

func (p *Peripheral) WriteCharacteristic(service, char string, value []byte, writeType transport.WriteType) error {
	c, err := p.characteristic(service, char)
	if err != nil {
		return err
	}
	return p.post(func() {
		var err error
		if writeType == transport.WithoutResponse {
			_, err = c.WriteWithoutResponse(value)
		} else {
			_, err = c.Write(value)
		}
		p.emit(transport.Event{
			Type: transport.CharacteristicWrite, Address: p.addr,
			Service: service, Characteristic: char, Value: value,
			Err: errors.Wrap(err, "Write issue"),
		})
	})
}

// SetNotify enables or disables notifications; asking for the current state
// produces no event.
func (p *Peripheral) SetNotify(service, char string, enable bool) error {
	c, err := p.characteristic(service, char)
	if err != nil {
		return err
	}
	k := charKey(service, char)
	if !p.request(k, enable) {
		return nil
	}
	err = p.post(func() {
		var cb func([]byte)
		if enable {
			cb = func(data []byte) {
				value := append([]byte{}, data...)
				p.post(func() {
					p.emit(transport.Event{
						Type: transport.CharacteristicUpdate, Address: p.addr,
						Service: service, Characteristic: char, Value: value,
					})
				})
			}
		}
		err := c.EnableNotifications(cb)
		p.settle(k, enable, err)
		p.emit(transport.Event{
			Type: transport.NotificationStateChanged, Address: p.addr,
			Service: service, Characteristic: char, Enabled: enable,
			Err: errors.Wrap(err, "EnableNotifications issue"),
		})
	})
	if err != nil {
		p.settle(k, enable, err)
	}
	return err
}

// request marks enable as pending for k; false when k already has, or is
// already headed for, that state
func (p *Peripheral) request(k string, enable bool) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	cur, ok := p.requested[k]
	if !ok {
		cur = p.notifying.Contains(k)
	}
	if cur == enable {
		return false
	}
	p.requested[k] = enable
	return true
}

func (p *Peripheral) settle(k string, enable bool, err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if err == nil {
		if enable {
			p.notifying.Add(k)
		} else {
			p.notifying.Remove(k)
		}
	}
	if want, ok := p.requested[k]; ok && want == enable {
		delete(p.requested, k)
	}
}

// RequestMTU is left to the OS stack, which negotiates on connect
func (p *Peripheral) RequestMTU(mtu int) error { return transport.ErrNotSupported }

func (p *Peripheral) RequestConnectionPriority(priority transport.ConnectionPriority) error {
	return transport.ErrNotSupported
}
