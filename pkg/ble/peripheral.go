package ble

import (
	"sync"

	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/currantlabs/ble"
	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Peripheral is a connected currantlabs client. GATT operations and the
// events they produce run on one worker goroutine, in request order.
type Peripheral struct {
	addr      string
	name      string
	cln       gattClient
	emit      func(transport.Event)
	logger    logrus.FieldLogger
	mutex     sync.RWMutex
	chars     map[string]*ble.Characteristic
	notifying mapset.Set
	requested map[string]bool
	ops       chan func()
	done      chan struct{}
	onRelease func()
}

func newPeripheral(addr, name string, cln gattClient, emit func(transport.Event), logger logrus.FieldLogger) *Peripheral {
	return &Peripheral{
		addr: addr, name: name, cln: cln, emit: emit,
		logger:    logger.WithField("address", addr),
		chars:     map[string]*ble.Characteristic{},
		notifying: mapset.NewSet(),
		requested: map[string]bool{},
		ops:       make(chan func(), opQueueSize),
		done:      make(chan struct{}),
	}
}

func charKey(service, char string) string {
	return util.NormalizeUUID(service) + "/" + util.NormalizeUUID(char)
}

// start announces the link, discovers the profile and watches for the link going down
func (p *Peripheral) start() {
	go p.work()
	p.post(func() {
		p.emit(transport.Event{Type: transport.Connected, Address: p.addr, Name: p.name, Peripheral: p})
		p.discover()
	})
	go func() {
		<-p.cln.Disconnected()
		p.post(p.release)
	}()
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

func (p *Peripheral) release() {
	close(p.done)
	p.mutex.Lock()
	p.notifying.Clear()
	p.requested = map[string]bool{}
	p.mutex.Unlock()
	if p.onRelease != nil {
		p.onRelease()
	}
	p.emit(transport.Event{Type: transport.Disconnected, Address: p.addr, Name: p.name})
}

func (p *Peripheral) discover() {
	var profile *ble.Profile
	err := util.CatchErrs(func() error {
		var e error
		profile, e = p.cln.DiscoverProfile(true)
		return e
	})
	if err != nil {
		p.emit(transport.Event{Type: transport.ServicesDiscovered, Address: p.addr, Peripheral: p, Err: errors.Wrap(err, "DiscoverProfile issue")})
		return
	}
	p.mutex.Lock()
	for _, s := range profile.Services {
		for _, c := range s.Characteristics {
			p.chars[charKey(s.UUID.String(), c.UUID.String())] = c
		}
	}
	n := len(p.chars)
	p.mutex.Unlock()
	p.logger.Debugf("discovered %d characteristics", n)
	p.emit(transport.Event{Type: transport.ServicesDiscovered, Address: p.addr, Peripheral: p})
}

func (p *Peripheral) characteristic(service, char string) (*ble.Characteristic, error) {
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
	c, err := p.characteristic(service, char)
	if err != nil {
		return 0
	}
	return transport.Property(c.Property)
}

func (p *Peripheral) IsNotifying(service, char string) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.notifying.Contains(charKey(service, char))
}

func (p *Peripheral) ReadCharacteristic(service, char string) error {
	c, err := p.characteristic(service, char)
	if err != nil {
		return err
	}
	return p.post(func() {
		var value []byte
		err := util.CatchErrs(func() error {
			var e error
			value, e = p.cln.ReadCharacteristic(c)
			return e
		})
		p.emit(transport.Event{
			Type: transport.CharacteristicUpdate, Address: p.addr,
			Service: service, Characteristic: char, Value: value,
			Err: errors.Wrap(err, "ReadCharacteristic issue"),
		})
	})
}

func (p *Peripheral) WriteCharacteristic(service, char string, value []byte, writeType transport.WriteType) error {
	c, err := p.characteristic(service, char)
	if err != nil {
		return err
	}
	return p.post(func() {
		err := util.CatchErrs(func() error {
			return p.cln.WriteCharacteristic(c, value, writeType == transport.WithoutResponse)
		})
		p.emit(transport.Event{
			Type: transport.CharacteristicWrite, Address: p.addr,
			Service: service, Characteristic: char, Value: value,
			Err: errors.Wrap(err, "WriteCharacteristic issue"),
		})
	})
}

// SetNotify subscribes to or unsubscribes from char. Asking for the current
// state is a no-op and produces no event.
func (p *Peripheral) SetNotify(service, char string, enable bool) error {
	c, err := p.characteristic(service, char)
	if err != nil {
		return err
	}
	prop := transport.Property(c.Property)
	if !prop.CanSubscribe() {
		return errors.Wrapf(transport.ErrNotSupported, "%s cannot notify", util.ShortUUID(char))
	}
	k := charKey(service, char)
	if !p.request(k, enable) {
		return nil
	}
	indicate := prop&transport.PropNotify == 0
	err = p.post(func() {
		err := util.CatchErrs(func() error {
			if !enable {
				return p.cln.Unsubscribe(c, indicate)
			}
			return p.cln.Subscribe(c, indicate, func(data []byte) {
				value := append([]byte{}, data...)
				p.post(func() {
					p.emit(transport.Event{
						Type: transport.CharacteristicUpdate, Address: p.addr,
						Service: service, Characteristic: char, Value: value,
					})
				})
			})
		})
		p.settle(k, enable, err)
		p.emit(transport.Event{
			Type: transport.NotificationStateChanged, Address: p.addr,
			Service: service, Characteristic: char, Enabled: enable,
			Err: errors.Wrap(err, "SetNotify issue"),
		})
	})
	if err != nil {
		p.settle(k, enable, err)
	}
	return err
}

// request records enable as the pending state of k. It is false when k is
// already in, or already on its way to, that state.
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

// settle applies the outcome of a subscription change to k
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

func (p *Peripheral) RequestMTU(mtu int) error {
	return p.post(func() {
		var tx int
		err := util.CatchErrs(func() error {
			var e error
			tx, e = p.cln.ExchangeMTU(mtu)
			return e
		})
		p.emit(transport.Event{Type: transport.MTUChanged, Address: p.addr, MTU: tx, Err: errors.Wrap(err, "ExchangeMTU issue")})
	})
}

func (p *Peripheral) RequestConnectionPriority(priority transport.ConnectionPriority) error {
	return transport.ErrNotSupported
}
