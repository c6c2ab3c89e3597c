package client

import (
	"github.com/Krajiyah/ble-health/pkg/gattcodec"
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/profile"
	"github.com/Krajiyah/ble-health/pkg/registry"
	"github.com/Krajiyah/ble-health/pkg/router"
	"github.com/Krajiyah/ble-health/pkg/session"
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/Krajiyah/ble-health/pkg/vendorproto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func (c *Controller) handle(e transport.Event) {
	switch e.Type {
	case transport.Discovered:
		c.onDiscovered(e)
	case transport.BondStateChanged:
		c.onBondState(e)
	case transport.Connected:
		c.onConnected(e)
	case transport.ConnectionFailed:
		c.onConnectionFailed(e)
	case transport.ServicesDiscovered:
		c.onServicesDiscovered(e)
	case transport.Disconnected:
		c.onDisconnected(e)
	case transport.CharacteristicUpdate:
		c.onCharacteristicUpdate(e)
	case transport.CharacteristicWrite:
		c.onCharacteristicWrite(e)
	case transport.NotificationStateChanged:
		c.onNotificationState(e)
	case transport.MTUChanged:
		c.logger.WithField("address", e.Address).Infof("MTU changed to %d", e.MTU)
	case transport.ScanFailed:
		c.scanning = false
		if c.scanCancel != nil {
			c.scanCancel()
			c.scanCancel = nil
		}
		err := errors.Wrap(e.Err, "Scan issue")
		c.logger.WithError(err).Error("scan failed")
		c.sink.OnInternalError(err)
	}
}

func (c *Controller) onDiscovered(e transport.Event) {
	if !c.scanning || c.sessions.Len() > 0 || !c.advertises(e) {
		return
	}
	c.stopScan()
	c.tornDown.Remove(addrKey(e.Address))
	s := session.New(e.Address, e.Name, vendorproto.IsOmron(e.Name), c.opts.Clock.Now())
	if err := c.sessions.Create(s); err != nil {
		c.logger.WithError(err).Warn("discovery ignored")
		return
	}
	log := c.sessionLog(s).WithFields(logrus.Fields{"name": e.Name, "rssi": e.RSSI})
	log.Info("found peripheral")
	if vendorproto.RequiresBonding(e.Name, c.opts.BondingNamePatterns) && e.Bond != transport.Bonded {
		s.State = session.Bonding
		err := c.central.CreateBond(c.ctx, s.Address)
		if err == nil {
			return
		}
		log.WithError(err).Info("bonding unavailable, connecting directly")
	}
	c.connect(s)
}

func (c *Controller) connect(s *session.PeripheralSession) {
	s.State = session.Connecting
	if err := c.central.Connect(c.ctx, s.Address); err != nil {
		c.onConnectionFailed(transport.Event{Type: transport.ConnectionFailed, Address: s.Address, Err: err})
	}
}

func (c *Controller) onBondState(e transport.Event) {
	s, ok := c.sessions.Get(e.Address)
	if !ok || s.State != session.Bonding {
		return
	}
	log := c.sessionLog(s).WithField("bond", e.Bond.String())
	switch e.Bond {
	case transport.Bonding:
		log.Debug("bonding")
	case transport.Bonded:
		log.Info("bonded")
		c.connect(s)
	default:
		log.Warn("bonding failed, connecting anyway")
		c.connect(s)
	}
}

func (c *Controller) onConnected(e transport.Event) {
	s, ok := c.sessions.Get(e.Address)
	if !ok {
		c.logger.WithField("address", e.Address).Warn("connected without a session, releasing")
		c.release(e.Address)
		return
	}
	s.Peripheral = e.Peripheral
	if s.Name == "" && e.Peripheral != nil {
		s.Name = e.Peripheral.Name()
	}
	s.State = session.ServicesDiscovering
	log := c.sessionLog(s)
	log.Info("connected")
	if p := s.Peripheral; p != nil {
		if err := p.RequestMTU(c.opts.MTU); err != nil {
			log.WithError(err).Debug("RequestMTU issue")
		}
		if err := p.RequestConnectionPriority(transport.PriorityHigh); err != nil {
			log.WithError(err).Debug("RequestConnectionPriority issue")
		}
	}
	c.emitStatus(models.ConnectionStatus{Connected: true, Address: s.Address, Name: s.Name})
}

func (c *Controller) onConnectionFailed(e transport.Event) {
	c.sessions.Destroy(e.Address)
	err := errors.Wrapf(e.Err, "Connect issue (%s)", e.Address)
	c.logger.WithError(err).Error("connection failed")
	c.emitStatus(models.ConnectionStatus{Connected: false})
}

func (c *Controller) onServicesDiscovered(e transport.Event) {
	s, ok := c.sessions.Get(e.Address)
	if !ok {
		return
	}
	if !s.Attached() {
		s.Peripheral = e.Peripheral
	}
	if e.Err != nil {
		c.sessionLog(s).WithError(e.Err).Error("service discovery failed")
		c.release(s.Address)
		return
	}
	p := s.Peripheral
	if p == nil {
		c.sessionLog(s).Error("services discovered without a peripheral")
		return
	}
	s.State = session.Configuring
	log := c.sessionLog(s)
	c.read(log, p, models.TagManufacturerName)
	c.read(log, p, models.TagModelNumber)
	ctsService, ctsChar := registry.MustPair(models.TagCurrentTime)
	if !s.Omron && p.HasCharacteristic(ctsService, ctsChar) && p.Properties(ctsService, ctsChar).CanWrite() {
		value := gattcodec.CurrentTime(c.opts.Clock.Now())
		if err := p.WriteCharacteristic(ctsService, ctsChar, value, transport.WithResponse); err != nil {
			log.WithError(err).Warn("current time write failed")
		}
	}
	c.read(log, p, models.TagBatteryLevel)

	s.State = session.Subscribing
	c.logOutcomes(c.sessionLog(s), profile.Apply(p, true))
	s.State = session.Active
	c.sessionLog(s).Info("session active")
}

func (c *Controller) read(log logrus.FieldLogger, p transport.Peripheral, tag models.Tag) {
	service, char := registry.MustPair(tag)
	if !p.HasCharacteristic(service, char) {
		return
	}
	if err := p.ReadCharacteristic(service, char); err != nil {
		log.WithError(err).WithField("tag", tag.String()).Warn("read failed")
	}
}

func (c *Controller) logOutcomes(log logrus.FieldLogger, outcomes []profile.Outcome) {
	for _, o := range profile.Failed(outcomes) {
		l := log.WithError(o.Err).WithField("tag", o.Tag.String())
		if errors.Cause(o.Err) == transport.ErrCharacteristicNotFound {
			l.Debug("not offered by peripheral")
		} else {
			l.Warn("subscription failed")
		}
	}
}

func (c *Controller) applyProfile(address string, enable bool) {
	s, ok := c.sessions.Get(address)
	if !ok || !s.Attached() {
		c.logger.WithField("address", address).Warn("no connected session")
		return
	}
	c.logOutcomes(c.sessionLog(s).WithField("enable", enable), profile.Apply(s.Peripheral, enable))
}

func (c *Controller) onCharacteristicUpdate(e transport.Event) {
	s, ok := c.sessions.Get(e.Address)
	if !ok {
		return
	}
	if e.Err != nil {
		c.sessionLog(s).WithError(e.Err).Warnf("update of %s failed", e.Characteristic)
		return
	}
	res := c.router.Route(registry.Resolve(e.Service, e.Characteristic), e.Value, s)
	if res.Kind == router.Measurement {
		c.sink.OnMeasurement(*res.Event)
	}
}

func (c *Controller) onCharacteristicWrite(e transport.Event) {
	log := c.logger.WithFields(logrus.Fields{"address": e.Address, "characteristic": e.Characteristic})
	if e.Err != nil {
		log.WithError(e.Err).Warnf("write %s failed", util.Hex(e.Value))
		return
	}
	log.Debugf("wrote %s", util.Hex(e.Value))
}

func (c *Controller) onNotificationState(e transport.Event) {
	log := c.logger.WithFields(logrus.Fields{"address": e.Address, "characteristic": e.Characteristic})
	if e.Err != nil {
		log.WithError(e.Err).Error("changing notification state failed")
		return
	}
	log.Debugf("notify set to %t", e.Enabled)
	s, ok := c.sessions.Get(e.Address)
	if !ok {
		return
	}
	c.contour.OnNotificationState(s, registry.Resolve(e.Service, e.Characteristic), e.Enabled)
}
