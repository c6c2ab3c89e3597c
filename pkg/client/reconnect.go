package client

import (
	"strings"

	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/session"
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/Krajiyah/ble-health/pkg/vendorproto"
	"github.com/sirupsen/logrus"
)

func addrKey(address string) string { return strings.ToUpper(address) }

func (c *Controller) onDisconnected(e transport.Event) {
	name := e.Name
	s, ok := c.sessions.Get(e.Address)
	if ok {
		s.State = session.Disconnected
		s.Peripheral = nil
		c.sessionLog(s).Info("disconnected")
		if name == "" {
			name = s.Name
		}
		c.sessions.Destroy(e.Address)
	}
	c.emitStatus(models.ConnectionStatus{Connected: false, Address: e.Address, Name: name})
	if !ok {
		c.logger.WithField("address", e.Address).Debug("disconnected without a session, not reconnecting")
		return
	}
	if c.tornDown.Contains(addrKey(e.Address)) {
		return
	}
	c.scheduleReconnect(e.Address, name)
}

// scheduleReconnect arms the single reconnect timer, replacing any earlier one.
// The generation check drops a timer that fires after being superseded or cancelled.
func (c *Controller) scheduleReconnect(address, name string) {
	c.cancelReconnect()
	gen := c.reconnectGen
	c.reconnectAddr = address
	c.reconnectTimer = c.opts.Clock.AfterFunc(c.opts.ReconnectDelay, func() {
		c.post(item{command: func() { c.fireReconnect(gen, address, name) }})
	})
	c.logger.WithFields(logrus.Fields{"address": address, "delay": c.opts.ReconnectDelay}).Info("reconnect scheduled")
}

func (c *Controller) cancelReconnect() {
	c.reconnectGen++
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.reconnectTimer = nil
	c.reconnectAddr = ""
}

func (c *Controller) fireReconnect(gen int, address, name string) {
	if gen != c.reconnectGen || c.tornDown.Contains(addrKey(address)) {
		return
	}
	c.reconnectTimer = nil
	c.reconnectAddr = ""
	s := session.New(address, name, vendorproto.IsOmron(name), c.opts.Clock.Now())
	if err := c.sessions.Create(s); err != nil {
		c.logger.WithError(err).Warn("reconnect skipped")
		return
	}
	c.sessionLog(s).Info("reconnecting")
	c.connect(s)
}

// teardown is the terminal disconnect: no reconnect follows until a new discovery
func (c *Controller) teardown(address string) {
	c.tornDown.Add(addrKey(address))
	if c.reconnectTimer != nil && util.AddrEqualAddr(c.reconnectAddr, address) {
		c.cancelReconnect()
	}
	s, ok := c.sessions.Get(address)
	if !ok {
		return
	}
	s.State = session.Terminal
	c.sessionLog(s).Info("tearing down")
	c.release(address)
	c.sessions.Destroy(address)
}

// release frees the connection; releasing an already released connection is a no-op
func (c *Controller) release(address string) {
	err := util.CatchErrs(func() error { return c.central.CancelConnection(address) })
	if err != nil {
		c.logger.WithError(err).WithField("address", address).Debug("CancelConnection issue")
	}
}
