package client

import (
	"context"

	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/pkg/errors"
)

func (c *Controller) scheduleScan() {
	if c.scanTimer != nil {
		c.scanTimer.Stop()
	}
	c.scanTimer = c.opts.Clock.AfterFunc(c.opts.ScanDelay, func() {
		c.post(item{command: c.startScan})
	})
}

func (c *Controller) startScan() {
	c.scanTimer = nil
	if c.scanning {
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	if err := c.central.Scan(ctx, c.opts.ScanServices); err != nil {
		cancel()
		err = errors.Wrap(err, "Scan issue")
		c.logger.WithError(err).Error("could not start scan")
		c.sink.OnInternalError(err)
		return
	}
	c.scanning, c.scanCancel = true, cancel
	c.logger.WithField("services", c.opts.ScanServices).Info("scanning")
}

func (c *Controller) stopScan() {
	if c.scanTimer != nil {
		c.scanTimer.Stop()
		c.scanTimer = nil
	}
	if !c.scanning {
		return
	}
	c.scanning = false
	if err := c.central.StopScan(); err != nil {
		c.logger.WithError(err).Warn("StopScan issue")
	}
	c.scanCancel()
	c.scanCancel = nil
}

// advertises reports whether a discovery advertises one of the scanned services.
// Advertisements without a service list are trusted to the backend's filter.
func (c *Controller) advertises(e transport.Event) bool {
	if len(e.Services) == 0 {
		return true
	}
	for _, s := range e.Services {
		if c.scanServices.Contains(util.NormalizeUUID(s)) {
			return true
		}
	}
	return false
}
