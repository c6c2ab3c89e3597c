// Package client drives BLE health peripherals from discovery to steady-state
// notification handling.
package client

import (
	"context"

	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/router"
	"github.com/Krajiyah/ble-health/pkg/session"
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/Krajiyah/ble-health/pkg/vendorproto"
	mapset "github.com/deckarep/golang-set"
	"github.com/sirupsen/logrus"
)

const queueSize = 64

// item is one unit of work for the event loop: a transport event or a command
type item struct {
	event   *transport.Event
	command func()
}

// Controller owns every peripheral session. All session state is touched only
// from the goroutine running Run; public methods post commands to it.
type Controller struct {
	central transport.Central
	sink    models.Sink
	opts    Options
	logger  logrus.FieldLogger

	queue chan item
	done  chan struct{}
	ctx   context.Context

	sessions     *session.Table
	router       *router.Router
	omron        *vendorproto.Omron
	contour      *vendorproto.Contour
	scanServices mapset.Set
	tornDown     mapset.Set

	scanTimer  util.Timer
	scanCancel context.CancelFunc
	scanning   bool

	reconnectTimer util.Timer
	reconnectAddr  string
	reconnectGen   int
}

func NewController(central transport.Central, sink models.Sink, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		central: central, sink: sink, opts: opts, logger: opts.Logger,
		queue: make(chan item, queueSize), done: make(chan struct{}),
		ctx:      context.Background(),
		sessions: session.NewTable(),
		omron:    vendorproto.NewOmron(opts.Clock, opts.Logger),
		contour:  vendorproto.NewContour(opts.Clock, opts.Logger),
		tornDown: mapset.NewSet(),
	}
	c.router = router.New(opts.Decoder, opts.Clock, c.omron, opts.Logger)
	c.scanServices = mapset.NewSet()
	for _, s := range opts.ScanServices {
		c.scanServices.Add(util.NormalizeUUID(s))
	}
	central.SetHandler(func(e transport.Event) { c.post(item{event: &e}) })
	return c
}

// Run processes events and commands until ctx is done, then tears down every session
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case it := <-c.queue:
			c.dispatch(it)
		}
	}
}

func (c *Controller) post(it item) {
	select {
	case c.queue <- it:
	case <-c.done:
	}
}

func (c *Controller) dispatch(it item) {
	err := util.CatchErrs(func() error {
		if it.event != nil {
			c.handle(*it.event)
		} else if it.command != nil {
			it.command()
		}
		return nil
	})
	if err != nil {
		c.logger.WithError(err).Error("event loop")
		c.sink.OnInternalError(err)
	}
}

// drain runs everything queued so far without blocking
func (c *Controller) drain() {
	for {
		select {
		case it := <-c.queue:
			c.dispatch(it)
		default:
			return
		}
	}
}

// ConnectToHealthDevice starts a scan for the configured services after ScanDelay
func (c *Controller) ConnectToHealthDevice() {
	c.post(item{command: c.scheduleScan})
}

// Disconnect tears the session of address down for good: any pending reconnect
// is cancelled and the connection released. Safe to repeat.
func (c *Controller) Disconnect(address string) {
	c.post(item{command: func() { c.teardown(address) }})
}

// EnableAllSubscriptions applies (or removes) the notification profile on a connected peripheral
func (c *Controller) EnableAllSubscriptions(address string, enable bool) {
	c.post(item{command: func() { c.applyProfile(address, enable) }})
}

func (c *Controller) emitStatus(status models.ConnectionStatus) {
	c.sink.OnMeasurement(models.NewConnectionStatusEvent(status, c.opts.Clock.Now()))
}

func (c *Controller) sessionLog(s *session.PeripheralSession) logrus.FieldLogger {
	return c.logger.WithFields(logrus.Fields{
		"address": s.Address, "state": s.State.String(), "session": s.ID.String(),
	})
}

func (c *Controller) shutdown() {
	c.stopScan()
	for _, addr := range c.sessions.Addresses() {
		c.teardown(addr)
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}
