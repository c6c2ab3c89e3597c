// Package sink delivers measurement events to their consumers.
package sink

import (
	"sync/atomic"

	"github.com/Krajiyah/ble-health/pkg/models"
)

// Channel is a buffered typed channel sink. Delivery is at-most-once:
// events that find the buffer full are dropped and counted.
type Channel struct {
	events  chan models.MeasurementEvent
	errs    chan error
	dropped uint64
}

func NewChannel(size int) *Channel {
	return &Channel{
		events: make(chan models.MeasurementEvent, size),
		errs:   make(chan error, size),
	}
}

// Events is the receive side consumers range over
func (c *Channel) Events() <-chan models.MeasurementEvent { return c.events }

func (c *Channel) Errors() <-chan error { return c.errs }

// Dropped is the number of events and errors discarded so far
func (c *Channel) Dropped() uint64 { return atomic.LoadUint64(&c.dropped) }

func (c *Channel) OnMeasurement(e models.MeasurementEvent) {
	select {
	case c.events <- e:
	default:
		atomic.AddUint64(&c.dropped, 1)
	}
}

func (c *Channel) OnInternalError(err error) {
	select {
	case c.errs <- err:
	default:
		atomic.AddUint64(&c.dropped, 1)
	}
}

// Fanout forwards to every sink in order
type Fanout []models.Sink

func (f Fanout) OnMeasurement(e models.MeasurementEvent) {
	for _, s := range f {
		s.OnMeasurement(e)
	}
}

func (f Fanout) OnInternalError(err error) {
	for _, s := range f {
		s.OnInternalError(err)
	}
}
