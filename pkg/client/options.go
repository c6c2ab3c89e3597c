package client

import (
	"time"

	"github.com/Krajiyah/ble-health/pkg/decoder"
	"github.com/Krajiyah/ble-health/pkg/router"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/Krajiyah/ble-health/pkg/vendorproto"
	"github.com/sirupsen/logrus"
)

// Options tune a Controller; zero fields fall back to DefaultOptions
type Options struct {
	ScanServices        []string
	ScanDelay           time.Duration
	ReconnectDelay      time.Duration
	MTU                 int
	BondingNamePatterns []string
	Clock               util.Clock
	Decoder             router.Decoder
	Logger              logrus.FieldLogger
}

func DefaultOptions() Options {
	return Options{
		ScanServices:        util.HealthServiceUUIDs,
		ScanDelay:           util.ScanDelay,
		ReconnectDelay:      util.ReconnectDelay,
		MTU:                 util.MTU,
		BondingNamePatterns: vendorproto.DefaultBondingNamePatterns,
		Clock:               util.SystemClock(),
		Decoder:             decoder.Standard{},
		Logger:              logrus.StandardLogger(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if len(o.ScanServices) == 0 {
		o.ScanServices = d.ScanServices
	}
	if o.ScanDelay <= 0 {
		o.ScanDelay = d.ScanDelay
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = d.ReconnectDelay
	}
	if o.MTU <= 0 {
		o.MTU = d.MTU
	}
	if o.BondingNamePatterns == nil {
		o.BondingNamePatterns = d.BondingNamePatterns
	}
	if o.Clock == nil {
		o.Clock = d.Clock
	}
	if o.Decoder == nil {
		o.Decoder = d.Decoder
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}
