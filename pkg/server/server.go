// Package server emulates a health peripheral on a currantlabs/ble GATT server:
// Heart Rate, Battery, Current Time and Device Information services.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/Krajiyah/ble-health/pkg/gattcodec"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/currantlabs/ble"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// HeartRateInterval is the period of heart rate notifications
	HeartRateInterval = time.Second
	// CurrentTimeInterval is the period of current time notifications
	CurrentTimeInterval = time.Minute

	pnpSourceBluetooth = 0x01
)

type gattDevice interface {
	AddService(*ble.Service) error
	AdvertiseNameAndServices(context.Context, string, ...ble.UUID) error
}

// Emulator serves the GATT profile of a heart rate strap with a settable clock
type Emulator struct {
	name         string
	manufacturer string
	model        string
	device       gattDevice
	clock        util.Clock
	logger       logrus.FieldLogger
	mutex        sync.Mutex
	status       Status
	heartRate    int
	battery      int
	offset       time.Duration
}

// NewEmulator serves on device; nil clock and logger fall back to the system ones
func NewEmulator(name string, device ble.Device, clock util.Clock, logger logrus.FieldLogger) *Emulator {
	return newEmulator(name, device, clock, logger)
}

func newEmulator(name string, device gattDevice, clock util.Clock, logger logrus.FieldLogger) *Emulator {
	if clock == nil {
		clock = util.SystemClock()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Emulator{
		name: name, manufacturer: "Krajiyah", model: "HR-Emu 1",
		device: device, clock: clock,
		logger:    logger.WithField("emulator", name),
		heartRate: 70, battery: 100,
	}
}

func (e *Emulator) Status() Status {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.status
}

func (e *Emulator) setStatus(s Status) {
	e.mutex.Lock()
	e.status = s
	e.mutex.Unlock()
	e.logger.WithField("status", s.String()).Info("status changed")
}

func (e *Emulator) SetHeartRate(bpm int) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.heartRate = bpm
}

func (e *Emulator) SetBattery(pct int) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.battery = pct
}

// Now is the emulated device clock: the host clock plus whatever offset
// Current Time writes have set
func (e *Emulator) Now() time.Time {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.clock.Now().Add(e.offset).In(time.Local)
}

func (e *Emulator) heartRatePayload() []byte {
	e.mutex.Lock()
	bpm := e.heartRate
	e.mutex.Unlock()
	if bpm <= 0 {
		return HeartRatePayload(0, nil)
	}
	return HeartRatePayload(bpm, []time.Duration{time.Minute / time.Duration(bpm)})
}

func (e *Emulator) batteryPayload() []byte {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return BatteryPayload(e.battery)
}

// setTime applies a Current Time write
func (e *Emulator) setTime(addr string, data []byte) error {
	if len(data) < 7 {
		return errors.Errorf("current time write of %d bytes", len(data))
	}
	t := gattcodec.NewReader(data).DateTime()
	if t.IsZero() {
		return errors.New("current time write without a year")
	}
	e.mutex.Lock()
	e.offset = t.Sub(e.clock.Now())
	e.mutex.Unlock()
	e.logger.WithFields(logrus.Fields{"address": addr, "time": t}).Info("clock set")
	return nil
}

func (e *Emulator) newService(uuid string, chars ...Characteristic) *ble.Service {
	s := ble.NewService(attUUID(uuid))
	for _, c := range chars {
		s.AddCharacteristic(e.construct(c))
	}
	return s
}

// attUUID uses the 16-bit form for SIG UUIDs
func attUUID(uuid string) ble.UUID { return ble.MustParse(util.ShortUUID(uuid)) }

// Services builds the served profile
func (e *Emulator) Services() []*ble.Service {
	constant := func(v []byte) func(string) ([]byte, error) {
		return func(string) ([]byte, error) { return v, nil }
	}
	return []*ble.Service{
		e.newService(util.HeartRateServiceUUID, Characteristic{
			UUID:   util.HeartRateMeasurementCharUUID,
			Notify: e.heartRatePayload, Interval: HeartRateInterval,
		}),
		e.newService(util.BatteryServiceUUID, Characteristic{
			UUID: util.BatteryLevelCharUUID,
			Read: func(string) ([]byte, error) { return e.batteryPayload(), nil },
		}),
		e.newService(util.CurrentTimeServiceUUID, Characteristic{
			UUID:   util.CurrentTimeCharUUID,
			Read:   func(string) ([]byte, error) { return gattcodec.CurrentTime(e.Now()), nil },
			Write:  e.setTime,
			Notify: func() []byte { return gattcodec.CurrentTime(e.Now()) }, Interval: CurrentTimeInterval,
		}),
		e.newService(util.DeviceInformationServiceUUID,
			Characteristic{UUID: util.ManufacturerNameCharUUID, Read: constant([]byte(e.manufacturer))},
			Characteristic{UUID: util.ModelNumberCharUUID, Read: constant([]byte(e.model))},
			Characteristic{UUID: util.PnpIDCharUUID, Read: constant(PnPIDPayload(pnpSourceBluetooth, 0x0000, 0x0001, 0x0100))},
		),
	}
}

// Serve registers the services and advertises until ctx is done
func (e *Emulator) Serve(ctx context.Context) error {
	services := e.Services()
	for _, s := range services {
		if err := e.device.AddService(s); err != nil {
			e.setStatus(Crashed)
			return errors.Wrap(err, "AddService issue")
		}
	}
	e.setStatus(Running)
	// only the heart rate service fits the advertising payload next to the name
	err := util.CatchErrs(func() error { return e.device.AdvertiseNameAndServices(ctx, e.name, services[0].UUID) })
	if err != nil && ctx.Err() == nil {
		e.setStatus(Crashed)
		return errors.Wrap(err, "AdvertiseNameAndServices issue")
	}
	e.setStatus(Stopped)
	return nil
}
