// Package router dispatches characteristic updates to decoders by tag.
package router

import (
	"fmt"
	"time"

	"github.com/Krajiyah/ble-health/pkg/gattcodec"
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/session"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/sirupsen/logrus"
)

// Pulse oximeter frames above these are sensor glitches
const (
	MaxSpO2      = 100.0
	MaxPulseRate = 220.0
)

// Decoder turns measurement characteristic values into typed measurements.
// Implementations never fail; bad input yields NaN or zero fields.
type Decoder interface {
	BloodPressure([]byte) models.BloodPressureMeasurement
	Temperature([]byte) models.TemperatureMeasurement
	HeartRate([]byte) models.HeartRateMeasurement
	PulseOxContinuous([]byte) models.PulseOxContinuousMeasurement
	PulseOxSpot([]byte) models.PulseOxSpotMeasurement
	Weight([]byte) models.WeightMeasurement
	Glucose([]byte) models.GlucoseMeasurement
}

// DeviceTimeObserver is told about every device time decoded on an Omron session
type DeviceTimeObserver interface {
	ObserveDeviceTime(s *session.PeripheralSession, deviceTime time.Time)
}

// Kind classifies what Route did with an update
type Kind int

const (
	// Measurement means Result.Event should go to the sink
	Measurement Kind = iota
	// DiagnosticOnly means the value was understood and logged but produces no event
	DiagnosticOnly
	// Rejected means the characteristic is not one the router handles
	Rejected
)

func (k Kind) String() string {
	return []string{"Measurement", "DiagnosticOnly", "Rejected"}[k]
}

// Result of routing one update. Event is set only for Measurement.
type Result struct {
	Kind   Kind
	Event  *models.MeasurementEvent
	Detail string
}

type Router struct {
	decoder  Decoder
	clock    util.Clock
	observer DeviceTimeObserver
	logger   logrus.FieldLogger
}

// New builds a router; observer may be nil
func New(decoder Decoder, clock util.Clock, observer DeviceTimeObserver, logger logrus.FieldLogger) *Router {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if clock == nil {
		clock = util.SystemClock()
	}
	return &Router{decoder: decoder, clock: clock, observer: observer, logger: logger}
}

func (r *Router) event(kind models.EventKind, s *session.PeripheralSession, payload interface{}) Result {
	return Result{Kind: Measurement, Event: &models.MeasurementEvent{
		Kind: kind, Peripheral: s.Address, Payload: payload, At: r.clock.Now(),
	}}
}

func diagnostic(format string, args ...interface{}) Result {
	return Result{Kind: DiagnosticOnly, Detail: fmt.Sprintf(format, args...)}
}

// Route decodes raw as the characteristic named by tag
func (r *Router) Route(tag models.Tag, raw []byte, s *session.PeripheralSession) Result {
	log := r.logger.WithFields(logrus.Fields{"address": s.Address, "tag": tag.String()})
	res := r.route(tag, raw, s)
	switch res.Kind {
	case Measurement:
		log.Debugf("%v", res.Event.Payload)
	case DiagnosticOnly:
		log.Info(res.Detail)
	case Rejected:
		log.Debugf("ignoring update %s", util.Hex(raw))
	}
	return res
}

func (r *Router) route(tag models.Tag, raw []byte, s *session.PeripheralSession) Result {
	switch tag {
	case models.TagBloodPressureMeasurement:
		return r.event(models.BloodPressureEvent, s, r.decoder.BloodPressure(raw))
	case models.TagTemperatureMeasurement:
		return r.event(models.TemperatureEvent, s, r.decoder.Temperature(raw))
	case models.TagHeartRateMeasurement:
		return r.event(models.HeartRateEvent, s, r.decoder.HeartRate(raw))
	case models.TagPulseOxContinuous:
		m := r.decoder.PulseOxContinuous(raw)
		if !Plausible(m) {
			return diagnostic("implausible pulse oximeter frame dropped: SpO2 %v, pulse %v", m.SpO2, m.PulseRate)
		}
		return r.event(models.PulseOxContinuousEvent, s, m)
	case models.TagPulseOxSpot:
		return r.event(models.PulseOxSpotEvent, s, r.decoder.PulseOxSpot(raw))
	case models.TagWeightMeasurement:
		return r.event(models.WeightEvent, s, r.decoder.Weight(raw))
	case models.TagGlucoseMeasurement:
		return r.event(models.GlucoseEvent, s, r.decoder.Glucose(raw))
	case models.TagCurrentTime:
		return r.deviceTime(raw, s)
	case models.TagBatteryLevel:
		rd := gattcodec.NewReader(raw)
		level := int(rd.U8())
		if rd.Err() != nil {
			return diagnostic("malformed battery level %s", util.Hex(raw))
		}
		return r.event(models.BatteryLevelEvent, s, level)
	case models.TagManufacturerName:
		return diagnostic("manufacturer: %s", gattcodec.NewReader(raw).String())
	case models.TagModelNumber:
		return diagnostic("model number: %s", gattcodec.NewReader(raw).String())
	case models.TagPnpID:
		return pnpID(raw)
	case models.TagGlucoseMeasurementContext:
		return diagnostic("glucose context %s", util.Hex(raw))
	case models.TagGlucoseRecordAccessPoint:
		return recordAccess(raw)
	case models.TagContourClock:
		return diagnostic("contour clock %s", util.Hex(raw))
	}
	return Result{Kind: Rejected}
}

// Plausible is the pulse oximeter glitch gate; bounds are inclusive and NaN fails
func Plausible(m models.PulseOxContinuousMeasurement) bool {
	return m.SpO2 <= MaxSpO2 && m.PulseRate <= MaxPulseRate
}

func (r *Router) deviceTime(raw []byte, s *session.PeripheralSession) Result {
	rd := gattcodec.NewReader(raw)
	t := rd.DateTime()
	if rd.Err() != nil || t.IsZero() {
		return diagnostic("malformed current time %s", util.Hex(raw))
	}
	if s.Omron && r.observer != nil {
		r.observer.ObserveDeviceTime(s, t)
	}
	return r.event(models.DeviceTimeEvent, s, t)
}

func pnpID(raw []byte) Result {
	rd := gattcodec.NewReader(raw)
	source, vendor, product, version := rd.U8(), rd.U16(), rd.U16(), rd.U16()
	if rd.Err() != nil {
		return diagnostic("malformed pnp id %s", util.Hex(raw))
	}
	return diagnostic("pnp id: source %d vendor 0x%04x product 0x%04x version 0x%04x", source, vendor, product, version)
}

func recordAccess(raw []byte) Result {
	resp, err := gattcodec.ParseRecordAccessResponse(raw)
	if err != nil {
		return diagnostic("malformed record access response %s", util.Hex(raw))
	}
	switch resp.OpCode {
	case gattcodec.RACPNumberOfRecordsResponse:
		return diagnostic("record access: %d stored records", resp.NumberOfRecords)
	case gattcodec.RACPResponseCode:
		return diagnostic("record access: op 0x%02x response 0x%02x", resp.RequestOpCode, resp.ResponseCode)
	}
	return diagnostic("record access %s", util.Hex(raw))
}
