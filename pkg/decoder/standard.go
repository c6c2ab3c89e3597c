// Package decoder decodes the Bluetooth SIG health measurement formats.
//
// Decoders never fail: a truncated value yields NaN or zero fields for
// whatever could not be read.
package decoder

import (
	"time"

	"github.com/Krajiyah/ble-health/pkg/gattcodec"
	"github.com/Krajiyah/ble-health/pkg/models"
)

// Standard decodes the measurement characteristics of the SIG health profiles
type Standard struct{}

func flag(flags uint8, bit uint) bool { return flags&(1<<bit) != 0 }

func optionalFloat(r *gattcodec.Reader, present bool) *float64 {
	if !present {
		return nil
	}
	v := r.SFloat()
	return &v
}

func optionalTime(r *gattcodec.Reader, present bool) *time.Time {
	if !present {
		return nil
	}
	v := r.DateTime()
	return &v
}

func (Standard) BloodPressure(b []byte) models.BloodPressureMeasurement {
	r := gattcodec.NewReader(b)
	flags := r.U8()
	m := models.BloodPressureMeasurement{
		Systolic:             r.SFloat(),
		Diastolic:            r.SFloat(),
		MeanArterialPressure: r.SFloat(),
	}
	if flag(flags, 0) {
		m.Unit = models.KPa
	}
	m.Timestamp = optionalTime(r, flag(flags, 1))
	m.PulseRate = optionalFloat(r, flag(flags, 2))
	if flag(flags, 3) {
		id := r.U8()
		m.UserID = &id
	}
	if flag(flags, 4) {
		status := r.U16()
		m.Status = &status
	}
	return m
}

func (Standard) Temperature(b []byte) models.TemperatureMeasurement {
	r := gattcodec.NewReader(b)
	flags := r.U8()
	m := models.TemperatureMeasurement{Value: r.Float()}
	if flag(flags, 0) {
		m.Unit = models.Fahrenheit
	}
	m.Timestamp = optionalTime(r, flag(flags, 1))
	if flag(flags, 2) {
		typ := r.U8()
		m.Type = &typ
	}
	return m
}

func (Standard) HeartRate(b []byte) models.HeartRateMeasurement {
	r := gattcodec.NewReader(b)
	flags := r.U8()
	m := models.HeartRateMeasurement{}
	if flag(flags, 0) {
		m.Pulse = int(r.U16())
	} else {
		m.Pulse = int(r.U8())
	}
	switch {
	case !flag(flags, 2):
		m.SensorContact = models.ContactNotSupported
	case flag(flags, 1):
		m.SensorContact = models.ContactDetected
	default:
		m.SensorContact = models.ContactNotDetected
	}
	if flag(flags, 3) {
		e := int(r.U16())
		m.EnergyExpended = &e
	}
	if flag(flags, 4) {
		for r.Err() == nil && r.Remaining() >= 2 {
			m.RRIntervals = append(m.RRIntervals, time.Duration(r.U16())*time.Second/1024)
		}
	}
	return m
}

func (Standard) PulseOxContinuous(b []byte) models.PulseOxContinuousMeasurement {
	r := gattcodec.NewReader(b)
	flags := r.U8()
	m := models.PulseOxContinuousMeasurement{SpO2: r.SFloat(), PulseRate: r.SFloat()}
	if flag(flags, 0) {
		m.SpO2Fast = optionalFloat(r, true)
		m.PulseRateFast = optionalFloat(r, true)
	}
	if flag(flags, 1) {
		m.SpO2Slow = optionalFloat(r, true)
		m.PulseRateSlow = optionalFloat(r, true)
	}
	if flag(flags, 2) {
		status := r.U16()
		m.MeasurementStatus = &status
	}
	if flag(flags, 3) {
		status := r.U24()
		m.SensorStatus = &status
	}
	m.PulseAmplitudeIndex = optionalFloat(r, flag(flags, 4))
	return m
}

func (Standard) PulseOxSpot(b []byte) models.PulseOxSpotMeasurement {
	r := gattcodec.NewReader(b)
	flags := r.U8()
	m := models.PulseOxSpotMeasurement{SpO2: r.SFloat(), PulseRate: r.SFloat()}
	m.Timestamp = optionalTime(r, flag(flags, 0))
	if flag(flags, 1) {
		status := r.U16()
		m.MeasurementStatus = &status
	}
	if flag(flags, 2) {
		status := r.U24()
		m.SensorStatus = &status
	}
	m.PulseAmplitudeIndex = optionalFloat(r, flag(flags, 3))
	m.DeviceClockNotSet = flag(flags, 4)
	return m
}

const (
	kgResolution     = 0.005
	lbResolution     = 0.01
	bmiResolution    = 0.1
	meterResolution  = 0.001
	inchesResolution = 0.1
)

func (Standard) Weight(b []byte) models.WeightMeasurement {
	r := gattcodec.NewReader(b)
	flags := r.U8()
	imperial := flag(flags, 0)
	m := models.WeightMeasurement{}
	raw := float64(r.U16())
	if imperial {
		m.Unit = models.Pounds
		m.Weight = raw * lbResolution
	} else {
		m.Weight = raw * kgResolution
	}
	m.Timestamp = optionalTime(r, flag(flags, 1))
	if flag(flags, 2) {
		id := r.U8()
		m.UserID = &id
	}
	if flag(flags, 3) {
		bmi := float64(r.U16()) * bmiResolution
		height := float64(r.U16())
		if imperial {
			height *= inchesResolution
		} else {
			height *= meterResolution
		}
		m.BMI, m.Height = &bmi, &height
	}
	return m
}

// Glucose concentrations arrive in kg/L or mol/L
const (
	kgPerLiterToMgPerDeciliter = 100000
	molPerLiterToMmolPerLiter  = 1000
)

func (Standard) Glucose(b []byte) models.GlucoseMeasurement {
	r := gattcodec.NewReader(b)
	flags := r.U8()
	m := models.GlucoseMeasurement{SequenceNumber: r.U16(), Timestamp: r.DateTime()}
	if flag(flags, 0) {
		offset := r.S16()
		if !m.Timestamp.IsZero() {
			m.Timestamp = m.Timestamp.Add(time.Duration(offset) * time.Minute)
		}
	}
	if flag(flags, 1) {
		value := r.SFloat()
		if flag(flags, 2) {
			m.Unit = models.MmolPerLiter
			m.Concentration = value * molPerLiterToMmolPerLiter
		} else {
			m.Unit = models.MiligramPerDeciliter
			m.Concentration = value * kgPerLiterToMgPerDeciliter
		}
		typeAndLocation := r.U8()
		m.Type = typeAndLocation & 0x0F
		m.SampleLocation = typeAndLocation >> 4
	}
	if flag(flags, 3) {
		status := r.U16()
		m.SensorStatus = &status
	}
	m.ContextFollows = flag(flags, 4)
	return m
}
