package decoder

import (
	"math"
	"testing"
	"time"

	"github.com/Krajiyah/ble-health/pkg/models"
	"gotest.tools/assert"
)

var dec = Standard{}

func approx(t *testing.T, actual, expected float64) {
	t.Helper()
	assert.Assert(t, math.Abs(actual-expected) < 1e-9, "%v != %v", actual, expected)
}

func TestBloodPressure(t *testing.T) {
	m := dec.BloodPressure([]byte{0x04, 0x78, 0x00, 0x50, 0x00, 0x5D, 0x00, 0x48, 0x00})
	assert.Equal(t, m.Systolic, 120.0)
	assert.Equal(t, m.Diastolic, 80.0)
	assert.Equal(t, m.MeanArterialPressure, 93.0)
	assert.Equal(t, m.Unit, models.MmHg)
	assert.Assert(t, m.Timestamp == nil)
	assert.Equal(t, *m.PulseRate, 72.0)
	assert.Assert(t, m.UserID == nil)
}

func TestBloodPressureWithTimestamp(t *testing.T) {
	m := dec.BloodPressure([]byte{0x03, 0x10, 0x00, 0x0A, 0x00, 0x0C, 0x00, 0xE8, 0x07, 0x03, 0x0F, 0x0E, 0x1E, 0x2D})
	assert.Equal(t, m.Unit, models.KPa)
	assert.Equal(t, m.Timestamp.Year(), 2024)
	assert.Equal(t, m.Timestamp.Hour(), 14)
	assert.Equal(t, m.Timestamp.Second(), 45)
}

func TestTemperature(t *testing.T) {
	m := dec.Temperature([]byte{0x00, 0x6C, 0x01, 0x00, 0xFF})
	assert.Equal(t, m.Value, 36.4)
	assert.Equal(t, m.Unit, models.Celsius)
	m = dec.Temperature([]byte{0x05, 0x6C, 0x01, 0x00, 0xFF, 0x02})
	assert.Equal(t, m.Unit, models.Fahrenheit)
	assert.Equal(t, *m.Type, uint8(2))
}

func TestHeartRate(t *testing.T) {
	m := dec.HeartRate([]byte{0x16, 0x48, 0x00, 0x04, 0x00, 0x02})
	assert.Equal(t, m.Pulse, 72)
	assert.Equal(t, m.SensorContact, models.ContactDetected)
	assert.Assert(t, m.EnergyExpended == nil)
	assert.DeepEqual(t, m.RRIntervals, []time.Duration{time.Second, 500 * time.Millisecond})

	m = dec.HeartRate([]byte{0x01, 0x2C, 0x01})
	assert.Equal(t, m.Pulse, 300)
	assert.Equal(t, m.SensorContact, models.ContactNotSupported)
}

func TestPulseOx(t *testing.T) {
	m := dec.PulseOxContinuous([]byte{0x00, 0x62, 0x00, 0x48, 0x00})
	assert.Equal(t, m.SpO2, 98.0)
	assert.Equal(t, m.PulseRate, 72.0)
	assert.Assert(t, m.SpO2Fast == nil)

	s := dec.PulseOxSpot([]byte{0x10, 0x61, 0x00, 0x50, 0x00})
	assert.Equal(t, s.SpO2, 97.0)
	assert.Assert(t, s.DeviceClockNotSet)
}

func TestTruncatedNeverPanics(t *testing.T) {
	m := dec.PulseOxContinuous([]byte{0x00, 0x62})
	assert.Assert(t, math.IsNaN(m.PulseRate))
	assert.Assert(t, math.IsNaN(dec.BloodPressure(nil).Systolic))
	assert.Equal(t, dec.HeartRate(nil).Pulse, 0)
	assert.Assert(t, dec.Glucose([]byte{0x02}).Timestamp.IsZero())
	assert.Equal(t, dec.Weight([]byte{0x08}).Weight, 0.0)
}

func TestWeight(t *testing.T) {
	m := dec.Weight([]byte{0x00, 0xB0, 0x36})
	approx(t, m.Weight, 70)
	assert.Equal(t, m.Unit, models.Kilograms)

	m = dec.Weight([]byte{0x08, 0xB0, 0x36, 0xE4, 0x00, 0x20, 0x07})
	approx(t, *m.BMI, 22.8)
	approx(t, *m.Height, 1.824)
}

func TestGlucose(t *testing.T) {
	m := dec.Glucose([]byte{0x02, 0x01, 0x00, 0xE8, 0x07, 0x03, 0x0F, 0x0A, 0x00, 0x00, 0x78, 0xB0, 0x11})
	assert.Equal(t, m.SequenceNumber, uint16(1))
	assert.Equal(t, m.Unit, models.MiligramPerDeciliter)
	approx(t, m.Concentration, 120)
	assert.Equal(t, m.Type, uint8(1))
	assert.Equal(t, m.SampleLocation, uint8(1))
	assert.Equal(t, m.Timestamp.Hour(), 10)

	m = dec.Glucose([]byte{0x07, 0x02, 0x00, 0xE8, 0x07, 0x03, 0x0F, 0x0A, 0x00, 0x00, 0x1E, 0x00, 0x43, 0xC0, 0x11})
	assert.Equal(t, m.Unit, models.MmolPerLiter)
	approx(t, m.Concentration, 6.7)
	assert.Equal(t, m.Timestamp.Minute(), 30)
}
