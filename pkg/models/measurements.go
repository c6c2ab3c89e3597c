package models

import (
	"fmt"
	"time"
)

// PressureUnit of a blood pressure reading
type PressureUnit int

const (
	MmHg PressureUnit = iota
	KPa
)

func (u PressureUnit) String() string {
	return []string{"mmHg", "kPa"}[u]
}

// BloodPressureMeasurement is a decoded Blood Pressure Measurement (0x2A35)
type BloodPressureMeasurement struct {
	Systolic             float64
	Diastolic            float64
	MeanArterialPressure float64
	Unit                 PressureUnit
	Timestamp            *time.Time
	PulseRate            *float64
	UserID               *uint8
	Status               *uint16
}

func (m BloodPressureMeasurement) String() string {
	return fmt.Sprintf("%.0f/%.0f %s, MAP %.0f", m.Systolic, m.Diastolic, m.Unit, m.MeanArterialPressure)
}

// TemperatureUnit of a thermometer reading
type TemperatureUnit int

const (
	Celsius TemperatureUnit = iota
	Fahrenheit
)

func (u TemperatureUnit) String() string {
	return []string{"C", "F"}[u]
}

// TemperatureMeasurement is a decoded Temperature Measurement (0x2A1C)
type TemperatureMeasurement struct {
	Value     float64
	Unit      TemperatureUnit
	Timestamp *time.Time
	Type      *uint8
}

func (m TemperatureMeasurement) String() string {
	return fmt.Sprintf("%.1f %s", m.Value, m.Unit)
}

// HeartRateMeasurement is a decoded Heart Rate Measurement (0x2A37)
type HeartRateMeasurement struct {
	Pulse          int
	SensorContact  SensorContact
	EnergyExpended *int
	RRIntervals    []time.Duration
}

func (m HeartRateMeasurement) String() string {
	return fmt.Sprintf("%d bpm (contact %s)", m.Pulse, m.SensorContact)
}

// SensorContact state reported by a heart rate sensor
type SensorContact int

const (
	ContactNotSupported SensorContact = iota
	ContactNotDetected
	ContactDetected
)

func (c SensorContact) String() string {
	return []string{"not supported", "not detected", "detected"}[c]
}

// PulseOxContinuousMeasurement is a decoded PLX Continuous Measurement (0x2A5F)
type PulseOxContinuousMeasurement struct {
	SpO2                float64
	PulseRate           float64
	SpO2Fast            *float64
	PulseRateFast       *float64
	SpO2Slow            *float64
	PulseRateSlow       *float64
	MeasurementStatus   *uint16
	SensorStatus        *uint32
	PulseAmplitudeIndex *float64
}

func (m PulseOxContinuousMeasurement) String() string {
	return fmt.Sprintf("SpO2 %.0f%%, %.0f bpm", m.SpO2, m.PulseRate)
}

// PulseOxSpotMeasurement is a decoded PLX Spot-check Measurement (0x2A5E)
type PulseOxSpotMeasurement struct {
	SpO2                float64
	PulseRate           float64
	Timestamp           *time.Time
	MeasurementStatus   *uint16
	SensorStatus        *uint32
	PulseAmplitudeIndex *float64
	DeviceClockNotSet   bool
}

func (m PulseOxSpotMeasurement) String() string {
	return fmt.Sprintf("SpO2 %.0f%%, %.0f bpm (spot)", m.SpO2, m.PulseRate)
}

// WeightUnit of a scale reading
type WeightUnit int

const (
	Kilograms WeightUnit = iota
	Pounds
)

func (u WeightUnit) String() string {
	return []string{"kg", "lb"}[u]
}

// WeightMeasurement is a decoded Weight Measurement (0x2A9D)
type WeightMeasurement struct {
	Weight    float64
	Unit      WeightUnit
	Timestamp *time.Time
	UserID    *uint8
	BMI       *float64
	Height    *float64
}

func (m WeightMeasurement) String() string {
	return fmt.Sprintf("%.2f %s", m.Weight, m.Unit)
}

// GlucoseUnit of a glucose concentration
type GlucoseUnit int

const (
	// MiligramPerDeciliter is mg/dL
	MiligramPerDeciliter GlucoseUnit = iota
	// MmolPerLiter is mmol/L
	MmolPerLiter
)

func (u GlucoseUnit) String() string {
	return []string{"mg/dL", "mmol/L"}[u]
}

// GlucoseMeasurement is a decoded Glucose Measurement (0x2A18)
type GlucoseMeasurement struct {
	SequenceNumber uint16
	Timestamp      time.Time
	Concentration  float64
	Unit           GlucoseUnit
	Type           uint8
	SampleLocation uint8
	SensorStatus   *uint16
	ContextFollows bool
}

func (m GlucoseMeasurement) String() string {
	return fmt.Sprintf("#%d %.1f %s at %s", m.SequenceNumber, m.Concentration, m.Unit, m.Timestamp.Format(time.RFC3339))
}

// ConnectionStatus is the payload of a ConnectionStatusEvent.
// A failed connection attempt carries no address.
type ConnectionStatus struct {
	Connected bool
	Address   string
	Name      string
}

func (s ConnectionStatus) String() string {
	if s.Address == "" {
		return ""
	}
	return fmt.Sprintf("%s (%s)", s.Address, s.Name)
}
