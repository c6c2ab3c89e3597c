package models

import (
	"fmt"
	"time"
)

// EventKind is the type of a MeasurementEvent payload
type EventKind int

const (
	// BloodPressureEvent carries a BloodPressureMeasurement
	BloodPressureEvent EventKind = iota
	// TemperatureEvent carries a TemperatureMeasurement
	TemperatureEvent
	// HeartRateEvent carries a HeartRateMeasurement
	HeartRateEvent
	// PulseOxContinuousEvent carries a PulseOxContinuousMeasurement
	PulseOxContinuousEvent
	// PulseOxSpotEvent carries a PulseOxSpotMeasurement
	PulseOxSpotEvent
	// WeightEvent carries a WeightMeasurement
	WeightEvent
	// GlucoseEvent carries a GlucoseMeasurement
	GlucoseEvent
	// BatteryLevelEvent carries the battery percentage as an int
	BatteryLevelEvent
	// DeviceTimeEvent carries the peripheral's clock as a time.Time
	DeviceTimeEvent
	// ConnectionStatusEvent carries a ConnectionStatus
	ConnectionStatusEvent
)

func (k EventKind) String() string {
	return []string{
		"BloodPressure", "Temperature", "HeartRate", "PulseOxContinuous", "PulseOxSpot",
		"Weight", "Glucose", "BatteryLevel", "DeviceTime", "ConnectionStatus",
	}[k]
}

// MeasurementEvent is a typed value delivered to a Sink
type MeasurementEvent struct {
	Kind       EventKind
	Peripheral string
	Payload    interface{}
	At         time.Time
}

func (e MeasurementEvent) String() string {
	return fmt.Sprintf("%s from %s: %v", e.Kind, e.Peripheral, e.Payload)
}

// NewConnectionStatusEvent wraps a connection change as an event
func NewConnectionStatusEvent(status ConnectionStatus, at time.Time) MeasurementEvent {
	return MeasurementEvent{Kind: ConnectionStatusEvent, Peripheral: status.Address, Payload: status, At: at}
}
