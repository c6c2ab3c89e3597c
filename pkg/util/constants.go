package util

import "time"

const (
	// MTU is the ATT MTU requested right after connecting (iOS always asks for 185)
	MTU = 185
	// ReconnectDelay is how long a dropped link waits before a reconnect attempt
	ReconnectDelay = 5 * time.Second
	// ScanDelay is how long a connect request waits before scanning starts
	ScanDelay = 1 * time.Second
	// ConnectTimeout bounds a single connect attempt at the transport
	ConnectTimeout = 10 * time.Second
	// OmronTimeSkewLimit is the device clock error above which an Omron cuff gets its time corrected
	OmronTimeSkewLimit = 10 * time.Minute
	// BaseUUIDSuffix is the Bluetooth base UUID with the 16-bit slot removed
	BaseUUIDSuffix = "00001000800000805f9b34fb"
)

// GATT services and characteristics read by the health profile
const (
	BloodPressureServiceUUID          = "00001810-0000-1000-8000-00805f9b34fb"
	BloodPressureMeasurementCharUUID  = "00002A35-0000-1000-8000-00805f9b34fb"
	HealthThermometerServiceUUID      = "00001809-0000-1000-8000-00805f9b34fb"
	TemperatureMeasurementCharUUID    = "00002A1C-0000-1000-8000-00805f9b34fb"
	HeartRateServiceUUID              = "0000180D-0000-1000-8000-00805f9b34fb"
	HeartRateMeasurementCharUUID      = "00002A37-0000-1000-8000-00805f9b34fb"
	DeviceInformationServiceUUID      = "0000180A-0000-1000-8000-00805f9b34fb"
	ManufacturerNameCharUUID          = "00002A29-0000-1000-8000-00805f9b34fb"
	ModelNumberCharUUID               = "00002A24-0000-1000-8000-00805f9b34fb"
	PnpIDCharUUID                     = "00002A50-0000-1000-8000-00805f9b34fb"
	CurrentTimeServiceUUID            = "00001805-0000-1000-8000-00805f9b34fb"
	CurrentTimeCharUUID               = "00002A2B-0000-1000-8000-00805f9b34fb"
	BatteryServiceUUID                = "0000180F-0000-1000-8000-00805f9b34fb"
	BatteryLevelCharUUID              = "00002A19-0000-1000-8000-00805f9b34fb"
	PulseOximeterServiceUUID          = "00001822-0000-1000-8000-00805f9b34fb"
	PulseOximeterSpotCharUUID         = "00002a5e-0000-1000-8000-00805f9b34fb"
	PulseOximeterContinuousCharUUID   = "00002a5f-0000-1000-8000-00805f9b34fb"
	WeightScaleServiceUUID            = "0000181D-0000-1000-8000-00805f9b34fb"
	WeightMeasurementCharUUID         = "00002A9D-0000-1000-8000-00805f9b34fb"
	GlucoseServiceUUID                = "00001808-0000-1000-8000-00805f9b34fb"
	GlucoseMeasurementCharUUID        = "00002A18-0000-1000-8000-00805f9b34fb"
	GlucoseMeasurementContextCharUUID = "00002A34-0000-1000-8000-00805f9b34fb"
	GlucoseRecordAccessPointCharUUID  = "00002A52-0000-1000-8000-00805f9b34fb"
	ContourServiceUUID                = "00000000-0002-11E2-9E96-0800200C9A66"
	ContourClockCharUUID              = "00001026-0002-11E2-9E96-0800200C9A66"
)

// HealthServiceUUIDs are the services a health peripheral may advertise
var HealthServiceUUIDs = []string{
	HeartRateServiceUUID,
	BloodPressureServiceUUID,
	HealthThermometerServiceUUID,
	PulseOximeterServiceUUID,
	WeightScaleServiceUUID,
	GlucoseServiceUUID,
}
