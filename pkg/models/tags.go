package models

// Tag identifies a characteristic the orchestrator understands
type Tag int

const (
	// TagUnknown is every (service, characteristic) pair that is not registered
	TagUnknown Tag = iota
	TagCurrentTime
	TagBloodPressureMeasurement
	TagTemperatureMeasurement
	TagHeartRateMeasurement
	TagPulseOxContinuous
	TagPulseOxSpot
	TagWeightMeasurement
	TagGlucoseMeasurement
	TagGlucoseMeasurementContext
	TagGlucoseRecordAccessPoint
	TagContourClock
	TagBatteryLevel
	TagManufacturerName
	TagModelNumber
	TagPnpID
)

var tagNames = []string{
	"Unknown",
	"CurrentTime",
	"BloodPressureMeasurement",
	"TemperatureMeasurement",
	"HeartRateMeasurement",
	"PulseOxContinuous",
	"PulseOxSpot",
	"WeightMeasurement",
	"GlucoseMeasurement",
	"GlucoseMeasurementContext",
	"GlucoseRecordAccessPoint",
	"ContourClock",
	"BatteryLevel",
	"ManufacturerName",
	"ModelNumber",
	"PnpID",
}

func (t Tag) String() string {
	if t < 0 || int(t) >= len(tagNames) {
		return tagNames[TagUnknown]
	}
	return tagNames[t]
}
