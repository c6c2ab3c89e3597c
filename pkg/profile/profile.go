// Package profile applies the fixed notification subscription set to a peripheral.
package profile

import (
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/registry"
	"github.com/Krajiyah/ble-health/pkg/transport"
)

// Entries is the subscription list, applied in this order
var Entries = []models.Tag{
	models.TagCurrentTime,
	models.TagBloodPressureMeasurement,
	models.TagTemperatureMeasurement,
	models.TagHeartRateMeasurement,
	models.TagPulseOxContinuous,
	models.TagPulseOxSpot,
	models.TagWeightMeasurement,
	models.TagGlucoseMeasurement,
	models.TagGlucoseMeasurementContext,
	models.TagGlucoseRecordAccessPoint,
	models.TagContourClock,
	models.TagBatteryLevel,
}

// Outcome is the result of one subscription request
type Outcome struct {
	Tag            models.Tag
	Service        string
	Characteristic string
	Err            error
}

func (o Outcome) OK() bool { return o.Err == nil }

// Apply requests enable (or disable) of notifications for every entry, in order.
// A failing entry never stops the rest; every entry yields one outcome.
func Apply(p transport.Peripheral, enable bool) []Outcome {
	ret := make([]Outcome, 0, len(Entries))
	for _, tag := range Entries {
		service, characteristic := registry.MustPair(tag)
		ret = append(ret, Outcome{
			Tag: tag, Service: service, Characteristic: characteristic,
			Err: p.SetNotify(service, characteristic, enable),
		})
	}
	return ret
}

// Failed filters the outcomes that carry an error
func Failed(outcomes []Outcome) []Outcome {
	ret := []Outcome{}
	for _, o := range outcomes {
		if !o.OK() {
			ret = append(ret, o)
		}
	}
	return ret
}
