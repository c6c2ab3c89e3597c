// Package registry maps GATT (service, characteristic) UUID pairs to tags.
package registry

import (
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/util"
)

type pair struct {
	service        string
	characteristic string
}

var (
	byPair = map[pair]models.Tag{}
	byTag  = map[models.Tag]pair{}
)

func register(tag models.Tag, service, characteristic string) {
	p := pair{util.NormalizeUUID(service), util.NormalizeUUID(characteristic)}
	byPair[p] = tag
	byTag[tag] = p
}

func init() {
	register(models.TagCurrentTime, util.CurrentTimeServiceUUID, util.CurrentTimeCharUUID)
	register(models.TagBloodPressureMeasurement, util.BloodPressureServiceUUID, util.BloodPressureMeasurementCharUUID)
	register(models.TagTemperatureMeasurement, util.HealthThermometerServiceUUID, util.TemperatureMeasurementCharUUID)
	register(models.TagHeartRateMeasurement, util.HeartRateServiceUUID, util.HeartRateMeasurementCharUUID)
	register(models.TagPulseOxSpot, util.PulseOximeterServiceUUID, util.PulseOximeterSpotCharUUID)
	register(models.TagPulseOxContinuous, util.PulseOximeterServiceUUID, util.PulseOximeterContinuousCharUUID)
	register(models.TagWeightMeasurement, util.WeightScaleServiceUUID, util.WeightMeasurementCharUUID)
	register(models.TagGlucoseMeasurement, util.GlucoseServiceUUID, util.GlucoseMeasurementCharUUID)
	register(models.TagGlucoseMeasurementContext, util.GlucoseServiceUUID, util.GlucoseMeasurementContextCharUUID)
	register(models.TagGlucoseRecordAccessPoint, util.GlucoseServiceUUID, util.GlucoseRecordAccessPointCharUUID)
	register(models.TagContourClock, util.ContourServiceUUID, util.ContourClockCharUUID)
	register(models.TagBatteryLevel, util.BatteryServiceUUID, util.BatteryLevelCharUUID)
	register(models.TagManufacturerName, util.DeviceInformationServiceUUID, util.ManufacturerNameCharUUID)
	register(models.TagModelNumber, util.DeviceInformationServiceUUID, util.ModelNumberCharUUID)
	register(models.TagPnpID, util.DeviceInformationServiceUUID, util.PnpIDCharUUID)
}

// Resolve returns the tag of a (service, characteristic) pair in any textual
// UUID form, or TagUnknown.
func Resolve(service, characteristic string) models.Tag {
	if tag, ok := byPair[pair{util.NormalizeUUID(service), util.NormalizeUUID(characteristic)}]; ok {
		return tag
	}
	return models.TagUnknown
}

// Pair returns the canonical service and characteristic UUIDs of a tag
func Pair(tag models.Tag) (service string, characteristic string, ok bool) {
	p, ok := byTag[tag]
	return p.service, p.characteristic, ok
}

// MustPair is Pair for tags known to be registered
func MustPair(tag models.Tag) (string, string) {
	s, c, ok := Pair(tag)
	if !ok {
		panic("registry: unregistered tag " + tag.String())
	}
	return s, c
}
