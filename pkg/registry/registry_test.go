package registry

import (
	"strings"
	"testing"

	"github.com/Krajiyah/ble-health/pkg/models"
	"gotest.tools/assert"
)

func TestResolveForms(t *testing.T) {
	assert.Equal(t, Resolve("180D", "2A37"), models.TagHeartRateMeasurement)
	assert.Equal(t, Resolve("0000180d-0000-1000-8000-00805f9b34fb", "00002A37-0000-1000-8000-00805F9B34FB"), models.TagHeartRateMeasurement)
	assert.Equal(t, Resolve("180f", "2a19"), models.TagBatteryLevel)
	assert.Equal(t, Resolve("00000000-0002-11e2-9e96-0800200c9a66", "00001026000211E29E960800200C9A66"), models.TagContourClock)
}

func TestResolveUnknown(t *testing.T) {
	assert.Equal(t, Resolve("180D", "2A19"), models.TagUnknown)
	assert.Equal(t, Resolve("", ""), models.TagUnknown)
	assert.Equal(t, Resolve("not a uuid", "2A37"), models.TagUnknown)
	assert.Equal(t, Resolve("1234", "5678"), models.TagUnknown)
}

func TestPairRoundTrip(t *testing.T) {
	count := 0
	for tag := models.TagCurrentTime; tag <= models.TagPnpID; tag++ {
		s, c, ok := Pair(tag)
		assert.Assert(t, ok, tag.String())
		assert.Equal(t, Resolve(s, c), tag)
		assert.Equal(t, Resolve(strings.ToUpper(s), strings.ToUpper(c)), tag)
		count++
	}
	assert.Equal(t, count, len(byPair))
	_, _, ok := Pair(models.TagUnknown)
	assert.Assert(t, !ok)
}

func TestDeviceInformationShareService(t *testing.T) {
	m, _ := MustPair(models.TagManufacturerName)
	p, _ := MustPair(models.TagPnpID)
	assert.Equal(t, m, p)
}
