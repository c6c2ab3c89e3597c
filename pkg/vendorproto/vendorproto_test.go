package vendorproto

import (
	"testing"
	"time"

	. "github.com/Krajiyah/ble-health/internal"
	"github.com/Krajiyah/ble-health/pkg/gattcodec"
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/session"
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
)

const testAddr = "11:22:33:44:55:66"

var testNow = time.Date(2024, 3, 15, 14, 30, 45, 0, time.FixedZone("UTC+2", 2*60*60))

func omronSession(withBP, bpNotifying bool) (*session.PeripheralSession, *FakePeripheral) {
	p := NewFakePeripheral(testAddr, "BLEsmart_00000116")
	p.AddCharacteristic(util.CurrentTimeServiceUUID, util.CurrentTimeCharUUID, transport.PropRead|transport.PropWrite|transport.PropNotify)
	if withBP {
		p.AddCharacteristic(util.BloodPressureServiceUUID, util.BloodPressureMeasurementCharUUID, transport.PropIndicate)
		p.SetNotifying(util.BloodPressureServiceUUID, util.BloodPressureMeasurementCharUUID, bpNotifying)
	}
	s := session.New(testAddr, p.Name(), true, testNow)
	s.Peripheral = p
	return s, p
}

func newOmron() *Omron { return NewOmron(NewFakeClock(testNow), logrus.StandardLogger()) }

func TestOmronLargeSkewWritesOnce(t *testing.T) {
	s, p := omronSession(true, true)
	o := newOmron()
	o.ObserveDeviceTime(s, testNow.Add(-700000*time.Millisecond))
	assert.Equal(t, s.TimeSyncAttempts(), 1)
	writes := p.Writes(util.CurrentTimeCharUUID)
	assert.Equal(t, len(writes), 1)
	assert.Equal(t, writes[0].WriteType, transport.WithResponse)
	assert.DeepEqual(t, writes[0].Value, gattcodec.CurrentTime(testNow))

	o.ObserveDeviceTime(s, testNow.Add(-700000*time.Millisecond))
	assert.Equal(t, s.TimeSyncAttempts(), 2)
	assert.Equal(t, len(p.Writes(util.CurrentTimeCharUUID)), 1)
}

func TestOmronSmallSkewNoWrite(t *testing.T) {
	s, p := omronSession(true, true)
	newOmron().ObserveDeviceTime(s, testNow.Add(-100000*time.Millisecond))
	assert.Equal(t, s.TimeSyncAttempts(), 1)
	assert.Equal(t, len(p.Writes(util.CurrentTimeCharUUID)), 0)
}

func TestOmronSkewBoundary(t *testing.T) {
	s, p := omronSession(true, true)
	newOmron().ObserveDeviceTime(s, testNow.Add(10*time.Minute))
	assert.Equal(t, len(p.Writes(util.CurrentTimeCharUUID)), 0)
}

func TestOmronWithoutBloodPressureNeverFires(t *testing.T) {
	s, p := omronSession(false, false)
	newOmron().ObserveDeviceTime(s, testNow.Add(-time.Hour))
	assert.Equal(t, s.TimeSyncAttempts(), 0)
	assert.Equal(t, len(p.Calls()), 0)
}

func TestOmronNotSubscribedDoesNotCount(t *testing.T) {
	s, p := omronSession(true, false)
	newOmron().ObserveDeviceTime(s, testNow.Add(-time.Hour))
	assert.Equal(t, s.TimeSyncAttempts(), 0)
	assert.Equal(t, len(p.Writes(util.CurrentTimeCharUUID)), 0)
}

func TestOmronNeverWritesTwice(t *testing.T) {
	s, p := omronSession(true, true)
	o := newOmron()
	o.ObserveDeviceTime(s, testNow.Add(-time.Hour))
	p.SetNotifying(util.BloodPressureServiceUUID, util.BloodPressureMeasurementCharUUID, false)
	o.ObserveDeviceTime(s, testNow.Add(-time.Hour))
	assert.Equal(t, s.TimeSyncAttempts(), 1)
	assert.Equal(t, len(p.Writes(util.CurrentTimeCharUUID)), 1)
}

func contourSession() (*session.PeripheralSession, *FakePeripheral) {
	p := NewFakePeripheral(testAddr, "Contour7830H6543210")
	p.AddCharacteristic(util.ContourServiceUUID, util.ContourClockCharUUID, transport.PropWrite|transport.PropNotify)
	p.AddCharacteristic(util.GlucoseServiceUUID, util.GlucoseRecordAccessPointCharUUID, transport.PropWrite|transport.PropIndicate)
	s := session.New(testAddr, p.Name(), false, testNow)
	s.Peripheral = p
	return s, p
}

func TestContourClockWrite(t *testing.T) {
	s, p := contourSession()
	NewContour(NewFakeClock(testNow), logrus.StandardLogger()).OnNotificationState(s, models.TagContourClock, true)
	writes := p.Writes(util.ContourClockCharUUID)
	assert.Equal(t, len(writes), 1)
	assert.Equal(t, writes[0].WriteType, transport.WithResponse)
	r := gattcodec.NewReader(writes[0].Value)
	assert.Equal(t, r.U8(), uint8(1))
	assert.Equal(t, r.U16(), uint16(2024))
	assert.Equal(t, r.U8(), uint8(3))
	assert.Equal(t, r.U8(), uint8(15))
	assert.Equal(t, r.U8(), uint8(12))
	assert.Equal(t, r.U8(), uint8(30))
	assert.Equal(t, r.U8(), uint8(45))
	assert.Equal(t, r.S16(), int16(120))
}

func TestContourRecordAccessRequest(t *testing.T) {
	s, p := contourSession()
	c := NewContour(NewFakeClock(testNow), logrus.StandardLogger())
	c.OnNotificationState(s, models.TagGlucoseRecordAccessPoint, true)
	writes := p.Writes(util.GlucoseRecordAccessPointCharUUID)
	assert.Equal(t, len(writes), 1)
	assert.DeepEqual(t, writes[0].Value, []byte{0x01, 0x01})
}

func TestContourIgnoresDisableAndOtherTags(t *testing.T) {
	s, p := contourSession()
	c := NewContour(NewFakeClock(testNow), logrus.StandardLogger())
	c.OnNotificationState(s, models.TagContourClock, false)
	c.OnNotificationState(s, models.TagGlucoseRecordAccessPoint, false)
	c.OnNotificationState(s, models.TagHeartRateMeasurement, true)
	assert.Equal(t, len(p.Calls()), 0)
}

func TestIdentity(t *testing.T) {
	assert.Assert(t, IsOmron("BLEsmart_00000116EC21E5FF4A3B"))
	assert.Assert(t, IsOmron("BLESmart_0000"))
	assert.Assert(t, !IsOmron("Polar H10"))
	assert.Assert(t, RequiresBonding("Contour7830H6543210", DefaultBondingNamePatterns))
	assert.Assert(t, !RequiresBonding("Polar H10", DefaultBondingNamePatterns))
	assert.Assert(t, !RequiresBonding("anything", []string{""}))
}
