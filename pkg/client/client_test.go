package client

import (
	"testing"
	"time"

	. "github.com/Krajiyah/ble-health/internal"
	"github.com/Krajiyah/ble-health/pkg/gattcodec"
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/profile"
	"github.com/Krajiyah/ble-health/pkg/registry"
	"github.com/Krajiyah/ble-health/pkg/session"
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/pkg/errors"
	"gotest.tools/assert"
)

const (
	testAddr      = "11:22:33:44:55:66"
	testOtherAddr = "22:22:33:44:55:66"
	testName      = "Polar H10 4A3B"
)

var testNow = time.Date(2024, 3, 15, 14, 30, 45, 0, time.Local)

type recordingSink struct {
	events []models.MeasurementEvent
	errs   []error
}

func (s *recordingSink) OnMeasurement(e models.MeasurementEvent) { s.events = append(s.events, e) }
func (s *recordingSink) OnInternalError(err error)             { s.errs = append(s.errs, err) }

func (s *recordingSink) ofKind(kind models.EventKind) []models.MeasurementEvent {
	ret := []models.MeasurementEvent{}
	for _, e := range s.events {
		if e.Kind == kind {
			ret = append(ret, e)
		}
	}
	return ret
}

type harness struct {
	c       *Controller
	central *FakeCentral
	clock   *FakeClock
	sink    *recordingSink
}

func newHarness() *harness {
	central := NewFakeCentral()
	clock := NewFakeClock(testNow)
	sink := &recordingSink{}
	c := NewController(central, sink, Options{Clock: clock})
	return &harness{c, central, clock, sink}
}

func healthPeripheral(addr, name string) *FakePeripheral {
	p := NewFakePeripheral(addr, name)
	for _, tag := range profile.Entries {
		s, ch := registry.MustPair(tag)
		p.AddCharacteristic(s, ch, transport.PropRead|transport.PropNotify)
	}
	cs, cc := registry.MustPair(models.TagCurrentTime)
	p.AddCharacteristic(cs, cc, transport.PropRead|transport.PropWrite|transport.PropNotify)
	for _, tag := range []models.Tag{models.TagManufacturerName, models.TagModelNumber} {
		s, ch := registry.MustPair(tag)
		p.AddCharacteristic(s, ch, transport.PropRead)
	}
	return p
}

func (h *harness) startScan() {
	h.c.ConnectToHealthDevice()
	h.c.drain()
	h.clock.Advance(util.ScanDelay)
	h.c.drain()
}

func (h *harness) discover(addr, name string) {
	h.c.handle(transport.Event{
		Type: transport.Discovered, Address: addr, Name: name,
		Services: []string{util.HeartRateServiceUUID}, RSSI: -60,
	})
}

func (h *harness) connect(p *FakePeripheral) {
	h.c.handle(transport.Event{Type: transport.Connected, Address: p.Address(), Peripheral: p})
	h.c.handle(transport.Event{Type: transport.ServicesDiscovered, Address: p.Address(), Peripheral: p})
}

func (h *harness) activeSession(t *testing.T, p *FakePeripheral) *session.PeripheralSession {
	h.startScan()
	h.discover(p.Address(), p.Name())
	h.connect(p)
	s, ok := h.c.sessions.Get(p.Address())
	assert.Assert(t, ok)
	return s
}

func TestScanStartsAfterDelay(t *testing.T) {
	h := newHarness()
	h.c.ConnectToHealthDevice()
	h.c.drain()
	assert.Equal(t, len(h.central.CallsOf("Scan")), 0)
	h.clock.Advance(util.ScanDelay - time.Millisecond)
	h.c.drain()
	assert.Equal(t, len(h.central.CallsOf("Scan")), 0)
	h.clock.Advance(time.Millisecond)
	h.c.drain()
	scans := h.central.CallsOf("Scan")
	assert.Equal(t, len(scans), 1)
	assert.DeepEqual(t, scans[0].Services, util.HealthServiceUUIDs)
}

func TestHappyPath(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, testName)
	s := h.activeSession(t, p)

	assert.Equal(t, len(h.central.CallsOf("StopScan")), 1)
	connects := h.central.CallsOf("Connect")
	assert.Equal(t, len(connects), 1)
	assert.Equal(t, connects[0].Address, testAddr)

	assert.Equal(t, s.State, session.Active)
	assert.Equal(t, s.Name, testName)
	assert.Equal(t, s.TimeSyncAttempts(), 0)

	mtu := p.CallsOf("RequestMTU")
	assert.Equal(t, len(mtu), 1)
	assert.Equal(t, mtu[0].MTU, util.MTU)

	status := h.sink.ofKind(models.ConnectionStatusEvent)
	assert.Equal(t, len(status), 1)
	assert.DeepEqual(t, status[0].Payload, models.ConnectionStatus{Connected: true, Address: testAddr, Name: testName})

	reads := p.CallsOf("Read")
	assert.Equal(t, len(reads), 3)
	assert.Assert(t, util.UuidEqualStr(reads[0].Characteristic, util.ManufacturerNameCharUUID))
	assert.Assert(t, util.UuidEqualStr(reads[1].Characteristic, util.ModelNumberCharUUID))
	assert.Assert(t, util.UuidEqualStr(reads[2].Characteristic, util.BatteryLevelCharUUID))

	writes := p.Writes(util.CurrentTimeCharUUID)
	assert.Equal(t, len(writes), 1)
	assert.DeepEqual(t, writes[0].Value, gattcodec.CurrentTime(h.clock.Now()))
	assert.Equal(t, writes[0].WriteType, transport.WithResponse)

	assert.Equal(t, len(p.CallsOf("SetNotify")), len(profile.Entries))
}

func TestOmronSkipsPreemptiveTimeWrite(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, "BLEsmart_00000116")
	s := h.activeSession(t, p)
	assert.Assert(t, s.Omron)
	assert.Equal(t, len(p.Writes(util.CurrentTimeCharUUID)), 0)
}

func TestReadOnlyCurrentTimeIsNotWritten(t *testing.T) {
	h := newHarness()
	p := NewFakePeripheral(testAddr, testName)
	p.AddCharacteristic(util.CurrentTimeServiceUUID, util.CurrentTimeCharUUID, transport.PropRead|transport.PropNotify)
	h.activeSession(t, p)
	assert.Equal(t, len(p.Writes(util.CurrentTimeCharUUID)), 0)
}

func TestBondingBeforeConnect(t *testing.T) {
	h := newHarness()
	h.startScan()
	h.discover(testAddr, "Contour7830H6543210")
	s, _ := h.c.sessions.Get(testAddr)
	assert.Equal(t, s.State, session.Bonding)
	assert.Equal(t, len(h.central.CallsOf("CreateBond")), 1)
	assert.Equal(t, len(h.central.CallsOf("Connect")), 0)

	h.c.handle(transport.Event{Type: transport.BondStateChanged, Address: testAddr, Bond: transport.Bonding})
	assert.Equal(t, len(h.central.CallsOf("Connect")), 0)
	h.c.handle(transport.Event{Type: transport.BondStateChanged, Address: testAddr, Bond: transport.Bonded})
	assert.Equal(t, len(h.central.CallsOf("Connect")), 1)
	assert.Equal(t, s.State, session.Connecting)
}

func TestBondedContourConnectsDirectly(t *testing.T) {
	h := newHarness()
	h.startScan()
	h.c.handle(transport.Event{Type: transport.Discovered, Address: testAddr, Name: "Contour7830H6543210", Bond: transport.Bonded})
	assert.Equal(t, len(h.central.CallsOf("CreateBond")), 0)
	assert.Equal(t, len(h.central.CallsOf("Connect")), 1)
}

func TestSingleTarget(t *testing.T) {
	h := newHarness()
	h.startScan()
	h.discover(testAddr, testName)
	h.discover(testOtherAddr, "Other")
	h.discover(testAddr, testName)
	assert.Equal(t, h.c.sessions.Len(), 1)
	assert.Equal(t, len(h.central.CallsOf("Connect")), 1)
}

func TestDiscoveryOutsideScanIgnored(t *testing.T) {
	h := newHarness()
	h.discover(testAddr, testName)
	assert.Equal(t, h.c.sessions.Len(), 0)

	h.startScan()
	h.c.handle(transport.Event{Type: transport.Discovered, Address: testAddr, Services: []string{"fe95"}})
	assert.Equal(t, h.c.sessions.Len(), 0)
}

func TestReconnectScheduledOnce(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, testName)
	first := h.activeSession(t, p)
	first.RecordTimeSyncAttempt()

	h.c.handle(transport.Event{Type: transport.Disconnected, Address: testAddr})
	assert.Equal(t, h.c.sessions.Len(), 0)
	status := h.sink.ofKind(models.ConnectionStatusEvent)
	assert.DeepEqual(t, status[len(status)-1].Payload, models.ConnectionStatus{Connected: false, Address: testAddr, Name: testName})
	assert.Equal(t, h.clock.Pending(), 1)

	h.clock.Advance(util.ReconnectDelay - time.Second)
	h.c.drain()
	assert.Equal(t, len(h.central.CallsOf("Connect")), 1)

	h.clock.Advance(time.Second)
	h.c.drain()
	assert.Equal(t, len(h.central.CallsOf("Connect")), 2)
	second, ok := h.c.sessions.Get(testAddr)
	assert.Assert(t, ok)
	assert.Assert(t, second.ID != first.ID)
	assert.Equal(t, second.TimeSyncAttempts(), 0)
	assert.Equal(t, second.State, session.Connecting)

	h.clock.Advance(time.Minute)
	h.c.drain()
	assert.Equal(t, len(h.central.CallsOf("Connect")), 2)
}

func TestTeardownCancelsReconnect(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, testName)
	h.activeSession(t, p)
	h.c.handle(transport.Event{Type: transport.Disconnected, Address: testAddr})
	assert.Equal(t, h.clock.Pending(), 1)

	h.c.Disconnect(testAddr)
	h.c.drain()
	assert.Equal(t, h.clock.Pending(), 0)
	h.clock.Advance(util.ReconnectDelay * 2)
	h.c.drain()
	assert.Equal(t, len(h.central.CallsOf("Connect")), 1)
	assert.Equal(t, h.c.sessions.Len(), 0)
}

func TestStaleReconnectTimerIgnored(t *testing.T) {
	h := newHarness()
	h.c.scheduleReconnect(testAddr, testName)
	h.c.Disconnect(testAddr)
	h.c.drain()
	// a timer that raced past Stop still posts its command
	h.c.fireReconnect(h.c.reconnectGen-1, testAddr, testName)
	assert.Equal(t, len(h.central.CallsOf("Connect")), 0)
}

func TestTeardownIsIdempotentAndSwallowsPanics(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, testName)
	h.activeSession(t, p)
	h.central.CancelPanics = true

	h.c.Disconnect(testAddr)
	h.c.Disconnect(testAddr)
	h.c.drain()
	assert.Equal(t, len(h.central.CallsOf("CancelConnection")), 1)
	assert.Equal(t, h.c.sessions.Len(), 0)
	assert.Equal(t, len(h.sink.errs), 0)

	h.c.handle(transport.Event{Type: transport.Disconnected, Address: testAddr})
	assert.Equal(t, h.clock.Pending(), 0)
}

func TestStrayLinkIsNotReconnected(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testOtherAddr, "Other")
	h.c.handle(transport.Event{Type: transport.Connected, Address: testOtherAddr, Peripheral: p})
	assert.Equal(t, len(h.central.CallsOf("CancelConnection")), 1)

	h.c.handle(transport.Event{Type: transport.Disconnected, Address: testOtherAddr})
	assert.Equal(t, h.clock.Pending(), 0)
	h.clock.Advance(util.ReconnectDelay * 2)
	h.c.drain()
	assert.Equal(t, len(h.central.CallsOf("Connect")), 0)
	assert.Equal(t, h.c.sessions.Len(), 0)
}

func TestConnectionFailed(t *testing.T) {
	h := newHarness()
	h.startScan()
	h.discover(testAddr, testName)
	h.c.handle(transport.Event{Type: transport.ConnectionFailed, Address: testAddr, Err: errors.New("timeout")})

	assert.Equal(t, h.c.sessions.Len(), 0)
	status := h.sink.ofKind(models.ConnectionStatusEvent)
	assert.Equal(t, len(status), 1)
	assert.DeepEqual(t, status[0].Payload, models.ConnectionStatus{})
	assert.Equal(t, status[0].Peripheral, "")
	assert.Equal(t, h.clock.Pending(), 0)
}

func TestConnectRequestErrorIsConnectionFailure(t *testing.T) {
	h := newHarness()
	h.central.ConnectErr = errors.New("adapter busy")
	h.startScan()
	h.discover(testAddr, testName)
	assert.Equal(t, h.c.sessions.Len(), 0)
	assert.Equal(t, len(h.sink.ofKind(models.ConnectionStatusEvent)), 1)
}

func TestUpdatesReachSink(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, testName)
	h.activeSession(t, p)

	h.c.handle(transport.Event{
		Type: transport.CharacteristicUpdate, Address: testAddr,
		Service: "180d", Characteristic: "2a37", Value: []byte{0x00, 0x48},
	})
	h.c.handle(transport.Event{
		Type: transport.CharacteristicUpdate, Address: testAddr,
		Service: util.PulseOximeterServiceUUID, Characteristic: util.PulseOximeterContinuousCharUUID,
		Value: []byte{0x00, 0x65, 0x00, 0x48, 0x00},
	})
	h.c.handle(transport.Event{
		Type: transport.CharacteristicUpdate, Address: testAddr,
		Service: "180d", Characteristic: "2a38", Value: []byte{0x01},
	})
	h.c.handle(transport.Event{
		Type: transport.CharacteristicUpdate, Address: testAddr,
		Service: "180f", Characteristic: "2a19", Value: []byte{50}, Err: errors.New("gatt error"),
	})

	hr := h.sink.ofKind(models.HeartRateEvent)
	assert.Equal(t, len(hr), 1)
	assert.Equal(t, hr[0].Peripheral, testAddr)
	assert.Equal(t, len(h.sink.ofKind(models.PulseOxContinuousEvent)), 0)
	assert.Equal(t, len(h.sink.ofKind(models.BatteryLevelEvent)), 0)
}

func TestOmronHandshakeThroughController(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, "BLEsmart_00000116")
	s := h.activeSession(t, p)
	assert.Assert(t, p.IsNotifying(util.BloodPressureServiceUUID, util.BloodPressureMeasurementCharUUID))

	update := transport.Event{
		Type: transport.CharacteristicUpdate, Address: testAddr,
		Service: util.CurrentTimeServiceUUID, Characteristic: util.CurrentTimeCharUUID,
		Value: gattcodec.CurrentTime(testNow.Add(-700 * time.Second)),
	}
	h.c.handle(update)
	h.c.handle(update)
	assert.Equal(t, s.TimeSyncAttempts(), 2)
	assert.Equal(t, len(p.Writes(util.CurrentTimeCharUUID)), 1)
	assert.Equal(t, len(h.sink.ofKind(models.DeviceTimeEvent)), 2)
}

func TestContourWritesOnNotificationEnabled(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, testName)
	h.activeSession(t, p)
	p.ResetCalls()

	h.c.handle(transport.Event{
		Type: transport.NotificationStateChanged, Address: testAddr,
		Service: util.ContourServiceUUID, Characteristic: util.ContourClockCharUUID, Enabled: true,
	})
	h.c.handle(transport.Event{
		Type: transport.NotificationStateChanged, Address: testAddr,
		Service: util.GlucoseServiceUUID, Characteristic: util.GlucoseRecordAccessPointCharUUID, Enabled: true,
	})
	h.c.handle(transport.Event{
		Type: transport.NotificationStateChanged, Address: testAddr,
		Service: util.GlucoseServiceUUID, Characteristic: util.GlucoseRecordAccessPointCharUUID,
		Enabled: true, Err: errors.New("cccd write failed"),
	})
	assert.Equal(t, len(p.Writes(util.ContourClockCharUUID)), 1)
	racp := p.Writes(util.GlucoseRecordAccessPointCharUUID)
	assert.Equal(t, len(racp), 1)
	assert.DeepEqual(t, racp[0].Value, []byte{0x01, 0x01})
}

func TestEnableAllSubscriptions(t *testing.T) {
	h := newHarness()
	p := healthPeripheral(testAddr, testName)
	h.activeSession(t, p)
	p.ResetCalls()

	h.c.EnableAllSubscriptions(testAddr, false)
	h.c.drain()
	calls := p.CallsOf("SetNotify")
	assert.Equal(t, len(calls), len(profile.Entries))
	for _, call := range calls {
		assert.Assert(t, !call.Enable)
	}
	assert.Assert(t, !p.IsNotifying(util.HeartRateServiceUUID, util.HeartRateMeasurementCharUUID))
}

func TestScanFailureReachesSink(t *testing.T) {
	h := newHarness()
	h.startScan()
	h.c.handle(transport.Event{Type: transport.ScanFailed, Err: errors.New("adapter off")})
	assert.Equal(t, len(h.sink.errs), 1)
	assert.ErrorContains(t, h.sink.errs[0], "adapter off")
	h.discover(testAddr, testName)
	assert.Equal(t, h.c.sessions.Len(), 0)
}
