package sink

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"gotest.tools/assert"
)

const testAddr = "11:22:33:44:55:66"

var testAt = time.Date(2024, 3, 15, 12, 30, 45, 0, time.UTC)

func heartRateEvent(pulse int) models.MeasurementEvent {
	return models.MeasurementEvent{
		Kind: models.HeartRateEvent, Peripheral: testAddr, At: testAt,
		Payload: models.HeartRateMeasurement{Pulse: pulse, RRIntervals: []time.Duration{time.Second}},
	}
}

func decode(t *testing.T, b []byte) map[string]interface{} {
	m := map[string]interface{}{}
	assert.NilError(t, json.Unmarshal(b, &m))
	return m
}

func TestChannelDropsWhenFull(t *testing.T) {
	c := NewChannel(1)
	c.OnMeasurement(heartRateEvent(60))
	c.OnMeasurement(heartRateEvent(61))
	assert.Equal(t, c.Dropped(), uint64(1))
	e := <-c.Events()
	assert.Equal(t, e.Payload.(models.HeartRateMeasurement).Pulse, 60)
}

func TestFanout(t *testing.T) {
	a, b := NewChannel(1), NewChannel(1)
	f := Fanout{a, b}
	f.OnInternalError(errors.New("boom"))
	assert.ErrorContains(t, <-a.Errors(), "boom")
	assert.ErrorContains(t, <-b.Errors(), "boom")
}

func TestEncode(t *testing.T) {
	b, err := Encode(heartRateEvent(72))
	assert.NilError(t, err)
	m := decode(t, b)
	assert.Equal(t, m["kind"], "HeartRate")
	assert.Equal(t, m["peripheral"], testAddr)
	assert.Equal(t, m["at"], "2024-03-15T12:30:45Z")
	assert.Equal(t, m["atMs"], float64(testAt.Unix()*1000))
	payload := m["payload"].(map[string]interface{})
	assert.Equal(t, payload["pulse"], 72.0)
	assert.DeepEqual(t, payload["rrIntervalsMs"], []interface{}{1000.0})
}

func TestEncodeNaNAsNull(t *testing.T) {
	b, err := Encode(models.MeasurementEvent{
		Kind: models.BloodPressureEvent, Peripheral: testAddr, At: testAt,
		Payload: models.BloodPressureMeasurement{Systolic: math.NaN(), Diastolic: 80},
	})
	assert.NilError(t, err)
	payload := decode(t, b)["payload"].(map[string]interface{})
	assert.Equal(t, payload["systolic"], nil)
	assert.Equal(t, payload["diastolic"], 80.0)
}

func TestEncodeConnectionStatus(t *testing.T) {
	b, err := Encode(models.NewConnectionStatusEvent(models.ConnectionStatus{Connected: true, Address: testAddr, Name: "HR"}, testAt))
	assert.NilError(t, err)
	payload := decode(t, b)["payload"].(map[string]interface{})
	assert.Equal(t, payload["connected"], true)
	assert.Equal(t, payload["name"], "HR")
}

func TestJSONWriterOneLinePerEvent(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, nil)
	w.OnMeasurement(heartRateEvent(70))
	w.OnMeasurement(models.MeasurementEvent{Kind: models.BatteryLevelEvent, Peripheral: testAddr, At: testAt, Payload: 87})
	w.OnInternalError(errors.New("scan failed"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, len(lines), 3)
	assert.Equal(t, decode(t, []byte(lines[1]))["payload"], 87.0)
	assert.Equal(t, decode(t, []byte(lines[2]))["error"], "scan failed")
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	assert.NilError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Equal(t, hub.Clients(), 1)

	hub.OnMeasurement(heartRateEvent(65))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	assert.NilError(t, err)
	assert.Equal(t, decode(t, msg)["kind"], "HeartRate")
}
