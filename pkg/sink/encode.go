package sink

import (
	"math"
	"time"

	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/util"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

var marshaler = protojson.MarshalOptions{EmitUnpopulated: false}

// Encode renders an event as a single line of JSON
func Encode(e models.MeasurementEvent) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"kind":       e.Kind.String(),
		"peripheral": e.Peripheral,
		"at":         e.At.Format(time.RFC3339Nano),
		"atMs":       util.UnixTS(e.At),
		"payload":    payloadValue(e.Payload),
	})
	if err != nil {
		return nil, err
	}
	return marshaler.Marshal(s)
}

// EncodeError renders an internal error the same way events are rendered
func EncodeError(err error, at time.Time) ([]byte, error) {
	s, e := structpb.NewStruct(map[string]interface{}{
		"kind":  "InternalError",
		"at":    at.Format(time.RFC3339Nano),
		"atMs":  util.UnixTS(at),
		"error": err.Error(),
	})
	if e != nil {
		return nil, e
	}
	return marshaler.Marshal(s)
}

// num maps NaN and infinities, which JSON cannot carry, to null
func num(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func putFloat(m map[string]interface{}, key string, v *float64) {
	if v != nil {
		m[key] = num(*v)
	}
}

func putTime(m map[string]interface{}, key string, v *time.Time) {
	if v != nil && !v.IsZero() {
		m[key] = v.Format(time.RFC3339)
	}
}

func payloadValue(payload interface{}) interface{} {
	switch p := payload.(type) {
	case models.BloodPressureMeasurement:
		m := map[string]interface{}{
			"systolic": num(p.Systolic), "diastolic": num(p.Diastolic),
			"meanArterialPressure": num(p.MeanArterialPressure), "unit": p.Unit.String(),
		}
		putTime(m, "timestamp", p.Timestamp)
		putFloat(m, "pulseRate", p.PulseRate)
		if p.UserID != nil {
			m["userId"] = float64(*p.UserID)
		}
		return m
	case models.TemperatureMeasurement:
		m := map[string]interface{}{"value": num(p.Value), "unit": p.Unit.String()}
		putTime(m, "timestamp", p.Timestamp)
		return m
	case models.HeartRateMeasurement:
		m := map[string]interface{}{"pulse": float64(p.Pulse), "sensorContact": p.SensorContact.String()}
		if p.EnergyExpended != nil {
			m["energyExpended"] = float64(*p.EnergyExpended)
		}
		if len(p.RRIntervals) > 0 {
			rr := make([]interface{}, 0, len(p.RRIntervals))
			for _, d := range p.RRIntervals {
				rr = append(rr, float64(d.Milliseconds()))
			}
			m["rrIntervalsMs"] = rr
		}
		return m
	case models.PulseOxContinuousMeasurement:
		m := map[string]interface{}{"spo2": num(p.SpO2), "pulseRate": num(p.PulseRate)}
		putFloat(m, "spo2Fast", p.SpO2Fast)
		putFloat(m, "pulseRateFast", p.PulseRateFast)
		putFloat(m, "spo2Slow", p.SpO2Slow)
		putFloat(m, "pulseRateSlow", p.PulseRateSlow)
		putFloat(m, "pulseAmplitudeIndex", p.PulseAmplitudeIndex)
		return m
	case models.PulseOxSpotMeasurement:
		m := map[string]interface{}{"spo2": num(p.SpO2), "pulseRate": num(p.PulseRate), "deviceClockNotSet": p.DeviceClockNotSet}
		putTime(m, "timestamp", p.Timestamp)
		putFloat(m, "pulseAmplitudeIndex", p.PulseAmplitudeIndex)
		return m
	case models.WeightMeasurement:
		m := map[string]interface{}{"weight": num(p.Weight), "unit": p.Unit.String()}
		putTime(m, "timestamp", p.Timestamp)
		putFloat(m, "bmi", p.BMI)
		putFloat(m, "height", p.Height)
		return m
	case models.GlucoseMeasurement:
		m := map[string]interface{}{
			"sequenceNumber": float64(p.SequenceNumber), "concentration": num(p.Concentration),
			"unit": p.Unit.String(), "type": float64(p.Type), "sampleLocation": float64(p.SampleLocation),
			"contextFollows": p.ContextFollows,
		}
		putTime(m, "timestamp", &p.Timestamp)
		return m
	case models.ConnectionStatus:
		return map[string]interface{}{"connected": p.Connected, "address": p.Address, "name": p.Name}
	case time.Time:
		return p.Format(time.RFC3339)
	case int:
		return float64(p)
	case nil:
		return nil
	}
	return nil
}
