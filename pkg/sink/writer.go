package sink

import (
	"io"
	"sync"
	"time"

	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/sirupsen/logrus"
)

// JSONWriter writes one JSON line per event to w
type JSONWriter struct {
	mutex  sync.Mutex
	w      io.Writer
	logger logrus.FieldLogger
}

func NewJSONWriter(w io.Writer, logger logrus.FieldLogger) *JSONWriter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &JSONWriter{w: w, logger: logger}
}

func (j *JSONWriter) writeLine(b []byte, err error) {
	if err != nil {
		j.logger.WithError(err).Warn("could not encode event")
		return
	}
	j.mutex.Lock()
	defer j.mutex.Unlock()
	if _, err := j.w.Write(append(b, '\n')); err != nil {
		j.logger.WithError(err).Warn("could not write event")
	}
}

func (j *JSONWriter) OnMeasurement(e models.MeasurementEvent) { j.writeLine(Encode(e)) }

func (j *JSONWriter) OnInternalError(err error) { j.writeLine(EncodeError(err, time.Now())) }

// Logger logs every event through logrus
type Logger struct {
	logrus.FieldLogger
}

func (l Logger) OnMeasurement(e models.MeasurementEvent) {
	l.WithFields(logrus.Fields{"kind": e.Kind.String(), "address": e.Peripheral}).Infof("%v", e.Payload)
}

func (l Logger) OnInternalError(err error) { l.WithError(err).Error("internal error") }
