package vendorproto

import (
	"strings"
	"time"

	"github.com/Krajiyah/ble-health/pkg/gattcodec"
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/registry"
	"github.com/Krajiyah/ble-health/pkg/session"
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/sirupsen/logrus"
)

var omronNamePrefixes = []string{"BLESmart_", "BLEsmart_"}

// IsOmron reports whether an advertised name belongs to an Omron monitor
func IsOmron(name string) bool {
	for _, p := range omronNamePrefixes {
		if strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Omron corrects the clock of Omron blood pressure monitors, at most once per session.
// Every device time seen while blood pressure notifications are on is an attempt.
// A write happens only while exactly one attempt is recorded and the clock is off
// by more than SkewLimit.
type Omron struct {
	SkewLimit time.Duration
	clock     util.Clock
	logger    logrus.FieldLogger
}

func NewOmron(clock util.Clock, logger logrus.FieldLogger) *Omron {
	return &Omron{SkewLimit: util.OmronTimeSkewLimit, clock: clock, logger: logger}
}

func (o *Omron) ObserveDeviceTime(s *session.PeripheralSession, deviceTime time.Time) {
	p := s.Peripheral
	if p == nil {
		return
	}
	log := o.logger.WithField("address", s.Address)
	bpService, bpChar := registry.MustPair(models.TagBloodPressureMeasurement)
	if !p.HasCharacteristic(bpService, bpChar) {
		log.Debug("no blood pressure characteristic, skipping time sync")
		return
	}
	if p.IsNotifying(bpService, bpChar) {
		s.RecordTimeSyncAttempt()
	}
	now := o.clock.Now()
	skew := util.Skew(now, deviceTime)
	log = log.WithFields(logrus.Fields{"attempts": s.TimeSyncAttempts(), "skew": skew})
	if s.TimeSyncAttempts() != 1 || skew <= o.SkewLimit || s.TimeCorrected() {
		log.Debug("device time accepted")
		return
	}
	service, char := registry.MustPair(models.TagCurrentTime)
	s.MarkTimeCorrected()
	if err := p.WriteCharacteristic(service, char, gattcodec.CurrentTime(now), transport.WithResponse); err != nil {
		log.WithError(err).Warn("time sync write failed")
		return
	}
	log.Info("device clock off, writing current time")
}
