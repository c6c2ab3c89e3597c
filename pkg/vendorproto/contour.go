package vendorproto

import (
	"strings"

	"github.com/Krajiyah/ble-health/pkg/gattcodec"
	"github.com/Krajiyah/ble-health/pkg/models"
	"github.com/Krajiyah/ble-health/pkg/registry"
	"github.com/Krajiyah/ble-health/pkg/session"
	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/sirupsen/logrus"
)

// DefaultBondingNamePatterns are the device families that must bond before connecting
var DefaultBondingNamePatterns = []string{"Contour"}

// RequiresBonding reports whether name matches one of patterns
func RequiresBonding(name string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Contour sets the meter clock and requests every stored record once the
// corresponding notifications come on.
type Contour struct {
	clock  util.Clock
	logger logrus.FieldLogger
}

func NewContour(clock util.Clock, logger logrus.FieldLogger) *Contour {
	return &Contour{clock: clock, logger: logger}
}

func (c *Contour) OnNotificationState(s *session.PeripheralSession, tag models.Tag, enabled bool) {
	if !enabled || !s.Attached() {
		return
	}
	var value []byte
	switch tag {
	case models.TagContourClock:
		value = gattcodec.ContourClock(c.clock.Now())
	case models.TagGlucoseRecordAccessPoint:
		value = gattcodec.RecordAccessCommand(gattcodec.RACPReportStoredRecords, gattcodec.RACPAllRecords)
	default:
		return
	}
	service, char := registry.MustPair(tag)
	log := c.logger.WithFields(logrus.Fields{"address": s.Address, "tag": tag.String()})
	if err := s.Peripheral.WriteCharacteristic(service, char, value, transport.WithResponse); err != nil {
		log.WithError(err).Warn("write failed")
		return
	}
	log.Infof("wrote %s", util.Hex(value))
}
