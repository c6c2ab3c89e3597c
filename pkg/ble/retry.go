package ble

import (
	"context"

	"github.com/Krajiyah/ble-health/pkg/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// retry runs fn up to attempts times, recovering panics.
// A cancelled context ends the loop early.
func retry(logger logrus.FieldLogger, method string, attempts int, fn func(attempt int) error) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			logger.WithError(err).WithField("attempt", attempt).Warn("retrying " + method)
		}
		err = util.CatchErrs(func() error { return fn(attempt) })
		if err == nil {
			return nil
		}
		if isCanceled(err) {
			break
		}
	}
	return errors.Wrap(err, method+" issue")
}

// isCanceled is true for a caller cancellation; a per-attempt timeout is retried
func isCanceled(err error) bool { return errors.Cause(err) == context.Canceled }
