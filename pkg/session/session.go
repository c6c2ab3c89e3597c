// Package session holds the per-peripheral state owned by the controller's event loop.
// Nothing here is safe for concurrent use.
package session

import (
	"time"

	"github.com/Krajiyah/ble-health/pkg/transport"
	"github.com/google/uuid"
)

// PeripheralSession is the controller's record of one connected (or connecting) peripheral
type PeripheralSession struct {
	ID         uuid.UUID
	Address    string
	Name       string
	Omron      bool
	State      State
	Peripheral transport.Peripheral
	CreatedAt  time.Time

	timeSyncAttempts int
	timeCorrected    bool
}

// New starts a session in the Discovered state with no time-sync attempts recorded
func New(address, name string, omron bool, createdAt time.Time) *PeripheralSession {
	return &PeripheralSession{
		ID: uuid.New(), Address: address, Name: name,
		Omron: omron, State: Discovered, CreatedAt: createdAt,
	}
}

// TimeSyncAttempts is the number of Omron time-sync observations recorded so far
func (s *PeripheralSession) TimeSyncAttempts() int { return s.timeSyncAttempts }

// RecordTimeSyncAttempt increments the attempt counter and returns its new value.
// The counter never decreases for the lifetime of the session.
func (s *PeripheralSession) RecordTimeSyncAttempt() int {
	s.timeSyncAttempts++
	return s.timeSyncAttempts
}

// MarkTimeCorrected records that the corrective time write was issued
func (s *PeripheralSession) MarkTimeCorrected() { s.timeCorrected = true }

func (s *PeripheralSession) TimeCorrected() bool { return s.timeCorrected }

// Attached reports whether the session currently holds a live peripheral handle
func (s *PeripheralSession) Attached() bool { return s.Peripheral != nil }
