package models

// Sink receives everything the orchestrator produces for the outside world.
// Calls come from the controller's event loop and must not block for long.
type Sink interface {
	OnMeasurement(MeasurementEvent)
	OnInternalError(error)
}

// SinkFuncs adapts plain functions to a Sink; nil fields are ignored
type SinkFuncs struct {
	Measurement   func(MeasurementEvent)
	InternalError func(error)
}

func (s SinkFuncs) OnMeasurement(e MeasurementEvent) {
	if s.Measurement != nil {
		s.Measurement(e)
	}
}

func (s SinkFuncs) OnInternalError(err error) {
	if s.InternalError != nil {
		s.InternalError(err)
	}
}
