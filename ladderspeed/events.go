package ladderspeed

// Event is one of StateChanged, LatencyUpdated, SpeedUpdated,
// MeasurementCompleted, RunFinished or RunFailed.
type Event interface {
	isEvent()
}

type StateChanged struct {
	State TestState
}

type LatencyUpdated struct {
	LatencyMs float64
	JitterMs  float64
}

// SpeedUpdated is a realtime bitrate sample of the transfer in flight.
type SpeedUpdated struct {
	Mbps  float64
	Phase Phase
	Rung  int
}

type MeasurementCompleted struct {
	Rung  int
	Point MeasurementPoint
}

type RunFinished struct {
	Results *TestResults
}

type RunFailed struct {
	Err error
}

func (StateChanged) isEvent()         {}
func (LatencyUpdated) isEvent()       {}
func (SpeedUpdated) isEvent()         {}
func (MeasurementCompleted) isEvent() {}
func (RunFinished) isEvent()          {}
func (RunFailed) isEvent()            {}
