package ladderspeed

import (
	"time"
)

// Bitrate converts bytes moved in elapsed time to Mbps. A non-positive
// elapsed time yields 0.
func Bitrate(bytes int64, elapsed time.Duration) float64 {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}

	return float64(bytes) * 8 / (seconds * 1e6)
}

// throughputMeter reports cumulative bitrate since start: every observation
// is bytes-so-far over time-so-far, which smooths the progress curve.
type throughputMeter struct {
	now     func() time.Time
	start   time.Time
	bytes   int64
	samples []float64
}

func newThroughputMeter(now func() time.Time, start time.Time) *throughputMeter {
	return &throughputMeter{
		now:     now,
		start:   start,
		samples: []float64{},
	}
}

func (m *throughputMeter) observe(event IOEvent) float64 {
	m.bytes += int64(event.Size)
	rate := Bitrate(m.bytes, event.Timestamp.Sub(m.start))
	m.samples = append(m.samples, rate)

	return rate
}

func (m *throughputMeter) elapsed() time.Duration {
	return m.now().Sub(m.start)
}

func (m *throughputMeter) final() float64 {
	return Bitrate(m.bytes, m.elapsed())
}
