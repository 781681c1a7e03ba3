package ladderspeed

import (
	"math"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestSummarize_11Samples(t *testing.T) {
	samples := []float64{0.0, -0.5, 0.5, -1.0, 1.0, -1.5, 1.5, -2.0, 2.0, -2.5, 2.5}

	stats := Summarize(samples)

	assert.Equal(t, stats.NSamples, 11)
	assert.Equal(t, stats.Mean, 0.0)
	assert.Equal(t, stats.Jitter, math.Sqrt(2.5))
	assert.Equal(t, stats.Min, -2.5)
	assert.Equal(t, stats.MinIndex, 9)
	assert.Equal(t, stats.Max, 2.5)
	assert.Equal(t, stats.MaxIndex, 10)
}

func TestSummarize_6Samples(t *testing.T) {
	samples := []float64{-2.0, -3.0, 0.0, 2.0, -1.0, 1.0}

	stats := Summarize(samples)

	assert.Equal(t, stats.NSamples, 6)
	assert.Equal(t, stats.Mean, -0.5)
	assert.Assert(t, math.Abs(stats.Jitter-1.707825127659933) < 1e-9)
	assert.Equal(t, stats.Min, -3.0)
	assert.Equal(t, stats.MinIndex, 1)
	assert.Equal(t, stats.Max, 2.0)
	assert.Equal(t, stats.MaxIndex, 3)
}

func TestSummarize_Empty(t *testing.T) {
	stats := Summarize(nil)

	assert.Equal(t, stats.NSamples, 0)
	assert.Equal(t, stats.Mean, 0.0)
	assert.Equal(t, stats.Jitter, 0.0)
	assert.Equal(t, stats.Min, 0.0)
	assert.Equal(t, stats.Max, 0.0)
}

func TestMeanAndJitter_LatencySamples(t *testing.T) {
	samples := []float64{20, 22, 21, 19, 23}

	mean := Mean(samples)

	assert.Equal(t, mean, 21.0)
	assert.Equal(t, Jitter(samples, mean), math.Sqrt2)
}

func TestMeanAndJitter_Constant(t *testing.T) {
	samples := []float64{7, 7, 7, 7}

	mean := Mean(samples)

	assert.Equal(t, mean, 7.0)
	assert.Equal(t, Jitter(samples, mean), 0.0)
}

func TestMeanAndJitter_Empty(t *testing.T) {
	assert.Equal(t, Mean([]float64{}), 0.0)
	assert.Equal(t, Jitter([]float64{}, 0), 0.0)
}

func TestDurationsMS(t *testing.T) {
	samples := []time.Duration{
		127 * time.Millisecond,
		19500 * time.Microsecond,
		0,
	}

	assert.DeepEqual(t, DurationsMS(samples), []float64{127, 19.5, 0})
}

func TestRoundAll(t *testing.T) {
	assert.DeepEqual(t, roundAll([]float64{20.4, 20.5, 0, 1.49}), []float64{20, 21, 0, 1})
}

func TestBitrate(t *testing.T) {
	assert.Equal(t, Bitrate(125000, time.Second), 1.0)
	assert.Equal(t, Bitrate(1250000, 2*time.Second), 5.0)
	assert.Equal(t, Bitrate(1000, 0), 0.0)
	assert.Equal(t, Bitrate(1000, -time.Second), 0.0)
}

func TestThroughputMeter_Cumulative(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now := start.Add(2 * time.Second)
	meter := newThroughputMeter(func() time.Time { return now }, start)

	assert.Equal(t, meter.observe(IOEvent{Timestamp: start, Size: 1000}), 0.0)
	assert.Equal(t, meter.observe(IOEvent{Timestamp: start.Add(time.Second), Size: 124000}), 1.0)
	assert.Equal(t, meter.observe(IOEvent{Timestamp: start.Add(2 * time.Second), Size: 125000}), 1.0)

	assert.DeepEqual(t, meter.samples, []float64{0, 1, 1})
	assert.Equal(t, meter.elapsed(), 2*time.Second)
	assert.Equal(t, meter.final(), 1.0)
}
