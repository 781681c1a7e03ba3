package ladderspeed

import (
	"math"
	"time"
)

type Stats struct {
	NSamples int
	Mean     float64
	Jitter   float64
	Min      float64
	Max      float64
	MinIndex int
	MaxIndex int
}

// Mean returns the arithmetic mean of samples, or 0 when there are none.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sum := float64(0)
	for _, element := range samples {
		sum += element
	}

	return sum / float64(len(samples))
}

// Jitter returns the population standard deviation of samples around mean,
// or 0 when there are none.
func Jitter(samples []float64, mean float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	squareSum := float64(0)
	for _, element := range samples {
		deviation := element - mean
		squareSum += deviation * deviation
	}

	return math.Sqrt(squareSum / float64(len(samples)))
}

func Summarize(samples []float64) *Stats {
	ret := &Stats{
		NSamples: len(samples),
	}
	if len(samples) == 0 {
		return ret
	}

	ret.Min = math.Inf(1)
	ret.Max = math.Inf(-1)
	for index, element := range samples {
		if element < ret.Min {
			ret.Min = element
			ret.MinIndex = index
		}
		if element > ret.Max {
			ret.Max = element
			ret.MaxIndex = index
		}
	}

	ret.Mean = Mean(samples)
	ret.Jitter = Jitter(samples, ret.Mean)

	return ret
}

func DurationsMS(durations []time.Duration) []float64 {
	ret := make([]float64, 0, len(durations))

	for _, duration := range durations {
		ret = append(ret, float64(duration.Microseconds())/1000)
	}

	return ret
}

func roundAll(samples []float64) []float64 {
	ret := make([]float64, 0, len(samples))

	for _, element := range samples {
		ret = append(ret, math.Round(element))
	}

	return ret
}
