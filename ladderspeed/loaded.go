package ladderspeed

import (
	"math"
	"math/rand"
)

// LoadedLatencyEstimator supplies latency figures for a phase while a
// transfer is in flight.
type LoadedLatencyEstimator interface {
	Estimate(phase Phase, unloaded *LatencyResult) *LatencyResult
}

// SyntheticLoadedLatency does not measure anything. It perturbs the unloaded
// baseline upwards by a bounded random amount per phase and fabricates a
// matching sample sequence. Figures it produces are an approximation policy
// and must not be read as instrumentation.
type SyntheticLoadedLatency struct {
	Rand        *rand.Rand
	SampleCount int
}

type loadedLatencyBounds struct {
	latencyOffset float64
	latencySpread float64
	jitterOffset  float64
	jitterSpread  float64
}

var syntheticLoadedLatencyBounds = map[Phase]loadedLatencyBounds{
	PhaseDownload: {latencyOffset: 20, latencySpread: 30, jitterOffset: 5, jitterSpread: 10},
	PhaseUpload:   {latencyOffset: 30, latencySpread: 40, jitterOffset: 8, jitterSpread: 15},
}

func (s *SyntheticLoadedLatency) Estimate(phase Phase, unloaded *LatencyResult) *LatencyResult {
	bounds := syntheticLoadedLatencyBounds[phase]
	sampleCount := s.SampleCount
	if sampleCount <= 0 {
		sampleCount = DefaultLatencySampleCount
	}

	base := &LatencyResult{}
	if unloaded != nil {
		base = unloaded
	}

	latency := math.Round(base.LatencyMs + bounds.latencyOffset + s.float64()*bounds.latencySpread)
	jitter := math.Round(base.JitterMs + bounds.jitterOffset + s.float64()*bounds.jitterSpread)

	samples := make([]float64, 0, sampleCount)
	for iter := 0; iter < sampleCount; iter += 1 {
		sample := math.Round(latency - jitter + s.float64()*jitter*2)
		samples = append(samples, math.Max(0, sample))
	}

	return &LatencyResult{
		LatencyMs: latency,
		JitterMs:  jitter,
		Samples:   samples,
	}
}

func (s *SyntheticLoadedLatency) float64() float64 {
	if s.Rand == nil {
		return rand.Float64()
	}

	return s.Rand.Float64()
}
