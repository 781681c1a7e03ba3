package ladderspeed

import (
	"math/rand"
	"testing"

	"gotest.tools/v3/assert"
)

func TestSyntheticLoadedLatency_Bounds(t *testing.T) {
	estimator := &SyntheticLoadedLatency{
		Rand:        rand.New(rand.NewSource(42)),
		SampleCount: 7,
	}
	unloaded := &LatencyResult{LatencyMs: 21, JitterMs: 1}

	for iter := 0; iter < 200; iter += 1 {
		download := estimator.Estimate(PhaseDownload, unloaded)
		assert.Assert(t, download.LatencyMs >= 21+20 && download.LatencyMs <= 21+50, "%v", download.LatencyMs)
		assert.Assert(t, download.JitterMs >= 1+5 && download.JitterMs <= 1+15, "%v", download.JitterMs)
		assert.Equal(t, len(download.Samples), 7)

		upload := estimator.Estimate(PhaseUpload, unloaded)
		assert.Assert(t, upload.LatencyMs >= 21+30 && upload.LatencyMs <= 21+70, "%v", upload.LatencyMs)
		assert.Assert(t, upload.JitterMs >= 1+8 && upload.JitterMs <= 1+23, "%v", upload.JitterMs)

		for _, sample := range append(download.Samples, upload.Samples...) {
			assert.Assert(t, sample >= 0)
		}
	}
}

func TestSyntheticLoadedLatency_ZeroBaseline(t *testing.T) {
	estimator := &SyntheticLoadedLatency{Rand: rand.New(rand.NewSource(1))}

	result := estimator.Estimate(PhaseDownload, nil)

	assert.Assert(t, result.LatencyMs >= 20)
	assert.Equal(t, len(result.Samples), DefaultLatencySampleCount)
	for _, sample := range result.Samples {
		assert.Assert(t, sample >= 0)
	}
}

func TestSyntheticLoadedLatency_Deterministic(t *testing.T) {
	unloaded := &LatencyResult{LatencyMs: 10, JitterMs: 2}

	first := (&SyntheticLoadedLatency{Rand: rand.New(rand.NewSource(7))}).Estimate(PhaseUpload, unloaded)
	second := (&SyntheticLoadedLatency{Rand: rand.New(rand.NewSource(7))}).Estimate(PhaseUpload, unloaded)

	assert.DeepEqual(t, first, second)
}
