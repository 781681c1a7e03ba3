package ladderspeed

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultLatencySampleCount = 5
	DefaultInterProbeDelay    = 200 * time.Millisecond
	DefaultLatencyTimeout     = 10 * time.Second
)

// LatencyProbe times a fixed number of HEAD round trips against URL.
//
// A failed round trip still contributes its elapsed time: an unreachable
// endpoint reads as slow, not as missing.
type LatencyProbe struct {
	URL             string
	SampleCount     int
	InterProbeDelay time.Duration
	Timeout         time.Duration

	Client *http.Client
	Logger zerolog.Logger
	Now    func() time.Time
}

func (p *LatencyProbe) Measure(ctx context.Context) (*LatencyResult, error) {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	sampleCount := p.SampleCount
	if sampleCount <= 0 {
		sampleCount = DefaultLatencySampleCount
	}

	durations := make([]time.Duration, 0, sampleCount)

	for iter := 0; iter < sampleCount; iter += 1 {
		start := now()
		if err := p.roundTrip(ctx, start); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.Logger.Debug().Err(err).Int("sample", iter).Msg("latency round trip failed")
		}
		durations = append(durations, now().Sub(start))

		if iter < sampleCount-1 {
			if err := sleepContext(ctx, p.InterProbeDelay); err != nil {
				return nil, err
			}
		}
	}

	return ReduceLatencySamples(DurationsMS(durations)), nil
}

func (p *LatencyProbe) roundTrip(ctx context.Context, now time.Time) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultLatencyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := newUncachedRequest(ctx, http.MethodHead, p.URL, nil, now)
	if err != nil {
		return err
	}

	resp, err := clientOrDefault(p.Client).Do(req)
	if err != nil {
		return err
	}
	_, err = flushHTTPResponse(resp)

	return err
}

// ReduceLatencySamples turns raw millisecond samples into rounded latency and
// jitter figures plus the rounded sample sequence.
func ReduceLatencySamples(samplesMS []float64) *LatencyResult {
	mean := Mean(samplesMS)

	return &LatencyResult{
		LatencyMs: math.Round(mean),
		JitterMs:  math.Round(Jitter(samplesMS, mean)),
		Samples:   roundAll(samplesMS),
	}
}
