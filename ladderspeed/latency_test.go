package ladderspeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

// steppingClock returns start, start+steps[0], start+steps[0]+steps[1], ...
// and keeps returning the last instant once steps run out.
func steppingClock(start time.Time, steps ...time.Duration) func() time.Time {
	var mu sync.Mutex
	current := start
	next := 0

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		ret := current
		if next < len(steps) {
			current = current.Add(steps[next])
			next += 1
		}
		return ret
	}
}

func TestReduceLatencySamples(t *testing.T) {
	result := ReduceLatencySamples([]float64{20.2, 22, 21, 18.6, 23.2})

	assert.Equal(t, result.LatencyMs, 21.0)
	assert.Equal(t, result.JitterMs, 2.0)
	assert.DeepEqual(t, result.Samples, []float64{20, 22, 21, 19, 23})
}

func TestReduceLatencySamples_Empty(t *testing.T) {
	result := ReduceLatencySamples([]float64{})

	assert.Equal(t, result.LatencyMs, 0.0)
	assert.Equal(t, result.JitterMs, 0.0)
	assert.DeepEqual(t, result.Samples, []float64{})
}

func TestLatencyProbe_HeadRequests(t *testing.T) {
	var mu sync.Mutex
	methods := []string{}
	busters := map[string]bool{}
	cacheControl := []string{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		methods = append(methods, r.Method)
		busters[r.URL.Query().Get(cacheBustParam)] = true
		cacheControl = append(cacheControl, r.Header.Get("Cache-Control"))
	}))
	defer server.Close()

	probe := &LatencyProbe{
		URL:         server.URL + "/__down?bytes=0",
		SampleCount: 5,
		Client:      server.Client(),
	}

	result, err := probe.Measure(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(result.Samples), 5)

	mu.Lock()
	defer mu.Unlock()
	assert.DeepEqual(t, methods, []string{http.MethodHead, http.MethodHead, http.MethodHead, http.MethodHead, http.MethodHead})
	assert.Equal(t, len(busters), 5)
	for _, v := range cacheControl {
		assert.Equal(t, v, "no-store, no-cache")
	}
}

func TestLatencyProbe_SampleFigures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer server.Close()

	// each sample reads the clock at its start and at its end
	clock := steppingClock(time.Unix(1700000000, 0),
		20*time.Millisecond, 0,
		22*time.Millisecond, 0,
		21*time.Millisecond, 0,
		19*time.Millisecond, 0,
		23*time.Millisecond, 0,
	)
	probe := &LatencyProbe{
		URL:         server.URL,
		SampleCount: 5,
		Client:      server.Client(),
		Now:         clock,
	}

	result, err := probe.Measure(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, result.LatencyMs, 21.0)
	assert.Equal(t, result.JitterMs, 1.0)
	assert.DeepEqual(t, result.Samples, []float64{20, 22, 21, 19, 23})
}

func TestLatencyProbe_UnreachableStillSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	probe := &LatencyProbe{
		URL:         url,
		SampleCount: 3,
		Timeout:     time.Second,
	}

	result, err := probe.Measure(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(result.Samples), 3)
	for _, sample := range result.Samples {
		assert.Assert(t, sample >= 0)
	}
}

func TestLatencyProbe_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := &LatencyProbe{URL: server.URL, Client: server.Client()}

	_, err := probe.Measure(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
