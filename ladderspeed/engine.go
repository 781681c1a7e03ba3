package ladderspeed

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultEventBuffer = 256

type LatencyProber interface {
	Measure(ctx context.Context) (*LatencyResult, error)
}

type TransferProber interface {
	Measure(ctx context.Context, size int64, onProgress func(mbps float64)) (*TransferResult, error)
}

// Engine sequences the probes of a run and reports progress as events.
type Engine struct {
	cfg    Config
	log    zerolog.Logger
	client *http.Client

	latency  LatencyProber
	download TransferProber
	upload   TransferProber
	loaded   LoadedLatencyEstimator
	metadata MetadataSource

	now   func() time.Time
	newID func() string

	mu    sync.Mutex
	state TestState
}

type Option func(*Engine)

func WithLogger(log zerolog.Logger) Option { return func(e *Engine) { e.log = log } }

func WithHTTPClient(client *http.Client) Option { return func(e *Engine) { e.client = client } }

func WithLatencyProber(p LatencyProber) Option { return func(e *Engine) { e.latency = p } }

func WithDownloadProber(p TransferProber) Option { return func(e *Engine) { e.download = p } }

func WithUploadProber(p TransferProber) Option { return func(e *Engine) { e.upload = p } }

func WithLoadedLatencyEstimator(l LoadedLatencyEstimator) Option {
	return func(e *Engine) { e.loaded = l }
}

func WithMetadataSource(m MetadataSource) Option { return func(e *Engine) { e.metadata = m } }

// WithClock replaces time.Now for result timestamps and probe timing.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDGenerator(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		log:   zerolog.Nop(),
		now:   time.Now,
		newID: uuid.NewString,
		state: StateIdle,
	}
	for _, o := range opts {
		o(e)
	}

	if e.client == nil {
		e.client = NewHTTPClient("tcp", DefaultDialTimeout)
	}
	if e.latency == nil {
		e.latency = &LatencyProbe{
			URL:             cfg.LatencyURL,
			SampleCount:     cfg.LatencySampleCount,
			InterProbeDelay: cfg.InterProbeDelay,
			Timeout:         cfg.LatencyTimeout,
			Client:          e.client,
			Logger:          e.log.With().Str("probe", "latency").Logger(),
			Now:             e.now,
		}
	}
	if e.download == nil {
		e.download = &DownloadProbe{
			URL:    cfg.DownloadURL,
			Client: e.client,
			Logger: e.log.With().Str("probe", "download").Logger(),
			Now:    e.now,
		}
	}
	if e.upload == nil {
		e.upload = &UploadProbe{
			URL:              cfg.UploadURL,
			Threshold:        cfg.UploadThreshold,
			OversizedPayload: cfg.UploadOversizedPayload,
			DurationCap:      cfg.UploadDurationCap,
			SizeTimeout:      cfg.UploadSizeTimeout,
			Client:           e.client,
			Logger:           e.log.With().Str("probe", "upload").Logger(),
			Now:              e.now,
		}
	}
	if e.loaded == nil {
		e.loaded = &SyntheticLoadedLatency{
			Rand:        rand.New(rand.NewSource(e.now().UnixNano())),
			SampleCount: cfg.LatencySampleCount,
		}
	}
	if e.metadata == nil && cfg.MetadataURL != "" {
		e.metadata = &HeaderMetadata{
			URL:     cfg.MetadataURL,
			Timeout: cfg.LatencyTimeout,
			Client:  e.client,
		}
	}

	return e
}

func (e *Engine) State() TestState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Reset returns a finished or failed engine to Idle.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle, StateFinished, StateError:
		e.state = StateIdle
		return nil
	default:
		return ErrRunInProgress
	}
}

// Start begins a run unless one is already active. Events are delivered in
// order on the returned channel, which is closed once the run ends; the
// caller must drain it.
func (e *Engine) Start(ctx context.Context) (<-chan Event, error) {
	e.mu.Lock()
	if !e.state.Startable() {
		e.mu.Unlock()
		return nil, ErrRunInProgress
	}
	e.state = StateStarting
	e.mu.Unlock()

	events := make(chan Event, defaultEventBuffer)
	r := &run{
		Engine: e,
		ctx:    ctx,
		events: events,
	}
	go r.execute()

	return events, nil
}

type run struct {
	*Engine

	ctx    context.Context
	events chan<- Event
}

func (r *run) emit(event Event) {
	r.events <- event
}

func (r *run) setState(state TestState) {
	r.mu.Lock()
	r.state = state
	r.mu.Unlock()

	r.emit(StateChanged{State: state})
}

func (r *run) progress(phase Phase, rung int) func(mbps float64) {
	return func(mbps float64) {
		r.emit(SpeedUpdated{Mbps: mbps, Phase: phase, Rung: rung})
	}
}

func (r *run) execute() {
	defer close(r.events)
	defer func() {
		if v := recover(); v != nil {
			r.fail(errors.Errorf("run aborted: %v", v))
		}
	}()

	r.emit(StateChanged{State: StateStarting})

	results, err := r.measure()
	if err != nil {
		r.fail(err)
		return
	}

	r.log.Info().
		Str("id", results.ID).
		Float64("download_mbps", results.DownloadMbps).
		Float64("upload_mbps", results.UploadMbps).
		Float64("latency_ms", results.LatencyMs).
		Float64("jitter_ms", results.JitterMs).
		Msg("run finished")

	r.setState(StateFinished)
	r.emit(RunFinished{Results: results})
}

func (r *run) fail(err error) {
	r.log.Error().Err(err).Msg("run failed")

	r.setState(StateError)
	r.emit(RunFailed{Err: err})
}

func (r *run) measure() (*TestResults, error) {
	r.setState(StateLatency)

	unloaded, err := r.latency.Measure(r.ctx)
	if err != nil {
		return nil, errors.Wrap(err, "latency measurement failed")
	}
	r.emit(LatencyUpdated{LatencyMs: unloaded.LatencyMs, JitterMs: unloaded.JitterMs})

	details := &SpeedTestDetails{
		UnloadedLatency:        unloaded.LatencyMs,
		UnloadedJitter:         unloaded.JitterMs,
		Measurements:           make([]MeasurementPoint, 0, len(r.cfg.PayloadSizes)),
		UnloadedLatencySamples: unloaded.Samples,
		DownloadLatencySamples: []float64{},
		UploadLatencySamples:   []float64{},
		DownloadSamples:        []float64{},
		UploadSamples:          []float64{},
	}

	for rung, size := range r.cfg.PayloadSizes {
		point, err := r.measureRung(rung, size, unloaded, details)
		if err != nil {
			return nil, err
		}
		details.Measurements = append(details.Measurements, *point)
		r.emit(MeasurementCompleted{Rung: rung, Point: *point})

		if rung < len(r.cfg.PayloadSizes)-1 {
			if err := sleepContext(r.ctx, r.cfg.InterRungDelay); err != nil {
				return nil, err
			}
		}
	}

	// The largest rung stands for sustained throughput.
	finalDownload, finalUpload := float64(0), float64(0)
	if n := len(details.Measurements); n > 0 {
		finalDownload = details.Measurements[n-1].DownloadMbps
		finalUpload = details.Measurements[n-1].UploadMbps
	}

	r.describe(details)
	details.NetworkQuality = RateNetworkQuality(finalDownload, finalUpload, unloaded.LatencyMs, unloaded.JitterMs)

	return &TestResults{
		ID:           r.newID(),
		Timestamp:    r.now(),
		DownloadMbps: finalDownload,
		UploadMbps:   finalUpload,
		LatencyMs:    unloaded.LatencyMs,
		JitterMs:     unloaded.JitterMs,
		Details:      details,
	}, nil
}

func (r *run) measureRung(rung int, size int64, unloaded *LatencyResult, details *SpeedTestDetails) (*MeasurementPoint, error) {
	log := r.log.With().Int("rung", rung).Int64("size", size).Logger()
	point := &MeasurementPoint{PayloadSize: size}

	r.setState(StateDownload)
	downlink, err := r.download.Measure(r.ctx, size, r.progress(PhaseDownload, rung))
	if r.ctx.Err() != nil {
		return nil, r.ctx.Err()
	}
	if err != nil {
		log.Warn().Err(err).Msg("download failed, recording zero throughput")
	}
	if downlink == nil {
		downlink = &TransferResult{}
	}
	downloadDuration := downlink.ElapsedSeconds()
	point.DownloadMbps = downlink.Bitrate
	point.DownloadDurationSec = &downloadDuration
	details.DownloadSamples = append(details.DownloadSamples, downlink.Samples...)

	downloadLatency := r.loaded.Estimate(PhaseDownload, unloaded)
	point.PingMs = downloadLatency.LatencyMs
	point.JitterMs = downloadLatency.JitterMs
	details.DownloadLatencySamples = append(details.DownloadLatencySamples, downloadLatency.Samples...)

	r.setState(StateUpload)
	uplink, err := r.uploadWithRetry(rung, size, log)
	if err != nil {
		return nil, err
	}
	if uplink == nil {
		uplink = &TransferResult{}
	}
	uploadDuration := uplink.ElapsedSeconds()
	point.UploadMbps = uplink.Bitrate
	point.UploadDurationSec = &uploadDuration
	details.UploadSamples = append(details.UploadSamples, uplink.Samples...)

	// A rung reports the worse of the two loaded phases.
	uploadLatency := r.loaded.Estimate(PhaseUpload, unloaded)
	point.PingMs = math.Max(point.PingMs, uploadLatency.LatencyMs)
	point.JitterMs = math.Max(point.JitterMs, uploadLatency.JitterMs)
	details.UploadLatencySamples = append(details.UploadLatencySamples, uploadLatency.Samples...)

	log.Info().
		Float64("download_mbps", point.DownloadMbps).
		Float64("upload_mbps", point.UploadMbps).
		Float64("ping_ms", point.PingMs).
		Msg("rung complete")

	return point, nil
}

// uploadWithRetry makes up to UploadRetries+1 attempts. Exhausting them is
// not an error: the rung records zero upload figures instead. Only
// cancellation of the run is returned.
func (r *run) uploadWithRetry(rung int, size int64, log zerolog.Logger) (*TransferResult, error) {
	attempts := r.cfg.UploadRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt += 1 {
		result, err := r.upload.Measure(r.ctx, size, r.progress(PhaseUpload, rung))
		if err == nil {
			return result, nil
		}
		if r.ctx.Err() != nil {
			return nil, r.ctx.Err()
		}

		log.Warn().Err(err).Int("attempt", attempt).Int("attempts", attempts).Msg("upload attempt failed")

		if attempt < attempts {
			if err := sleepContext(r.ctx, r.cfg.UploadRetryBackoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, nil
}

func (r *run) describe(details *SpeedTestDetails) {
	var metadata *Metadata

	if r.metadata != nil {
		m, err := r.metadata.Metadata(r.ctx)
		if err != nil {
			r.log.Warn().Err(err).Msg("metadata lookup failed, using configured labels")
		}
		metadata = m
	}

	r.cfg.Metadata.apply(details, metadata)
}
