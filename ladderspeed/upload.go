package ladderspeed

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultUploadThreshold        = int64(1024 * 1024)      // 1 MiB
	DefaultUploadOversizedPayload = int64(50 * 1024 * 1024) // 50 MiB
	DefaultUploadDurationCap      = 15 * time.Second
	DefaultUploadSizeTimeout      = 60 * time.Second

	uploadContentType = "application/octet-stream"
)

// UploadProbe POSTs a payload to URL. Payloads up to Threshold are sent in
// full under SizeTimeout; larger rungs send an OversizedPayload and are cut
// off after DurationCap, which counts as a successful, shorter transfer.
type UploadProbe struct {
	URL              string
	Threshold        int64
	OversizedPayload int64
	DurationCap      time.Duration
	SizeTimeout      time.Duration

	Client *http.Client
	Logger zerolog.Logger
	Now    func() time.Time
}

func (p *UploadProbe) Measure(ctx context.Context, size int64, onProgress func(mbps float64)) (*TransferResult, error) {
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultUploadThreshold
	}

	if size <= threshold {
		return p.measureSizeBounded(ctx, size, onProgress)
	}

	return p.measureDurationBounded(ctx, onProgress)
}

func (p *UploadProbe) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}

	return p.Now()
}

func (p *UploadProbe) measureSizeBounded(ctx context.Context, size int64, onProgress func(mbps float64)) (*TransferResult, error) {
	timeout := p.SizeTimeout
	if timeout <= 0 {
		timeout = DefaultUploadSizeTimeout
	}

	payload := make([]byte, size)
	if _, err := rand.Read(payload); err != nil {
		return nil, errors.Wrap(err, "could not generate upload payload")
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The clock starts at the first progress tick so that connection setup
	// is not billed against throughput.
	var meter *throughputMeter
	sampler := NewSamplingReader(bytes.NewReader(payload), 0, p.Now, func(event IOEvent) {
		if meter == nil {
			meter = newThroughputMeter(p.now, event.Timestamp)
		}
		rate := meter.observe(event)
		if onProgress != nil {
			onProgress(rate)
		}
	})

	err := p.post(reqCtx, sampler, size)
	sampler.Stop()

	if err != nil {
		if ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrapf(ErrUploadTimeout, "after %s", timeout)
		}
		return nil, errors.Wrap(err, "upload failed")
	}

	if meter == nil {
		return &TransferResult{Samples: []float64{}}, nil
	}

	elapsed := meter.elapsed()

	return &TransferResult{
		Bytes:   size,
		Bitrate: Bitrate(size, elapsed),
		Samples: meter.samples,
		Elapsed: elapsed,
	}, nil
}

func (p *UploadProbe) measureDurationBounded(ctx context.Context, onProgress func(mbps float64)) (*TransferResult, error) {
	durationCap := p.DurationCap
	if durationCap <= 0 {
		durationCap = DefaultUploadDurationCap
	}
	payloadSize := p.OversizedPayload
	if payloadSize <= 0 {
		payloadSize = DefaultUploadOversizedPayload
	}

	reqCtx, cancel := context.WithTimeout(ctx, durationCap)
	defer cancel()

	meter := newThroughputMeter(p.now, p.now())
	sampler := NewSamplingReader(io.LimitReader(zeroReader{}, payloadSize), 0, p.Now, func(event IOEvent) {
		rate := meter.observe(event)
		if onProgress != nil {
			onProgress(rate)
		}
	})

	err := p.post(reqCtx, sampler, payloadSize)
	sampler.Stop()

	aborted := false
	if err != nil {
		if ctx.Err() != nil || !errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrap(err, "upload failed")
		}
		aborted = true
		p.Logger.Debug().Dur("cap", durationCap).Int64("sent", sampler.SizeRead()).Msg("upload cut off at duration cap")
	}

	elapsed := meter.elapsed()

	return &TransferResult{
		Bytes:   sampler.SizeRead(),
		Bitrate: Bitrate(sampler.SizeRead(), elapsed),
		Samples: meter.samples,
		Elapsed: elapsed,
		Aborted: aborted,
	}, nil
}

func (p *UploadProbe) post(ctx context.Context, body io.Reader, size int64) error {
	req, err := newUncachedRequest(ctx, http.MethodPost, p.URL, body, p.now())
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", uploadContentType)

	resp, err := clientOrDefault(p.Client).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	// A deadline hit while draining the response is classified by the caller.
	_, err = io.Copy(io.Discard, resp.Body)

	return err
}
