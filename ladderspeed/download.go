package ladderspeed

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	downloadChunkSize = 32 * 1024

	// BytesPlaceholder in a download URL is replaced by the rung size.
	BytesPlaceholder = "{bytes}"
)

// DownloadProbe streams at most size bytes from URL, sampling cumulative
// throughput after every chunk.
type DownloadProbe struct {
	URL string

	Client *http.Client
	Logger zerolog.Logger
	Now    func() time.Time
}

// Measure never over-fetches: the body is read through a quota of size
// bytes and the request is cancelled as soon as the quota is met. A failed
// transfer yields a zero bitrate and no samples together with the error;
// Elapsed is reported either way.
func (p *DownloadProbe) Measure(ctx context.Context, size int64, onProgress func(mbps float64)) (*TransferResult, error) {
	now := p.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := now()
	meter := newThroughputMeter(now, start)

	failed := func(err error) (*TransferResult, error) {
		p.Logger.Warn().Err(err).Int64("size", size).Msg("download failed")
		return &TransferResult{Elapsed: meter.elapsed()}, err
	}

	target := strings.ReplaceAll(p.URL, BytesPlaceholder, strconv.FormatInt(size, 10))
	req, err := newUncachedRequest(ctx, http.MethodGet, target, nil, start)
	if err != nil {
		return failed(err)
	}

	resp, err := clientOrDefault(p.Client).Do(req)
	if err != nil {
		return failed(errors.Wrap(err, "download request failed"))
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return failed(err)
	}

	sampler := NewSamplingReader(resp.Body, size, now, func(event IOEvent) {
		rate := meter.observe(event)
		if onProgress != nil {
			onProgress(rate)
		}
	})

	buf := make([]byte, downloadChunkSize)
	for {
		_, err := sampler.Read(buf)
		if sampler.QuotaReached() {
			// Target reached: drop the rest of the response on the floor.
			cancel()
			break
		}
		if err == io.EOF {
			p.Logger.Debug().Int64("size", size).Int64("received", sampler.SizeRead()).Msg("download body ended before target size")
			break
		}
		if err != nil {
			return failed(errors.Wrap(err, "download transfer failed"))
		}
	}

	return &TransferResult{
		Bytes:   sampler.SizeRead(),
		Bitrate: meter.final(),
		Samples: meter.samples,
		Elapsed: meter.elapsed(),
	}, nil
}
