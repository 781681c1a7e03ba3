package ladderspeed

import (
	"time"
)

const (
	DefaultInterRungDelay     = 250 * time.Millisecond
	DefaultUploadRetries      = 2
	DefaultUploadRetryBackoff = 500 * time.Millisecond
)

// DefaultPayloadSizes is the ladder walked by a run, smallest first.
var DefaultPayloadSizes = []int64{
	10 * 1024,        // 10 KiB
	100 * 1024,       // 100 KiB
	1 * 1024 * 1024,  // 1 MiB
	10 * 1024 * 1024, // 10 MiB
	25 * 1024 * 1024, // 25 MiB
}

type Config struct {
	DownloadURL string
	UploadURL   string
	LatencyURL  string
	// MetadataURL is optional; when empty only Metadata is used.
	MetadataURL string

	PayloadSizes []int64

	LatencySampleCount int
	LatencyTimeout     time.Duration
	InterProbeDelay    time.Duration
	InterRungDelay     time.Duration

	UploadThreshold        int64
	UploadOversizedPayload int64
	UploadDurationCap      time.Duration
	UploadSizeTimeout      time.Duration
	UploadRetries          int
	UploadRetryBackoff     time.Duration

	Metadata StaticMetadata
}

func DefaultConfig() Config {
	return Config{
		PayloadSizes:           append([]int64(nil), DefaultPayloadSizes...),
		LatencySampleCount:     DefaultLatencySampleCount,
		LatencyTimeout:         DefaultLatencyTimeout,
		InterProbeDelay:        DefaultInterProbeDelay,
		InterRungDelay:         DefaultInterRungDelay,
		UploadThreshold:        DefaultUploadThreshold,
		UploadOversizedPayload: DefaultUploadOversizedPayload,
		UploadDurationCap:      DefaultUploadDurationCap,
		UploadSizeTimeout:      DefaultUploadSizeTimeout,
		UploadRetries:          DefaultUploadRetries,
		UploadRetryBackoff:     DefaultUploadRetryBackoff,
	}
}
