package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// yamlConfig mirrors the file layout. Pointers and empty strings mean "keep
// the default".
type yamlConfig struct {
	DownloadURL string  `yaml:"download_url"`
	UploadURL   string  `yaml:"upload_url"`
	LatencyURL  string  `yaml:"latency_url"`
	MetadataURL *string `yaml:"metadata_url"`

	PayloadSizes    []int64 `yaml:"payload_sizes"`
	LatencySamples  *int    `yaml:"latency_samples"`
	LatencyTimeout  string  `yaml:"latency_timeout"`
	InterProbeDelay string  `yaml:"inter_probe_delay"`
	InterRungDelay  string  `yaml:"inter_rung_delay"`

	Upload struct {
		Threshold        *int64 `yaml:"threshold"`
		DurationCap      string `yaml:"duration_cap"`
		SizeTimeout      string `yaml:"size_timeout"`
		OversizedPayload *int64 `yaml:"oversized_payload"`
		Retries          *int   `yaml:"retries"`
		RetryBackoff     string `yaml:"retry_backoff"`
	} `yaml:"upload"`

	Network struct {
		Protocol    string `yaml:"protocol"`
		DialTimeout string `yaml:"dial_timeout"`
	} `yaml:"network"`

	Metadata struct {
		ServerLocation  string `yaml:"server_location"`
		NetworkProvider string `yaml:"network_provider"`
		IPAddress       string `yaml:"ip_address"`
	} `yaml:"metadata"`

	History struct {
		Driver      string `yaml:"driver"`
		Path        string `yaml:"path"`
		Key         string `yaml:"key"`
		Limit       *int   `yaml:"limit"`
		BusyTimeout string `yaml:"busy_timeout"`
	} `yaml:"history"`

	Log struct {
		Level   string `yaml:"level"`
		Console *bool  `yaml:"console"`
	} `yaml:"log"`
}

func (yc *yamlConfig) apply(cfg *Config) error {
	e := &cfg.Engine

	setString(&e.DownloadURL, yc.DownloadURL)
	setString(&e.UploadURL, yc.UploadURL)
	setString(&e.LatencyURL, yc.LatencyURL)
	if yc.MetadataURL != nil {
		e.MetadataURL = strings.TrimSpace(*yc.MetadataURL)
	}

	if len(yc.PayloadSizes) > 0 {
		e.PayloadSizes = append([]int64(nil), yc.PayloadSizes...)
	}
	if yc.LatencySamples != nil {
		e.LatencySampleCount = *yc.LatencySamples
	}
	if yc.Upload.Threshold != nil {
		e.UploadThreshold = *yc.Upload.Threshold
	}
	if yc.Upload.OversizedPayload != nil {
		e.UploadOversizedPayload = *yc.Upload.OversizedPayload
	}
	if yc.Upload.Retries != nil {
		e.UploadRetries = *yc.Upload.Retries
	}

	e.Metadata.ServerLocation = yc.Metadata.ServerLocation
	e.Metadata.NetworkProvider = yc.Metadata.NetworkProvider
	e.Metadata.IPAddress = yc.Metadata.IPAddress

	durations := []struct {
		path string
		raw  string
		dst  *time.Duration
	}{
		{"latency_timeout", yc.LatencyTimeout, &e.LatencyTimeout},
		{"inter_probe_delay", yc.InterProbeDelay, &e.InterProbeDelay},
		{"inter_rung_delay", yc.InterRungDelay, &e.InterRungDelay},
		{"upload.duration_cap", yc.Upload.DurationCap, &e.UploadDurationCap},
		{"upload.size_timeout", yc.Upload.SizeTimeout, &e.UploadSizeTimeout},
		{"upload.retry_backoff", yc.Upload.RetryBackoff, &e.UploadRetryBackoff},
		{"network.dial_timeout", yc.Network.DialTimeout, &cfg.Network.DialTimeout},
		{"history.busy_timeout", yc.History.BusyTimeout, &cfg.History.BusyTimeout},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.path, d.raw); err != nil {
			return err
		}
	}

	setString(&cfg.Network.Protocol, yc.Network.Protocol)

	setString(&cfg.History.Driver, yc.History.Driver)
	setString(&cfg.History.Path, yc.History.Path)
	setString(&cfg.History.Key, yc.History.Key)
	if yc.History.Limit != nil {
		cfg.History.Limit = *yc.History.Limit
	}

	setString(&cfg.Log.Level, yc.Log.Level)
	if yc.Log.Console != nil {
		cfg.Log.Console = *yc.Log.Console
	}

	return nil
}

func setString(dst *string, raw string) {
	if s := strings.TrimSpace(raw); s != "" {
		*dst = s
	}
}

// setDuration leaves dst alone for an empty value. "0s" is a valid override
// for delays.
func setDuration(dst *time.Duration, path, raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "%s: invalid duration %q", path, raw)
	}
	if d < 0 {
		return errors.Errorf("%s: duration must be >= 0", path)
	}
	*dst = d

	return nil
}
