package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/makotom/ladderspeed/history"
	"github.com/makotom/ladderspeed/ladderspeed"
)

const (
	DefaultDownloadURL = "https://speed.cloudflare.com/__down?bytes=" + ladderspeed.BytesPlaceholder
	DefaultUploadURL   = "https://speed.cloudflare.com/__up"
	DefaultLatencyURL  = "https://speed.cloudflare.com/__down?bytes=0"
	DefaultMetadataURL = "https://speed.cloudflare.com/__down?bytes=0"

	DefaultHistoryDriver = "file"
	DefaultHistoryPath   = "./ladderspeed-history"
	DefaultLogLevel      = "info"
)

type Config struct {
	Engine  ladderspeed.Config
	Network NetworkConfig
	History HistoryConfig
	Log     LogConfig
}

type NetworkConfig struct {
	// Protocol is "tcp", "tcp4" or "tcp6".
	Protocol    string
	DialTimeout time.Duration
}

type HistoryConfig struct {
	// Driver is "file", "sqlite", "memory" or "none".
	Driver      string
	Path        string
	Key         string
	Limit       int
	BusyTimeout time.Duration
}

// Enabled reports whether results should be persisted at all.
func (h HistoryConfig) Enabled() bool {
	return !strings.EqualFold(strings.TrimSpace(h.Driver), "none")
}

func (h HistoryConfig) BlobConfig() history.Config {
	return history.Config{
		Driver:      h.Driver,
		Path:        h.Path,
		BusyTimeout: h.BusyTimeout,
	}
}

type LogConfig struct {
	Level   string
	Console bool
}

func Default() *Config {
	engine := ladderspeed.DefaultConfig()
	engine.DownloadURL = DefaultDownloadURL
	engine.UploadURL = DefaultUploadURL
	engine.LatencyURL = DefaultLatencyURL
	engine.MetadataURL = DefaultMetadataURL

	return &Config{
		Engine: engine,
		Network: NetworkConfig{
			Protocol:    "tcp",
			DialTimeout: ladderspeed.DefaultDialTimeout,
		},
		History: HistoryConfig{
			Driver:      DefaultHistoryDriver,
			Path:        DefaultHistoryPath,
			Key:         history.DefaultKey,
			Limit:       history.DefaultLimit,
			BusyTimeout: 1 * time.Second,
		},
		Log: LogConfig{
			Level:   DefaultLogLevel,
			Console: true,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read config file")
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "could not load %s", path)
	}

	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, errors.Wrap(err, "yaml unmarshal")
	}

	cfg := Default()
	if err := yc.apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	e := c.Engine

	for _, u := range []struct{ field, raw string }{
		{"download_url", e.DownloadURL},
		{"upload_url", e.UploadURL},
		{"latency_url", e.LatencyURL},
	} {
		if err := validateURL(u.field, u.raw); err != nil {
			return err
		}
	}
	if e.MetadataURL != "" {
		if err := validateURL("metadata_url", e.MetadataURL); err != nil {
			return err
		}
	}

	if len(e.PayloadSizes) == 0 {
		return errors.New("payload_sizes: at least one size is required")
	}
	for i, size := range e.PayloadSizes {
		if size <= 0 {
			return errors.Errorf("payload_sizes[%d]: must be > 0", i)
		}
		if i > 0 && size <= e.PayloadSizes[i-1] {
			return errors.Errorf("payload_sizes[%d]: sizes must be strictly ascending", i)
		}
	}

	if e.LatencySampleCount < 1 {
		return errors.New("latency_samples: must be >= 1")
	}
	if e.UploadRetries < 0 {
		return errors.New("upload.retries: must be >= 0")
	}
	if e.UploadThreshold <= 0 {
		return errors.New("upload.threshold: must be > 0")
	}
	if e.UploadOversizedPayload <= 0 {
		return errors.New("upload.oversized_payload: must be > 0")
	}

	switch c.Network.Protocol {
	case "tcp", "tcp4", "tcp6":
	default:
		return errors.Errorf("network.protocol: unknown protocol %q", c.Network.Protocol)
	}

	if c.History.Limit < 1 {
		return errors.New("history.limit: must be >= 1")
	}
	switch strings.ToLower(strings.TrimSpace(c.History.Driver)) {
	case "none", "memory":
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.History.Path) == "" {
			return errors.Errorf("history.path is required when history.driver=%s", c.History.Driver)
		}
	default:
		return errors.Errorf("history.driver: unknown driver %q", c.History.Driver)
	}

	return nil
}

func validateURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.Errorf("%s: required", field)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "%s: invalid URL", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("%s: scheme must be http or https", field)
	}

	return nil
}
