package ladderspeed

import (
	"time"
)

type TestState string

const (
	StateIdle     TestState = "idle"
	StateStarting TestState = "starting"
	StateLatency  TestState = "latency"
	StateDownload TestState = "download"
	StateUpload   TestState = "upload"
	StateFinished TestState = "finished"
	StateError    TestState = "error"
)

// Startable reports whether a new run may begin from s.
func (s TestState) Startable() bool {
	return s == StateIdle || s == StateFinished
}

type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseUpload   Phase = "upload"
)

// MeasurementPoint is the result of one rung of the payload-size ladder.
//
// JSON tags are persisted in the history blob; keep them stable.
type MeasurementPoint struct {
	PayloadSize         int64    `json:"fileSize"`
	DownloadMbps        float64  `json:"downloadSpeed"`
	UploadMbps          float64  `json:"uploadSpeed"`
	PingMs              float64  `json:"ping"`
	JitterMs            float64  `json:"jitter"`
	DownloadDurationSec *float64 `json:"downloadDuration,omitempty"`
	UploadDurationSec   *float64 `json:"uploadDuration,omitempty"`
}

type NetworkQualityScores struct {
	VideoStreaming string `json:"videoStreaming"`
	OnlineGaming   string `json:"onlineGaming"`
	VideoChatting  string `json:"videoChatting"`
}

type SpeedTestDetails struct {
	UnloadedLatency        float64               `json:"unloadedLatency"`
	UnloadedJitter         float64               `json:"unloadedJitter"`
	Measurements           []MeasurementPoint    `json:"measurements"`
	UnloadedLatencySamples []float64             `json:"unloadedLatencySamples"`
	DownloadLatencySamples []float64             `json:"downloadLatencySamples"`
	UploadLatencySamples   []float64             `json:"uploadLatencySamples"`
	DownloadSamples        []float64             `json:"downloadSamples"`
	UploadSamples          []float64             `json:"uploadSamples"`
	ServerLocation         string                `json:"serverLocation,omitempty"`
	NetworkProvider        string                `json:"networkProvider,omitempty"`
	IPAddress              string                `json:"ipAddress,omitempty"`
	NetworkQuality         *NetworkQualityScores `json:"networkQuality,omitempty"`
}

type TestResults struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	DownloadMbps float64           `json:"download"`
	UploadMbps   float64           `json:"upload"`
	LatencyMs    float64           `json:"latency"`
	JitterMs     float64           `json:"jitter"`
	Details      *SpeedTestDetails `json:"details"`
}

type LatencyResult struct {
	LatencyMs float64
	JitterMs  float64
	Samples   []float64
}

// TransferResult is what a download or upload probe reports for one transfer.
type TransferResult struct {
	Bytes   int64
	Bitrate float64
	Samples []float64
	Elapsed time.Duration
	// Aborted is set when an upload was cut off by its duration cap.
	Aborted bool
}

// ElapsedSeconds is the transfer duration as reported in a MeasurementPoint.
func (r *TransferResult) ElapsedSeconds() float64 {
	if r == nil {
		return 0
	}
	return r.Elapsed.Seconds()
}

type Metadata struct {
	IP         string
	ASN        string
	City       string
	Country    string
	Colocation string
}
