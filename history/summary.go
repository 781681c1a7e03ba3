package history

import (
	"time"

	"github.com/makotom/ladderspeed/ladderspeed"
)

// Summary aggregates a history for display.
type Summary struct {
	TestCount int

	AvgDownload float64
	MinDownload float64
	MaxDownload float64

	AvgUpload float64
	MinUpload float64
	MaxUpload float64

	AvgLatency float64
	MinLatency float64
	MaxLatency float64

	FirstTest time.Time
	LastTest  time.Time
}

func Summarize(results []ladderspeed.TestResults) *Summary {
	stats := &Summary{}
	var totalDownload, totalUpload, totalLatency float64

	for _, rec := range results {
		stats.TestCount++
		totalDownload += rec.DownloadMbps
		totalUpload += rec.UploadMbps
		totalLatency += rec.LatencyMs

		if stats.TestCount == 1 {
			stats.MaxDownload = rec.DownloadMbps
			stats.MinDownload = rec.DownloadMbps
			stats.MaxUpload = rec.UploadMbps
			stats.MinUpload = rec.UploadMbps
			stats.MaxLatency = rec.LatencyMs
			stats.MinLatency = rec.LatencyMs
			stats.FirstTest = rec.Timestamp
			stats.LastTest = rec.Timestamp
			continue
		}

		stats.MaxDownload = max(stats.MaxDownload, rec.DownloadMbps)
		stats.MinDownload = min(stats.MinDownload, rec.DownloadMbps)
		stats.MaxUpload = max(stats.MaxUpload, rec.UploadMbps)
		stats.MinUpload = min(stats.MinUpload, rec.UploadMbps)
		stats.MaxLatency = max(stats.MaxLatency, rec.LatencyMs)
		stats.MinLatency = min(stats.MinLatency, rec.LatencyMs)
		if rec.Timestamp.Before(stats.FirstTest) {
			stats.FirstTest = rec.Timestamp
		}
		if rec.Timestamp.After(stats.LastTest) {
			stats.LastTest = rec.Timestamp
		}
	}

	if stats.TestCount == 0 {
		return stats
	}

	count := float64(stats.TestCount)
	stats.AvgDownload = totalDownload / count
	stats.AvgUpload = totalUpload / count
	stats.AvgLatency = totalLatency / count

	return stats
}
