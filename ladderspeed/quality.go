package ladderspeed

const (
	QualityGreat = "Great"
	QualityGood  = "Good"
	QualityFair  = "Fair"
	QualityPoor  = "Poor"
)

type qualityTier struct {
	label        string
	minDownload  float64
	minUpload    float64
	maxLatencyMs float64
	maxJitterMs  float64
}

// Tiers are checked best first; zero bounds are not checked.
var (
	videoStreamingTiers = []qualityTier{
		{label: QualityGreat, minDownload: 25},
		{label: QualityGood, minDownload: 10},
		{label: QualityFair, minDownload: 5},
	}
	onlineGamingTiers = []qualityTier{
		{label: QualityGreat, maxLatencyMs: 20, maxJitterMs: 5},
		{label: QualityGood, maxLatencyMs: 50, maxJitterMs: 15},
		{label: QualityFair, maxLatencyMs: 100, maxJitterMs: 30},
	}
	videoChattingTiers = []qualityTier{
		{label: QualityGreat, minDownload: 5, minUpload: 5, maxLatencyMs: 50},
		{label: QualityGood, minDownload: 2, minUpload: 2, maxLatencyMs: 100},
		{label: QualityFair, minDownload: 1, minUpload: 1, maxLatencyMs: 150},
	}
)

func (t qualityTier) admits(download, upload, latencyMs, jitterMs float64) bool {
	if t.minDownload > 0 && download < t.minDownload {
		return false
	}
	if t.minUpload > 0 && upload < t.minUpload {
		return false
	}
	if t.maxLatencyMs > 0 && latencyMs > t.maxLatencyMs {
		return false
	}
	if t.maxJitterMs > 0 && jitterMs > t.maxJitterMs {
		return false
	}

	return true
}

func rate(tiers []qualityTier, download, upload, latencyMs, jitterMs float64) string {
	for _, tier := range tiers {
		if tier.admits(download, upload, latencyMs, jitterMs) {
			return tier.label
		}
	}

	return QualityPoor
}

// RateNetworkQuality grades a run for common use cases.
func RateNetworkQuality(download, upload, latencyMs, jitterMs float64) *NetworkQualityScores {
	return &NetworkQualityScores{
		VideoStreaming: rate(videoStreamingTiers, download, upload, latencyMs, jitterMs),
		OnlineGaming:   rate(onlineGamingTiers, download, upload, latencyMs, jitterMs),
		VideoChatting:  rate(videoChattingTiers, download, upload, latencyMs, jitterMs),
	}
}
