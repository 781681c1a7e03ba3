package ladderspeed

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestRateNetworkQuality(t *testing.T) {
	tests := []struct {
		name     string
		download float64
		upload   float64
		latency  float64
		jitter   float64
		want     NetworkQualityScores
	}{
		{name: "fast", download: 100, upload: 50, latency: 10, jitter: 2,
			want: NetworkQualityScores{VideoStreaming: QualityGreat, OnlineGaming: QualityGreat, VideoChatting: QualityGreat}},
		{name: "moderate", download: 12, upload: 3, latency: 40, jitter: 10,
			want: NetworkQualityScores{VideoStreaming: QualityGood, OnlineGaming: QualityGood, VideoChatting: QualityGood}},
		{name: "slow", download: 6, upload: 1.5, latency: 120, jitter: 20,
			want: NetworkQualityScores{VideoStreaming: QualityFair, OnlineGaming: QualityPoor, VideoChatting: QualityFair}},
		{name: "failed",
			want: NetworkQualityScores{VideoStreaming: QualityPoor, OnlineGaming: QualityGreat, VideoChatting: QualityPoor}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RateNetworkQuality(tc.download, tc.upload, tc.latency, tc.jitter)
			assert.DeepEqual(t, *got, tc.want)
		})
	}
}
