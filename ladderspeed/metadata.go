package ladderspeed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const metadataUnavailable = "N/A"

// MetadataSource describes the client and the server it is measuring against.
type MetadataSource interface {
	Metadata(ctx context.Context) (*Metadata, error)
}

// HeaderMetadata reads Cloudflare-style cf-meta-* headers from a GET of URL.
type HeaderMetadata struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func (h *HeaderMetadata) Metadata(ctx context.Context) (*Metadata, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultLatencyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := newUncachedRequest(ctx, http.MethodGet, h.URL, nil, time.Now())
	if err != nil {
		return nil, err
	}

	resp, err := clientOrDefault(h.Client).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch metadata")
	}
	_, err = flushHTTPResponse(resp)
	if err != nil {
		return nil, errors.Wrap(err, "could not read metadata response")
	}

	srcCity := resp.Header.Get("cf-meta-city")
	if srcCity == "" {
		srcCity = metadataUnavailable
	}

	srcCountry := resp.Header.Get("cf-meta-country")
	if srcCountry == "" {
		srcCountry = metadataUnavailable
	}

	return &Metadata{
		IP:         resp.Header.Get("cf-meta-ip"),
		ASN:        resp.Header.Get("cf-meta-asn"),
		City:       srcCity,
		Country:    srcCountry,
		Colocation: resp.Header.Get("cf-meta-colo"),
	}, nil
}

// StaticMetadata fills whatever a lookup could not provide.
type StaticMetadata struct {
	ServerLocation  string
	NetworkProvider string
	IPAddress       string
}

func (s StaticMetadata) apply(details *SpeedTestDetails, metadata *Metadata) {
	details.ServerLocation = s.ServerLocation
	details.NetworkProvider = s.NetworkProvider
	details.IPAddress = s.IPAddress

	if metadata == nil {
		return
	}

	if location := joinKnown(metadata.Colocation, metadata.City, metadata.Country); location != "" {
		details.ServerLocation = location
	}
	if metadata.ASN != "" {
		details.NetworkProvider = fmt.Sprintf("AS%s", strings.TrimPrefix(metadata.ASN, "AS"))
	}
	if metadata.IP != "" {
		details.IPAddress = metadata.IP
	}
}

func joinKnown(parts ...string) string {
	known := []string{}

	for _, part := range parts {
		if part != "" && part != metadataUnavailable {
			known = append(known, part)
		}
	}

	return strings.Join(known, ", ")
}
