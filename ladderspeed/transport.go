package ladderspeed

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultDialTimeout = 10 * time.Second

	cacheBustParam = "t"
)

// NewHTTPClient builds a client whose dialer is pinned to protocol ("tcp",
// "tcp4" or "tcp6").
func NewHTTPClient(protocol string, dialTimeout time.Duration) *http.Client {
	if protocol == "" {
		protocol = "tcp"
	}
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}

	// cf. https://go.googlesource.com/go/+/refs/tags/go1.22.1/src/net/http/transport.go#43
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext(ctx, protocol, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: transport}
}

var cacheBustSeq atomic.Uint64

// cacheBusted returns rawURL with a query parameter unique to this call.
func cacheBusted(rawURL string, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid URL %q", rawURL)
	}

	query := u.Query()
	query.Set(cacheBustParam, strconv.FormatInt(now.UnixMilli(), 10)+"-"+strconv.FormatUint(cacheBustSeq.Add(1), 10))
	u.RawQuery = query.Encode()

	return u.String(), nil
}

func newUncachedRequest(ctx context.Context, method, rawURL string, body io.Reader, now time.Time) (*http.Request, error) {
	target, err := cacheBusted(rawURL, now)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}
	req.Header.Set("Cache-Control", "no-store, no-cache")
	req.Header.Set("Pragma", "no-cache")

	return req, nil
}

func flushHTTPResponse(resp *http.Response) (int64, error) {
	flushedSize, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, err
	}

	err = resp.Body.Close()
	if err != nil {
		return 0, err
	}

	return flushedSize, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func clientOrDefault(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}

	return client
}
