package ladderspeed

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var errSamplerStopped = errors.New("sampler stopped")

type IOEvent struct {
	Timestamp time.Time
	Size      int
}

// SamplingReader counts bytes flowing through r and reports every non-empty
// read. It never hands out more than Quota bytes in total (Quota <= 0 means
// unbounded).
//
// Upload bodies are read by the transport's own goroutine, so all state is
// guarded and Stop fences off reads that race with the end of a request.
type SamplingReader struct {
	r      io.Reader
	now    func() time.Time
	onRead func(event IOEvent)

	mu        sync.Mutex
	quota     int64
	sizeRead  int64
	firstRead time.Time
	stopped   bool
}

func NewSamplingReader(r io.Reader, quota int64, now func() time.Time, onRead func(event IOEvent)) *SamplingReader {
	if now == nil {
		now = time.Now
	}

	return &SamplingReader{
		r:      r,
		now:    now,
		onRead: onRead,
		quota:  quota,
	}
}

func (s *SamplingReader) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, errSamplerStopped
	}

	if s.quota > 0 {
		remaining := s.quota - s.sizeRead
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}

	size, err := s.r.Read(p)
	if size > 0 {
		event := IOEvent{
			Timestamp: s.now(),
			Size:      size,
		}
		if s.firstRead.IsZero() {
			s.firstRead = event.Timestamp
		}
		s.sizeRead += int64(size)

		if s.onRead != nil {
			s.onRead(event)
		}
	}

	return size, err
}

// Stop makes every later Read fail without reporting progress.
func (s *SamplingReader) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
}

func (s *SamplingReader) SizeRead() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sizeRead
}

func (s *SamplingReader) FirstRead() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.firstRead
}

// QuotaReached reports whether the reader has handed out all Quota bytes.
func (s *SamplingReader) QuotaReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.quota > 0 && s.sizeRead >= s.quota
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
