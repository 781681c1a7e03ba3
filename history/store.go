package history

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/makotom/ladderspeed/ladderspeed"
)

const (
	DefaultKey   = "ladderspeed-history"
	DefaultLimit = 15
)

// Store keeps a bounded, newest-first log of results in a single blob.
//
// History is a convenience: every persistence error is logged and
// swallowed, never returned.
type Store struct {
	blobs BlobStore
	key   string
	limit int
	log   zerolog.Logger

	mu sync.Mutex
}

type Option func(*Store)

func WithKey(key string) Option { return func(s *Store) { s.key = key } }

func WithLimit(limit int) Option { return func(s *Store) { s.limit = limit } }

func WithLogger(log zerolog.Logger) Option { return func(s *Store) { s.log = log } }

func NewStore(blobs BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs: blobs,
		key:   DefaultKey,
		limit: DefaultLimit,
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.key == "" {
		s.key = DefaultKey
	}
	if s.limit <= 0 {
		s.limit = DefaultLimit
	}

	return s
}

// Load returns the persisted history, or an empty slice when it is missing
// or unreadable.
func (s *Store) Load(ctx context.Context) []ladderspeed.TestResults {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(ctx)
}

// Append prepends result, trims to the limit and persists. It returns the
// history as it now stands.
func (s *Store) Append(ctx context.Context, result ladderspeed.TestResults) []ladderspeed.TestResults {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append([]ladderspeed.TestResults{result}, s.loadLocked(ctx)...)
	if len(history) > s.limit {
		history = history[:s.limit]
	}

	b, err := json.Marshal(history)
	if err != nil {
		s.log.Error().Err(err).Msg("could not encode history")
		return history
	}
	if err := s.blobs.Set(ctx, s.key, b); err != nil {
		s.log.Error().Err(err).Msg("could not save history")
	}

	return history
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.blobs.Delete(ctx, s.key); err != nil {
		s.log.Error().Err(err).Msg("could not clear history")
	}
}

func (s *Store) loadLocked(ctx context.Context) []ladderspeed.TestResults {
	b, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		s.log.Error().Err(err).Msg("could not read history")
		return []ladderspeed.TestResults{}
	}
	if !ok || len(b) == 0 {
		return []ladderspeed.TestResults{}
	}

	history := []ladderspeed.TestResults{}
	if err := json.Unmarshal(b, &history); err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed history")
		return []ladderspeed.TestResults{}
	}
	if history == nil {
		return []ladderspeed.TestResults{}
	}
	if len(history) > s.limit {
		history = history[:s.limit]
	}

	return history
}
