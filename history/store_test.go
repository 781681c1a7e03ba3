package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/makotom/ladderspeed/ladderspeed"
)

func result(n int) ladderspeed.TestResults {
	return ladderspeed.TestResults{
		ID:           fmt.Sprintf("run-%02d", n),
		Timestamp:    time.Date(2024, 3, 1, 12, n, 0, 0, time.UTC),
		DownloadMbps: float64(n),
		UploadMbps:   float64(n) / 2,
		LatencyMs:    20,
		JitterMs:     1,
		Details:      &ladderspeed.SpeedTestDetails{Measurements: []ladderspeed.MeasurementPoint{{PayloadSize: 10240}}},
	}
}

func ids(results []ladderspeed.TestResults) []string {
	ret := []string{}
	for _, r := range results {
		ret = append(ret, r.ID)
	}

	return ret
}

func TestStore_NewestFirstAndBounded(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBlobStore())

	for n := 1; n <= 16; n += 1 {
		store.Append(ctx, result(n))
	}

	loaded := store.Load(ctx)
	assert.Equal(t, len(loaded), DefaultLimit)
	assert.Equal(t, loaded[0].ID, "run-16")
	assert.Equal(t, loaded[len(loaded)-1].ID, "run-02")
}

func TestStore_CustomLimit(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBlobStore(), WithLimit(2), WithKey("custom"))

	store.Append(ctx, result(1))
	store.Append(ctx, result(2))
	returned := store.Append(ctx, result(3))

	assert.DeepEqual(t, ids(returned), []string{"run-03", "run-02"})
	assert.DeepEqual(t, ids(store.Load(ctx)), []string{"run-03", "run-02"})
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBlobStore())

	store.Append(ctx, result(1))
	store.Clear(ctx)

	assert.Equal(t, len(store.Load(ctx)), 0)
}

func TestStore_MissingAndMalformed(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryBlobStore()
	store := NewStore(blobs, WithLogger(zerolog.Nop()))

	assert.DeepEqual(t, store.Load(ctx), []ladderspeed.TestResults{})

	assert.NilError(t, blobs.Set(ctx, DefaultKey, []byte("{not json")))
	assert.DeepEqual(t, store.Load(ctx), []ladderspeed.TestResults{})

	assert.NilError(t, blobs.Set(ctx, DefaultKey, []byte("null")))
	assert.DeepEqual(t, store.Load(ctx), []ladderspeed.TestResults{})

	// A broken blob is replaced by the next append.
	assert.NilError(t, blobs.Set(ctx, DefaultKey, []byte("{not json")))
	store.Append(ctx, result(1))
	assert.DeepEqual(t, ids(store.Load(ctx)), []string{"run-01"})
}

func TestStore_RoundTripsDetails(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryBlobStore())

	duration := 1.5
	r := result(1)
	r.Details.Measurements[0].DownloadDurationSec = &duration
	store.Append(ctx, r)

	loaded := store.Load(ctx)
	assert.Equal(t, len(loaded), 1)
	assert.Assert(t, loaded[0].Timestamp.Equal(r.Timestamp))
	assert.Equal(t, *loaded[0].Details.Measurements[0].DownloadDurationSec, 1.5)
	assert.Assert(t, loaded[0].Details.Measurements[0].UploadDurationSec == nil)
}

func TestBackends(t *testing.T) {
	dir := t.TempDir()
	backends := []Config{
		{Driver: "memory"},
		{Driver: "file", Path: filepath.Join(dir, "files")},
		{Driver: "sqlite", Path: filepath.Join(dir, "db", "history.db"), BusyTimeout: time.Second},
	}

	for _, cfg := range backends {
		t.Run(cfg.Driver, func(t *testing.T) {
			ctx := context.Background()

			backend, err := Open(cfg, zerolog.Nop())
			assert.NilError(t, err)
			defer backend.Close()

			_, ok, err := backend.Get(ctx, "k")
			assert.NilError(t, err)
			assert.Assert(t, !ok)

			assert.NilError(t, backend.Set(ctx, "k", []byte("one")))
			assert.NilError(t, backend.Set(ctx, "k", []byte("two")))
			value, ok, err := backend.Get(ctx, "k")
			assert.NilError(t, err)
			assert.Assert(t, ok)
			assert.Equal(t, string(value), "two")

			assert.NilError(t, backend.Delete(ctx, "k"))
			assert.NilError(t, backend.Delete(ctx, "k"))
			_, ok, err = backend.Get(ctx, "k")
			assert.NilError(t, err)
			assert.Assert(t, !ok)

			store := NewStore(backend)
			store.Append(ctx, result(1))
			store.Append(ctx, result(2))
			assert.DeepEqual(t, ids(store.Load(ctx)), []string{"run-02", "run-01"})
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "etcd"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown history driver")
}

func TestFileBlobStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := OpenFileBlobStore(dir)
	assert.NilError(t, err)
	NewStore(first).Append(ctx, result(7))

	second, err := OpenFileBlobStore(dir)
	assert.NilError(t, err)
	assert.DeepEqual(t, ids(NewStore(second).Load(ctx)), []string{"run-07"})
}
