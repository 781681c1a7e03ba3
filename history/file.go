package history

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileBlobStore keeps one file per key under Dir. Writes go through a temp
// file and a rename so a blob is always either the old or the new value.
type FileBlobStore struct {
	Dir string
}

func OpenFileBlobStore(dir string) (*FileBlobStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("history path is required for file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create history directory")
	}

	return &FileBlobStore{Dir: dir}, nil
}

func (f *FileBlobStore) path(key string) string {
	// Keys are arbitrary; hex keeps them filesystem safe.
	return filepath.Join(f.Dir, hex.EncodeToString([]byte(key))+".json")
}

func (f *FileBlobStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "read blob")
	}

	return b, true, nil
}

func (f *FileBlobStore) Set(_ context.Context, key string, value []byte) error {
	target := f.path(key)
	tmp := target + ".tmp"

	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "open temp blob file")
	}
	_, werr := out.Write(value)
	_ = out.Sync()
	cerr := out.Close()
	if werr != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(werr, "write temp blob file")
	}
	if cerr != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(cerr, "close temp blob file")
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "replace blob file")
	}

	return nil
}

func (f *FileBlobStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove blob file")
	}

	return nil
}

func (f *FileBlobStore) Close() error { return nil }
