package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

type SQLiteBlobStore struct {
	db  *sql.DB
	log zerolog.Logger
}

func OpenSQLiteBlobStore(path string, busyTimeout time.Duration, log zerolog.Logger) (*SQLiteBlobStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "could not create history directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if busyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &SQLiteBlobStore{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Debug().Str("path", path).Msg("sqlite history store ready")

	return s, nil
}

func (s *SQLiteBlobStore) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return errors.Wrap(err, "read schema")
	}
	_, err = s.db.ExecContext(ctx, string(b))

	return errors.Wrap(err, "apply schema")
}

func (s *SQLiteBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "select blob")
	}

	return value, true, nil
}

func (s *SQLiteBlobStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs(key, value, updated_at) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)

	return errors.Wrap(err, "upsert blob")
}

func (s *SQLiteBlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key)

	return errors.Wrap(err, "delete blob")
}

func (s *SQLiteBlobStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}
