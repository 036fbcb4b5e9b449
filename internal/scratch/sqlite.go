package scratch

import (
	"database/sql"
	"fmt"

	"storefront-client/internal/util"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore persists blobs in a single-table SQLite database, the default
// durable backend for the guest cart and session snapshots.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the scratch database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scratch database: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS scratch (
			key  TEXT PRIMARY KEY,
			blob BLOB NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create scratch table: %w", err)
	}

	return &SQLiteStore{db: db, logger: util.GetLogger()}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the blob stored under key. Read failures surface as no data.
func (s *SQLiteStore) Get(key string) ([]byte, bool) {
	var blob []byte
	err := s.db.Get(&blob, "SELECT blob FROM scratch WHERE key = ?", key)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("Scratch read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return blob, true
}

// Set stores the blob under key. Write failures are swallowed after logging.
func (s *SQLiteStore) Set(key string, blob []byte) {
	_, err := s.db.Exec(
		"INSERT INTO scratch (key, blob) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET blob = excluded.blob",
		key, blob)
	if err != nil {
		s.logger.Warn("Scratch write failed", zap.String("key", key), zap.Error(err))
	}
}

// Remove deletes the blob stored under key.
func (s *SQLiteStore) Remove(key string) {
	if _, err := s.db.Exec("DELETE FROM scratch WHERE key = ?", key); err != nil {
		s.logger.Warn("Scratch delete failed", zap.String("key", key), zap.Error(err))
	}
}
