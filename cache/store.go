package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	_ "modernc.org/sqlite"
)

// Store is a persistent tier behind the in-memory cache. Failures are never
// fatal: the cache logs them and treats the lookup as a miss.
type Store interface {
	Load(key Key) (Entry, bool, error)
	Save(key Key, e Entry) error
	// Prune removes entries created before t and returns how many were
	// removed.
	Prune(t time.Time) (int64, error)
	Clear() error
	Close() error
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS pages (
    key        TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL, -- UnixNano
    entry      BLOB NOT NULL     -- JSON encoded Entry
);

CREATE INDEX IF NOT EXISTS idx_pages_created_at ON pages(created_at);
`

// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens, or creates, the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(2000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the location of the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Load returns the entry stored under key.
func (s *SQLiteStore) Load(key Key) (Entry, bool, error) {
	var blob []byte
	err := s.db.QueryRow("SELECT entry FROM pages WHERE key = ?", string(key)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(blob, &e); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode entry: %w", err)
	}
	return e, true, nil
}

// Save stores e under key, replacing any previous entry. Writes that hit a
// busy database are retried a few times.
func (s *SQLiteStore) Save(key Key, e Entry) error {
	blob, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	return retry.Do(
		func() error {
			_, err := s.db.Exec(
				"INSERT OR REPLACE INTO pages (key, created_at, entry) VALUES (?, ?, ?)",
				string(key), e.CreatedAt.UnixNano(), blob,
			)
			return err
		},
		retry.Attempts(3),
		retry.Delay(20*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

// Prune removes entries created before t.
func (s *SQLiteStore) Prune(t time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM pages WHERE created_at < ?", t.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune entries: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes every entry.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM pages"); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
