package ast

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore caches parsed function lists keyed by file path and content
// hash so unchanged files are not re-parsed on every repository scan.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens/creates the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS parsed_files (
		path TEXT PRIMARY KEY,
		language TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		functions TEXT NOT NULL,
		indexed_at TIMESTAMP
	);`
	_, err := s.db.Exec(schema)
	return err
}

// ContentHash fingerprints file contents for cache lookups.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached functions for path when the hash still matches.
func (s *SQLiteStore) Lookup(path, hash string) ([]Function, bool, error) {
	var stored, payload string
	err := s.db.QueryRow(`SELECT content_hash, functions FROM parsed_files WHERE path = ?`, path).Scan(&stored, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if stored != hash {
		return nil, false, nil
	}
	var fns []Function
	if err := json.Unmarshal([]byte(payload), &fns); err != nil {
		return nil, false, err
	}
	return fns, true, nil
}

// Save records the functions parsed from path.
func (s *SQLiteStore) Save(path, language, hash string, fns []Function) error {
	if fns == nil {
		fns = []Function{}
	}
	payload, err := json.Marshal(fns)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
	INSERT INTO parsed_files (path, language, content_hash, functions, indexed_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		language = excluded.language,
		content_hash = excluded.content_hash,
		functions = excluded.functions,
		indexed_at = excluded.indexed_at`,
		path, language, hash, string(payload), time.Now().UTC())
	return err
}

// Forget drops the cache entry for path.
func (s *SQLiteStore) Forget(path string) error {
	_, err := s.db.Exec(`DELETE FROM parsed_files WHERE path = ?`, path)
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CachedFunctions parses content with p, consulting store first when it is
// non-nil. Cache failures fall back to a direct parse.
func CachedFunctions(store *SQLiteStore, p Parser, path string, content []byte) ([]Function, error) {
	if store == nil {
		return p.Functions(content)
	}
	hash := ContentHash(content)
	if fns, ok, err := store.Lookup(path, hash); err == nil && ok {
		return fns, nil
	}
	fns, err := p.Functions(content)
	if err != nil {
		return nil, err
	}
	_ = store.Save(path, p.Language(), hash, fns)
	return fns, nil
}
