package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/sema-sh/sema/internal/chunker"
	semaerrors "github.com/sema-sh/sema/internal/errors"
)

// ChunkStore is the SQLite-backed durable record of files and chunks.
// WAL mode keeps readers unblocked while the coordinator writes.
type ChunkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var (
	_ ChunkWriter = (*ChunkStore)(nil)
	_ ChunkReader = (*ChunkStore)(nil)
)

// validateSQLiteIntegrity checks if the database is valid before opening.
// Returns nil if valid, an error describing corruption if not.
func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Database doesn't exist, will be created
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name IN ('files', 'chunks')`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}

	return nil
}

// NewChunkStore opens (or creates) the chunk store at path.
// An empty path creates an in-memory store for testing.
func NewChunkStore(path string) (*ChunkStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateSQLiteIntegrity(path); validErr != nil {
			slog.Warn("chunk_store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			// The store is a rebuildable cache: clear and reindex
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, semaerrors.New(semaerrors.ErrCodeCorruptIndex,
					fmt.Sprintf("chunk store corrupted at %s and cannot remove", path), removeErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("chunk_store_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}

		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, semaerrors.New(semaerrors.ErrCodeStoreOpen, "failed to open chunk store", err)
	}

	// Single writer prevents lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &ChunkStore{
		db:   db,
		path: path,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the files and chunks tables.
func (s *ChunkStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS files (
		path         TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL,
		size         INTEGER NOT NULL,
		mod_time     INTEGER NOT NULL,
		chunk_count  INTEGER NOT NULL,
		indexed_at   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		file_path   TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content     TEXT NOT NULL,
		start_line  INTEGER NOT NULL,
		end_line    INTEGER NOT NULL,
		file_hash   TEXT NOT NULL,
		language    TEXT NOT NULL DEFAULT '',
		UNIQUE(file_path, chunk_index)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_file_path ON chunks(file_path);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ApplyBatch applies one indexing run's writes in a single transaction:
// delete all rows for deletePaths, upsert file entries, insert-or-replace
// chunks. A failure rolls the whole batch back.
func (s *ChunkStore) ApplyBatch(ctx context.Context, deletePaths []string, files []FileEntry, chunks []chunker.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("chunk store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return semaerrors.New(semaerrors.ErrCodeTxFailed, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteChunks, err := tx.PrepareContext(ctx,
		`DELETE FROM chunks WHERE file_path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk delete: %w", err)
	}
	defer deleteChunks.Close()

	deleteFile, err := tx.PrepareContext(ctx,
		`DELETE FROM files WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare file delete: %w", err)
	}
	defer deleteFile.Close()

	for _, path := range deletePaths {
		if _, err := deleteChunks.ExecContext(ctx, path); err != nil {
			return semaerrors.New(semaerrors.ErrCodeTxFailed,
				fmt.Sprintf("failed to delete chunks for %s", path), err)
		}
		if _, err := deleteFile.ExecContext(ctx, path); err != nil {
			return semaerrors.New(semaerrors.ErrCodeTxFailed,
				fmt.Sprintf("failed to delete file row for %s", path), err)
		}
	}

	upsertFile, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO files (path, content_hash, size, mod_time, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare file upsert: %w", err)
	}
	defer upsertFile.Close()

	for _, f := range files {
		if _, err := upsertFile.ExecContext(ctx,
			f.Path, f.ContentHash, f.Size, f.ModTime.Unix(), f.ChunkCount, f.IndexedAt.Unix()); err != nil {
			return semaerrors.New(semaerrors.ErrCodeTxFailed,
				fmt.Sprintf("failed to upsert file %s", f.Path), err)
		}
	}

	insertChunk, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, file_path, chunk_index, content, start_line, end_line, file_hash, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer insertChunk.Close()

	for _, c := range chunks {
		if _, err := insertChunk.ExecContext(ctx,
			c.ID, c.FilePath, c.ChunkIndex, c.Content, c.StartLine, c.EndLine, c.FileHash, c.Language); err != nil {
			return semaerrors.New(semaerrors.ErrCodeTxFailed,
				fmt.Sprintf("failed to insert chunk %s", c.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return semaerrors.New(semaerrors.ErrCodeTxFailed, "failed to commit batch", err)
	}
	return nil
}

// FileHashes returns the content fingerprint on record for every path.
func (s *ChunkStore) FileHashes(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, content_hash FROM files`)
	if err != nil {
		return nil, fmt.Errorf("failed to query file hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan file hash: %w", err)
		}
		hashes[path] = hash
	}

	return hashes, rows.Err()
}

// ChunkIDsForPath returns the IDs of all stored chunks of one file,
// in chunk order.
func (s *ChunkStore) ChunkIDsForPath(ctx context.Context, path string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE file_path = ? ORDER BY chunk_index`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ChunksByIDs fetches chunks by ID. Missing IDs are skipped; callers
// tolerate the lexical index briefly referencing superseded chunks.
func (s *ChunkStore) ChunksByIDs(ctx context.Context, ids []string) ([]chunker.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, file_path, chunk_index, content, start_line, end_line, file_hash, language
		FROM chunks WHERE id IN (%s)`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]chunker.Chunk, len(ids))
	for rows.Next() {
		var c chunker.Chunk
		if err := rows.Scan(&c.ID, &c.FilePath, &c.ChunkIndex, &c.Content,
			&c.StartLine, &c.EndLine, &c.FileHash, &c.Language); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve the caller's (ranked) order
	chunks := make([]chunker.Chunk, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			chunks = append(chunks, c)
		}
	}

	return chunks, nil
}

// AllPaths returns every file path on record.
func (s *ChunkStore) AllPaths(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, path)
	}

	return paths, rows.Err()
}

// Stats reports file and chunk counts plus on-disk size.
func (s *ChunkStore) Stats(ctx context.Context) (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	stats := &StoreStats{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&stats.FileCount); err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&stats.ChunkCount); err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			stats.SizeBytes = info.Size()
		}
	}

	return stats, nil
}

// FileEntryFor returns the file row for path, or nil when absent.
func (s *ChunkStore) FileEntryFor(ctx context.Context, path string) (*FileEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("chunk store is closed")
	}

	var (
		entry              FileEntry
		modTime, indexedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT path, content_hash, size, mod_time, chunk_count, indexed_at
		FROM files WHERE path = ?`, path).
		Scan(&entry.Path, &entry.ContentHash, &entry.Size, &modTime, &entry.ChunkCount, &indexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file entry: %w", err)
	}

	entry.ModTime = time.Unix(modTime, 0)
	entry.IndexedAt = time.Unix(indexedAt, 0)
	return &entry, nil
}

// Close closes the database.
func (s *ChunkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
