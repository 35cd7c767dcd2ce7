package store

import (
	"context"
	"database/sql"
	"fmt"
)

const coreSchema = `
	CREATE TABLE IF NOT EXISTS chat_history (
		chat_id     TEXT PRIMARY KEY,
		user_input  TEXT NOT NULL,
		ai_output   TEXT NOT NULL,
		model       TEXT NOT NULL DEFAULT '',
		timestamp   TEXT NOT NULL,
		session_id  TEXT NOT NULL DEFAULT '',
		namespace   TEXT NOT NULL CHECK (namespace <> ''),
		tokens_used INTEGER NOT NULL DEFAULT 0,
		metadata    TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_chat_ns_session ON chat_history(namespace, session_id, timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_chat_ns_time ON chat_history(namespace, timestamp DESC);

	CREATE TABLE IF NOT EXISTS short_term_memory (
		memory_id           TEXT PRIMARY KEY,
		chat_id             TEXT,
		payload             BLOB,
		importance_score    REAL NOT NULL CHECK (importance_score BETWEEN 0 AND 1),
		novelty_score       REAL NOT NULL DEFAULT 0,
		relevance_score     REAL NOT NULL DEFAULT 0,
		actionability_score REAL NOT NULL DEFAULT 0,
		category            TEXT NOT NULL,
		retention           TEXT NOT NULL,
		namespace           TEXT NOT NULL CHECK (namespace <> ''),
		created_at          TEXT NOT NULL,
		expires_at          TEXT NOT NULL,
		access_count        INTEGER NOT NULL DEFAULT 0,
		last_accessed       TEXT,
		searchable_content  TEXT NOT NULL,
		summary             TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stm_ns_created ON short_term_memory(namespace, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_stm_ns_category ON short_term_memory(namespace, category);
	CREATE INDEX IF NOT EXISTS idx_stm_expires ON short_term_memory(expires_at);
	CREATE INDEX IF NOT EXISTS idx_stm_importance ON short_term_memory(namespace, importance_score DESC);

	CREATE TABLE IF NOT EXISTS long_term_memory (
		memory_id           TEXT PRIMARY KEY,
		chat_id             TEXT,
		payload             BLOB,
		importance_score    REAL NOT NULL CHECK (importance_score BETWEEN 0 AND 1),
		novelty_score       REAL NOT NULL DEFAULT 0,
		relevance_score     REAL NOT NULL DEFAULT 0,
		actionability_score REAL NOT NULL DEFAULT 0,
		category            TEXT NOT NULL,
		retention           TEXT NOT NULL,
		namespace           TEXT NOT NULL CHECK (namespace <> ''),
		created_at          TEXT NOT NULL,
		access_count        INTEGER NOT NULL DEFAULT 0,
		last_accessed       TEXT,
		searchable_content  TEXT NOT NULL,
		summary             TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ltm_ns_created ON long_term_memory(namespace, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_ltm_ns_category ON long_term_memory(namespace, category);
	CREATE INDEX IF NOT EXISTS idx_ltm_importance ON long_term_memory(namespace, importance_score DESC);
	`

// minimalSchema is used when coreSchema cannot be applied, e.g. against a
// database created by an older layout. No indexes, no constraints.
var minimalSchema = []string{
	`CREATE TABLE IF NOT EXISTS chat_history (
		chat_id TEXT PRIMARY KEY, user_input TEXT, ai_output TEXT, model TEXT,
		timestamp TEXT, session_id TEXT, namespace TEXT, tokens_used INTEGER, metadata TEXT)`,
	`CREATE TABLE IF NOT EXISTS short_term_memory (
		memory_id TEXT PRIMARY KEY, chat_id TEXT, payload BLOB, importance_score REAL,
		novelty_score REAL DEFAULT 0, relevance_score REAL DEFAULT 0, actionability_score REAL DEFAULT 0,
		category TEXT, retention TEXT, namespace TEXT, created_at TEXT, expires_at TEXT,
		access_count INTEGER DEFAULT 0, last_accessed TEXT, searchable_content TEXT, summary TEXT)`,
	`CREATE TABLE IF NOT EXISTS long_term_memory (
		memory_id TEXT PRIMARY KEY, chat_id TEXT, payload BLOB, importance_score REAL,
		novelty_score REAL DEFAULT 0, relevance_score REAL DEFAULT 0, actionability_score REAL DEFAULT 0,
		category TEXT, retention TEXT, namespace TEXT, created_at TEXT,
		access_count INTEGER DEFAULT 0, last_accessed TEXT, searchable_content TEXT, summary TEXT)`,
}

const ftsSchema = `
	CREATE VIRTUAL TABLE IF NOT EXISTS memory_search_fts USING fts5(
		memory_id UNINDEXED,
		memory_type UNINDEXED,
		namespace UNINDEXED,
		category UNINDEXED,
		summary,
		searchable_content
	)`

// storagePragmas are re-applied on the schema connection; the DSN carries
// the same settings for every other pooled connection.
var storagePragmas = []string{
	`PRAGMA journal_mode=WAL`,
	`PRAGMA synchronous=NORMAL`,
	`PRAGMA cache_size=-64000`,
}

// initializeSchema creates the tables and, when probeFTS is set and the
// engine supports it, the full-text mirror.
func (s *SQLiteStore) initializeSchema(ctx context.Context, probeFTS bool) error {
	return s.Acquire(ctx, func(conn *sql.Conn) error {
		for _, p := range storagePragmas {
			if _, err := conn.ExecContext(ctx, p); err != nil {
				s.logger.Warn("pragma failed", "pragma", p, "error", err)
			}
		}

		if _, err := conn.ExecContext(ctx, coreSchema); err != nil {
			s.logger.Warn("schema creation failed, falling back to minimal schema", "error", err)
			for _, stmt := range minimalSchema {
				if _, err := conn.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("minimal schema: %w", err)
				}
			}
		}

		if !probeFTS {
			s.logger.Info("full-text search disabled, using LIKE search")
			return nil
		}
		if !probeFullText(ctx, conn) {
			s.logger.Warn("FTS5 not available, falling back to LIKE search", "driver", s.driver)
			return nil
		}
		if _, err := conn.ExecContext(ctx, ftsSchema); err != nil {
			s.logger.Warn("full-text mirror creation failed, falling back to LIKE search", "error", err)
			return nil
		}
		s.ftsAvailable = true

		if err := syncMirror(ctx, conn); err != nil {
			s.logger.Warn("full-text mirror resync failed", "error", err)
		}
		return nil
	})
}

// probeFullText creates and drops a throwaway FTS5 table.
func probeFullText(ctx context.Context, conn *sql.Conn) bool {
	if _, err := conn.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS fts_probe USING fts5(x)`); err != nil {
		return false
	}
	_, _ = conn.ExecContext(ctx, `DROP TABLE IF EXISTS fts_probe`)
	return true
}

// syncMirror drops orphaned mirror rows and indexes rows written while the
// mirror was unavailable.
func syncMirror(ctx context.Context, conn *sql.Conn) error {
	stmts := []string{
		`DELETE FROM memory_search_fts WHERE memory_id NOT IN (
			SELECT memory_id FROM short_term_memory UNION ALL SELECT memory_id FROM long_term_memory)`,
		`INSERT INTO memory_search_fts (memory_id, memory_type, namespace, category, summary, searchable_content)
			SELECT memory_id, 'short_term', namespace, category, summary, searchable_content FROM short_term_memory
			WHERE memory_id NOT IN (SELECT memory_id FROM memory_search_fts)`,
		`INSERT INTO memory_search_fts (memory_id, memory_type, namespace, category, summary, searchable_content)
			SELECT memory_id, 'long_term', namespace, category, summary, searchable_content FROM long_term_memory
			WHERE memory_id NOT IN (SELECT memory_id FROM memory_search_fts)`,
	}
	for _, stmt := range stmts {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
