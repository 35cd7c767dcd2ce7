// Package store provides the memory storage interface and SQLite implementation.
package store

import (
	"context"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// StoreMemoryParams holds parameters for storing a memory.
type StoreMemoryParams struct {
	Memory model.MemoryRecord
	// ChatID is the originating chat, if any. Overrides Memory.ChatID when set.
	ChatID string
	// Namespace overrides Memory.Namespace when set.
	Namespace string
}

// ListParams holds parameters for listing memories.
type ListParams struct {
	Namespace string
	Category  model.Category
	Retention model.Retention
	Limit     int
}

// Scope selects which tables Clear removes rows from.
type Scope string

const (
	ScopeAll       Scope = ""
	ScopeChat      Scope = "chat"
	ScopeShortTerm Scope = "short_term"
	ScopeLongTerm  Scope = "long_term"
	ScopeMemories  Scope = "memories"
)

// Store defines the memory storage interface.
type Store interface {
	// StoreChat inserts or replaces a chat record keyed by its id.
	StoreChat(ctx context.Context, c model.ChatRecord) (*model.ChatRecord, error)

	// StoreMemory writes a memory to its retention table and the full-text mirror.
	StoreMemory(ctx context.Context, p StoreMemoryParams) (*model.MemoryRecord, error)

	// GetChatHistory returns chats newest first, optionally scoped to a session.
	GetChatHistory(ctx context.Context, namespace, sessionID string, limit int) ([]model.ChatRecord, error)

	// GetMemory retrieves one live memory and records the access.
	GetMemory(ctx context.Context, namespace, id string) (*model.MemoryRecord, error)

	// ListMemories lists live memories newest first.
	ListMemories(ctx context.Context, p ListParams) ([]model.MemoryRecord, error)

	// GetStats returns per-namespace counts.
	GetStats(ctx context.Context, namespace string) (*Stats, error)

	// Clear deletes rows in scope together with their mirror rows.
	Clear(ctx context.Context, namespace string, scope Scope) (int64, error)

	// PromoteMemory moves a short-term memory into long-term storage.
	PromoteMemory(ctx context.Context, namespace, id string) (*model.MemoryRecord, error)

	// CleanupExpired removes expired short-term memories.
	CleanupExpired(ctx context.Context, namespace string) (int64, error)

	// Close closes the store.
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
