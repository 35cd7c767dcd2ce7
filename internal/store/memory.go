package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

const memoryColumns = `memory_id, chat_id, category, retention, importance_score,
	novelty_score, relevance_score, actionability_score, namespace, created_at, %s,
	access_count, last_accessed, summary, searchable_content, payload`

const insertColumns = `memory_id, chat_id, category, retention, importance_score,
	novelty_score, relevance_score, actionability_score, namespace, created_at,
	access_count, last_accessed, summary, searchable_content, payload`

// selectFrom returns the memory column list for table. long_term_memory has
// no expires_at column.
func selectFrom(table string) string {
	expires := "expires_at"
	if table != "short_term_memory" {
		expires = "NULL AS expires_at"
	}
	return "SELECT " + fmt.Sprintf(memoryColumns, expires) + " FROM " + table
}

// StoreMemory validates and writes a memory. The row and its mirror entry are
// written in one batch; a memory with the same id in either table of the same
// namespace is replaced. Reusing an id from another namespace fails with
// ErrIDConflict and leaves that row untouched.
func (s *SQLiteStore) StoreMemory(ctx context.Context, p StoreMemoryParams) (mem *model.MemoryRecord, err error) {
	defer func(start time.Time) { s.observe(ctx, "store_memory", start, err) }(time.Now())

	m := p.Memory
	if p.Namespace != "" {
		m.Namespace = p.Namespace
	}
	if p.ChatID != "" {
		m.ChatID = p.ChatID
	}
	if err := validateMemory(&m); err != nil {
		return nil, err
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	m.CreatedAt = m.CreatedAt.UTC()
	if m.ID == "" {
		m.ID = s.newID(m.CreatedAt)
	}
	m.ExpiresAt = nil
	if m.Retention == model.RetentionShortTerm {
		exp := m.CreatedAt.Add(model.ShortTermTTL)
		m.ExpiresAt = &exp
	}

	guards := ownershipGuards("memory_id", m.ID, m.Namespace, "short_term_memory", "long_term_memory")
	res, err := s.ExecuteAtomic(ctx, append(guards, s.storeMemoryOps(&m)...)...)
	if err != nil {
		return nil, guardErr(res, len(guards), "memory_id", err)
	}
	return &m, nil
}

func (s *SQLiteStore) storeMemoryOps(m *model.MemoryRecord) []Op {
	target := m.Table()
	other := "long_term_memory"
	if target == "long_term_memory" {
		other = "short_term_memory"
	}

	cols := insertColumns
	placeholders := "?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?"
	args := []any{
		m.ID, nullString(m.ChatID), string(m.Category), string(m.Retention), m.ImportanceScore,
		m.NoveltyScore, m.RelevanceScore, m.ActionabilityScore, m.Namespace, formatTime(m.CreatedAt),
		m.AccessCount, nullTime(m.LastAccessed), m.Summary, m.SearchableContent, nullBytes(m.Payload),
	}
	if m.ExpiresAt != nil {
		cols += ", expires_at"
		placeholders += ", ?"
		args = append(args, formatTime(*m.ExpiresAt))
	}

	ops := []Op{
		{
			Name:       "remove from " + other,
			Query:      "DELETE FROM " + other + " WHERE memory_id = ? AND namespace = ?",
			Args:       []any{m.ID, m.Namespace},
			ExpectRows: AnyRows,
		},
		{
			Name:       "insert " + target,
			Query:      "INSERT OR REPLACE INTO " + target + " (" + cols + ") VALUES (" + placeholders + ")",
			Args:       args,
			ExpectRows: 1,
		},
	}
	if s.ftsAvailable {
		ops = append(ops,
			Op{
				Name:       "unindex",
				Query:      "DELETE FROM memory_search_fts WHERE memory_id = ? AND namespace = ?",
				Args:       []any{m.ID, m.Namespace},
				ExpectRows: AnyRows,
			},
			Op{
				Name: "index",
				Query: `INSERT INTO memory_search_fts (memory_id, memory_type, namespace, category, summary, searchable_content)
					VALUES (?, ?, ?, ?, ?, ?)`,
				Args:       []any{m.ID, model.MemoryType(m.Retention), m.Namespace, string(m.Category), m.Summary, m.SearchableContent},
				ExpectRows: AnyRows,
			},
		)
	}
	return ops
}

// GetMemory retrieves a live memory by id and records the access.
func (s *SQLiteStore) GetMemory(ctx context.Context, namespace, id string) (*model.MemoryRecord, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	now := formatTime(s.now())
	query := selectFrom("short_term_memory") + ` WHERE namespace = ? AND memory_id = ? AND expires_at > ?
		UNION ALL ` + selectFrom("long_term_memory") + ` WHERE namespace = ? AND memory_id = ?`

	row := s.db.QueryRowContext(ctx, query, namespace, id, now, namespace, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, namespace, id)
	}
	if err != nil {
		return nil, storageErr("get memory", err)
	}

	if err := s.TouchMemories(ctx, namespace, []string{m.ID}); err != nil {
		s.logger.Warn("access tracking failed", "memory_id", m.ID, "error", err)
	} else {
		m.AccessCount++
		t := s.now().UTC()
		m.LastAccessed = &t
	}
	return &m, nil
}

// ListMemories lists live memories newest first.
func (s *SQLiteStore) ListMemories(ctx context.Context, p ListParams) ([]model.MemoryRecord, error) {
	if err := validateNamespace(p.Namespace); err != nil {
		return nil, err
	}
	limit := p.Limit
	if limit == 0 {
		limit = 20
	}
	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	q := MemoryQuery{Namespace: p.Namespace, Limit: limit}
	if p.Category != "" {
		q.Categories = []model.Category{p.Category}
	}
	tables := []string{"short_term_memory", "long_term_memory"}
	switch p.Retention {
	case model.RetentionShortTerm:
		tables = tables[:1]
	case model.RetentionLongTerm, model.RetentionPermanent:
		tables = tables[1:]
	}

	var parts []string
	var args []any
	for _, table := range tables {
		f := s.baseFilter(table, q)
		if p.Retention != "" {
			f.add("retention = ?", string(p.Retention))
		}
		parts = append(parts, selectFrom(table)+f.where())
		args = append(args, f.args...)
	}
	query := strings.Join(parts, " UNION ALL ") + " ORDER BY created_at DESC, memory_id DESC LIMIT ?"
	args = append(args, limit)

	memories, err := s.queryMemories(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list memories", err)
	}
	return memories, nil
}

// TouchMemories increments access_count and sets last_accessed for ids.
func (s *SQLiteStore) TouchMemories(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := validateNamespace(namespace); err != nil {
		return err
	}

	placeholders := make([]string, len(ids))
	args := []any{formatTime(s.now()), namespace}
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	in := strings.Join(placeholders, ",")

	var ops []Op
	for _, table := range []string{"short_term_memory", "long_term_memory"} {
		ops = append(ops, Op{
			Name: "touch " + table,
			Query: "UPDATE " + table + ` SET access_count = access_count + 1, last_accessed = ?
				WHERE namespace = ? AND memory_id IN (` + in + `)`,
			Args:       args,
			ExpectRows: AnyRows,
		})
	}
	_, err := s.ExecuteAtomic(ctx, ops...)
	return err
}

// PromoteMemory moves a live short-term memory into long-term storage,
// clearing its expiry. Promotion is never automatic.
func (s *SQLiteStore) PromoteMemory(ctx context.Context, namespace, id string) (mem *model.MemoryRecord, err error) {
	defer func(start time.Time) { s.observe(ctx, "promote_memory", start, err) }(time.Now())

	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	ops := []Op{
		{
			Name: "copy to long_term_memory",
			Query: `INSERT INTO long_term_memory (` + insertColumns + `)
				SELECT memory_id, chat_id, category, ?, importance_score,
					novelty_score, relevance_score, actionability_score, namespace, created_at,
					access_count, last_accessed, summary, searchable_content, payload
				FROM short_term_memory WHERE namespace = ? AND memory_id = ? AND expires_at > ?`,
			Args:       []any{string(model.RetentionLongTerm), namespace, id, formatTime(s.now())},
			ExpectRows: 1,
		},
		{
			Name:       "remove from short_term_memory",
			Query:      `DELETE FROM short_term_memory WHERE namespace = ? AND memory_id = ?`,
			Args:       []any{namespace, id},
			ExpectRows: 1,
		},
	}
	if s.ftsAvailable {
		ops = append(ops, Op{
			Name:       "retag index",
			Query:      `UPDATE memory_search_fts SET memory_type = ? WHERE memory_id = ? AND namespace = ?`,
			Args:       []any{model.MemoryType(model.RetentionLongTerm), id, namespace},
			ExpectRows: AnyRows,
		})
	}

	res, err := s.ExecuteAtomic(ctx, ops...)
	if err != nil {
		if res.FailedOp == 0 && errors.Is(err, ErrRowCountMismatch) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, namespace, id)
		}
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, selectFrom("long_term_memory")+` WHERE namespace = ? AND memory_id = ?`, namespace, id)
	m, err := scanMemory(row)
	if err != nil {
		return nil, storageErr("read promoted memory", err)
	}
	return &m, nil
}

// CleanupExpired physically removes expired short-term memories and their
// mirror rows. An empty namespace cleans every namespace.
func (s *SQLiteStore) CleanupExpired(ctx context.Context, namespace string) (n int64, err error) {
	defer func(start time.Time) { s.observe(ctx, "cleanup_expired", start, err) }(time.Now())

	where := "expires_at <= ?"
	args := []any{formatTime(s.now())}
	if namespace != "" {
		where += " AND namespace = ?"
		args = append(args, namespace)
	}

	var ops []Op
	if s.ftsAvailable {
		ops = append(ops, Op{
			Name:       "unindex expired",
			Query:      "DELETE FROM memory_search_fts WHERE memory_id IN (SELECT memory_id FROM short_term_memory WHERE " + where + ")",
			Args:       args,
			ExpectRows: AnyRows,
		})
	}
	ops = append(ops, Op{
		Name:       "delete expired",
		Query:      "DELETE FROM short_term_memory WHERE " + where,
		Args:       args,
		ExpectRows: AnyRows,
	})

	res, err := s.ExecuteAtomic(ctx, ops...)
	if err != nil {
		return 0, err
	}
	n = res.RowsAffected[len(res.RowsAffected)-1]
	if n > 0 {
		s.logger.Info("expired memories removed", "namespace", namespace, "count", n)
	}
	return n, nil
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...any) ([]model.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.MemoryRecord
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.MemoryRecord, error) {
	var m model.MemoryRecord
	var chatID, expiresAt, lastAccessed sql.NullString
	var category, retention, createdAt string
	var payload []byte

	err := row.Scan(
		&m.ID, &chatID, &category, &retention, &m.ImportanceScore,
		&m.NoveltyScore, &m.RelevanceScore, &m.ActionabilityScore, &m.Namespace, &createdAt, &expiresAt,
		&m.AccessCount, &lastAccessed, &m.Summary, &m.SearchableContent, &payload,
	)
	if err != nil {
		return m, err
	}

	m.Category = model.Category(category)
	m.Retention = model.Retention(retention)
	m.CreatedAt = parseTime(createdAt)
	if chatID.Valid {
		m.ChatID = chatID.String
	}
	if expiresAt.Valid {
		t := parseTime(expiresAt.String)
		m.ExpiresAt = &t
	}
	if lastAccessed.Valid {
		t := parseTime(lastAccessed.String)
		m.LastAccessed = &t
	}
	if len(payload) > 0 {
		m.Payload = payload
	}
	return m, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
