package store

import (
	"context"
	"os"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// Stats holds per-namespace counts.
type Stats struct {
	Namespace         string                   `json:"namespace"`
	ChatCount         int64                    `json:"chat_count"`
	ShortTermCount    int64                    `json:"short_term_count"`
	LongTermCount     int64                    `json:"long_term_count"`
	ExpiredShortTerm  int64                    `json:"expired_short_term"`
	Categories        map[model.Category]int64 `json:"categories"`
	AverageImportance float64                  `json:"average_importance"`
}

// DatabaseStats describes the database file as a whole.
type DatabaseStats struct {
	DBPath            string           `json:"db_path"`
	DBSizeBytes       int64            `json:"db_size_bytes"`
	Driver            string           `json:"driver"`
	FullTextAvailable bool             `json:"full_text_available"`
	Namespaces        []NamespaceStats `json:"namespaces"`
}

// NamespaceStats holds the live memory and chat counts of one namespace.
type NamespaceStats struct {
	Namespace string `json:"namespace"`
	Memories  int64  `json:"memories"`
	Chats     int64  `json:"chats"`
}

// GetStats returns counts for namespace. An unknown namespace yields zeros.
// Short-term counts cover live rows only; expired rows awaiting cleanup are
// reported separately.
func (s *SQLiteStore) GetStats(ctx context.Context, namespace string) (*Stats, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}
	now := formatTime(s.now())
	st := &Stats{Namespace: namespace, Categories: map[model.Category]int64{}}

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&st.ChatCount, `SELECT COUNT(*) FROM chat_history WHERE namespace = ?`, []any{namespace}},
		{&st.ShortTermCount, `SELECT COUNT(*) FROM short_term_memory WHERE namespace = ? AND expires_at > ?`, []any{namespace, now}},
		{&st.ExpiredShortTerm, `SELECT COUNT(*) FROM short_term_memory WHERE namespace = ? AND expires_at <= ?`, []any{namespace, now}},
		{&st.LongTermCount, `SELECT COUNT(*) FROM long_term_memory WHERE namespace = ?`, []any{namespace}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, storageErr("stats", err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*), COALESCE(SUM(importance_score), 0) FROM (
			SELECT category, importance_score FROM short_term_memory WHERE namespace = ? AND expires_at > ?
			UNION ALL
			SELECT category, importance_score FROM long_term_memory WHERE namespace = ?
		) GROUP BY category`, namespace, now, namespace)
	if err != nil {
		return nil, storageErr("stats", err)
	}
	defer rows.Close()

	var total int64
	var sum float64
	for rows.Next() {
		var cat string
		var n int64
		var weight float64
		if err := rows.Scan(&cat, &n, &weight); err != nil {
			return nil, storageErr("stats", err)
		}
		st.Categories[model.Category(cat)] = n
		total += n
		sum += weight
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("stats", err)
	}
	if total > 0 {
		st.AverageImportance = sum / float64(total)
	}

	s.metrics.SetStorageCount(ctx, "chat", st.ChatCount)
	s.metrics.SetStorageCount(ctx, "short_term", st.ShortTermCount)
	s.metrics.SetStorageCount(ctx, "long_term", st.LongTermCount)
	return st, nil
}

// ListNamespaces returns every namespace holding chats or live memories.
func (s *SQLiteStore) ListNamespaces(ctx context.Context) ([]NamespaceStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT namespace, SUM(mem), SUM(chat) FROM (
			SELECT namespace, 1 AS mem, 0 AS chat FROM short_term_memory WHERE expires_at > ?
			UNION ALL
			SELECT namespace, 1, 0 FROM long_term_memory
			UNION ALL
			SELECT namespace, 0, 1 FROM chat_history
		) GROUP BY namespace ORDER BY namespace`, formatTime(s.now()))
	if err != nil {
		return nil, storageErr("list namespaces", err)
	}
	defer rows.Close()

	var out []NamespaceStats
	for rows.Next() {
		var ns NamespaceStats
		if err := rows.Scan(&ns.Namespace, &ns.Memories, &ns.Chats); err != nil {
			return nil, storageErr("list namespaces", err)
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}

// DatabaseStats returns file-level statistics across all namespaces.
func (s *SQLiteStore) DatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	st := &DatabaseStats{
		DBPath:            s.path,
		Driver:            s.driver,
		FullTextAvailable: s.ftsAvailable,
	}
	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}
	ns, err := s.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	st.Namespaces = ns
	return st, nil
}
