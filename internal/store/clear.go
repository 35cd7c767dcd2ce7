package store

import (
	"context"
	"time"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// Clear deletes the namespace's rows in scope. Memory rows and their mirror
// rows go in the same batch, so the index never keeps orphans. Returns the
// number of base-table rows removed.
func (s *SQLiteStore) Clear(ctx context.Context, namespace string, scope Scope) (n int64, err error) {
	defer func(start time.Time) { s.observe(ctx, "clear", start, err) }(time.Now())

	if err := validateNamespace(namespace); err != nil {
		return 0, err
	}

	var chat, short, long bool
	switch scope {
	case ScopeAll:
		chat, short, long = true, true, true
	case ScopeChat:
		chat = true
	case ScopeShortTerm:
		short = true
	case ScopeLongTerm:
		long = true
	case ScopeMemories:
		short, long = true, true
	default:
		return 0, invalid("scope", "unknown scope "+string(scope))
	}

	var ops []Op
	var counted []int
	addTable := func(table string, retention model.Retention) {
		if s.ftsAvailable {
			ops = append(ops, Op{
				Name:       "unindex " + table,
				Query:      `DELETE FROM memory_search_fts WHERE namespace = ? AND memory_type = ?`,
				Args:       []any{namespace, model.MemoryType(retention)},
				ExpectRows: AnyRows,
			})
		}
		counted = append(counted, len(ops))
		ops = append(ops, Op{
			Name:       "delete " + table,
			Query:      "DELETE FROM " + table + " WHERE namespace = ?",
			Args:       []any{namespace},
			ExpectRows: AnyRows,
		})
	}
	if short {
		addTable("short_term_memory", model.RetentionShortTerm)
	}
	if long {
		addTable("long_term_memory", model.RetentionLongTerm)
	}
	if chat {
		counted = append(counted, len(ops))
		ops = append(ops, Op{
			Name:       "delete chat_history",
			Query:      `DELETE FROM chat_history WHERE namespace = ?`,
			Args:       []any{namespace},
			ExpectRows: AnyRows,
		})
	}

	res, err := s.ExecuteAtomic(ctx, ops...)
	if err != nil {
		return 0, err
	}
	for _, i := range counted {
		n += res.RowsAffected[i]
	}
	s.logger.Info("namespace cleared", "namespace", namespace, "scope", string(scope), "rows", n)
	return n, nil
}
