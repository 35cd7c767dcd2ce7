package store

import (
	"context"
	"errors"
	"time"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// Dump is a portable snapshot of one namespace.
type Dump struct {
	Namespace  string               `json:"namespace"`
	ExportedAt time.Time            `json:"exported_at"`
	Chats      []model.ChatRecord   `json:"chats"`
	Memories   []model.MemoryRecord `json:"memories"`
}

// ImportResult counts rows written by Import.
type ImportResult struct {
	Chats    int `json:"chats"`
	Memories int `json:"memories"`
	// Skipped counts expired short-term memories that were not restored.
	Skipped int `json:"skipped"`
	// Conflicts counts rows whose id already belongs to another namespace.
	Conflicts int `json:"conflicts"`
}

// Export returns every chat and live memory of namespace, oldest first.
func (s *SQLiteStore) Export(ctx context.Context, namespace string) (*Dump, error) {
	if err := validateNamespace(namespace); err != nil {
		return nil, err
	}

	d := &Dump{Namespace: namespace, ExportedAt: s.now().UTC()}

	chats, err := s.queryChats(ctx, `SELECT chat_id, user_input, ai_output, model, timestamp, session_id, namespace, tokens_used, metadata
		FROM chat_history WHERE namespace = ? ORDER BY timestamp, chat_id`, namespace)
	if err != nil {
		return nil, storageErr("export chats", err)
	}
	d.Chats = chats

	q := MemoryQuery{Namespace: namespace}
	var args []any
	short := s.baseFilter("short_term_memory", q)
	long := s.baseFilter("long_term_memory", q)
	args = append(args, short.args...)
	args = append(args, long.args...)
	query := selectFrom("short_term_memory") + short.where() +
		" UNION ALL " + selectFrom("long_term_memory") + long.where() +
		" ORDER BY created_at, memory_id"

	memories, err := s.queryMemories(ctx, query, args...)
	if err != nil {
		return nil, storageErr("export memories", err)
	}
	d.Memories = memories
	return d, nil
}

// Import writes a dump into namespace, or into the dump's own namespace when
// namespace is empty. Existing ids are replaced, so re-importing is
// idempotent. Short-term memories keep their original creation time and
// therefore their original expiry.
func (s *SQLiteStore) Import(ctx context.Context, namespace string, d *Dump) (ImportResult, error) {
	var res ImportResult
	if namespace == "" {
		namespace = d.Namespace
	}
	if err := validateNamespace(namespace); err != nil {
		return res, err
	}

	for _, c := range d.Chats {
		c.Namespace = namespace
		if _, err := s.StoreChat(ctx, c); err != nil {
			if errors.Is(err, ErrIDConflict) {
				s.logger.Warn("import skipped chat", "chat_id", c.ID, "namespace", namespace, "error", err)
				res.Conflicts++
				continue
			}
			return res, err
		}
		res.Chats++
	}

	now := s.now()
	for _, m := range d.Memories {
		if m.Retention == model.RetentionShortTerm && !m.CreatedAt.IsZero() &&
			!m.CreatedAt.Add(model.ShortTermTTL).After(now) {
			res.Skipped++
			continue
		}
		if _, err := s.StoreMemory(ctx, StoreMemoryParams{Memory: m, Namespace: namespace}); err != nil {
			if errors.Is(err, ErrIDConflict) {
				s.logger.Warn("import skipped memory", "memory_id", m.ID, "namespace", namespace, "error", err)
				res.Conflicts++
				continue
			}
			return res, err
		}
		res.Memories++
	}

	s.logger.Info("import complete", "namespace", namespace,
		"chats", res.Chats, "memories", res.Memories, "skipped", res.Skipped, "conflicts", res.Conflicts)
	return res, nil
}
