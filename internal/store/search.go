package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// ErrFullTextUnavailable is returned by SearchFullText in LIKE-only mode.
var ErrFullTextUnavailable = errors.New("full-text index unavailable")

// MemoryQuery selects memory rows for one search strategy. Every strategy
// is scoped to a namespace, skips expired short-term rows, and honors the
// category and importance filters.
type MemoryQuery struct {
	Namespace     string
	Text          string
	Terms         []string
	Categories    []model.Category
	MinImportance float64
	Limit         int
	// Rank orders candidates by the composite score before Limit applies.
	// Nil orders by importance, then recency.
	Rank *Ranking
}

// Ranking is the query-independent part of the composite score:
// ImportanceWeight*importance + RecencyWeight*clamp(1 - age_days/WindowDays).
// The strategy term is constant within one strategy, so ordering by this
// expression keeps the rows that rank highest after merging.
type Ranking struct {
	ImportanceWeight float64
	RecencyWeight    float64
	WindowDays       float64
	Now              time.Time
}

// filter accumulates parameterized WHERE clauses.
type filter struct {
	clauses []string
	args    []any
}

func (f *filter) add(clause string, args ...any) {
	f.clauses = append(f.clauses, clause)
	f.args = append(f.args, args...)
}

func (f *filter) where() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

func (s *SQLiteStore) baseFilter(table string, q MemoryQuery) *filter {
	f := &filter{}
	f.add("namespace = ?", q.Namespace)
	if table == "short_term_memory" {
		f.add("expires_at > ?", formatTime(s.now()))
	}
	if len(q.Categories) > 0 {
		ph := make([]string, len(q.Categories))
		args := make([]any, len(q.Categories))
		for i, c := range q.Categories {
			ph[i] = "?"
			args[i] = string(c)
		}
		f.add("category IN ("+strings.Join(ph, ",")+")", args...)
	}
	if q.MinImportance > 0 {
		f.add("importance_score >= ?", q.MinImportance)
	}
	return f
}

// run unions both tables under per-table filters built by extra.
func (s *SQLiteStore) run(ctx context.Context, op string, q MemoryQuery, extra func(f *filter)) ([]model.MemoryRecord, error) {
	if err := validateNamespace(q.Namespace); err != nil {
		return nil, err
	}
	if err := validateLimit(q.Limit); err != nil {
		return nil, err
	}

	var parts []string
	var args []any
	for _, table := range []string{"short_term_memory", "long_term_memory"} {
		f := s.baseFilter(table, q)
		if extra != nil {
			extra(f)
		}
		parts = append(parts, selectFrom(table)+f.where())
		args = append(args, f.args...)
	}
	order := " ORDER BY importance_score DESC, created_at DESC, memory_id"
	if r := q.Rank; r != nil && r.WindowDays > 0 {
		order = ` ORDER BY (? * importance_score +
			? * max(0.0, min(1.0, 1.0 - (julianday(?) - julianday(created_at)) / ?))) DESC,
			importance_score DESC, created_at DESC, memory_id`
		args = append(args, r.ImportanceWeight, r.RecencyWeight, formatTime(r.Now), r.WindowDays)
	}
	// Compound selects cannot order by expressions, so wrap the union.
	query := "SELECT * FROM (" + strings.Join(parts, " UNION ALL ") + ")" + order + " LIMIT ?"
	args = append(args, q.Limit)

	memories, err := s.queryMemories(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	return memories, nil
}

// SearchFullText matches the escaped query against the full-text mirror.
func (s *SQLiteStore) SearchFullText(ctx context.Context, q MemoryQuery) ([]model.MemoryRecord, error) {
	if !s.ftsAvailable {
		return nil, ErrFullTextUnavailable
	}
	match := EscapeFullText(q.Text)
	if match == "" {
		return nil, nil
	}
	return s.run(ctx, "full-text search", q, func(f *filter) {
		f.add(`memory_id IN (SELECT memory_id FROM memory_search_fts
			WHERE memory_search_fts MATCH ? AND namespace = ?)`, match, q.Namespace)
	})
}

// SearchByCategory returns rows in q.Categories whose summary or searchable
// content contains q.Text.
func (s *SQLiteStore) SearchByCategory(ctx context.Context, q MemoryQuery) ([]model.MemoryRecord, error) {
	if len(q.Categories) == 0 {
		return nil, nil
	}
	return s.run(ctx, "category search", q, func(f *filter) {
		if q.Text != "" {
			addContains(f, []string{q.Text})
		}
	})
}

// SearchByImportance returns rows at or above q.MinImportance regardless of text.
func (s *SQLiteStore) SearchByImportance(ctx context.Context, q MemoryQuery) ([]model.MemoryRecord, error) {
	return s.run(ctx, "importance search", q, nil)
}

// SearchLike is the case-insensitive substring fallback. A row matches when
// it contains q.Text or any of q.Terms.
func (s *SQLiteStore) SearchLike(ctx context.Context, q MemoryQuery) ([]model.MemoryRecord, error) {
	needles := make([]string, 0, len(q.Terms)+1)
	if q.Text != "" {
		needles = append(needles, q.Text)
	}
	for _, t := range q.Terms {
		if t != "" && t != q.Text {
			needles = append(needles, t)
		}
	}
	return s.run(ctx, "like search", q, func(f *filter) {
		if len(needles) > 0 {
			addContains(f, needles)
		}
	})
}

// addContains ORs a case-insensitive substring match per needle.
func addContains(f *filter, needles []string) {
	var ors []string
	var args []any
	for _, n := range needles {
		pattern := "%" + escapeLike(strings.ToLower(n)) + "%"
		ors = append(ors, `LOWER(summary) LIKE ? ESCAPE '\'`, `LOWER(searchable_content) LIKE ? ESCAPE '\'`)
		args = append(args, pattern, pattern)
	}
	f.add("("+strings.Join(ors, " OR ")+")", args...)
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}

// EscapeFullText turns free text into a single FTS5 phrase: internal double
// quotes are doubled and the whole query is wrapped in quotes.
func EscapeFullText(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}
