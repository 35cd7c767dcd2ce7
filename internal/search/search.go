// Package search implements the hybrid memory retrieval cascade.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vishalbelsare/memori-sub000/internal/metrics"
	"github.com/vishalbelsare/memori-sub000/internal/model"
	"github.com/vishalbelsare/memori-sub000/internal/store"
)

// Ranking defaults. final = StrategyWeight*strategy + ImportanceWeight*importance + RecencyWeight*recency.
const (
	DefaultStrategyWeight    = 0.4
	DefaultImportanceWeight  = 0.4
	DefaultRecencyWeight     = 0.2
	DefaultRecencyWindowDays = 30.0
	DefaultImportanceFloor   = 0.7
	DefaultLimit             = 10
)

// Base strategy scores.
const (
	ScoreFullText   = 1.0
	ScoreCategory   = 0.6
	ScoreImportance = 0.5
	ScoreLike       = 0.4
)

// Reader is the read side of the memory store used by the cascade.
// *store.SQLiteStore implements it.
type Reader interface {
	SearchFullText(ctx context.Context, q store.MemoryQuery) ([]model.MemoryRecord, error)
	SearchByCategory(ctx context.Context, q store.MemoryQuery) ([]model.MemoryRecord, error)
	SearchByImportance(ctx context.Context, q store.MemoryQuery) ([]model.MemoryRecord, error)
	SearchLike(ctx context.Context, q store.MemoryQuery) ([]model.MemoryRecord, error)
}

// Options tunes ranking and execution. Zero values take the defaults above;
// the three weights are defaulted together only when all are zero.
type Options struct {
	StrategyWeight    float64
	ImportanceWeight  float64
	RecencyWeight     float64
	RecencyWindowDays float64
	ImportanceFloor   float64
	DefaultLimit      int
	// Parallel runs the independent strategies concurrently.
	Parallel bool

	Logger  *slog.Logger
	Metrics metrics.Collector
	Now     func() time.Time
}

// ApplyDefaults fills unset options.
func ApplyDefaults(opts *Options) {
	if opts.StrategyWeight == 0 && opts.ImportanceWeight == 0 && opts.RecencyWeight == 0 {
		opts.StrategyWeight = DefaultStrategyWeight
		opts.ImportanceWeight = DefaultImportanceWeight
		opts.RecencyWeight = DefaultRecencyWeight
	}
	if opts.RecencyWindowDays <= 0 {
		opts.RecencyWindowDays = DefaultRecencyWindowDays
	}
	if opts.ImportanceFloor <= 0 {
		opts.ImportanceFloor = DefaultImportanceFloor
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopCollector()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
}

// Engine runs the strategy cascade against a Reader.
type Engine struct {
	reader Reader
	opts   Options
}

// NewEngine creates a search engine.
func NewEngine(r Reader, opts Options) *Engine {
	ApplyDefaults(&opts)
	return &Engine{reader: r, opts: opts}
}

// strategy is one step of the cascade.
type strategy struct {
	name  string
	score float64
	run   func(ctx context.Context, q store.MemoryQuery) ([]model.MemoryRecord, error)
	query store.MemoryQuery
}

type outcome struct {
	records []model.MemoryRecord
	err     error
	skipped bool
}

// Search returns the top limit memories of namespace for plan, ranked by
// composite score. A limit of 0 uses the configured default.
//
// Strategy failures are soft: a failing strategy contributes nothing. When
// every attempted strategy fails the result is empty and err is nil.
func (e *Engine) Search(ctx context.Context, namespace string, plan model.SearchPlan, limit int) (results []model.SearchResult, err error) {
	start := time.Now()
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
			e.opts.Metrics.RecordError(ctx, "search", store.ClassifyError(err))
		}
		e.opts.Metrics.RecordOperation(ctx, "search", status, time.Since(start).Milliseconds())
	}()

	if namespace == "" {
		return nil, &store.ValidationError{Field: "namespace", Reason: "must not be empty"}
	}
	if limit < 0 {
		return nil, &store.ValidationError{Field: "limit", Reason: "must be positive"}
	}
	if limit == 0 {
		limit = e.opts.DefaultLimit
	}
	if plan.MinImportance < 0 || plan.MinImportance > 1 {
		return nil, &store.ValidationError{Field: "min_importance", Reason: "must be within [0, 1]"}
	}

	now := e.opts.Now()
	base := store.MemoryQuery{
		Namespace:     namespace,
		Text:          plan.QueryText,
		Terms:         plan.EntityFilters,
		Categories:    plan.CategoryFilters,
		MinImportance: plan.MinImportance,
		Limit:         candidateLimit(limit),
		Rank: &store.Ranking{
			ImportanceWeight: e.opts.ImportanceWeight,
			RecencyWeight:    e.opts.RecencyWeight,
			WindowDays:       e.opts.RecencyWindowDays,
			Now:              now,
		},
	}

	primary := e.primaryStrategies(plan, base)
	outcomes := e.runAll(ctx, primary)

	attempted, failed, found := 0, 0, 0
	for i, o := range outcomes {
		if o.skipped {
			continue
		}
		attempted++
		if o.err != nil {
			failed++
			e.opts.Logger.Warn("search strategy failed", "strategy", primary[i].name, "namespace", namespace, "error", o.err)
			e.opts.Metrics.RecordError(ctx, "search", "strategy_failed")
			continue
		}
		found += len(o.records)
	}

	all := primary
	if found == 0 && (plan.QueryText != "" || len(plan.EntityFilters) > 0) {
		like := strategy{name: model.StrategyLike, score: ScoreLike, run: e.reader.SearchLike, query: base}
		o := e.runOne(ctx, like)
		all = append(all, like)
		outcomes = append(outcomes, o)
		attempted++
		if o.err != nil {
			failed++
			e.opts.Logger.Warn("search strategy failed", "strategy", like.name, "namespace", namespace, "error", o.err)
			e.opts.Metrics.RecordError(ctx, "search", "strategy_failed")
		}
	}

	if attempted > 0 && failed == attempted {
		e.opts.Logger.Warn("all search strategies failed", "namespace", namespace, "query", plan.QueryText)
		return []model.SearchResult{}, nil
	}

	merged := merge(all, outcomes)
	e.rank(merged, now)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// primaryStrategies selects strategies 1-3 for plan.
func (e *Engine) primaryStrategies(plan model.SearchPlan, base store.MemoryQuery) []strategy {
	var out []strategy

	wantsText := len(plan.Strategies) == 0 ||
		plan.HasStrategy(model.StrategyFullText) || plan.HasStrategy(model.StrategyGeneral)
	if wantsText && plan.QueryText != "" {
		out = append(out, strategy{name: model.StrategyFullText, score: ScoreFullText, run: e.reader.SearchFullText, query: base})
	}

	if len(plan.CategoryFilters) > 0 {
		out = append(out, strategy{name: model.StrategyCategory, score: ScoreCategory, run: e.reader.SearchByCategory, query: base})
	}

	if plan.MinImportance > 0 || plan.HasStrategy(model.StrategyImportance) {
		q := base
		q.MinImportance = max(plan.MinImportance, e.opts.ImportanceFloor)
		out = append(out, strategy{name: model.StrategyImportance, score: ScoreImportance, run: e.reader.SearchByImportance, query: q})
	}
	return out
}

func (e *Engine) runAll(ctx context.Context, strategies []strategy) []outcome {
	outcomes := make([]outcome, len(strategies))
	if !e.opts.Parallel || len(strategies) < 2 {
		for i, s := range strategies {
			outcomes[i] = e.runOne(ctx, s)
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i, s := range strategies {
		wg.Add(1)
		go func(i int, s strategy) {
			defer wg.Done()
			outcomes[i] = e.runOne(ctx, s)
		}(i, s)
	}
	wg.Wait()
	return outcomes
}

func (e *Engine) runOne(ctx context.Context, s strategy) (o outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o = outcome{err: errors.New("strategy panicked")}
			e.opts.Logger.Error("search strategy panicked", "strategy", s.name, "panic", r)
		}
		e.opts.Metrics.RecordStage(ctx, "search", s.name, time.Since(start).Milliseconds())
	}()

	records, err := s.run(ctx, s.query)
	if errors.Is(err, store.ErrFullTextUnavailable) {
		return outcome{skipped: true}
	}
	return outcome{records: records, err: err}
}

// merge unions strategy outputs, keeping the highest strategy score per memory id.
func merge(strategies []strategy, outcomes []outcome) []model.SearchResult {
	byID := make(map[string]int)
	var results []model.SearchResult
	for i, o := range outcomes {
		if o.err != nil || o.skipped {
			continue
		}
		for _, rec := range o.records {
			if j, ok := byID[rec.ID]; ok {
				if strategies[i].score > results[j].StrategyScore {
					results[j].Strategy = strategies[i].name
					results[j].StrategyScore = strategies[i].score
				}
				continue
			}
			byID[rec.ID] = len(results)
			results = append(results, model.SearchResult{
				MemoryRecord:  rec,
				Strategy:      strategies[i].name,
				StrategyScore: strategies[i].score,
			})
		}
	}
	return results
}

// rank scores results in place and sorts them into their final order.
func (e *Engine) rank(results []model.SearchResult, now time.Time) {
	for i := range results {
		results[i].Score = e.score(&results[i], now)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ImportanceScore != b.ImportanceScore {
			return a.ImportanceScore > b.ImportanceScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (e *Engine) score(r *model.SearchResult, now time.Time) float64 {
	return e.opts.StrategyWeight*r.StrategyScore +
		e.opts.ImportanceWeight*r.ImportanceScore +
		e.opts.RecencyWeight*Recency(r.CreatedAt, now, e.opts.RecencyWindowDays)
}

// Recency decays linearly from 1 at creation to 0 at windowDays.
func Recency(created, now time.Time, windowDays float64) float64 {
	ageDays := now.Sub(created).Hours() / 24
	r := 1 - ageDays/windowDays
	return min(max(r, 0), 1)
}

// candidateLimit is how many rows each strategy fetches. Readers order
// candidates by the composite rank, so any limit >= the requested one keeps
// the true top results; the headroom absorbs rows shared across strategies.
func candidateLimit(limit int) int {
	return max(limit*4, 20)
}
