// Package plan resolves free-text queries into search plans.
package plan

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vishalbelsare/memori-sub000/internal/classify"
	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// DefaultCacheTTL is how long a resolved plan is reused.
const DefaultCacheTTL = 300 * time.Second

// Options configures a Resolver.
type Options struct {
	// Intent is the external intent classifier. Nil means fallback only.
	Intent   classify.IntentClassifier
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Resolver turns queries into plans. Plans from the external classifier are
// cached by (query, context). The first external failure disables the
// external path for the life of the Resolver.
type Resolver struct {
	intent   classify.IntentClassifier
	cache    *ttlCache
	disabled atomic.Bool
	logger   *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{
		intent: opts.Intent,
		cache:  newTTLCache(opts.CacheTTL),
		logger: opts.Logger,
	}
}

// ExternalEnabled reports whether the external classifier is still in use.
func (r *Resolver) ExternalEnabled() bool {
	return r.intent != nil && !r.disabled.Load()
}

// Resolve returns a plan for query. It never fails: any external problem
// yields the fallback plan.
func (r *Resolver) Resolve(ctx context.Context, query, queryContext string) model.SearchPlan {
	if !r.ExternalEnabled() {
		return *classify.FallbackPlan(query)
	}

	key := query + "\x00" + queryContext
	if p, ok := r.cache.get(key); ok {
		return p
	}

	p, err := r.intent.Plan(ctx, query, queryContext)
	if err != nil || p == nil {
		if r.disabled.CompareAndSwap(false, true) {
			r.logger.Warn("external query classifier disabled, using fallback plans", "error", err)
		}
		return *classify.FallbackPlan(query)
	}

	p.QueryText = query
	r.cache.put(key, *p)
	return *p
}
