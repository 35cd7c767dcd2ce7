package plan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/memori-sub000/internal/classify"
	"github.com/vishalbelsare/memori-sub000/internal/model"
)

type countingIntent struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingIntent) Plan(_ context.Context, query, _ string) (*model.SearchPlan, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return &model.SearchPlan{
		Intent:          "external",
		CategoryFilters: []model.Category{model.CategoryPreference},
		Strategies:      []string{model.StrategyCategory},
	}, nil
}

func (c *countingIntent) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestResolve_FallbackWithoutClassifier(t *testing.T) {
	r := NewResolver(Options{})
	assert.False(t, r.ExternalEnabled())

	p := r.Resolve(context.Background(), "favorite programming language", "")
	assert.Equal(t, classify.FallbackIntent, p.Intent)
	assert.Equal(t, []string{"favorite", "programming", "language"}, p.EntityFilters)
	assert.Equal(t, []string{model.StrategyFullText, model.StrategyGeneral}, p.Strategies)
}

func TestResolve_CachesExternalPlans(t *testing.T) {
	intent := &countingIntent{}
	r := NewResolver(Options{Intent: intent})
	ctx := context.Background()

	p1 := r.Resolve(ctx, "what do I like", "")
	p2 := r.Resolve(ctx, "what do I like", "")
	assert.Equal(t, 1, intent.count())
	assert.Equal(t, p1, p2)
	assert.Equal(t, "external", p1.Intent)
	assert.Equal(t, "what do I like", p1.QueryText)

	r.Resolve(ctx, "what do I like", "other context")
	assert.Equal(t, 2, intent.count(), "context is part of the cache key")

	p1.CategoryFilters[0] = model.CategoryFact
	p3 := r.Resolve(ctx, "what do I like", "")
	assert.Equal(t, model.CategoryPreference, p3.CategoryFilters[0], "cached plans are not aliased")
}

func TestResolve_CacheExpiry(t *testing.T) {
	intent := &countingIntent{}
	r := NewResolver(Options{Intent: intent, CacheTTL: time.Minute})
	ctx := context.Background()

	r.Resolve(ctx, "q", "")
	require.Equal(t, 1, r.cache.len())

	key := "q\x00"
	r.cache.mu.Lock()
	e := r.cache.entries[key]
	e.created = time.Now().Add(-2 * time.Minute)
	r.cache.entries[key] = e
	r.cache.mu.Unlock()

	r.Resolve(ctx, "q", "")
	assert.Equal(t, 2, intent.count())
}

func TestResolve_DisablesExternalAfterFailure(t *testing.T) {
	intent := &countingIntent{err: errors.New("endpoint not supported")}
	r := NewResolver(Options{Intent: intent})
	ctx := context.Background()

	p := r.Resolve(ctx, "first query", "")
	assert.Equal(t, classify.FallbackIntent, p.Intent)
	assert.False(t, r.ExternalEnabled())

	for i := 0; i < 5; i++ {
		p = r.Resolve(ctx, "another query", "")
		assert.Equal(t, classify.FallbackIntent, p.Intent)
	}
	assert.Equal(t, 1, intent.count(), "no repeated failing calls")
}

func TestResolve_Concurrent(t *testing.T) {
	intent := &countingIntent{}
	r := NewResolver(Options{Intent: intent})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := r.Resolve(context.Background(), "shared", "")
			assert.Equal(t, "external", p.Intent)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, r.cache.len())
}
