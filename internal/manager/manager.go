// Package manager ties recording, classification, planning and search into
// one entry point.
package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vishalbelsare/memori-sub000/internal/classify"
	"github.com/vishalbelsare/memori-sub000/internal/metrics"
	"github.com/vishalbelsare/memori-sub000/internal/model"
	"github.com/vishalbelsare/memori-sub000/internal/plan"
	"github.com/vishalbelsare/memori-sub000/internal/search"
	"github.com/vishalbelsare/memori-sub000/internal/store"
)

// Backend is the storage the manager writes to and searches.
// *store.SQLiteStore implements it.
type Backend interface {
	search.Reader
	StoreChat(ctx context.Context, c model.ChatRecord) (*model.ChatRecord, error)
	StoreMemory(ctx context.Context, p store.StoreMemoryParams) (*model.MemoryRecord, error)
	TouchMemories(ctx context.Context, namespace string, ids []string) error
}

// Options configures a Manager.
type Options struct {
	// Namespace is used when a call leaves its namespace empty.
	Namespace string
	// Classifier defaults to the keyword heuristic.
	Classifier classify.Classifier
	// Resolver defaults to a fallback-only resolver.
	Resolver *plan.Resolver
	Search   search.Options
	Logger   *slog.Logger
	Metrics  metrics.Collector
}

// Manager records exchanges and answers memory searches.
type Manager struct {
	backend    Backend
	engine     *search.Engine
	resolver   *plan.Resolver
	classifier classify.Classifier
	namespace  string
	logger     *slog.Logger
	metrics    metrics.Collector
}

// New creates a Manager over b.
func New(b Backend, opts Options) *Manager {
	if opts.Namespace == "" {
		opts.Namespace = "default"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoopCollector()
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.NewHeuristic()
	}
	if opts.Resolver == nil {
		opts.Resolver = plan.NewResolver(plan.Options{Logger: opts.Logger})
	}
	if opts.Search.Logger == nil {
		opts.Search.Logger = opts.Logger
	}
	if opts.Search.Metrics == nil {
		opts.Search.Metrics = opts.Metrics
	}
	return &Manager{
		backend:    b,
		engine:     search.NewEngine(b, opts.Search),
		resolver:   opts.Resolver,
		classifier: opts.Classifier,
		namespace:  opts.Namespace,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Namespace returns the default namespace.
func (m *Manager) Namespace() string { return m.namespace }

func (m *Manager) ns(namespace string) string {
	if namespace == "" {
		return m.namespace
	}
	return namespace
}

// RecordParams describes one exchange to record.
type RecordParams struct {
	Namespace  string
	ChatID     string
	SessionID  string
	UserInput  string
	AIOutput   string
	Model      string
	TokensUsed int
	Metadata   map[string]string
	// Prompt is passed to the classifier as extra instructions.
	Prompt string
}

// RecordOutcome reports what Record kept.
type RecordOutcome struct {
	ChatID string              `json:"chat_id"`
	Memory *model.MemoryRecord `json:"memory,omitempty"`
	Stored bool                `json:"stored"`
	// Reason explains why no memory was stored.
	Reason string `json:"reason,omitempty"`
}

// Record stores the chat, classifies it and stores a memory when the
// classifier asks for one. Classifier failures and refusals are reported in
// the outcome; only storage failures return an error.
func (m *Manager) Record(ctx context.Context, p RecordParams) (out *RecordOutcome, err error) {
	defer func(start time.Time) {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
			m.metrics.RecordError(ctx, "record", store.ClassifyError(err))
		}
		m.metrics.RecordOperation(ctx, "record", status, time.Since(start).Milliseconds())
	}(time.Now())

	ns := m.ns(p.Namespace)
	chat, err := m.backend.StoreChat(ctx, model.ChatRecord{
		ID:         p.ChatID,
		UserInput:  p.UserInput,
		AIOutput:   p.AIOutput,
		Model:      p.Model,
		SessionID:  p.SessionID,
		Namespace:  ns,
		TokensUsed: p.TokensUsed,
		Metadata:   p.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("store chat: %w", err)
	}
	out = &RecordOutcome{ChatID: chat.ID}

	c, err := m.classify(ctx, model.ClassifyInput{
		ChatID:    chat.ID,
		UserInput: p.UserInput,
		AIOutput:  p.AIOutput,
		Prompt:    p.Prompt,
	})
	if err != nil {
		out.Reason = "classification failed: " + err.Error()
		m.logger.Info("classification discarded", "chat_id", chat.ID, "reason", out.Reason)
		return out, nil
	}
	if !c.ShouldStore {
		out.Reason = c.Reasoning
		if out.Reason == "" {
			out.Reason = "classifier chose not to store"
		}
		m.logger.Info("classification discarded", "chat_id", chat.ID, "reason", out.Reason)
		return out, nil
	}

	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode classification: %w", err)
	}
	retention := c.Retention
	if retention == "" {
		retention = model.RetentionFor(c.ImportanceScore)
	}

	mem, err := m.backend.StoreMemory(ctx, store.StoreMemoryParams{
		ChatID:    chat.ID,
		Namespace: ns,
		Memory: model.MemoryRecord{
			Category:           c.Category,
			Retention:          retention,
			ImportanceScore:    c.ImportanceScore,
			NoveltyScore:       c.NoveltyScore,
			RelevanceScore:     c.RelevanceScore,
			ActionabilityScore: c.ActionabilityScore,
			Summary:            c.Summary,
			SearchableContent:  c.SearchableContent,
			Payload:            payload,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store memory: %w", err)
	}
	out.Memory = mem
	out.Stored = true
	return out, nil
}

// classify converts classifier panics into errors so a bad classifier never
// takes down the recording path.
func (m *Manager) classify(ctx context.Context, in model.ClassifyInput) (c *model.Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	c, err = m.classifier.Classify(ctx, in)
	if err == nil && c == nil {
		err = fmt.Errorf("classifier returned no result")
	}
	return c, err
}

// SearchParams describes one search.
type SearchParams struct {
	Namespace string
	Query     string
	// Context is optional text passed to the intent classifier.
	Context string
	// Categories replaces the plan's category filters when set.
	Categories []model.Category
	// MinImportance raises the plan's importance threshold when higher.
	MinImportance float64
	Limit         int
}

// Search plans and runs a query, then records access on the returned
// memories.
func (m *Manager) Search(ctx context.Context, p SearchParams) ([]model.SearchResult, error) {
	ns := m.ns(p.Namespace)

	sp := m.resolver.Resolve(ctx, p.Query, p.Context)
	if len(p.Categories) > 0 {
		sp.CategoryFilters = p.Categories
	}
	if p.MinImportance > sp.MinImportance {
		sp.MinImportance = p.MinImportance
	}

	results, err := m.engine.Search(ctx, ns, sp, p.Limit)
	if err != nil {
		return nil, err
	}

	if len(results) > 0 {
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		if err := m.backend.TouchMemories(ctx, ns, ids); err != nil {
			m.logger.Warn("access tracking failed", "namespace", ns, "error", err)
		}
	}
	return results, nil
}
