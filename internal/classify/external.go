package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vishalbelsare/memori-sub000/internal/llm"
	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// ErrInvalidClassification is returned when a model answers with JSON that
// does not describe a usable classification or plan.
var ErrInvalidClassification = errors.New("invalid classification")

const classifySystem = `You decide what a personal assistant should remember from one exchange.
Reply with a single JSON object and nothing else:
{"category": "fact|preference|skill|context|rule",
 "retention": "short_term|long_term|permanent",
 "confidence": 0-1,
 "entities": ["..."],
 "importance_score": 0-1, "novelty_score": 0-1, "relevance_score": 0-1, "actionability_score": 0-1,
 "summary": "one sentence",
 "searchable_content": "keywords and facts worth indexing",
 "should_store": true|false,
 "reasoning": "short"}
Set should_store to false for greetings, small talk and anything not worth recalling later.`

const intentSystem = `You turn a memory search query into a search plan.
Reply with a single JSON object and nothing else:
{"intent": "short description",
 "entity_filters": ["..."],
 "category_filters": ["fact|preference|skill|context|rule"],
 "min_importance": 0-1,
 "strategies": ["keyword_search|category_filter|importance_search|general_search"]}`

// ExternalClassifier asks a language model to classify an exchange.
type ExternalClassifier struct {
	completer llm.Completer
}

// NewExternal creates a model-backed classifier.
func NewExternal(c llm.Completer) *ExternalClassifier {
	return &ExternalClassifier{completer: c}
}

func (e *ExternalClassifier) Classify(ctx context.Context, in model.ClassifyInput) (*model.Classification, error) {
	var b strings.Builder
	if in.Prompt != "" {
		fmt.Fprintf(&b, "Instructions: %s\n\n", in.Prompt)
	}
	fmt.Fprintf(&b, "User: %s\n\nAssistant: %s\n", in.UserInput, in.AIOutput)

	var c model.Classification
	if err := llm.CompleteJSON(ctx, e.completer, classifySystem, b.String(), &c); err != nil {
		return nil, fmt.Errorf("classify %s: %w", in.ChatID, err)
	}
	if err := normalizeClassification(&c); err != nil {
		return nil, fmt.Errorf("classify %s: %w", in.ChatID, err)
	}
	return &c, nil
}

func normalizeClassification(c *model.Classification) error {
	c.Category = model.Category(strings.ToLower(strings.TrimSpace(string(c.Category))))
	if !model.ValidCategories[c.Category] {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidClassification, c.Category)
	}
	for name, v := range map[string]float64{
		"confidence":          c.Confidence,
		"importance_score":    c.ImportanceScore,
		"novelty_score":       c.NoveltyScore,
		"relevance_score":     c.RelevanceScore,
		"actionability_score": c.ActionabilityScore,
	} {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("%w: %s %v out of range", ErrInvalidClassification, name, v)
		}
	}
	if !c.ShouldStore {
		return nil
	}
	if strings.TrimSpace(c.Summary) == "" {
		return fmt.Errorf("%w: empty summary", ErrInvalidClassification)
	}
	if c.SearchableContent == "" {
		c.SearchableContent = c.Summary
	}
	if c.Retention == "" || !model.ValidRetentions[c.Retention] {
		c.Retention = model.RetentionFor(c.ImportanceScore)
	}
	return nil
}

// ExternalIntent asks a language model to build a search plan.
type ExternalIntent struct {
	completer llm.Completer
}

// NewExternalIntent creates a model-backed intent classifier.
func NewExternalIntent(c llm.Completer) *ExternalIntent {
	return &ExternalIntent{completer: c}
}

type intentReply struct {
	Intent          string   `json:"intent"`
	EntityFilters   []string `json:"entity_filters"`
	CategoryFilters []string `json:"category_filters"`
	MinImportance   float64  `json:"min_importance"`
	Strategies      []string `json:"strategies"`
}

var knownStrategies = map[string]bool{
	model.StrategyFullText:   true,
	model.StrategyCategory:   true,
	model.StrategyImportance: true,
	model.StrategyGeneral:    true,
}

func (e *ExternalIntent) Plan(ctx context.Context, query, queryContext string) (*model.SearchPlan, error) {
	prompt := "Query: " + query
	if queryContext != "" {
		prompt += "\nContext: " + queryContext
	}

	var r intentReply
	if err := llm.CompleteJSON(ctx, e.completer, intentSystem, prompt, &r); err != nil {
		return nil, fmt.Errorf("plan query: %w", err)
	}
	if !(r.MinImportance >= 0 && r.MinImportance <= 1) {
		return nil, fmt.Errorf("%w: min_importance %v out of range", ErrInvalidClassification, r.MinImportance)
	}

	p := &model.SearchPlan{
		QueryText:     query,
		Intent:        r.Intent,
		EntityFilters: r.EntityFilters,
		MinImportance: r.MinImportance,
	}
	for _, c := range r.CategoryFilters {
		cat := model.Category(strings.ToLower(strings.TrimSpace(c)))
		if model.ValidCategories[cat] {
			p.CategoryFilters = append(p.CategoryFilters, cat)
		}
	}
	for _, s := range r.Strategies {
		if knownStrategies[s] {
			p.Strategies = append(p.Strategies, s)
		}
	}
	if len(p.Strategies) == 0 {
		p.Strategies = []string{model.StrategyFullText, model.StrategyGeneral}
	}
	if p.Intent == "" {
		p.Intent = "general search"
	}
	return p, nil
}
