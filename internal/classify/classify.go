// Package classify turns recorded exchanges into storable classifications
// and free-text queries into search plans.
package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// Classifier decides whether and how an exchange is remembered.
type Classifier interface {
	Classify(ctx context.Context, in model.ClassifyInput) (*model.Classification, error)
}

// IntentClassifier interprets a search query. queryContext is optional
// caller-supplied context such as the current conversation topic.
type IntentClassifier interface {
	Plan(ctx context.Context, query, queryContext string) (*model.SearchPlan, error)
}

// FallbackIntent is the intent string of a plan built without a classifier.
const FallbackIntent = "general search (fallback)"

// FallbackPlan builds a plan from the query alone: every word longer than
// two characters becomes an entity filter and the default strategies apply.
func FallbackPlan(query string) *model.SearchPlan {
	return &model.SearchPlan{
		QueryText:     query,
		Intent:        FallbackIntent,
		EntityFilters: Keywords(query),
		Strategies:    []string{model.StrategyFullText, model.StrategyGeneral},
	}
}

// Keywords lowercases query and returns its distinct words longer than two
// characters, with surrounding punctuation trimmed.
func Keywords(query string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if len([]rune(w)) <= 2 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// HeuristicIntent is the dependency-free IntentClassifier.
type HeuristicIntent struct{}

func (HeuristicIntent) Plan(_ context.Context, query, _ string) (*model.SearchPlan, error) {
	return FallbackPlan(query), nil
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
