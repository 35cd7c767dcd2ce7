package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

// Keyword cues per category, checked in order; the first hit wins.
var categoryCues = []struct {
	category model.Category
	cues     []string
}{
	{model.CategoryRule, []string{"always ", "never ", "must ", "should ", "don't ever", "do not ever", "make sure to"}},
	{model.CategoryPreference, []string{"prefer", "i like", "i love", "favorite", "favourite", "i hate", "i dislike", "rather than"}},
	{model.CategorySkill, []string{"i know how", "i'm good at", "i am good at", "experienced in", "experience with", "proficient", "expert in", "i can "}},
	{model.CategoryContext, []string{"working on", "my project", "this project", "currently", "we are building", "i'm building", "deadline"}},
}

// Base importance per category.
var baseImportance = map[model.Category]float64{
	model.CategoryRule:       0.8,
	model.CategoryPreference: 0.6,
	model.CategorySkill:      0.6,
	model.CategoryContext:    0.5,
	model.CategoryFact:       0.5,
}

var actionability = map[model.Category]float64{
	model.CategoryRule:       0.8,
	model.CategorySkill:      0.6,
	model.CategoryPreference: 0.5,
	model.CategoryContext:    0.4,
	model.CategoryFact:       0.3,
}

var trivialInputs = map[string]bool{
	"hi": true, "hello": true, "hey": true, "thanks": true, "thank you": true,
	"ok": true, "okay": true, "yes": true, "no": true, "bye": true, "cool": true,
}

const maxSummaryLen = 200

// HeuristicClassifier classifies exchanges with keyword rules. It is
// deterministic and needs no external service.
type HeuristicClassifier struct{}

// NewHeuristic returns the keyword classifier.
func NewHeuristic() *HeuristicClassifier { return &HeuristicClassifier{} }

func (h *HeuristicClassifier) Classify(_ context.Context, in model.ClassifyInput) (*model.Classification, error) {
	input := strings.TrimSpace(in.UserInput)
	lower := strings.ToLower(input)
	normalized := strings.TrimRightFunc(lower, unicode.IsPunct)

	if input == "" || trivialInputs[normalized] || len(strings.Fields(input)) < 3 {
		return &model.Classification{
			Category:   model.CategoryFact,
			Confidence: 0.9,
			Reasoning:  "trivial exchange",
		}, nil
	}

	category := model.CategoryFact
	for _, c := range categoryCues {
		if containsAny(lower+" ", c.cues) {
			category = c.category
			break
		}
	}

	importance := baseImportance[category]
	if strings.Contains(lower, "remember") || strings.Contains(lower, "important") {
		importance += 0.1
	}
	importance = clamp01(importance)

	content := input
	if out := strings.TrimSpace(in.AIOutput); out != "" {
		content += "\n" + out
	}

	return &model.Classification{
		Category:           category,
		Retention:          model.RetentionFor(importance),
		Confidence:         0.5,
		Entities:           entities(input),
		ImportanceScore:    importance,
		NoveltyScore:       0.5,
		RelevanceScore:     0.5,
		ActionabilityScore: actionability[category],
		Summary:            summarize(input),
		SearchableContent:  content,
		ShouldStore:        true,
		Reasoning:          "keyword heuristic: " + string(category),
	}, nil
}

func containsAny(s string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}

// entities collects capitalized words other than the pronoun "I".
func entities(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range strings.Fields(s) {
		w = strings.TrimFunc(w, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) })
		r := []rune(w)
		if len(r) < 2 || !unicode.IsUpper(r[0]) || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// summarize returns the first sentence, cut to maxSummaryLen runes.
func summarize(s string) string {
	if i := strings.IndexAny(s, ".!?\n"); i > 0 {
		s = s[:i]
	}
	r := []rune(strings.TrimSpace(s))
	if len(r) > maxSummaryLen {
		return string(r[:maxSummaryLen-3]) + "..."
	}
	return string(r)
}
