package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"what", "database", "use"}, Keywords("What database do we use?"))
	assert.Equal(t, []string{"python"}, Keywords("Python, python! PYTHON"))
	assert.Empty(t, Keywords("a an of"))
}

func TestFallbackPlan(t *testing.T) {
	p := FallbackPlan("my favorite editor")
	assert.Equal(t, "my favorite editor", p.QueryText)
	assert.Equal(t, FallbackIntent, p.Intent)
	assert.Equal(t, []string{"favorite", "editor"}, p.EntityFilters)
	assert.Equal(t, []string{model.StrategyFullText, model.StrategyGeneral}, p.Strategies)
	assert.Zero(t, p.MinImportance)

	hp, err := HeuristicIntent{}.Plan(context.Background(), "my favorite editor", "")
	require.NoError(t, err)
	assert.Equal(t, p, hp)
}

func TestHeuristicClassifier(t *testing.T) {
	h := NewHeuristic()
	ctx := context.Background()

	cases := []struct {
		input      string
		category   model.Category
		importance float64
		retention  model.Retention
	}{
		{"I prefer Python over Java", model.CategoryPreference, 0.6, model.RetentionLongTerm},
		{"Always run the linter before committing", model.CategoryRule, 0.8, model.RetentionLongTerm},
		{"I am good at writing SQL queries", model.CategorySkill, 0.6, model.RetentionLongTerm},
		{"I'm working on a billing service rewrite", model.CategoryContext, 0.5, model.RetentionShortTerm},
		{"The office is in Lisbon near the river", model.CategoryFact, 0.5, model.RetentionShortTerm},
		{"Please remember that you should never push to main", model.CategoryRule, 0.9, model.RetentionPermanent},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			c, err := h.Classify(ctx, model.ClassifyInput{UserInput: tc.input, AIOutput: "Noted."})
			require.NoError(t, err)
			assert.True(t, c.ShouldStore)
			assert.Equal(t, tc.category, c.Category)
			assert.InDelta(t, tc.importance, c.ImportanceScore, 1e-9)
			assert.Equal(t, tc.retention, c.Retention)
			assert.Contains(t, c.SearchableContent, tc.input)
			assert.Contains(t, c.SearchableContent, "Noted.")
		})
	}
}

func TestHeuristicClassifier_Entities(t *testing.T) {
	c, err := NewHeuristic().Classify(context.Background(), model.ClassifyInput{UserInput: "I prefer Python over Java."})
	require.NoError(t, err)
	assert.Equal(t, []string{"Python", "Java"}, c.Entities)
	assert.Equal(t, "I prefer Python over Java", c.Summary)
}

func TestHeuristicClassifier_Trivial(t *testing.T) {
	for _, in := range []string{"", "hi", "Thanks!", "ok cool"} {
		c, err := NewHeuristic().Classify(context.Background(), model.ClassifyInput{UserInput: in, AIOutput: "Hello!"})
		require.NoError(t, err)
		assert.False(t, c.ShouldStore, "input %q", in)
		assert.NotEmpty(t, c.Reasoning)
	}
}

func TestSummarizeTruncates(t *testing.T) {
	long := make([]rune, 500)
	for i := range long {
		long[i] = 'x'
	}
	s := summarize(string(long))
	assert.Len(t, []rune(s), maxSummaryLen)
	assert.Equal(t, "...", s[len(s)-3:])
}

type stubCompleter struct {
	out    string
	err    error
	calls  int
	system string
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	s.calls++
	s.system, s.prompt = system, prompt
	return s.out, s.err
}

func TestExternalClassifier(t *testing.T) {
	c := &stubCompleter{out: "```json\n" + `{
		"category": "Preference",
		"confidence": 0.9,
		"entities": ["Python"],
		"importance_score": 0.95,
		"novelty_score": 0.2, "relevance_score": 0.7, "actionability_score": 0.4,
		"summary": "Prefers Python",
		"should_store": true
	}` + "\n```"}

	got, err := NewExternal(c).Classify(context.Background(), model.ClassifyInput{
		ChatID: "c1", UserInput: "I prefer Python", AIOutput: "ok", Prompt: "focus on languages",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryPreference, got.Category)
	assert.Equal(t, model.RetentionPermanent, got.Retention)
	assert.Equal(t, "Prefers Python", got.SearchableContent)
	assert.Contains(t, c.prompt, "focus on languages")
	assert.Contains(t, c.prompt, "I prefer Python")
}

func TestExternalClassifier_Failures(t *testing.T) {
	ctx := context.Background()
	in := model.ClassifyInput{ChatID: "c1", UserInput: "x y z"}

	_, err := NewExternal(&stubCompleter{err: errors.New("rate limited")}).Classify(ctx, in)
	assert.Error(t, err)

	_, err = NewExternal(&stubCompleter{out: "I can't help with that."}).Classify(ctx, in)
	assert.Error(t, err)

	_, err = NewExternal(&stubCompleter{out: `{"category":"opinion","summary":"s","should_store":true}`}).Classify(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidClassification)

	_, err = NewExternal(&stubCompleter{out: `{"category":"fact","importance_score":3,"summary":"s","should_store":true}`}).Classify(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidClassification)

	_, err = NewExternal(&stubCompleter{out: `{"category":"fact","importance_score":0.5,"should_store":true}`}).Classify(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidClassification)

	skip, err := NewExternal(&stubCompleter{out: `{"category":"fact","should_store":false,"reasoning":"small talk"}`}).Classify(ctx, in)
	require.NoError(t, err)
	assert.False(t, skip.ShouldStore)
}

func TestExternalIntent(t *testing.T) {
	c := &stubCompleter{out: `{
		"intent": "find language preferences",
		"entity_filters": ["python"],
		"category_filters": ["preference", "bogus"],
		"min_importance": 0.3,
		"strategies": ["category_filter", "made_up"]
	}`}
	p, err := NewExternalIntent(c).Plan(context.Background(), "which language do I like", "coding chat")
	require.NoError(t, err)
	assert.Equal(t, "which language do I like", p.QueryText)
	assert.Equal(t, "find language preferences", p.Intent)
	assert.Equal(t, []model.Category{model.CategoryPreference}, p.CategoryFilters)
	assert.Equal(t, []string{model.StrategyCategory}, p.Strategies)
	assert.InDelta(t, 0.3, p.MinImportance, 1e-9)
	assert.Contains(t, c.prompt, "coding chat")

	_, err = NewExternalIntent(&stubCompleter{out: `{"min_importance": 2}`}).Plan(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrInvalidClassification)

	p, err = NewExternalIntent(&stubCompleter{out: `{}`}).Plan(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, []string{model.StrategyFullText, model.StrategyGeneral}, p.Strategies)
}
