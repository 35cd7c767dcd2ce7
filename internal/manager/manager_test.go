package manager

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/memori-sub000/internal/model"
	"github.com/vishalbelsare/memori-sub000/internal/store"
)

func newTestManager(t *testing.T, opts Options) (*Manager, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "memori.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, opts), s
}

type failingClassifier struct{ err error }

func (f failingClassifier) Classify(context.Context, model.ClassifyInput) (*model.Classification, error) {
	return nil, f.err
}

type panickingClassifier struct{}

func (panickingClassifier) Classify(context.Context, model.ClassifyInput) (*model.Classification, error) {
	panic("boom")
}

func TestRecord_PreferenceIsSearchable(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	ctx := context.Background()

	out, err := m.Record(ctx, RecordParams{
		UserInput: "I prefer Python over Java",
		AIOutput:  "Noted, Python it is.",
		Model:     "test-model",
	})
	require.NoError(t, err)
	require.True(t, out.Stored)
	require.NotNil(t, out.Memory)
	assert.NotEmpty(t, out.ChatID)
	assert.Equal(t, out.ChatID, out.Memory.ChatID)
	assert.Equal(t, model.CategoryPreference, out.Memory.Category)
	assert.Equal(t, model.RetentionLongTerm, out.Memory.Retention)
	assert.Equal(t, "default", out.Memory.Namespace)

	var c model.Classification
	require.NoError(t, json.Unmarshal(out.Memory.Payload, &c))
	assert.Equal(t, model.CategoryPreference, c.Category)
	assert.True(t, c.ShouldStore)

	results, err := m.Search(ctx, SearchParams{Query: "Python"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, out.Memory.ID, results[0].ID)
	assert.Greater(t, results[0].Score, 0.0)

	results, err = m.Search(ctx, SearchParams{Query: "Java", Categories: []model.Category{model.CategoryFact}})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecord_TrivialIsDiscarded(t *testing.T) {
	m, s := newTestManager(t, Options{})
	ctx := context.Background()

	out, err := m.Record(ctx, RecordParams{UserInput: "hello", AIOutput: "hi there"})
	require.NoError(t, err)
	assert.False(t, out.Stored)
	assert.Nil(t, out.Memory)
	assert.Equal(t, "trivial exchange", out.Reason)

	history, err := s.GetChatHistory(ctx, "default", "", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1, "the chat is kept even when no memory is")

	st, err := s.GetStats(ctx, "default")
	require.NoError(t, err)
	assert.Zero(t, st.LongTermCount+st.ShortTermCount)
}

func TestRecord_ClassifierFailureIsNotFatal(t *testing.T) {
	for name, c := range map[string]Options{
		"error": {Classifier: failingClassifier{err: errors.New("model unavailable")}},
		"panic": {Classifier: panickingClassifier{}},
	} {
		t.Run(name, func(t *testing.T) {
			m, _ := newTestManager(t, c)
			out, err := m.Record(context.Background(), RecordParams{UserInput: "I prefer tabs over spaces"})
			require.NoError(t, err)
			assert.False(t, out.Stored)
			assert.NotEmpty(t, out.ChatID)
			assert.True(t, strings.HasPrefix(out.Reason, "classification failed: "))
		})
	}
}

func TestRecord_NamespaceOverride(t *testing.T) {
	m, _ := newTestManager(t, Options{Namespace: "alice"})
	ctx := context.Background()

	_, err := m.Record(ctx, RecordParams{UserInput: "I prefer dark roast coffee"})
	require.NoError(t, err)
	_, err = m.Record(ctx, RecordParams{Namespace: "bob", UserInput: "I prefer green tea in the morning"})
	require.NoError(t, err)

	results, err := m.Search(ctx, SearchParams{Query: "prefer"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice", results[0].Namespace)
	assert.Equal(t, "alice", m.Namespace())
}

func TestSearch_MinImportance(t *testing.T) {
	m, s := newTestManager(t, Options{})
	ctx := context.Background()

	high, err := s.StoreMemory(ctx, store.StoreMemoryParams{Namespace: "default", Memory: model.MemoryRecord{
		Category: model.CategoryRule, Retention: model.RetentionLongTerm, ImportanceScore: 0.9,
		Summary: "Deploys need approval", SearchableContent: "deploys need approval",
	}})
	require.NoError(t, err)
	_, err = s.StoreMemory(ctx, store.StoreMemoryParams{Namespace: "default", Memory: model.MemoryRecord{
		Category: model.CategoryFact, Retention: model.RetentionLongTerm, ImportanceScore: 0.3,
		Summary: "The office has a plant", SearchableContent: "the office has a plant",
	}})
	require.NoError(t, err)

	results, err := m.Search(ctx, SearchParams{Query: "anything", MinImportance: 0.7})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, high.ID, results[0].ID)
}

func TestSearch_TracksAccess(t *testing.T) {
	m, s := newTestManager(t, Options{})
	ctx := context.Background()

	out, err := m.Record(ctx, RecordParams{UserInput: "I prefer Rust for systems work"})
	require.NoError(t, err)
	require.True(t, out.Stored)

	_, err = m.Search(ctx, SearchParams{Query: "Rust"})
	require.NoError(t, err)

	listed, err := s.ListMemories(ctx, store.ListParams{Namespace: "default"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 1, listed[0].AccessCount)
	assert.NotNil(t, listed[0].LastAccessed)
}

func TestSearch_Validation(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	_, err := m.Search(context.Background(), SearchParams{Query: "x", Limit: -1})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestContext_Basic(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	ctx := context.Background()

	for _, in := range []string{
		"I prefer Go for backend services",
		"Always run Go tests before merging",
		"I know how to profile Go programs",
	} {
		_, err := m.Record(ctx, RecordParams{UserInput: in})
		require.NoError(t, err)
	}

	res, err := m.Context(ctx, ContextParams{Query: "Go", Budget: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1000, res.Budget)
	require.Len(t, res.Memories, 3)
	assert.Greater(t, res.Used, 0)
	assert.Equal(t, model.CategoryRule, model.Category(res.Memories[0].Category), "highest importance ranks first")
	for i := 1; i < len(res.Memories); i++ {
		assert.GreaterOrEqual(t, res.Memories[i-1].Score, res.Memories[i].Score)
	}
}

func TestContext_BudgetLimit(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	ctx := context.Background()

	long := "I prefer Go because " + strings.Repeat("it compiles quickly and ships as one binary ", 5)
	for i := 0; i < 5; i++ {
		_, err := m.Record(ctx, RecordParams{UserInput: long})
		require.NoError(t, err)
	}

	// Summaries are cut to 200 chars; 75 tokens is 300 chars, room for one
	// full summary and a 100 char excerpt.
	res, err := m.Context(ctx, ContextParams{Query: "Go", Budget: 75})
	require.NoError(t, err)
	require.Len(t, res.Memories, 2)
	assert.False(t, res.Memories[0].Excerpt)
	assert.LessOrEqual(t, res.Used, 76)

	last := res.Memories[len(res.Memories)-1]
	assert.True(t, last.Excerpt)
	assert.True(t, strings.HasSuffix(last.Summary, "..."))
}

func TestContext_Empty(t *testing.T) {
	m, _ := newTestManager(t, Options{})
	res, err := m.Context(context.Background(), ContextParams{Query: "nothing here"})
	require.NoError(t, err)
	assert.Empty(t, res.Memories)
	assert.Equal(t, 0, res.Used)
	assert.Equal(t, defaultContextBudget, res.Budget)
}
