package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishalbelsare/memori-sub000/internal/classify"
	"github.com/vishalbelsare/memori-sub000/internal/config"
	"github.com/vishalbelsare/memori-sub000/internal/manager"
	"github.com/vishalbelsare/memori-sub000/internal/model"
	"github.com/vishalbelsare/memori-sub000/internal/store"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetArgs(args)
	require.NoError(t, RootCmd.ExecuteContext(context.Background()))
	return buf.String()
}

func TestCommands_EndToEnd(t *testing.T) {
	t.Setenv("MEMORI_CONFIG", "")
	t.Setenv("MEMORI_NAMESPACE", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "memori.db")

	var out manager.RecordOutcome
	require.NoError(t, json.Unmarshal([]byte(execute(t,
		"record", "--db", db, "--ns", "cli", "-o", "Noted.", "I prefer Python over Java",
	)), &out))
	require.True(t, out.Stored)
	require.NotNil(t, out.Memory)

	var results []model.SearchResult
	require.NoError(t, json.Unmarshal([]byte(execute(t, "search", "--db", db, "--ns", "cli", "Python")), &results))
	require.Len(t, results, 1)
	assert.Equal(t, out.Memory.ID, results[0].ID)

	ids := execute(t, "list", "--db", db, "--ns", "cli", "--ids-only")
	assert.Equal(t, out.Memory.ID, strings.TrimSpace(ids))

	var chats []model.ChatRecord
	require.NoError(t, json.Unmarshal([]byte(execute(t, "history", "--db", db, "--ns", "cli")), &chats))
	require.Len(t, chats, 1)
	assert.Equal(t, out.ChatID, chats[0].ID)

	var st store.Stats
	require.NoError(t, json.Unmarshal([]byte(execute(t, "stats", "--db", db, "--ns", "cli")), &st))
	assert.Equal(t, int64(1), st.ChatCount)
	assert.Equal(t, int64(1), st.LongTermCount)

	var ctxRes manager.ContextResult
	require.NoError(t, json.Unmarshal([]byte(execute(t, "context", "--db", db, "--ns", "cli", "Python")), &ctxRes))
	assert.Len(t, ctxRes.Memories, 1)

	exported := execute(t, "export", "--db", db, "--ns", "cli")
	dumpPath := filepath.Join(dir, "dump.json")
	require.NoError(t, os.WriteFile(dumpPath, []byte(exported), 0o600))

	other := filepath.Join(dir, "other.db")
	imported := execute(t, "import", "--db", other, "--ns", "copy", dumpPath)
	assert.Contains(t, imported, `"chats":1`)
	assert.Contains(t, imported, `"memories":1`)

	var nsRows []store.NamespaceStats
	require.NoError(t, json.Unmarshal([]byte(execute(t, "namespaces", "list", "--db", other, "--ns", "copy")), &nsRows))
	require.Len(t, nsRows, 1)
	assert.Equal(t, "copy", nsRows[0].Namespace)

	cleared := execute(t, "clear", "--db", db, "--ns", "cli", "--yes")
	assert.Contains(t, cleared, `"deleted":2`)

	removed := execute(t, "cleanup", "--db", db, "--ns", "cli")
	assert.Contains(t, removed, `"removed":0`)
}

func TestNewClassifiers(t *testing.T) {
	c, intent, err := newClassifiers(config.ClassifierConfig{Provider: config.ProviderHeuristic})
	require.NoError(t, err)
	assert.IsType(t, &classify.HeuristicClassifier{}, c)
	assert.Nil(t, intent)

	c, intent, err = newClassifiers(config.ClassifierConfig{Provider: config.ProviderAnthropic, APIKey: "ak-test"})
	require.NoError(t, err)
	assert.IsType(t, &classify.ExternalClassifier{}, c)
	assert.IsType(t, &classify.ExternalIntent{}, intent)

	_, _, err = newClassifiers(config.ClassifierConfig{Provider: config.ProviderOpenAI})
	assert.Error(t, err, "missing api key")

	_, _, err = newClassifiers(config.ClassifierConfig{Provider: "mystery"})
	assert.Error(t, err)
}

func TestReadArgsOrStdin(t *testing.T) {
	got, err := readArgsOrStdin([]string{" remember ", "this "})
	require.NoError(t, err)
	assert.Equal(t, "remember  this", got)
}
