package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! Here you go: {\"a\":{\"b\":2}} Hope that helps.", `{"a":{"b":2}}`},
		{"whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ExtractJSON("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoJSON)
}

type fixedCompleter struct {
	out string
	err error
}

func (f fixedCompleter) Complete(context.Context, string, string) (string, error) {
	return f.out, f.err
}

func TestCompleteJSON(t *testing.T) {
	var v struct {
		Category string `json:"category"`
	}
	err := CompleteJSON(context.Background(), fixedCompleter{out: "```json\n{\"category\":\"fact\"}\n```"}, "", "p", &v)
	require.NoError(t, err)
	assert.Equal(t, "fact", v.Category)

	err = CompleteJSON(context.Background(), fixedCompleter{out: "{not json}"}, "", "p", &v)
	assert.Error(t, err)

	err = CompleteJSON(context.Background(), fixedCompleter{out: "no object"}, "", "p", &v)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestOpenAIComplete(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 0,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "  {\"ok\":true}  "}}]
		}`)
	}))
	defer server.Close()

	c := NewOpenAI(Options{APIKey: "test-key", BaseURL: server.URL + "/"})
	out, err := c.Complete(context.Background(), "be terse", "classify this")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	messages, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestOpenAIComplete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad request","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	c := NewOpenAI(Options{APIKey: "k", BaseURL: server.URL + "/"})
	_, err := c.Complete(context.Background(), "", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
}

func TestAnthropicComplete(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "{\"ok\":"}, {"type": "text", "text": "true}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 4}
		}`)
	}))
	defer server.Close()

	c := NewAnthropic(Options{APIKey: "test-key", BaseURL: server.URL + "/"})
	out, err := c.Complete(context.Background(), "be terse", "classify this")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "claude-3-5-sonnet-20241022", gotBody["model"])
	assert.NotNil(t, gotBody["system"])
}

func TestAnthropicComplete_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_2","type":"message","role":"assistant","model":"m",
			"content":[],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer server.Close()

	c := NewAnthropic(Options{APIKey: "k", BaseURL: server.URL + "/"})
	_, err := c.Complete(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}
