// Package llm provides completion clients used by the external classifiers.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Completer sends a system and user prompt to a language model and returns
// the raw completion text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Options configures a hosted completion backend.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
	// Temperature defaults to 0 so classifications are repeatable.
	Temperature float64
	MaxTokens   int64
	MaxRetries  int
}

// ErrEmptyCompletion is returned when a backend answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// ErrNoJSON is returned when a completion holds no JSON object.
var ErrNoJSON = errors.New("no JSON object in completion")

var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*\n?(.*?)\\s*```$")

// ExtractJSON returns the JSON object embedded in a completion. Markdown code
// fences are stripped; otherwise the outermost braces are taken, so leading
// or trailing prose is ignored.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); len(m) == 2 {
		s = strings.TrimSpace(m[1])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

// CompleteJSON runs a completion and decodes its JSON object into v.
func CompleteJSON(ctx context.Context, c Completer, system, prompt string, v any) error {
	out, err := c.Complete(ctx, system, prompt)
	if err != nil {
		return err
	}
	raw, err := ExtractJSON(out)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}
