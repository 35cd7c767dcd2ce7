package store

import (
	"strings"

	"github.com/vishalbelsare/memori-sub000/internal/model"
)

func validateNamespace(ns string) error {
	if strings.TrimSpace(ns) == "" {
		return invalid("namespace", "must not be empty")
	}
	return nil
}

func validateLimit(limit int) error {
	if limit <= 0 {
		return invalid("limit", "must be positive")
	}
	return nil
}

func validateScore(field string, v float64) error {
	// NaN fails both comparisons, so test the positive range.
	if !(v >= 0 && v <= 1) {
		return invalid(field, "must be within [0, 1]")
	}
	return nil
}

func validateMemory(m *model.MemoryRecord) error {
	if m == nil {
		return invalid("memory", "must not be nil")
	}
	if err := validateNamespace(m.Namespace); err != nil {
		return err
	}
	if !model.ValidCategories[m.Category] {
		return invalid("category", "unknown category "+string(m.Category))
	}
	if !model.ValidRetentions[m.Retention] {
		return invalid("retention", "unknown retention "+string(m.Retention))
	}
	scores := []struct {
		field string
		v     float64
	}{
		{"importance_score", m.ImportanceScore},
		{"novelty_score", m.NoveltyScore},
		{"relevance_score", m.RelevanceScore},
		{"actionability_score", m.ActionabilityScore},
	}
	for _, s := range scores {
		if err := validateScore(s.field, s.v); err != nil {
			return err
		}
	}
	return nil
}

func validateChat(c *model.ChatRecord) error {
	if c == nil {
		return invalid("chat", "must not be nil")
	}
	if err := validateNamespace(c.Namespace); err != nil {
		return err
	}
	if c.TokensUsed < 0 {
		return invalid("tokens_used", "must not be negative")
	}
	return nil
}
