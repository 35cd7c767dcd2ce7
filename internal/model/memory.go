// Package model defines the core memory data types.
package model

import "time"

// Category classifies what kind of knowledge a memory holds.
type Category string

const (
	CategoryFact       Category = "fact"
	CategoryPreference Category = "preference"
	CategorySkill      Category = "skill"
	CategoryContext    Category = "context"
	CategoryRule       Category = "rule"
)

// ValidCategories are the allowed memory categories.
var ValidCategories = map[Category]bool{
	CategoryFact:       true,
	CategoryPreference: true,
	CategorySkill:      true,
	CategoryContext:    true,
	CategoryRule:       true,
}

// Retention is the lifecycle class of a memory.
type Retention string

const (
	RetentionShortTerm Retention = "short_term"
	RetentionLongTerm  Retention = "long_term"
	RetentionPermanent Retention = "permanent"
)

// ValidRetentions are the allowed retention types.
var ValidRetentions = map[Retention]bool{
	RetentionShortTerm: true,
	RetentionLongTerm:  true,
	RetentionPermanent: true,
}

// ShortTermTTL is how long a short-term memory stays visible after creation.
const ShortTermTTL = 7 * 24 * time.Hour

// ChatRecord is an append-only log entry for one recorded exchange.
type ChatRecord struct {
	ID         string            `json:"chat_id"`
	UserInput  string            `json:"user_input"`
	AIOutput   string            `json:"ai_output"`
	Model      string            `json:"model"`
	Timestamp  time.Time         `json:"timestamp"`
	SessionID  string            `json:"session_id"`
	Namespace  string            `json:"namespace"`
	TokensUsed int               `json:"tokens_used"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// MemoryRecord is a classified, storable unit of memory.
type MemoryRecord struct {
	ID                 string     `json:"memory_id"`
	ChatID             string     `json:"chat_id,omitempty"`
	Category           Category   `json:"category"`
	Retention          Retention  `json:"retention"`
	ImportanceScore    float64    `json:"importance_score"`
	NoveltyScore       float64    `json:"novelty_score"`
	RelevanceScore     float64    `json:"relevance_score"`
	ActionabilityScore float64    `json:"actionability_score"`
	Namespace          string     `json:"namespace"`
	CreatedAt          time.Time  `json:"created_at"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	AccessCount        int        `json:"access_count"`
	LastAccessed       *time.Time `json:"last_accessed,omitempty"`
	Summary            string     `json:"summary"`
	SearchableContent  string     `json:"searchable_content"`
	Payload            []byte     `json:"payload,omitempty"`
}

// Table returns the storage table name for the record's retention.
func (m *MemoryRecord) Table() string {
	return TableFor(m.Retention)
}

// Expired reports whether the record is past its expiry at now.
func (m *MemoryRecord) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// TableFor maps a retention type to the table that holds it.
func TableFor(r Retention) string {
	if r == RetentionShortTerm {
		return "short_term_memory"
	}
	return "long_term_memory"
}

// MemoryType is the mirror-table tag for a retention type.
func MemoryType(r Retention) string {
	if r == RetentionShortTerm {
		return "short_term"
	}
	return "long_term"
}
