package model

// Classification is the output of a Classifier for one exchange.
// It round-trips through MemoryRecord.Payload.
type Classification struct {
	Category           Category  `json:"category"`
	Retention          Retention `json:"retention,omitempty"`
	Confidence         float64   `json:"confidence"`
	Entities           []string  `json:"entities,omitempty"`
	ImportanceScore    float64   `json:"importance_score"`
	NoveltyScore       float64   `json:"novelty_score"`
	RelevanceScore     float64   `json:"relevance_score"`
	ActionabilityScore float64   `json:"actionability_score"`
	Summary            string    `json:"summary"`
	SearchableContent  string    `json:"searchable_content"`
	ShouldStore        bool      `json:"should_store"`
	Reasoning          string    `json:"reasoning,omitempty"`
}

// RetentionFor picks a retention from an importance score when the
// classifier did not choose one.
func RetentionFor(importance float64) Retention {
	switch {
	case importance >= 0.9:
		return RetentionPermanent
	case importance >= 0.6:
		return RetentionLongTerm
	default:
		return RetentionShortTerm
	}
}

// ClassifyInput is what a Classifier sees for one exchange.
type ClassifyInput struct {
	ChatID    string
	UserInput string
	AIOutput  string
	Prompt    string
}
