package model

// Strategy names understood by the search engine.
const (
	StrategyFullText   = "keyword_search"
	StrategyCategory   = "category_filter"
	StrategyImportance = "importance_search"
	StrategyLike       = "like_fallback"
	StrategyGeneral    = "general_search"
)

// SearchPlan is the structured interpretation of a free-text query.
type SearchPlan struct {
	QueryText       string     `json:"query_text"`
	Intent          string     `json:"intent"`
	EntityFilters   []string   `json:"entity_filters,omitempty"`
	CategoryFilters []Category `json:"category_filters,omitempty"`
	MinImportance   float64    `json:"min_importance"`
	Strategies      []string   `json:"strategies"`
}

// HasStrategy reports whether name is among the plan's strategies.
func (p SearchPlan) HasStrategy(name string) bool {
	for _, s := range p.Strategies {
		if s == name {
			return true
		}
	}
	return false
}

// SearchResult is a ranked memory with the strategy that found it.
type SearchResult struct {
	MemoryRecord
	Strategy      string  `json:"strategy"`
	StrategyScore float64 `json:"strategy_score"`
	Score         float64 `json:"score"`
}
