package manager

import (
	"context"
	"math"
)

// ContextParams holds parameters for context assembly.
type ContextParams struct {
	Namespace string
	Query     string
	Budget    int // max tokens in output (rough proxy: 1 token ≈ 4 chars)
}

// ContextMemory is a memory selected for a prompt.
type ContextMemory struct {
	MemoryID string  `json:"memory_id"`
	Category string  `json:"category"`
	Summary  string  `json:"summary"`
	Score    float64 `json:"score"`
	Excerpt  bool    `json:"excerpt,omitempty"`
}

// ContextResult is the assembled context response.
type ContextResult struct {
	Budget   int             `json:"budget"`
	Used     int             `json:"used"`
	Memories []ContextMemory `json:"memories"`
}

const (
	defaultContextBudget = 4000
	contextCandidates    = 50
	minExcerptChars      = 100
)

// Context assembles the best-ranked memories for query within a token budget.
func (m *Manager) Context(ctx context.Context, p ContextParams) (*ContextResult, error) {
	budget := p.Budget
	if budget <= 0 {
		budget = defaultContextBudget
	}
	charBudget := budget * 4

	results, err := m.Search(ctx, SearchParams{
		Namespace: p.Namespace,
		Query:     p.Query,
		Limit:     contextCandidates,
	})
	if err != nil {
		return nil, err
	}

	// Results arrive in composite-rank order; pack greedily.
	out := &ContextResult{Budget: budget, Memories: []ContextMemory{}}
	used := 0
	for _, r := range results {
		cm := ContextMemory{
			MemoryID: r.ID,
			Category: string(r.Category),
			Summary:  r.Summary,
			Score:    math.Round(r.Score*100) / 100,
		}
		if used+len(cm.Summary) <= charBudget {
			out.Memories = append(out.Memories, cm)
			used += len(cm.Summary)
			continue
		}
		if remaining := charBudget - used; remaining >= minExcerptChars {
			cm.Summary = cm.Summary[:remaining] + "..."
			cm.Excerpt = true
			out.Memories = append(out.Memories, cm)
			used += len(cm.Summary)
		}
		break
	}

	out.Used = used / 4
	return out, nil
}
