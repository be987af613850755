package search

import "github.com/shelfscout/server/internal/models"

// MergedResult is a catalog-shaped record. AI-sourced entries carry a
// synthetic ID, the AI flag and the relevance details.
type MergedResult struct {
	models.Book
	IsAIRecommended bool     `json:"isAiRecommended"`
	RelevanceScore  *int     `json:"relevanceScore,omitempty"`
	MatchingAspects []string `json:"matchingAspects,omitempty"`
}

// Request is the body accepted by the search endpoints. Quote is the field
// name older clients send for quote searches.
type Request struct {
	Query string `json:"query"`
	Quote string `json:"quote"`
	Type  string `json:"type"`
}

func (r Request) text() string {
	if r.Query != "" {
		return r.Query
	}
	return r.Quote
}
