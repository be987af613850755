package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformedResponse is returned when the model output holds no JSON array
// of recommendations.
var ErrMalformedResponse = errors.New("malformed AI response")

// parseRecommendations extracts the recommendation array from raw model text.
// Code fences and prose around the array are tolerated.
func parseRecommendations(raw string, n int) ([]Recommendation, error) {
	text := stripCodeFence(strings.TrimSpace(raw))
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in output", ErrMalformedResponse)
	}

	var items []Recommendation
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make([]Recommendation, 0, len(items))
	for _, item := range items {
		item.Title = strings.TrimSpace(item.Title)
		if item.Title == "" {
			continue
		}
		item.Author = strings.TrimSpace(item.Author)
		item.Reason = strings.TrimSpace(item.Reason)
		if item.MatchingAspects == nil {
			item.MatchingAspects = []string{}
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.Index(text, "\n"); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
