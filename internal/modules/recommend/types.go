package recommend

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Recommendation is one AI-sourced book suggestion.
type Recommendation struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	RelevanceScore  Score    `json:"relevanceScore"`
	MatchingAspects []string `json:"matchingAspects"`
	Reason          string   `json:"reason"`
}

// Score is a 0-100 relevance score. Models occasionally emit it as a string
// ("87") or a float; both decode.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*s = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSuffix(strings.TrimSpace(unquoted), "%")
	}
	var f float64
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return err
	}
	*s = clampScore(int(f + 0.5))
	return nil
}

func clampScore(v int) Score {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return Score(v)
	}
}
