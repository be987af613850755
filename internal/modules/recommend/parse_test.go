package recommend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecommendations(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		n      int
		titles []string
	}{
		{
			name:   "plain array",
			raw:    `[{"title":"The Keeper","author":"A. Smith","relevanceScore":91,"matchingAspects":["solitude"],"reason":"lighthouse"}]`,
			n:      5,
			titles: []string{"The Keeper"},
		},
		{
			name:   "fenced with prose",
			raw:    "Here you go:\n```json\n[{\"title\":\"B\",\"relevanceScore\":40},{\"title\":\"A\",\"relevanceScore\":80}]\n```",
			n:      5,
			titles: []string{"A", "B"},
		},
		{
			name:   "drops empty titles and truncates",
			raw:    `[{"title":" ","relevanceScore":99},{"title":"One","relevanceScore":70},{"title":"Two","relevanceScore":60},{"title":"Three","relevanceScore":50}]`,
			n:      2,
			titles: []string{"One", "Two"},
		},
		{
			name:   "stable for equal scores",
			raw:    `[{"title":"First","relevanceScore":50},{"title":"Second","relevanceScore":50}]`,
			n:      5,
			titles: []string{"First", "Second"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := parseRecommendations(tt.raw, tt.n)
			require.NoError(t, err)
			titles := make([]string, 0, len(recs))
			for _, r := range recs {
				titles = append(titles, r.Title)
				assert.NotNil(t, r.MatchingAspects)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestParseRecommendationsMalformed(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"title":"x"}`, `[{"title":}]`} {
		_, err := parseRecommendations(raw, 5)
		assert.ErrorIs(t, err, ErrMalformedResponse, raw)
	}
}

func TestScoreUnmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want Score
	}{
		{`87`, 87},
		{`"87"`, 87},
		{`"75%"`, 75},
		{`66.6`, 67},
		{`140`, 100},
		{`-3`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		var s Score
		require.NoError(t, json.Unmarshal([]byte(tt.raw), &s), tt.raw)
		assert.Equal(t, tt.want, s, tt.raw)
	}

	var s Score
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &s))
}
