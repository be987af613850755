package search

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/shelfscout/server/internal/models"
	"github.com/shelfscout/server/internal/modules/catalog"
	"github.com/shelfscout/server/internal/modules/recommend"
)

// syntheticIDPrefix contains a colon, which never appears in catalog volume IDs.
const syntheticIDPrefix = "ai:"

var now = time.Now

// SyntheticID derives the identifier of an AI-sourced entry from its title.
func SyntheticID(title string) string {
	return syntheticIDPrefix + base64.RawURLEncoding.EncodeToString([]byte(strings.TrimSpace(title)))
}

// TitleFromSyntheticID reverses SyntheticID.
func TitleFromSyntheticID(id string) (string, bool) {
	encoded, ok := strings.CutPrefix(id, syntheticIDPrefix)
	if !ok {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Merge returns the AI entries in the order given followed by the catalog
// entries whose title no AI entry already carries. Titles compare
// case-insensitively; the first occurrence of a title wins.
func Merge(recs []recommend.Recommendation, books []models.Book) []MergedResult {
	out := make([]MergedResult, 0, len(recs)+len(books))
	seen := make(map[string]struct{}, len(recs)+len(books))
	createdAt := now()

	for _, rec := range recs {
		key := normalizeTitle(rec.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, fromRecommendation(rec, createdAt))
	}

	for _, book := range books {
		key := normalizeTitle(book.Title)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, fromBook(book))
	}
	return out
}

func fromRecommendation(rec recommend.Recommendation, createdAt time.Time) MergedResult {
	title := strings.TrimSpace(rec.Title)
	author := strings.TrimSpace(rec.Author)
	if author == "" {
		author = catalog.DefaultAuthor
	}
	score := int(rec.RelevanceScore)
	aspects := rec.MatchingAspects
	if aspects == nil {
		aspects = []string{}
	}
	return MergedResult{
		Book: models.Book{
			ID:          SyntheticID(title),
			Title:       title,
			Author:      author,
			Description: rec.Reason,
			CoverURL:    catalog.PlaceholderCover,
			Quotes:      models.QuoteList{},
			CreatedAt:   createdAt,
		},
		IsAIRecommended: true,
		RelevanceScore:  &score,
		MatchingAspects: aspects,
	}
}

func fromBook(book models.Book) MergedResult {
	if book.Quotes == nil {
		book.Quotes = models.QuoteList{}
	}
	return MergedResult{Book: book}
}

func fromBooks(books []models.Book) []MergedResult {
	out := make([]MergedResult, 0, len(books))
	for _, b := range books {
		out = append(out, fromBook(b))
	}
	return out
}
