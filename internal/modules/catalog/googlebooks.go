package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shelfscout/server/internal/models"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const defaultGoogleBooksEndpoint = "https://www.googleapis.com/books/v1/volumes"

// GoogleBooks queries the Google Books volumes API.
type GoogleBooks struct {
	endpoint string
	apiKey   string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[[]models.Book]
	logger   *zap.Logger
}

// GoogleBooksOption configures a GoogleBooks client.
type GoogleBooksOption func(*GoogleBooks)

func WithAPIKey(key string) GoogleBooksOption {
	return func(g *GoogleBooks) { g.apiKey = strings.TrimSpace(key) }
}

func WithHTTPClient(c *http.Client) GoogleBooksOption {
	return func(g *GoogleBooks) {
		if c != nil {
			g.client = c
		}
	}
}

func WithLogger(l *zap.Logger) GoogleBooksOption {
	return func(g *GoogleBooks) {
		if l != nil {
			g.logger = l.Named("GoogleBooks")
		}
	}
}

// WithBreakerSettings overrides the circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) GoogleBooksOption {
	return func(g *GoogleBooks) { g.breaker = g.newBreaker(st) }
}

func NewGoogleBooks(endpoint string, opts ...GoogleBooksOption) *GoogleBooks {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = defaultGoogleBooksEndpoint
	}
	g := &GoogleBooks{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(g)
	}
	if g.breaker == nil {
		g.breaker = g.newBreaker(gobreaker.Settings{
			Name:        "google_books",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
	return g
}

func (g *GoogleBooks) newBreaker(st gobreaker.Settings) *gobreaker.CircuitBreaker[[]models.Book] {
	if st.IsSuccessful == nil {
		st.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		}
	}
	if st.OnStateChange == nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return gobreaker.NewCircuitBreaker[[]models.Book](st)
}

func (g *GoogleBooks) SearchDescription(ctx context.Context, query string, limit int) ([]models.Book, error) {
	return g.search(ctx, strings.TrimSpace(query), limit)
}

// SearchQuote runs an exact-phrase search. The volumes API has no quote index,
// so matches come from text snippets.
func (g *GoogleBooks) SearchQuote(ctx context.Context, quote string, limit int) ([]models.Book, error) {
	q := strings.Trim(strings.TrimSpace(quote), `"`)
	return g.search(ctx, `"`+q+`"`, limit)
}

func (g *GoogleBooks) search(ctx context.Context, q string, limit int) ([]models.Book, error) {
	return g.breaker.Execute(func() ([]models.Book, error) {
		return g.fetch(ctx, q, limit)
	})
}

func (g *GoogleBooks) fetch(ctx context.Context, q string, limit int) ([]models.Book, error) {
	params := url.Values{}
	params.Set("q", q)
	if limit > 0 {
		params.Set("maxResults", strconv.Itoa(limit))
	}
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch books: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read books response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)), 200)}
	}

	var payload volumesResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode books response: %w", err)
	}

	books := make([]models.Book, 0, len(payload.Items))
	now := time.Now()
	for _, item := range payload.Items {
		book, ok := item.toBook(now)
		if !ok {
			continue
		}
		books = append(books, book)
		if limit > 0 && len(books) == limit {
			break
		}
	}
	return books, nil
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		Description         string   `json:"description"`
		PublishedDate       string   `json:"publishedDate"`
		Categories          []string `json:"categories"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (v volume) toBook(now time.Time) (models.Book, bool) {
	info := v.VolumeInfo
	id := strings.TrimSpace(v.ID)
	title := strings.TrimSpace(info.Title)
	if id == "" || title == "" {
		return models.Book{}, false
	}

	book := models.Book{
		ID:          id,
		Title:       title,
		Author:      DefaultAuthor,
		Description: DefaultDescription,
		CoverURL:    PlaceholderCover,
		Quotes:      models.QuoteList{},
		CreatedAt:   now,
	}
	if len(info.Authors) > 0 && strings.TrimSpace(info.Authors[0]) != "" {
		book.Author = strings.TrimSpace(info.Authors[0])
	}
	if d := strings.TrimSpace(info.Description); d != "" {
		book.Description = d
	}
	if thumb := firstNonEmpty(info.ImageLinks.Thumbnail, info.ImageLinks.SmallThumbnail); thumb != "" {
		book.CoverURL = secureURL(thumb)
	}
	if len(info.IndustryIdentifiers) > 0 {
		book.ISBN = optional(info.IndustryIdentifiers[0].Identifier)
	}
	if year, _, _ := strings.Cut(strings.TrimSpace(info.PublishedDate), "-"); year != "" {
		book.PublishedYear = optional(year)
	}
	if len(info.Categories) > 0 {
		book.Genre = optional(info.Categories[0])
	}
	return book, true
}

func secureURL(raw string) string {
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
