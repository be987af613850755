package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumesFixture = `{
  "totalItems": 3,
  "items": [
    {
      "id": "zyTCAlFPjgYC",
      "volumeInfo": {
        "title": "The Keeper",
        "authors": ["A. Smith", "B. Jones"],
        "description": "A lighthouse keeper alone at sea.",
        "publishedDate": "1998-04-02",
        "categories": ["Fiction"],
        "industryIdentifiers": [{"type": "ISBN_13", "identifier": "9780000000001"}],
        "imageLinks": {"thumbnail": "http://books.google.com/cover.jpg"}
      }
    },
    {
      "id": "abcDEF123",
      "volumeInfo": {"title": "Sea Tales"}
    },
    {
      "id": "noTitle",
      "volumeInfo": {}
    }
  ]
}`

func TestGoogleBooksSearchDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a lonely lighthouse keeper", r.URL.Query().Get("q"))
		assert.Equal(t, "10", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "k123", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(volumesFixture))
	}))
	defer srv.Close()

	gb := NewGoogleBooks(srv.URL, WithAPIKey("k123"))
	books, err := gb.SearchDescription(context.Background(), " a lonely lighthouse keeper ", 10)
	require.NoError(t, err)
	require.Len(t, books, 2)

	keeper := books[0]
	assert.Equal(t, "zyTCAlFPjgYC", keeper.ID)
	assert.Equal(t, "A. Smith", keeper.Author)
	assert.Equal(t, "https://books.google.com/cover.jpg", keeper.CoverURL)
	require.NotNil(t, keeper.ISBN)
	assert.Equal(t, "9780000000001", *keeper.ISBN)
	require.NotNil(t, keeper.PublishedYear)
	assert.Equal(t, "1998", *keeper.PublishedYear)
	require.NotNil(t, keeper.Genre)
	assert.Equal(t, "Fiction", *keeper.Genre)

	tales := books[1]
	assert.Equal(t, DefaultAuthor, tales.Author)
	assert.Equal(t, DefaultDescription, tales.Description)
	assert.Equal(t, PlaceholderCover, tales.CoverURL)
	assert.Nil(t, tales.ISBN)
	assert.Nil(t, tales.PublishedYear)
	assert.Nil(t, tales.Genre)
	assert.NotNil(t, tales.Quotes)
	assert.Empty(t, tales.Quotes)
}

func TestGoogleBooksSearchQuoteIsExactPhrase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `"It was the best of times"`, r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		assert.Empty(t, r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	books, err := NewGoogleBooks(srv.URL).SearchQuote(context.Background(), "It was the best of times", 5)
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestGoogleBooksStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend error", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewGoogleBooks(srv.URL).SearchDescription(context.Background(), "q", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamStatus)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestGoogleBooksBreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gb := NewGoogleBooks(srv.URL, WithBreakerSettings(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	}))

	_, err := gb.SearchDescription(context.Background(), "q", 10)
	require.ErrorIs(t, err, ErrUpstreamStatus)
	_, err = gb.SearchDescription(context.Background(), "q", 10)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
