package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shelfscout/server/internal/models"
	"github.com/shelfscout/server/internal/modules/recommend"
	"github.com/shelfscout/server/internal/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecommender struct {
	calls int32
	recs  []recommend.Recommendation
	err   error
	delay time.Duration
}

func (f *fakeRecommender) Recommend(ctx context.Context, _ string, n int) ([]recommend.Recommendation, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.recs) > n {
		return f.recs[:n], nil
	}
	return f.recs, nil
}

type fakeCatalog struct {
	descCalls  int32
	quoteCalls int32
	books      []models.Book
	err        error
	lastLimit  int32
}

func (f *fakeCatalog) SearchDescription(_ context.Context, _ string, limit int) ([]models.Book, error) {
	atomic.AddInt32(&f.descCalls, 1)
	atomic.StoreInt32(&f.lastLimit, int32(limit))
	return f.books, f.err
}

func (f *fakeCatalog) SearchQuote(_ context.Context, _ string, limit int) ([]models.Book, error) {
	atomic.AddInt32(&f.quoteCalls, 1)
	atomic.StoreInt32(&f.lastLimit, int32(limit))
	return f.books, f.err
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []models.SearchHistory
	err     error
}

func (f *fakeHistory) Record(_ context.Context, query, searchType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, models.SearchHistory{Query: query, SearchType: searchType})
	return nil
}

func (f *fakeHistory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func lighthouseFixtures() (*fakeRecommender, *fakeCatalog) {
	ai := &fakeRecommender{recs: []recommend.Recommendation{{
		Title: "The Keeper", Author: "A. Smith", RelevanceScore: 91,
		MatchingAspects: []string{"solitude"}, Reason: "lighthouse",
	}}}
	cat := &fakeCatalog{books: []models.Book{
		{ID: "vol1", Title: "The Keeper"},
		{ID: "vol2", Title: "Sea Tales"},
	}}
	return ai, cat
}

func TestSearchEmptyQueryMakesNoCalls(t *testing.T) {
	ai, cat := lighthouseFixtures()
	hist := &fakeHistory{}
	svc := NewService(ai, cat, hist)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := svc.Search(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
		_, err = svc.SearchQuotes(context.Background(), q)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
	svc.Wait()

	assert.Zero(t, atomic.LoadInt32(&ai.calls))
	assert.Zero(t, atomic.LoadInt32(&cat.descCalls))
	assert.Zero(t, atomic.LoadInt32(&cat.quoteCalls))
	assert.Zero(t, hist.count())
}

func TestSearchMergesBothLegs(t *testing.T) {
	ai, cat := lighthouseFixtures()
	hist := &fakeHistory{}
	svc := NewService(ai, cat, hist, WithMetrics(metrics.New()))

	results, err := svc.Search(context.Background(), "a lonely lighthouse keeper")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].IsAIRecommended)
	assert.Equal(t, "The Keeper", results[0].Title)
	assert.Equal(t, "Sea Tales", results[1].Title)

	svc.Wait()
	require.Equal(t, 1, hist.count())
	assert.Equal(t, "a lonely lighthouse keeper", hist.entries[0].Query)
	assert.Equal(t, models.SearchTypeDescription, hist.entries[0].SearchType)
}

func TestSearchDegradesWhenAIFails(t *testing.T) {
	_, cat := lighthouseFixtures()
	ai := &fakeRecommender{err: recommend.ErrMalformedResponse}
	hist := &fakeHistory{}
	svc := NewService(ai, cat, hist)

	results, err := svc.Search(context.Background(), "lighthouse")
	require.NoError(t, err)
	require.Len(t, results, len(cat.books))
	for i, b := range cat.books {
		assert.Equal(t, b.ID, results[i].ID)
		assert.False(t, results[i].IsAIRecommended)
	}
	svc.Wait()
	assert.Equal(t, 1, hist.count())
}

func TestSearchDegradesWhenCatalogFails(t *testing.T) {
	ai, _ := lighthouseFixtures()
	cat := &fakeCatalog{err: errors.New("catalog down")}
	svc := NewService(ai, cat, nil)

	results, err := svc.Search(context.Background(), "lighthouse")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].IsAIRecommended)
}

func TestSearchFailsWhenBothLegsFail(t *testing.T) {
	aiErr := errors.New("ai down")
	catErr := errors.New("catalog down")
	hist := &fakeHistory{}
	svc := NewService(&fakeRecommender{err: aiErr}, &fakeCatalog{err: catErr}, hist)

	_, err := svc.Search(context.Background(), "lighthouse")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.ErrorIs(t, err, aiErr)
	assert.ErrorIs(t, err, catErr)

	svc.Wait()
	assert.Zero(t, hist.count())
}

func TestSearchAITimeoutDegrades(t *testing.T) {
	_, cat := lighthouseFixtures()
	ai := &fakeRecommender{delay: time.Second}
	svc := NewService(ai, cat, nil, WithLimits(Limits{AITimeout: 20 * time.Millisecond}))

	started := time.Now()
	results, err := svc.Search(context.Background(), "lighthouse")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestSearchHistoryFailureIsSwallowed(t *testing.T) {
	ai, cat := lighthouseFixtures()
	m := metrics.New()
	failing := NewService(ai, cat, &fakeHistory{err: errors.New("db gone")}, WithMetrics(m))
	clean := NewService(ai, cat, &fakeHistory{})

	got, err := failing.Search(context.Background(), "a lonely lighthouse keeper")
	require.NoError(t, err)
	failing.Wait()

	want, err := clean.Search(context.Background(), "a lonely lighthouse keeper")
	require.NoError(t, err)
	clean.Wait()

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].IsAIRecommended, got[i].IsAIRecommended)
	}
}

func TestSearchHistoryOutlivesRequestContext(t *testing.T) {
	ai, cat := lighthouseFixtures()
	hist := &fakeHistory{}
	svc := NewService(ai, cat, hist)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Search(ctx, "lighthouse")
	require.NoError(t, err)
	cancel()

	svc.Wait()
	assert.Equal(t, 1, hist.count())
}

func TestSearchQuotesNeverCallsAI(t *testing.T) {
	ai := &fakeRecommender{}
	books := make([]models.Book, 0, 8)
	for i := 0; i < 8; i++ {
		books = append(books, models.Book{ID: string(rune('a' + i)), Title: string(rune('A' + i))})
	}
	cat := &fakeCatalog{books: books}
	hist := &fakeHistory{}
	svc := NewService(ai, cat, hist, WithLimits(Limits{QuoteMaxResults: 40}))

	results, err := svc.SearchQuotes(context.Background(), "It was the best of times")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 5)
	assert.Equal(t, int32(5), atomic.LoadInt32(&cat.lastLimit))
	assert.Zero(t, atomic.LoadInt32(&ai.calls))
	for _, r := range results {
		assert.False(t, r.IsAIRecommended)
	}

	svc.Wait()
	require.Equal(t, 1, hist.count())
	assert.Equal(t, models.SearchTypeQuote, hist.entries[0].SearchType)
}

func TestSearchQuotesFailure(t *testing.T) {
	svc := NewService(&fakeRecommender{}, &fakeCatalog{err: errors.New("down")}, nil)
	_, err := svc.SearchQuotes(context.Background(), "call me ishmael")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestSearchByType(t *testing.T) {
	ai, cat := lighthouseFixtures()
	svc := NewService(ai, cat, nil)
	ctx := context.Background()

	_, err := svc.SearchByType(ctx, "QUOTE", "x")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&cat.quoteCalls))

	_, err = svc.SearchByType(ctx, "", "x")
	require.NoError(t, err)
	_, err = svc.SearchByType(ctx, "description", "x")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&cat.descCalls))

	_, err = svc.SearchByType(ctx, "isbn", "x")
	assert.ErrorIs(t, err, ErrUnknownSearchType)
}
