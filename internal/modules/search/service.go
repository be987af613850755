package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shelfscout/server/internal/models"
	"github.com/shelfscout/server/internal/modules/catalog"
	"github.com/shelfscout/server/internal/modules/recommend"
	"github.com/shelfscout/server/internal/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxQuoteResults caps quote-mode responses.
const maxQuoteResults = 5

// HistoryRecorder appends entries to the search history log.
type HistoryRecorder interface {
	Record(ctx context.Context, query, searchType string) error
}

// Limits bounds result counts and upstream latency.
type Limits struct {
	Recommendations int
	MaxResults      int
	QuoteMaxResults int
	AITimeout       time.Duration
	CatalogTimeout  time.Duration
	HistoryTimeout  time.Duration
}

func defaultLimits() Limits {
	return Limits{
		Recommendations: 5,
		MaxResults:      10,
		QuoteMaxResults: maxQuoteResults,
		AITimeout:       20 * time.Second,
		CatalogTimeout:  10 * time.Second,
		HistoryTimeout:  5 * time.Second,
	}
}

// Service runs merged and quote searches.
type Service struct {
	ai      recommend.Recommender
	books   catalog.Source
	history HistoryRecorder
	limits  Limits
	metrics *metrics.Metrics
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// ServiceOption configures a search Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the search service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("SearchService")
		}
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLimits overrides the non-zero fields of the default limits.
func WithLimits(l Limits) ServiceOption {
	return func(s *Service) {
		if l.Recommendations > 0 {
			s.limits.Recommendations = l.Recommendations
		}
		if l.MaxResults > 0 {
			s.limits.MaxResults = l.MaxResults
		}
		if l.QuoteMaxResults > 0 {
			s.limits.QuoteMaxResults = min(l.QuoteMaxResults, maxQuoteResults)
		}
		if l.AITimeout > 0 {
			s.limits.AITimeout = l.AITimeout
		}
		if l.CatalogTimeout > 0 {
			s.limits.CatalogTimeout = l.CatalogTimeout
		}
		if l.HistoryTimeout > 0 {
			s.limits.HistoryTimeout = l.HistoryTimeout
		}
	}
}

// NewService wires the two search legs and the history log. A nil history
// disables logging.
func NewService(ai recommend.Recommender, books catalog.Source, history HistoryRecorder, opts ...ServiceOption) *Service {
	s := &Service{
		ai:      ai,
		books:   books,
		history: history,
		limits:  defaultLimits(),
		logger:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search queries the AI and catalog legs concurrently and merges the results.
// A failed leg is logged and treated as empty; only a failure of both legs is
// returned as ErrUpstreamUnavailable.
func (s *Service) Search(ctx context.Context, query string) ([]MergedResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.metrics.ObserveSearch(models.SearchTypeDescription, metrics.OutcomeInvalid)
		return nil, ErrEmptyQuery
	}

	var (
		recs   []recommend.Recommendation
		books  []models.Book
		aiErr  error
		catErr error
	)

	// Legs record their own errors so one failure never cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(ctx, s.limits.AITimeout)
		defer cancel()
		started := time.Now()
		recs, aiErr = s.ai.Recommend(legCtx, query, s.limits.Recommendations)
		s.metrics.ObserveUpstream(metrics.LegAI, started, aiErr)
		return nil
	})
	g.Go(func() error {
		legCtx, cancel := context.WithTimeout(ctx, s.limits.CatalogTimeout)
		defer cancel()
		started := time.Now()
		books, catErr = s.books.SearchDescription(legCtx, query, s.limits.MaxResults)
		s.metrics.ObserveUpstream(metrics.LegCatalog, started, catErr)
		return nil
	})
	_ = g.Wait()

	if aiErr != nil && catErr != nil {
		s.logger.Error("all search upstreams failed",
			zap.String("query", query),
			zap.NamedError("ai", aiErr),
			zap.NamedError("catalog", catErr),
		)
		s.metrics.ObserveSearch(models.SearchTypeDescription, metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, errors.Join(aiErr, catErr))
	}

	outcome := metrics.OutcomeOK
	if aiErr != nil {
		outcome = metrics.OutcomeDegraded
		recs = nil
		s.logger.Warn("AI recommendations unavailable, serving catalog only",
			zap.String("query", query), zap.Error(aiErr))
	}
	if catErr != nil {
		outcome = metrics.OutcomeDegraded
		books = nil
		s.logger.Warn("catalog unavailable, serving AI only",
			zap.String("query", query), zap.Error(catErr))
	}

	results := Merge(recs, books)
	s.metrics.ObserveSearch(models.SearchTypeDescription, outcome)
	s.recordAsync(ctx, query, models.SearchTypeDescription)
	return results, nil
}

// SearchQuotes looks up catalog quote matches only. The AI leg is never used.
func (s *Service) SearchQuotes(ctx context.Context, quote string) ([]MergedResult, error) {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		s.metrics.ObserveSearch(models.SearchTypeQuote, metrics.OutcomeInvalid)
		return nil, ErrEmptyQuery
	}

	legCtx, cancel := context.WithTimeout(ctx, s.limits.CatalogTimeout)
	defer cancel()
	started := time.Now()
	books, err := s.books.SearchQuote(legCtx, quote, s.limits.QuoteMaxResults)
	s.metrics.ObserveUpstream(metrics.LegCatalog, started, err)
	if err != nil {
		s.logger.Error("quote search failed", zap.String("quote", quote), zap.Error(err))
		s.metrics.ObserveSearch(models.SearchTypeQuote, metrics.OutcomeFailed)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if len(books) > s.limits.QuoteMaxResults {
		books = books[:s.limits.QuoteMaxResults]
	}

	s.metrics.ObserveSearch(models.SearchTypeQuote, metrics.OutcomeOK)
	s.recordAsync(ctx, quote, models.SearchTypeQuote)
	return fromBooks(books), nil
}

// SearchByType dispatches to Search or SearchQuotes.
func (s *Service) SearchByType(ctx context.Context, searchType, query string) ([]MergedResult, error) {
	switch strings.ToLower(strings.TrimSpace(searchType)) {
	case "", models.SearchTypeDescription:
		return s.Search(ctx, query)
	case models.SearchTypeQuote:
		return s.SearchQuotes(ctx, query)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownSearchType, searchType)
	}
}

// recordAsync writes the history entry off the request path. Failures are
// logged and counted, never returned.
func (s *Service) recordAsync(ctx context.Context, query, searchType string) {
	if s.history == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.metrics.HistoryWriteFailed()
				s.logger.Error("search history write panicked", zap.Any("panic", r))
			}
		}()

		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.limits.HistoryTimeout)
		defer cancel()
		if err := s.history.Record(hctx, query, searchType); err != nil {
			s.metrics.HistoryWriteFailed()
			s.logger.Warn("failed to log search history",
				zap.String("query", query),
				zap.String("type", searchType),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until in-flight history writes have finished.
func (s *Service) Wait() { s.wg.Wait() }
