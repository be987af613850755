package recommend

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Recommender returns up to n AI book recommendations for a query.
type Recommender interface {
	Recommend(ctx context.Context, query string, n int) ([]Recommendation, error)
}

// Service asks a Generator for recommendations and parses its output.
type Service struct {
	gen     Generator
	breaker *gobreaker.CircuitBreaker[[]Recommendation]
	logger  *zap.Logger
}

// ServiceOption configures a recommend Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the recommend service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("RecommendService")
		}
	}
}

// WithBreakerSettings overrides the circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) ServiceOption {
	return func(s *Service) {
		s.breaker = newBreaker(st, s)
	}
}

func NewService(gen Generator, opts ...ServiceOption) *Service {
	s := &Service{gen: gen, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if s.breaker == nil {
		s.breaker = newBreaker(gobreaker.Settings{
			Name:        "recommend",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}, s)
	}
	return s
}

func newBreaker(st gobreaker.Settings, s *Service) *gobreaker.CircuitBreaker[[]Recommendation] {
	if st.IsSuccessful == nil {
		// Cancelled calls do not count as failures.
		st.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		}
	}
	if st.OnStateChange == nil {
		st.OnStateChange = func(name string, from, to gobreaker.State) {
			s.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
	}
	return gobreaker.NewCircuitBreaker[[]Recommendation](st)
}

// Recommend returns up to n recommendations ordered by descending relevance.
func (s *Service) Recommend(ctx context.Context, query string, n int) ([]Recommendation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Recommendation{}, nil
	}
	if n <= 0 {
		n = 5
	}
	return s.breaker.Execute(func() ([]Recommendation, error) {
		systemPrompt, prompt := buildRecommendPrompt(query, n)
		raw, err := s.gen.Generate(ctx, systemPrompt, prompt)
		if err != nil {
			return nil, err
		}
		recs, err := parseRecommendations(raw, n)
		if err != nil {
			s.logger.Debug("unparseable AI output", zap.String("output", truncateText(raw, 500)))
			return nil, err
		}
		return recs, nil
	})
}
