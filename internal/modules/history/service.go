package history

import (
	"context"
	"strings"
	"time"

	"github.com/shelfscout/server/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxRecentLimit = 100

// Service reads and writes the search history log.
type Service struct {
	db          *gorm.DB
	recentLimit int
	logger      *zap.Logger
}

// ServiceOption configures a history Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the history service.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("HistoryService")
		}
	}
}

// WithRecentLimit sets the default number of entries returned by Recent.
func WithRecentLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, recentLimit: 10, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Record appends one entry to the log.
func (s *Service) Record(ctx context.Context, query, searchType string) error {
	entry := models.SearchHistory{
		Query:      strings.TrimSpace(query),
		SearchType: searchType,
		Timestamp:  time.Now(),
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

// Recent returns up to limit entries, newest first. A non-positive limit uses
// the configured default.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.SearchHistory, error) {
	if limit <= 0 {
		limit = s.recentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	entries := make([]models.SearchHistory, 0, limit)
	err := s.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Prune deletes entries recorded before the cutoff and reports how many rows
// were removed.
func (s *Service) Prune(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&models.SearchHistory{})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		s.logger.Info("pruned search history", zap.Int64("deleted", result.RowsAffected))
	}
	return result.RowsAffected, nil
}
