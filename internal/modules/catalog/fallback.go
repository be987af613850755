package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/shelfscout/server/internal/models"
	"go.uber.org/zap"
)

// Archiver persists catalog results for later local lookups.
type Archiver interface {
	Upsert(ctx context.Context, books []models.Book) error
}

// Fallback serves from primary and switches to secondary when primary fails.
// Primary results are archived in the background when an Archiver is set.
type Fallback struct {
	primary   Source
	secondary Source
	archive   Archiver
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func NewFallback(primary, secondary Source, archive Archiver, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		archive:   archive,
		logger:    logger.Named("CatalogFallback"),
	}
}

func (f *Fallback) SearchDescription(ctx context.Context, query string, limit int) ([]models.Book, error) {
	return f.run(ctx, "description", query, limit, Source.SearchDescription)
}

func (f *Fallback) SearchQuote(ctx context.Context, quote string, limit int) ([]models.Book, error) {
	return f.run(ctx, "quote", quote, limit, Source.SearchQuote)
}

type searchFunc func(src Source, ctx context.Context, q string, limit int) ([]models.Book, error)

func (f *Fallback) run(ctx context.Context, mode, q string, limit int, fn searchFunc) ([]models.Book, error) {
	books, err := fn(f.primary, ctx, q, limit)
	if err == nil {
		f.archiveAsync(ctx, books)
		return books, nil
	}
	if f.secondary == nil || ctx.Err() != nil {
		return nil, err
	}

	f.logger.Warn("primary catalog failed, using local store",
		zap.String("mode", mode),
		zap.Error(err),
	)
	local, localErr := fn(f.secondary, ctx, q, limit)
	if localErr != nil {
		f.logger.Warn("local catalog failed", zap.String("mode", mode), zap.Error(localErr))
		return nil, err
	}
	return local, nil
}

func (f *Fallback) archiveAsync(ctx context.Context, books []models.Book) {
	if f.archive == nil || len(books) == 0 {
		return
	}
	rows := append([]models.Book(nil), books...)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := f.archive.Upsert(actx, rows); err != nil {
			f.logger.Warn("archive catalog results failed", zap.Error(err))
		}
	}()
}

// Wait blocks until background archive writes have finished.
func (f *Fallback) Wait() { f.wg.Wait() }
