package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shelfscout/server/internal/models"
)

// Field defaults for catalog records that omit them.
const (
	DefaultAuthor      = "Unknown Author"
	DefaultDescription = "No description available"
	PlaceholderCover   = "/placeholder-cover.jpg"
)

// ErrUpstreamStatus is wrapped by StatusError.
var ErrUpstreamStatus = errors.New("catalog upstream returned an error status")

// StatusError reports a non-2xx response from the catalog API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog upstream status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }

// Source looks up book candidates.
type Source interface {
	SearchDescription(ctx context.Context, query string, limit int) ([]models.Book, error)
	SearchQuote(ctx context.Context, quote string, limit int) ([]models.Book, error)
}
