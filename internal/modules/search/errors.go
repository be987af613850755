package search

import "errors"

var (
	// ErrEmptyQuery is returned for empty or whitespace-only queries.
	ErrEmptyQuery = errors.New("search query is required")
	// ErrUpstreamUnavailable is returned when no upstream produced results.
	ErrUpstreamUnavailable = errors.New("no search upstream available")
	// ErrUnknownSearchType is returned for a search type other than
	// description or quote.
	ErrUnknownSearchType = errors.New("unknown search type")
)
