package catalog

import (
	"context"
	"strings"

	"github.com/shelfscout/server/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store searches and archives books in the local database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) isPostgres() bool { return s.db.Dialector.Name() == "postgres" }

// SearchDescription matches title, author and description. Postgres uses the
// GIN to_tsvector indexes; other dialects fall back to LIKE.
func (s *Store) SearchDescription(ctx context.Context, query string, limit int) ([]models.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Book{}, nil
	}

	tx := s.db.WithContext(ctx).Model(&models.Book{})
	if s.isPostgres() {
		tx = tx.Where(
			"to_tsvector('english', title) @@ plainto_tsquery('english', ?) OR "+
				"to_tsvector('english', description) @@ plainto_tsquery('english', ?) OR "+
				"to_tsvector('english', author) @@ plainto_tsquery('english', ?) OR "+
				"title ILIKE ? ESCAPE '!'",
			query, query, query, likePattern(query),
		)
	} else {
		p := strings.ToLower(likePattern(query))
		tx = tx.Where(
			"LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR LOWER(author) LIKE ? ESCAPE '!'",
			p, p, p,
		)
	}

	var books []models.Book
	if err := tx.Order("created_at DESC").Limit(normalizeLimit(limit)).Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// SearchQuote returns books holding a quote that contains the text.
func (s *Store) SearchQuote(ctx context.Context, quote string, limit int) ([]models.Book, error) {
	quote = strings.Trim(strings.TrimSpace(quote), `"`)
	if quote == "" {
		return []models.Book{}, nil
	}

	tx := s.db.WithContext(ctx).Model(&models.Book{})
	if s.isPostgres() {
		tx = tx.Where("EXISTS (SELECT 1 FROM unnest(quotes) AS q WHERE q ILIKE ? ESCAPE '!')", likePattern(quote))
	} else {
		tx = tx.Where("LOWER(quotes) LIKE ? ESCAPE '!'", strings.ToLower(likePattern(quote)))
	}

	var books []models.Book
	if err := tx.Order("created_at DESC").Limit(normalizeLimit(limit)).Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// Upsert archives books, leaving existing rows untouched.
func (s *Store) Upsert(ctx context.Context, books []models.Book) error {
	if len(books) == 0 {
		return nil
	}
	rows := make([]models.Book, 0, len(books))
	seenISBN := make(map[string]struct{}, len(books))
	for _, b := range books {
		if b.ISBN != nil {
			if _, dup := seenISBN[*b.ISBN]; dup {
				b.ISBN = nil
			} else {
				seenISBN[*b.ISBN] = struct{}{}
			}
		}
		rows = append(rows, b)
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// Get loads one book by ID.
func (s *Store) Get(ctx context.Context, id string) (*models.Book, error) {
	var book models.Book
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return "%" + r.Replace(s) + "%"
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 40 {
		return 10
	}
	return limit
}
