package models

import (
	"time"

	"gorm.io/gorm"
)

// Book is a catalog-sourced candidate. IDs come from the external catalog's
// volume ID space and are stored as text.
type Book struct {
	ID            string    `json:"id"            gorm:"primaryKey;size:64"`
	Title         string    `json:"title"         gorm:"not null"`
	Author        string    `json:"author"        gorm:"not null"`
	Description   string    `json:"description"   gorm:"type:text;not null"`
	CoverURL      string    `json:"coverUrl"      gorm:"column:cover_url;type:text;not null"`
	ISBN          *string   `json:"isbn"          gorm:"uniqueIndex;size:32"`
	PublishedYear *string   `json:"publishedYear" gorm:"size:16"`
	Genre         *string   `json:"genre"`
	Quotes        QuoteList `json:"quotes"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (Book) TableName() string { return "books" }

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.Quotes == nil {
		b.Quotes = QuoteList{}
	}
	return nil
}
