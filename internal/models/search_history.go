package models

import (
	"time"

	"gorm.io/gorm"
)

// Search types recorded in the history log.
const (
	SearchTypeDescription = "description"
	SearchTypeQuote       = "quote"
)

// SearchHistory is one append-only entry of the query log.
type SearchHistory struct {
	ID         uint      `json:"id"         gorm:"primaryKey;autoIncrement"`
	Query      string    `json:"query"      gorm:"type:text;not null"`
	SearchType string    `json:"searchType" gorm:"column:search_type;size:32;not null"`
	Timestamp  time.Time `json:"timestamp"  gorm:"not null;index"`
}

func (SearchHistory) TableName() string { return "search_history" }

func (h *SearchHistory) BeforeCreate(tx *gorm.DB) error {
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}
	return nil
}
