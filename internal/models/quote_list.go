package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// QuoteList is stored as a native text[] column on Postgres and as a JSON
// string on MySQL and SQLite. Scan accepts either encoding.
type QuoteList []string

func (QuoteList) GormDataType() string { return "text" }

func (QuoteList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (q QuoteList) GormValue(ctx context.Context, db *gorm.DB) clause.Expr {
	if db.Dialector.Name() == "postgres" {
		v, err := pq.StringArray(q.orEmpty()).Value()
		if err != nil {
			_ = db.AddError(err)
		}
		return clause.Expr{SQL: "?", Vars: []interface{}{v}}
	}
	v, err := q.Value()
	if err != nil {
		_ = db.AddError(err)
	}
	return clause.Expr{SQL: "?", Vars: []interface{}{v}}
}

func (q QuoteList) Value() (driver.Value, error) {
	b, err := json.Marshal([]string(q.orEmpty()))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (q *QuoteList) Scan(value interface{}) error {
	if q == nil {
		return fmt.Errorf("models.QuoteList: Scan on nil pointer")
	}
	if value == nil {
		*q = QuoteList{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("models.QuoteList: unsupported Scan type %T", value)
	}

	raw = strings.TrimSpace(raw)
	switch {
	case raw == "" || raw == "null" || raw == "{}":
		*q = QuoteList{}
	case strings.HasPrefix(raw, "{"):
		var arr pq.StringArray
		if err := arr.Scan(raw); err != nil {
			return fmt.Errorf("models.QuoteList: %w", err)
		}
		*q = QuoteList(arr)
	case strings.HasPrefix(raw, "["):
		var arr []string
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			return fmt.Errorf("models.QuoteList: %w", err)
		}
		*q = arr
	default:
		*q = QuoteList{raw}
	}
	return nil
}

func (q QuoteList) orEmpty() QuoteList {
	if q == nil {
		return QuoteList{}
	}
	return q
}
