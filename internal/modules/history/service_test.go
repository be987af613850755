package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shelfscout/server/internal/database/dbtest"
	"github.com/shelfscout/server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentNewestFirst(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db, WithRecentLimit(3))
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, q := range []string{"one", "two", "three", "four"} {
		require.NoError(t, db.Create(&models.SearchHistory{
			Query:      q,
			SearchType: models.SearchTypeDescription,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	entries, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "four", entries[0].Query)
	assert.Equal(t, "two", entries[2].Query)

	entries, err = svc.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestRecordAndPrune(t *testing.T) {
	db := dbtest.New(t)
	svc := NewService(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.SearchHistory{
		Query:      "old",
		SearchType: models.SearchTypeQuote,
		Timestamp:  time.Now().AddDate(0, 0, -120),
	}).Error)
	require.NoError(t, svc.Record(ctx, "  dune  ", models.SearchTypeDescription))

	deleted, err := svc.Prune(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	entries, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dune", entries[0].Query)
	assert.Equal(t, models.SearchTypeDescription, entries[0].SearchType)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestHandlerRecent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.New(t)
	svc := NewService(db)
	require.NoError(t, svc.Record(context.Background(), "dune", models.SearchTypeDescription))

	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search/history", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "dune", body[0]["query"])
	assert.Equal(t, "description", body[0]["searchType"])
	assert.Contains(t, body[0], "timestamp")
}

func TestHandlerRecentEmptyIsArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewService(dbtest.New(t))).RegisterRoutes(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
