package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shelfscout/server/internal/modules/history"
	"github.com/shelfscout/server/internal/modules/search"
	"github.com/shelfscout/server/internal/pkg/response"
)

func (a *App) registerRoutes() {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/health", a.health)

	historyHandler := history.NewHandler(a.history)
	historyHandler.RegisterRoutes(api)
	api.GET("/search", historyHandler.Recent)

	search.NewHandler(a.search).RegisterRoutes(api)
}

func (a *App) health(c *gin.Context) {
	status := http.StatusOK
	db := "ok"
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = http.StatusServiceUnavailable
		db = "unavailable"
	}

	redis := "disabled"
	if a.rc != nil {
		redis = "ok"
		if err := a.rc.Raw().Ping(c.Request.Context()).Err(); err != nil {
			redis = "unavailable"
		}
	}

	uptime := time.Since(a.started)
	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"uptime": gin.H{
			"ms":       uptime.Milliseconds(),
			"humanize": humanizeDuration(uptime),
		},
		"database": db,
		"redis":    redis,
		"cron":     a.sched.List(),
	})
}
