package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfscout/server/internal/config"
	"github.com/shelfscout/server/internal/modules/history"
	pkgcron "github.com/shelfscout/server/internal/pkg/cron"
	"go.uber.org/zap"
)

const pruneHistoryJob = "prune_search_history"

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, hist *history.Service, cfg *config.AppConfig, logger *zap.Logger) {
	retention := cfg.History.RetentionDays
	if retention <= 0 {
		return
	}
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        pruneHistoryJob,
		Description: fmt.Sprintf("Delete search history older than %d days", retention),
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -retention)
			deleted, err := hist.Prune(ctx, cutoff)
			if err != nil {
				cronLogger.Warn("prune search history failed", zap.Error(err))
				return err
			}
			cronLogger.Info(fmt.Sprintf("pruned search history, %d rows deleted", deleted))
			return nil
		},
	})
}
