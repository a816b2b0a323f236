package metrics

import (
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DatabaseCollector samples connection pool stats into gauges.
type DatabaseCollector struct {
	metrics *Metrics
	logger  *zap.Logger
	sqlDB   *sql.DB
	ticker  *time.Ticker
	stopCh  chan struct{}
}

func NewDatabaseCollector(metrics *Metrics, logger *zap.Logger, db *gorm.DB) *DatabaseCollector {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get sql.DB from gorm.DB", zap.Error(err))
		metrics.RecordDBConnectionError()
	}

	return &DatabaseCollector{
		metrics: metrics,
		logger:  logger,
		sqlDB:   sqlDB,
		stopCh:  make(chan struct{}),
	}
}

func (dc *DatabaseCollector) Start(interval time.Duration) {
	if dc.sqlDB == nil {
		dc.logger.Warn("Cannot start database metrics collector: sqlDB is nil")
		return
	}

	dc.ticker = time.NewTicker(interval)
	go dc.collectLoop()
	dc.logger.Info("Database metrics collector started", zap.Duration("interval", interval))
}

func (dc *DatabaseCollector) Stop() {
	if dc.ticker != nil {
		dc.ticker.Stop()
	}
	close(dc.stopCh)
	dc.logger.Info("Database metrics collector stopped")
}

func (dc *DatabaseCollector) collectLoop() {
	dc.collect()

	for {
		select {
		case <-dc.ticker.C:
			dc.collect()
		case <-dc.stopCh:
			return
		}
	}
}

func (dc *DatabaseCollector) collect() {
	stats := dc.sqlDB.Stats()

	dc.metrics.DBConnectionsInUse.Set(float64(stats.InUse))
	dc.metrics.DBConnectionsIdle.Set(float64(stats.Idle))

	dc.logger.Debug("Database connection stats",
		zap.Int("openConnections", stats.OpenConnections),
		zap.Int("inUse", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int64("waitCount", stats.WaitCount),
		zap.Duration("waitDuration", stats.WaitDuration),
	)
}

// HealthCheck pings the database and records the query.
func (dc *DatabaseCollector) HealthCheck() error {
	if dc.sqlDB == nil {
		dc.metrics.RecordDBConnectionError()
		return sql.ErrConnDone
	}

	start := time.Now()
	err := dc.sqlDB.Ping()

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, sql.ErrConnDone) {
			dc.metrics.RecordDBConnectionError()
		}
	}
	dc.metrics.RecordDBQuery("ping", "health_check", status, time.Since(start))

	return err
}
