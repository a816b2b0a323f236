package main

import (
	"context"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/api"
	v1 "github.com/Behyna/sms-services/creditgateway/internal/api/v1"
	"github.com/Behyna/sms-services/creditgateway/internal/api/validator"
	"github.com/Behyna/sms-services/creditgateway/internal/config"
	middleware "github.com/Behyna/sms-services/creditgateway/internal/error"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/Behyna/sms-services/creditgateway/pkg/idempotent"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"github.com/Behyna/sms-services/creditgateway/pkg/mysql"
	playground "github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dbStatsInterval = 15 * time.Second

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			zap.NewProduction,
			NewConnectionDB,
			NewMQConnection,
			NewMQPublisher,
			NewGuard,
			NewMetrics,
			metrics.NewDatabaseCollector,

			repository.NewCreditPoolRepository,
			repository.NewLedgerRepository,
			repository.NewCampaignRepository,
			repository.NewCampaignMessageRepository,
			repository.NewTransactionManager,

			service.NewAllocatorService,
			service.NewRouterService,
			service.NewSettlementService,
			service.NewFundingService,
			service.NewCampaignService,
			service.NewWebhookService,

			NewValidate,
			validator.NewXValidator,
			v1.NewHandler,
			NewFiberApp,
		),
		fx.Invoke(startServer),
	).Run()
}

func startServer(app *fiber.App, handler *v1.Handler, cfg *config.Config, rabbit *mq.RabbitMQ,
	collector *metrics.DatabaseCollector, logger *zap.Logger, lc fx.Lifecycle) {
	api.SetupRoutes(app, handler, collector)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			queues := []string{mq.QueueCampaignDispatch, mq.QueueCreditAutoCharge}
			if err := rabbit.DeclareTopology(queues); err != nil {
				logger.Error("declare topology failed", zap.Error(err))
				return err
			}

			collector.Start(dbStatsInterval)

			go func() {
				if err := app.Listen(cfg.API.Port); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()

			logger.Info("api started", zap.String("port", cfg.API.Port))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping api")
			collector.Stop()
			if err := app.ShutdownWithContext(ctx); err != nil {
				return err
			}
			return rabbit.Close()
		},
	})
}

func NewFiberApp(m *metrics.Metrics, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(metrics.HTTPMetricsMiddleware(m, logger))
	return app
}

func NewValidate() *playground.Validate {
	return playground.New()
}

func NewMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.DefaultRegisterer)
}

func NewConnectionDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	ctx := context.Background()
	db, err := mysql.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := mysql.Migrate(db, logger, model.All()...); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func NewGuard(cfg *config.Config) idempotent.Guard {
	return idempotent.NewGuard(cfg.Redis)
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}
