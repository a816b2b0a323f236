package main

import (
	"context"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/publishers"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"github.com/Behyna/sms-services/creditgateway/pkg/mysql"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultPublishInterval = 30 * time.Second

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			zap.NewProduction,

			NewConnectionDB,
			NewMQConnection,
			NewMQPublisher,

			repository.NewCampaignRepository,

			service.NewDispatchQueueService,

			publishers.NewDispatchPublisher,
		),
		fx.Invoke(runDispatchPublisher),
	).Run()
}

func runDispatchPublisher(cfg *config.Config, publisher publishers.DispatchPublisher, logger *zap.Logger,
	rabbit *mq.RabbitMQ, lc fx.Lifecycle) {
	interval := cfg.Dispatch.PublishInterval
	if interval <= 0 {
		interval = defaultPublishInterval
	}

	appCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rabbit.DeclareTopology([]string{mq.QueueCampaignDispatch}); err != nil {
				logger.Error("declare topology failed", zap.Error(err))
				return err
			}

			logger.Info("queue declared", zap.String("queue", mq.QueueCampaignDispatch))

			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					select {
					case <-ticker.C:
						if err := publisher.Publish(appCtx); err != nil {
							logger.Error("failed to publish campaigns", zap.Error(err))
						}
					case <-appCtx.Done():
						logger.Info("publisher context cancelled")
						return
					}
				}
			}()

			logger.Info("dispatch publisher started", zap.Duration("interval", interval))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping dispatch publisher")
			cancel()
			return rabbit.Close()
		},
	})
}

func NewConnectionDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	ctx := context.Background()
	return mysql.NewConnection(ctx, cfg.Database, logger)
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}
