package main

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/consumers"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/Behyna/sms-services/creditgateway/pkg/httpclient"
	"github.com/Behyna/sms-services/creditgateway/pkg/kakaogateway"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"github.com/Behyna/sms-services/creditgateway/pkg/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			zap.NewProduction,
			NewConnectionDB,
			NewMQConnection,
			NewMQConsumer,
			NewMQPublisher,
			NewMetrics,

			repository.NewCreditPoolRepository,
			repository.NewLedgerRepository,
			repository.NewCampaignRepository,
			repository.NewCampaignMessageRepository,
			repository.NewTransactionManager,
			NewKakaoGateway,

			service.NewAllocatorService,
			service.NewRouterService,
			service.NewSettlementService,
			service.NewFundingService,
			service.NewCampaignService,
			service.NewDispatchService,

			consumers.NewDispatchConsumer,
		),
		fx.Invoke(runDispatchConsumer),
	).Run()
}

func runDispatchConsumer(dispatchConsumer consumers.DispatchConsumer, logger *zap.Logger,
	rabbit *mq.RabbitMQ, lc fx.Lifecycle,
) {
	appCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			queues := []string{mq.QueueCampaignDispatch, mq.QueueCreditAutoCharge}
			if err := rabbit.DeclareTopology(queues); err != nil {
				logger.Error("declare topology failed", zap.Error(err))
				return err
			}
			logger.Info("queue declared", zap.String("queue", mq.QueueCampaignDispatch))

			go func() {
				if err := dispatchConsumer.Consume(appCtx); err != nil && appCtx.Err() == nil {
					logger.Error("consumer exited", zap.Error(err))
				}
			}()

			logger.Info("dispatch consumer started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping dispatch consumer")
			cancel()
			return rabbit.Close()
		},
	})
}

func NewConnectionDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	ctx := context.Background()
	return mysql.NewConnection(ctx, cfg.Database, logger)
}

func NewKakaoGateway(cfg *config.Config) kakaogateway.Gateway {
	client := httpclient.NewHTTPClient(cfg.Gateway.Timeout)
	return kakaogateway.NewGateway(cfg.Gateway, client)
}

func NewMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.DefaultRegisterer)
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQConsumer(rabbitMQ *mq.RabbitMQ) (mq.Consumer, error) {
	return rabbitMQ.CreateConsumer()
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}
