package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/Behyna/sms-services/creditgateway/pkg/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// deps are the services a command works with. The CLI talks to the database
// only; nothing it runs publishes to the broker.
type deps struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB
	allocator  service.AllocatorService
	settlement service.SettlementService
	funding    service.FundingService
}

func loadDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	db, err := mysql.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	pools := repository.NewCreditPoolRepository(db)
	ledger := repository.NewLedgerRepository(db)
	campaigns := repository.NewCampaignRepository(db)
	txManager := repository.NewTransactionManager(db)

	allocator := service.NewAllocatorService(pools, ledger, txManager, nil, logger)

	return &deps{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		allocator:  allocator,
		settlement: service.NewSettlementService(campaigns, ledger, pools, allocator, txManager, cfg, nil, logger),
		funding:    service.NewFundingService(pools, nil, cfg, nil, logger),
	}, nil
}

func (d *deps) close() {
	_ = d.logger.Sync()
	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
