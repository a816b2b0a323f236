package service_test

import (
	"context"
	"testing"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/mocks"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ledgerFixture struct {
	store      *store
	allocator  service.AllocatorService
	settlement service.SettlementService
}

func newLedgerFixture() ledgerFixture {
	return newLedgerFixtureWith(testConfig())
}

func newLedgerFixtureWith(cfg *config.Config) ledgerFixture {
	s := newStore()
	allocator := newFakeAllocator(s)
	settlement := service.NewSettlementService(fakeCampaigns{s}, fakeLedger{s}, fakePools{s}, allocator, fakeTx{s},
		cfg, nil, zap.NewNop())
	return ledgerFixture{store: s, allocator: allocator, settlement: settlement}
}

// deducted stores a campaign and deducts its total on creditChannel.
func (f ledgerFixture) deducted(t *testing.T, c model.Campaign) int64 {
	t.Helper()

	require.NoError(t, fakeCampaigns{f.store}.Create(context.Background(), &c))
	_, err := f.allocator.Deduct(context.Background(), service.DeductCommand{
		TenantID: c.TenantID, Channel: c.CreditChannel, Target: c.TotalCount, CampaignID: c.ID,
	})
	require.NoError(t, err)

	return c.ID
}

func (f ledgerFixture) report(id int64, status model.CampaignStatus, counts model.DeliveryCounts) {
	c := f.store.campaign(id)
	c.Status = status
	c.DeliveryCounts = counts
	_ = fakeCampaigns{f.store}.UpdateDeliveryResult(context.Background(), &c)
}

func TestSettlement_Settle(t *testing.T) {
	ctx := context.Background()

	t.Run("alimtalk with sms replacement refunds and re-books delivered units", func(t *testing.T) {
		f := newLedgerFixture()
		p1 := f.store.addPool(pool("t1", "200", "8", "9", "10"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelAlimtalk, CreditChannel: model.ChannelSMS,
			ReplaceSms: true, Status: model.CampaignStatusProgress,
			DeliveryCounts: model.DeliveryCounts{TotalCount: 10, PendingCount: 10},
		})
		f.report(id, model.CampaignStatusSuccess, model.DeliveryCounts{
			TotalCount: 10, SuccessCount: 3, FailedCount: 7, SMSSuccessCount: 5, SMSFailedCount: 2,
		})

		result, err := f.settlement.Settle(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, int64(5), result.RefundCount)
		assert.True(t, dec("45").Equal(result.RefundCredits))
		assert.True(t, dec("450").Equal(result.RefundCost))
		assert.Equal(t, int64(3), result.Reclassified)

		recharges := f.store.recharges()
		require.Len(t, recharges, 1)
		assert.Equal(t, result.RechargePoolID, recharges[0].ID)
		assert.True(t, dec("45").Equal(recharges[0].BalanceCredits))
		assert.True(t, dec("10").Equal(recharges[0].CostPerCredit))
		assert.Equal(t, id, *recharges[0].SourceCampaignID)

		entries := f.store.entries(id)
		require.Len(t, entries, 3)
		assert.Equal(t, model.DirectionRefund, entries[1].Direction)
		assert.Equal(t, int64(-5), entries[1].UnitCount)
		assert.Equal(t, model.ChannelSMS, entries[1].Channel)
		assert.Equal(t, model.DirectionDeduct, entries[2].Direction)
		assert.Equal(t, model.ChannelAlimtalk, entries[2].Channel)
		assert.Equal(t, int64(3), entries[2].UnitCount)

		credits, cost := sumCredits(entries)
		assert.True(t, dec("69").Equal(credits), credits.String())
		assert.True(t, dec("690").Equal(cost), cost.String())
		assert.True(t, dec("86").Equal(f.store.pool(p1).BalanceCredits))
		assert.NotNil(t, f.store.campaign(id).SettledAt)
	})

	t.Run("settles at most once", func(t *testing.T) {
		f := newLedgerFixture()
		f.store.addPool(pool("t1", "100", "8", "9", "1"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
			DeliveryCounts: model.DeliveryCounts{TotalCount: 4},
		})
		f.report(id, model.CampaignStatusSuccess, model.DeliveryCounts{TotalCount: 4, SuccessCount: 2, FailedCount: 2})

		first, err := f.settlement.Settle(ctx, id)
		require.NoError(t, err)
		assert.False(t, first.AlreadySettled)

		second, err := f.settlement.Settle(ctx, id)
		require.NoError(t, err)
		assert.True(t, second.AlreadySettled)

		again, err := f.settlement.RefundAll(ctx, id, service.RefundReasonCancelled)
		require.NoError(t, err)
		assert.True(t, again.AlreadySettled)

		var refunds int
		for _, e := range f.store.entries(id) {
			if e.Direction == model.DirectionRefund {
				refunds++
			}
		}
		assert.Equal(t, 1, refunds)
		assert.Len(t, f.store.recharges(), 1)
	})

	t.Run("fully failed campaign nets to zero", func(t *testing.T) {
		f := newLedgerFixture()
		f.store.addPool(pool("t1", "20", "8", "9", "1.5"))
		f.store.addPool(pool("t1", "100", "8", "9", "0.7"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
			DeliveryCounts: model.DeliveryCounts{TotalCount: 5},
		})
		f.report(id, model.CampaignStatusFailed, model.DeliveryCounts{TotalCount: 5, FailedCount: 5})

		result, err := f.settlement.Settle(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, int64(5), result.RefundCount)
		credits, cost := sumCredits(f.store.entries(id))
		assert.True(t, credits.IsZero(), credits.String())
		assert.True(t, cost.IsZero(), cost.String())
	})

	t.Run("partial refund is proportional across pools", func(t *testing.T) {
		f := newLedgerFixture()
		f.store.addPool(pool("t1", "18", "8", "9", "2"))
		f.store.addPool(pool("t1", "100", "8", "9", "1"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
			DeliveryCounts: model.DeliveryCounts{TotalCount: 4},
		})
		f.report(id, model.CampaignStatusSuccess, model.DeliveryCounts{TotalCount: 4, SuccessCount: 3, FailedCount: 1})

		result, err := f.settlement.Settle(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, int64(1), result.RefundCount)
		assert.True(t, dec("9").Equal(result.RefundCredits))
		// a unit costs 18 on the first pool and 9 on the second
		assert.True(t, dec("13.5").Equal(result.RefundCost), result.RefundCost.String())
	})

	t.Run("plain alimtalk refunds failed units only", func(t *testing.T) {
		f := newLedgerFixture()
		f.store.addPool(pool("t1", "100", "8", "9", "1"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelAlimtalk, CreditChannel: model.ChannelAlimtalk,
			DeliveryCounts: model.DeliveryCounts{TotalCount: 6},
		})
		f.report(id, model.CampaignStatusSuccess, model.DeliveryCounts{TotalCount: 6, SuccessCount: 4, FailedCount: 2})

		result, err := f.settlement.Settle(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, int64(2), result.RefundCount)
		assert.True(t, dec("16").Equal(result.RefundCredits))
		assert.Zero(t, result.Reclassified)
	})

	t.Run("nothing to refund still closes the campaign", func(t *testing.T) {
		f := newLedgerFixture()
		f.store.addPool(pool("t1", "100", "8", "9", "1"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
			DeliveryCounts: model.DeliveryCounts{TotalCount: 2},
		})
		f.report(id, model.CampaignStatusSuccess, model.DeliveryCounts{TotalCount: 2, SuccessCount: 2})

		result, err := f.settlement.Settle(ctx, id)

		require.NoError(t, err)
		assert.Zero(t, result.RefundCount)
		assert.Zero(t, result.RechargePoolID)
		assert.Empty(t, f.store.recharges())

		entries := f.store.entries(id)
		require.Len(t, entries, 2)
		assert.Equal(t, model.DirectionRefund, entries[1].Direction)
		assert.Zero(t, entries[1].PoolID)

		again, err := f.settlement.Settle(ctx, id)
		require.NoError(t, err)
		assert.True(t, again.AlreadySettled)
	})

	t.Run("refund never exceeds deduction", func(t *testing.T) {
		f := newLedgerFixture()
		f.store.addPool(pool("t1", "100", "8", "9", "1"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
			DeliveryCounts: model.DeliveryCounts{TotalCount: 2},
		})
		f.report(id, model.CampaignStatusFailed, model.DeliveryCounts{TotalCount: 9, FailedCount: 9})

		result, err := f.settlement.Settle(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, int64(2), result.RefundCount)
		assert.True(t, dec("18").Equal(result.RefundCredits))
	})

	t.Run("delivered alimtalk beyond remaining credit is reported unfunded", func(t *testing.T) {
		cfg := testConfig()
		cfg.Billing.DefaultCosts.Alimtalk = dec("30")
		f := newLedgerFixtureWith(cfg)
		f.store.addPool(pool("t1", "90", "30", "9", "1"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelAlimtalk, CreditChannel: model.ChannelSMS,
			ReplaceSms: true, DeliveryCounts: model.DeliveryCounts{TotalCount: 10},
		})
		f.report(id, model.CampaignStatusSuccess, model.DeliveryCounts{
			TotalCount: 10, SuccessCount: 3, FailedCount: 7, SMSSuccessCount: 5, SMSFailedCount: 2,
		})

		result, err := f.settlement.Settle(ctx, id)

		require.NoError(t, err)
		assert.Equal(t, int64(5), result.RefundCount)
		assert.True(t, dec("45").Equal(result.RefundCredits))
		// the 45 refunded credits fund one alimtalk unit at 30
		assert.Equal(t, int64(1), result.Reclassified)
		assert.Equal(t, int64(2), result.Unfunded)

		entries := f.store.entries(id)
		require.Len(t, entries, 3)
		assert.Equal(t, model.ChannelAlimtalk, entries[2].Channel)
		assert.Equal(t, int64(1), entries[2].UnitCount)
		assert.NotNil(t, f.store.campaign(id).SettledAt)

		recharges := f.store.recharges()
		require.Len(t, recharges, 1)
		assert.True(t, dec("15").Equal(f.store.pool(recharges[0].ID).BalanceCredits))
	})

	t.Run("open campaign is not settled", func(t *testing.T) {
		for _, status := range []model.CampaignStatus{model.CampaignStatusPending, model.CampaignStatusProgress} {
			t.Run(string(status), func(t *testing.T) {
				f := newLedgerFixture()
				f.store.addPool(pool("t1", "100", "8", "9", "1"))
				id := f.deducted(t, model.Campaign{
					TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
					Status: status, DeliveryCounts: model.DeliveryCounts{TotalCount: 10, PendingCount: 10},
				})

				_, err := f.settlement.Settle(ctx, id)

				var svcErr service.Error
				require.ErrorAs(t, err, &svcErr)
				assert.Equal(t, constants.ErrCodeCampaignNotSettleable, svcErr.Code)
				assert.ErrorIs(t, err, service.ErrCampaignNotSettleable)
				assert.Len(t, f.store.entries(id), 1)
				assert.Empty(t, f.store.recharges())
				assert.Nil(t, f.store.campaign(id).SettledAt)

				f.report(id, model.CampaignStatusSuccess, model.DeliveryCounts{TotalCount: 10, SuccessCount: 10})
				result, err := f.settlement.Settle(ctx, id)
				require.NoError(t, err)
				assert.False(t, result.AlreadySettled)
				assert.Zero(t, result.RefundCount)
			})
		}
	})

	t.Run("unknown campaign", func(t *testing.T) {
		f := newLedgerFixture()

		_, err := f.settlement.Settle(ctx, 404)

		var svcErr service.Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, constants.ErrCodeCampaignNotFound, svcErr.Code)
	})
}

func TestSettlement_RefundAll(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the whole deduction", func(t *testing.T) {
		f := newLedgerFixture()
		p1 := f.store.addPool(pool("t1", "50", "8", "9", "1"))
		id := f.deducted(t, model.Campaign{
			TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
			Status: model.CampaignStatusCancelled, DeliveryCounts: model.DeliveryCounts{TotalCount: 5},
		})

		result, err := f.settlement.RefundAll(ctx, id, service.RefundReasonCancelled)

		require.NoError(t, err)
		assert.Equal(t, int64(5), result.RefundCount)
		assert.True(t, dec("45").Equal(result.RefundCredits))
		assert.True(t, dec("5").Equal(f.store.pool(p1).BalanceCredits))

		capacity, err := f.allocator.Capacity(ctx, "t1", model.ChannelSMS)
		require.NoError(t, err)
		assert.Equal(t, int64(5), capacity)
	})

	t.Run("campaign the gateway accepted is not refunded in full", func(t *testing.T) {
		key := "gw-1"
		tests := []struct {
			name   string
			status model.CampaignStatus
			key    *string
		}{
			{"pending", model.CampaignStatusPending, nil},
			{"in progress", model.CampaignStatusProgress, &key},
			{"finished", model.CampaignStatusSuccess, &key},
			{"failed after acceptance", model.CampaignStatusFailed, &key},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newLedgerFixture()
				f.store.addPool(pool("t1", "100", "8", "9", "1"))
				id := f.deducted(t, model.Campaign{
					TenantID: "t1", ClientRequestID: "r1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
					Status: tt.status, GatewayCampaignKey: tt.key,
					DeliveryCounts: model.DeliveryCounts{TotalCount: 10, PendingCount: 10},
				})

				_, err := f.settlement.RefundAll(ctx, id, "operator")

				assert.ErrorIs(t, err, service.ErrCampaignNotSettleable)
				assert.Len(t, f.store.entries(id), 1)
				assert.Empty(t, f.store.recharges())
			})
		}
	})

	t.Run("concurrent settlement is reported as settled", func(t *testing.T) {
		campaignRepo := &mocks.CampaignRepository{}
		ledgerRepo := &mocks.LedgerRepository{}
		poolRepo := &mocks.CreditPoolRepository{}
		txManager := &mocks.TxManager{}
		svc := service.NewSettlementService(campaignRepo, ledgerRepo, poolRepo, &mocks.AllocatorService{}, txManager,
			testConfig(), nil, zap.NewNop())

		txCtx := mock.AnythingOfType("*context.valueCtx")
		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		campaignRepo.On("LockByID", txCtx, int64(1)).Return(&model.Campaign{
			Base: model.Base{ID: 1}, TenantID: "t1", Channel: model.ChannelSMS, CreditChannel: model.ChannelSMS,
			Status: model.CampaignStatusFailed, DeliveryCounts: model.DeliveryCounts{TotalCount: 1},
		}, nil)
		ledgerRepo.On("HasRefund", txCtx, int64(1)).Return(false, nil)
		ledgerRepo.On("FindDeductsByCampaign", txCtx, int64(1)).Return([]model.LedgerEntry{
			{PoolID: 1, CampaignID: 1, Channel: model.ChannelSMS, UnitCount: 1, CreditsAmount: dec("9"), CostAmount: dec("9")},
		}, nil)
		poolRepo.On("Create", txCtx, mock.AnythingOfType("*model.CreditPool")).Return(repository.ErrPoolDuplicate)

		result, err := svc.RefundAll(ctx, 1, service.RefundReasonRejected)

		require.NoError(t, err)
		assert.True(t, result.AlreadySettled)
		ledgerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		campaignRepo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything)
	})
}
