package service_test

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() *config.Config {
	return &config.Config{
		Billing: config.Billing{
			DefaultCosts: config.DefaultCosts{
				Alimtalk: dec("8"),
				SMS:      dec("9"),
				LMS:      dec("30"),
				MMS:      dec("60"),
			},
			AutoCharge: config.AutoCharge{Threshold: dec("100"), Amount: dec("10000")},
		},
		Webhook:  config.Webhook{Secret: "s3cret", HeaderName: "X-Signature", RetryAttempts: 3},
		Dispatch: config.Dispatch{StaleAfter: 5 * time.Minute, BatchSize: 100},
	}
}

// store is an in-memory stand-in for the database. Transactions snapshot the
// whole state and restore it when fn fails.
type store struct {
	mu        sync.Mutex
	nextID    int64
	pools     map[int64]model.CreditPool
	ledger    []model.LedgerEntry
	campaigns map[int64]model.Campaign
	messages  []model.CampaignMessage
}

func newStore() *store {
	return &store{pools: map[int64]model.CreditPool{}, campaigns: map[int64]model.Campaign{}}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	nextID    int64
	pools     map[int64]model.CreditPool
	ledger    []model.LedgerEntry
	campaigns map[int64]model.Campaign
	messages  []model.CampaignMessage
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		nextID:    s.nextID,
		pools:     maps.Clone(s.pools),
		ledger:    slices.Clone(s.ledger),
		campaigns: maps.Clone(s.campaigns),
		messages:  slices.Clone(s.messages),
	}
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.pools = snap.pools
	s.ledger = snap.ledger
	s.campaigns = snap.campaigns
	s.messages = snap.messages
}

func (s *store) addPool(p model.CreditPool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	if p.Status == "" {
		p.Status = model.PoolStatusSuccess
	}
	if p.Kind == "" {
		p.Kind = model.PoolKindCharge
	}
	s.pools[p.ID] = p
	return p.ID
}

func (s *store) pool(id int64) model.CreditPool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pools[id]
}

func (s *store) entries(campaignID int64) []model.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LedgerEntry
	for _, e := range s.ledger {
		if e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	return out
}

func (s *store) campaign(id int64) model.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaigns[id]
}

func (s *store) recharges() []model.CreditPool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CreditPool
	for _, id := range slices.Sorted(maps.Keys(s.pools)) {
		if p := s.pools[id]; p.Kind == model.PoolKindRecharge {
			out = append(out, p)
		}
	}
	return out
}

type fakeTx struct{ s *store }

func (t fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.s.snapshot()
	if err := fn(ctx); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

type fakePools struct{ s *store }

func (r fakePools) Create(_ context.Context, pool *model.CreditPool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if pool.IdempotencyKey != nil {
		for _, p := range r.s.pools {
			if p.TenantID == pool.TenantID && p.IdempotencyKey != nil && *p.IdempotencyKey == *pool.IdempotencyKey {
				return repository.ErrPoolDuplicate
			}
		}
	}
	pool.ID = r.s.id()
	r.s.pools[pool.ID] = *pool
	return nil
}

func (r fakePools) GetByID(_ context.Context, id int64) (*model.CreditPool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pools[id]
	if !ok {
		return nil, repository.ErrPoolNotFound
	}
	return &p, nil
}

func (r fakePools) GetByIdempotencyKey(_ context.Context, tenantID, key string) (*model.CreditPool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.pools {
		if p.TenantID == tenantID && p.IdempotencyKey != nil && *p.IdempotencyKey == key {
			return &p, nil
		}
	}
	return nil, repository.ErrPoolNotFound
}

func (r fakePools) FindEligible(_ context.Context, tenantID string, channel model.Channel, _ bool) ([]model.CreditPool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.CreditPool
	for _, id := range slices.Sorted(maps.Keys(r.s.pools)) {
		p := r.s.pools[id]
		if p.TenantID == tenantID && p.Eligible(channel) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r fakePools) Consume(_ context.Context, pool *model.CreditPool, credits decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.pools[pool.ID]
	if !ok || stored.Version != pool.Version || stored.BalanceCredits.LessThan(credits) {
		return repository.ErrPoolConflict
	}
	stored.UsedCredits = stored.UsedCredits.Add(credits)
	stored.BalanceCredits = stored.BalanceCredits.Sub(credits)
	stored.Version++
	if stored.BalanceCredits.IsZero() {
		now := time.Now()
		stored.RetiredAt = &now
	}
	r.s.pools[pool.ID] = stored
	*pool = stored
	return nil
}

func (r fakePools) UpdateStatus(_ context.Context, id int64, from, to model.PoolStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pools[id]
	if !ok || p.Status != from {
		return repository.ErrNoRowsAffected
	}
	p.Status = to
	r.s.pools[id] = p
	return nil
}

func (r fakePools) SumBalance(_ context.Context, tenantID string) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := decimal.Zero
	for _, p := range r.s.pools {
		if p.TenantID == tenantID && p.Status == model.PoolStatusSuccess && p.RetiredAt == nil {
			total = total.Add(p.BalanceCredits)
		}
	}
	return total, nil
}

type fakeLedger struct{ s *store }

func (r fakeLedger) Create(_ context.Context, entry *model.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.SettlementCampaignID != nil {
		for _, e := range r.s.ledger {
			if e.SettlementCampaignID != nil && *e.SettlementCampaignID == *entry.SettlementCampaignID {
				return repository.ErrRefundExists
			}
		}
	}
	entry.ID = r.s.id()
	r.s.ledger = append(r.s.ledger, *entry)
	return nil
}

func (r fakeLedger) FindByCampaign(_ context.Context, campaignID int64) ([]model.LedgerEntry, error) {
	return r.s.entries(campaignID), nil
}

func (r fakeLedger) FindDeductsByCampaign(_ context.Context, campaignID int64) ([]model.LedgerEntry, error) {
	var out []model.LedgerEntry
	for _, e := range r.s.entries(campaignID) {
		if e.Direction == model.DirectionDeduct {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r fakeLedger) HasRefund(_ context.Context, campaignID int64) (bool, error) {
	for _, e := range r.s.entries(campaignID) {
		if e.SettlementCampaignID != nil {
			return true, nil
		}
	}
	return false, nil
}

type fakeCampaigns struct{ s *store }

func (r fakeCampaigns) Create(_ context.Context, campaign *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.campaigns {
		if c.TenantID == campaign.TenantID && c.ClientRequestID == campaign.ClientRequestID {
			return repository.ErrCampaignDuplicate
		}
	}
	campaign.ID = r.s.id()
	r.s.campaigns[campaign.ID] = *campaign
	return nil
}

func (r fakeCampaigns) GetByID(_ context.Context, id int64) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, repository.ErrCampaignNotFound
	}
	return &c, nil
}

func (r fakeCampaigns) GetByClientRequestID(_ context.Context, tenantID, clientRequestID string) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.campaigns {
		if c.TenantID == tenantID && c.ClientRequestID == clientRequestID {
			return &c, nil
		}
	}
	return nil, repository.ErrCampaignNotFound
}

func (r fakeCampaigns) LockByID(ctx context.Context, id int64) (*model.Campaign, error) {
	return r.GetByID(ctx, id)
}

func (r fakeCampaigns) UpdateDeliveryResult(_ context.Context, campaign *model.Campaign) error {
	return r.mutate(campaign.ID, func(c *model.Campaign) bool {
		c.Status = campaign.Status
		c.DeliveryCounts = campaign.DeliveryCounts
		c.WebhookReceivedAt = campaign.WebhookReceivedAt
		return true
	})
}

func (r fakeCampaigns) ClaimForDispatch(_ context.Context, id int64, staleThreshold time.Time) error {
	return r.mutate(id, func(c *model.Campaign) bool {
		if c.Status != model.CampaignStatusPending || (c.DispatchAttemptAt != nil && !c.DispatchAttemptAt.Before(staleThreshold)) {
			return false
		}
		now := time.Now()
		c.DispatchAttemptAt = &now
		return true
	})
}

func (r fakeCampaigns) ReleaseClaim(_ context.Context, id int64) error {
	_ = r.mutate(id, func(c *model.Campaign) bool {
		c.DispatchAttemptAt = nil
		return c.Status == model.CampaignStatusPending
	})
	return nil
}

func (r fakeCampaigns) MarkDispatched(_ context.Context, id int64, gatewayKey string) error {
	return r.mutate(id, func(c *model.Campaign) bool {
		if c.Status != model.CampaignStatusPending {
			return false
		}
		c.Status = model.CampaignStatusProgress
		c.GatewayCampaignKey = &gatewayKey
		return true
	})
}

func (r fakeCampaigns) MarkFailed(_ context.Context, id int64, lastError string) error {
	return r.mutate(id, func(c *model.Campaign) bool {
		if c.Status != model.CampaignStatusPending {
			return false
		}
		c.Status = model.CampaignStatusFailed
		c.LastError = &lastError
		return true
	})
}

func (r fakeCampaigns) MarkCancelled(_ context.Context, id int64) error {
	return r.mutate(id, func(c *model.Campaign) bool {
		if c.Status != model.CampaignStatusPending || c.DispatchAttemptAt != nil {
			return false
		}
		c.Status = model.CampaignStatusCancelled
		return true
	})
}

func (r fakeCampaigns) MarkSettled(_ context.Context, id int64, settledAt time.Time) error {
	_ = r.mutate(id, func(c *model.Campaign) bool {
		c.SettledAt = &settledAt
		return true
	})
	return nil
}

func (r fakeCampaigns) FindUnpublishedPending(_ context.Context, limit int) ([]model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Campaign
	for _, id := range slices.Sorted(maps.Keys(r.s.campaigns)) {
		c := r.s.campaigns[id]
		if c.Status == model.CampaignStatusPending && !c.DispatchPublished && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r fakeCampaigns) MarkPublished(_ context.Context, id int64) error {
	_ = r.mutate(id, func(c *model.Campaign) bool {
		c.DispatchPublished = true
		return true
	})
	return nil
}

func (r fakeCampaigns) mutate(id int64, fn func(c *model.Campaign) bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || !fn(&c) {
		return repository.ErrNoRowsAffected
	}
	r.s.campaigns[id] = c
	return nil
}

type fakeMessages struct{ s *store }

func (r fakeMessages) CreateBatch(_ context.Context, messages []model.CampaignMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range messages {
		m.ID = r.s.id()
		r.s.messages = append(r.s.messages, m)
	}
	return nil
}

func (r fakeMessages) FindByCampaign(_ context.Context, campaignID int64) ([]model.CampaignMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.CampaignMessage
	for _, m := range r.s.messages {
		if m.CampaignID == campaignID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r fakeMessages) UpdateResultByPhone(_ context.Context, campaignID int64, phone string, kakaoCode, smsCode *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, m := range r.s.messages {
		if m.CampaignID == campaignID && m.Phone == phone {
			r.s.messages[i].KakaoResultCode = kakaoCode
			r.s.messages[i].SMSResultCode = smsCode
			return nil
		}
	}
	return repository.ErrNoRowsAffected
}

// sumCredits adds the signed credit and cost amounts of entries.
func sumCredits(entries []model.LedgerEntry) (credits, cost decimal.Decimal) {
	credits, cost = decimal.Zero, decimal.Zero
	for _, e := range entries {
		credits = credits.Add(e.CreditsAmount)
		cost = cost.Add(e.CostAmount)
	}
	return credits, cost
}

func pool(tenant string, balance, alimtalk, sms, costPerCredit string) model.CreditPool {
	return model.CreditPool{
		TenantID:       tenant,
		Status:         model.PoolStatusSuccess,
		PurchaseAmount: dec(balance).Mul(dec(costPerCredit)),
		CreditsAmount:  dec(balance),
		UsedCredits:    decimal.Zero,
		BalanceCredits: dec(balance),
		CostPerCredit:  dec(costPerCredit),
		AlimtalkCost:   dec(alimtalk),
		SMSCost:        dec(sms),
		LMSCost:        dec("30"),
		MMSCost:        dec("60"),
	}
}
