package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var koreanMobile = regexp.MustCompile(`^01[016789][0-9]{7,8}$`)

type RouterService interface {
	Route(ctx context.Context, cmd RouteCommand) (RouteDecision, error)
	EstimateCost(ctx context.Context, tenantID string, channel model.Channel, recipients int64) (CostEstimate, error)
	ValidateRecipients(recipients []Recipient) ([]Recipient, error)
}

type router struct {
	poolRepo  repository.CreditPoolRepository
	allocator AllocatorService
	costs     config.DefaultCosts
	logger    *zap.Logger
}

func NewRouterService(poolRepo repository.CreditPoolRepository, allocator AllocatorService,
	cfg *config.Config, logger *zap.Logger) RouterService {
	return &router{poolRepo: poolRepo, allocator: allocator, costs: cfg.Billing.DefaultCosts, logger: logger}
}

// Route decides the delivery channel of a campaign and the channel whose unit
// cost is deducted for it.
func (r *router) Route(ctx context.Context, cmd RouteCommand) (RouteDecision, error) {
	switch cmd.Strategy {
	case model.StrategyAlimtalkFirst:
		return r.alimtalk(cmd), nil

	case model.StrategySMSOnly:
		channel := ClassifyByLength(contentLength(smsText(cmd)))
		return RouteDecision{Channel: channel, CreditChannel: channel}, nil

	case model.StrategyCostOptimized:
		smsChannel := ClassifyByLength(contentLength(smsText(cmd)))

		alimtalkUnit, err := r.unitCost(ctx, cmd.TenantID, model.ChannelAlimtalk)
		if err != nil {
			return RouteDecision{}, err
		}
		smsUnit, err := r.unitCost(ctx, cmd.TenantID, smsChannel)
		if err != nil {
			return RouteDecision{}, err
		}

		count := decimal.NewFromInt(cmd.RecipientCount)
		alimtalkCost := alimtalkUnit.Mul(count)
		smsCost := smsUnit.Mul(count)

		r.logger.Debug("Comparing channel costs",
			zap.String("tenantID", cmd.TenantID),
			zap.String("alimtalkCost", alimtalkCost.String()),
			zap.String("smsCost", smsCost.String()),
			zap.String("smsChannel", string(smsChannel)))

		if alimtalkUnit.IsPositive() && alimtalkCost.LessThanOrEqual(smsCost) {
			return r.alimtalk(cmd), nil
		}
		return RouteDecision{Channel: smsChannel, CreditChannel: smsChannel}, nil

	default:
		return RouteDecision{}, NewServiceError(constants.ErrCodeValidationFailed,
			fmt.Errorf("unknown strategy %q", cmd.Strategy))
	}
}

func (r *router) alimtalk(cmd RouteCommand) RouteDecision {
	credit := r.allocator.ClassifyChannel(model.ChannelAlimtalk, cmd.ReplaceSms, contentLength(cmd.SMSContent))
	return RouteDecision{Channel: model.ChannelAlimtalk, CreditChannel: credit, ReplaceSms: cmd.ReplaceSms}
}

func smsText(cmd RouteCommand) string {
	if cmd.SMSContent != "" {
		return cmd.SMSContent
	}
	return cmd.Content
}

// unitCost is the channel price of the first pool the allocator would draw
// from, or the configured default when the tenant has none.
func (r *router) unitCost(ctx context.Context, tenantID string, channel model.Channel) (decimal.Decimal, error) {
	pools, err := r.poolRepo.FindEligible(ctx, tenantID, channel, false)
	if err != nil {
		r.logger.Error("Failed to load eligible pools",
			zap.String("tenantID", tenantID),
			zap.String("channel", string(channel)),
			zap.Error(err))
		return decimal.Zero, NewServiceError(ErrCodeDatabase, err)
	}

	for _, pool := range pools {
		if pool.MaxSendable(channel) >= 1 {
			return pool.UnitCost(channel), nil
		}
	}

	return r.defaultCost(channel), nil
}

func (r *router) defaultCost(channel model.Channel) decimal.Decimal {
	switch channel {
	case model.ChannelAlimtalk:
		return r.costs.Alimtalk
	case model.ChannelSMS:
		return r.costs.SMS
	case model.ChannelLMS:
		return r.costs.LMS
	case model.ChannelMMS:
		return r.costs.MMS
	default:
		return decimal.Zero
	}
}

func (r *router) EstimateCost(ctx context.Context, tenantID string, channel model.Channel, recipients int64) (CostEstimate, error) {
	unit, err := r.unitCost(ctx, tenantID, channel)
	if err != nil {
		return CostEstimate{}, err
	}

	capacity, err := r.allocator.Capacity(ctx, tenantID, channel)
	if err != nil {
		return CostEstimate{}, err
	}

	return CostEstimate{
		Channel:         channel,
		UnitCost:        unit,
		TotalCost:       unit.Mul(decimal.NewFromInt(recipients)),
		CurrentCapacity: capacity,
	}, nil
}

// ValidateRecipients normalises phone numbers to E.164 and removes duplicates.
// Invalid entries are dropped; only an empty result is an error.
func (r *router) ValidateRecipients(recipients []Recipient) ([]Recipient, error) {
	valid := make([]Recipient, 0, len(recipients))
	seen := make(map[string]struct{}, len(recipients))

	var dropped *multierror.Error
	for i, rcpt := range recipients {
		phone, err := NormalizePhone(rcpt.Phone)
		if err != nil {
			dropped = multierror.Append(dropped, fmt.Errorf("recipient %d: %w", i, err))
			continue
		}

		if _, dup := seen[phone]; dup {
			dropped = multierror.Append(dropped, fmt.Errorf("recipient %d: %w: %s", i, ErrDuplicateRecipient, phone))
			continue
		}

		seen[phone] = struct{}{}
		valid = append(valid, Recipient{Phone: phone, Name: strings.TrimSpace(rcpt.Name)})
	}

	if dropped != nil {
		r.logger.Warn("Dropped recipients",
			zap.Int("dropped", dropped.Len()),
			zap.Int("valid", len(valid)),
			zap.Error(dropped.ErrorOrNil()))
	}

	if len(valid) == 0 {
		return nil, NewServiceError(constants.ErrCodeNoValidRecipients, ErrNoValidRecipients)
	}

	return valid, nil
}

// NormalizePhone converts a Korean mobile number, with or without the +82
// country code and separators, to E.164.
func NormalizePhone(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	switch {
	case strings.HasPrefix(digits, "+82"):
		digits = "0" + strings.TrimPrefix(strings.TrimPrefix(digits, "+82"), "0")
	case strings.HasPrefix(digits, "82") && len(digits) >= 11:
		digits = "0" + strings.TrimPrefix(strings.TrimPrefix(digits, "82"), "0")
	}

	if !koreanMobile.MatchString(digits) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecipient, raw)
	}

	return "+82" + digits[1:], nil
}
