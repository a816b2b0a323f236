package service

import (
	"errors"
	"fmt"
)

const ErrCodeDatabase = "DATABASE_ERROR"

var (
	ErrInsufficientCredit      = errors.New("INSUFFICIENT_CREDIT")
	ErrAllocation              = errors.New("ALLOCATION_FAILED")
	ErrInvalidSignature        = errors.New("INVALID_SIGNATURE")
	ErrNoValidRecipients       = errors.New("NO_VALID_RECIPIENTS")
	ErrInvalidRecipient        = errors.New("INVALID_RECIPIENT")
	ErrDuplicateRecipient      = errors.New("DUPLICATE_RECIPIENT")
	ErrSettlementConflict      = errors.New("SETTLEMENT_CONFLICT")
	ErrGatewayDispatch         = errors.New("GATEWAY_DISPATCH_FAILED")
	ErrCampaignNotFound        = errors.New("CAMPAIGN_NOT_FOUND")
	ErrCampaignNotCancellable  = errors.New("CAMPAIGN_NOT_CANCELLABLE")
	ErrCampaignBeingDispatched = errors.New("CAMPAIGN_BEING_DISPATCHED")
	ErrCampaignNotSettleable   = errors.New("CAMPAIGN_NOT_SETTLEABLE")
	ErrPoolNotFound            = errors.New("POOL_NOT_FOUND")
	ErrPoolNotConfirmable      = errors.New("POOL_NOT_CONFIRMABLE")
	ErrInvalidPayload          = errors.New("INVALID_PAYLOAD")
	ErrDatabase                = errors.New("DATABASE_ERROR")
)

type Error struct {
	Code  string
	Cause error
}

func NewServiceError(code string, cause error) error {
	return Error{Code: code, Cause: cause}
}

func (e Error) Error() string {
	return e.Cause.Error()
}

func (e Error) Unwrap() error {
	return e.Cause
}

// InsufficientCreditError carries the exact quantity the tenant can still send.
type InsufficientCreditError struct {
	Requested int64
	Sendable  int64
}

func (e InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit: requested %d, sendable %d", e.Requested, e.Sendable)
}

func (e InsufficientCreditError) Unwrap() error {
	return ErrInsufficientCredit
}
