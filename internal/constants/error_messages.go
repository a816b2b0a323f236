package constants

const MessageErrorFormat = "The '%s' format is invalid"

const (
	ErrCodeInsufficientCredit     = "INSUFFICIENT_CREDIT"
	ErrCodeAllocationFailed       = "ALLOCATION_FAILED"
	ErrCodeInvalidSignature       = "INVALID_SIGNATURE"
	ErrCodeNoValidRecipients      = "NO_VALID_RECIPIENTS"
	ErrCodeCampaignNotFound       = "CAMPAIGN_NOT_FOUND"
	ErrCodeCampaignNotCancellable = "CAMPAIGN_NOT_CANCELLABLE"
	ErrCodeCampaignNotSettleable  = "CAMPAIGN_NOT_SETTLEABLE"
	ErrCodeGatewayDispatchFailed  = "GATEWAY_DISPATCH_FAILED"
	ErrCodePoolNotFound           = "POOL_NOT_FOUND"
	ErrCodePoolNotConfirmable     = "POOL_NOT_CONFIRMABLE"
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeInvalidRequestBody     = "INVALID_REQUEST_BODY"
	ErrCodeMissingTenant          = "MISSING_TENANT"
	ErrCodeDatabase               = "DATABASE_ERROR"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

const (
	ErrMsgInsufficientCredit     = "insufficient credit"
	ErrMsgAllocationFailed       = "credit allocation failed"
	ErrMsgInvalidSignature       = "unauthorized"
	ErrMsgNoValidRecipients      = "no valid recipients"
	ErrMsgCampaignNotFound       = "campaign not found"
	ErrMsgCampaignNotCancellable = "campaign can no longer be cancelled"
	ErrMsgCampaignNotSettleable  = "campaign is not in a settleable state"
	ErrMsgGatewayDispatchFailed  = "gateway rejected the campaign"
	ErrMsgPoolNotFound           = "credit pool not found"
	ErrMsgPoolNotConfirmable     = "credit pool is not pending"
	ErrMsgValidationFailed       = "request validation failed"
	ErrMsgInvalidRequestBody     = "failed to parse request body"
	ErrMsgMissingTenant          = "missing tenant header"
	ErrMsgInternalError          = "Internal server error"
)

const (
	MsgCampaignAccepted  = "campaign accepted"
	MsgCampaignCancelled = "campaign cancelled"
	MsgCostEstimated     = "cost estimated"
	MsgPoolCreated       = "credit pool created"
	MsgPoolConfirmed     = "credit pool confirmed"
	MsgWebhookApplied    = "delivery result applied"
)

var errorMessages = map[string]string{
	ErrCodeInsufficientCredit:     ErrMsgInsufficientCredit,
	ErrCodeAllocationFailed:       ErrMsgAllocationFailed,
	ErrCodeInvalidSignature:       ErrMsgInvalidSignature,
	ErrCodeNoValidRecipients:      ErrMsgNoValidRecipients,
	ErrCodeCampaignNotFound:       ErrMsgCampaignNotFound,
	ErrCodeCampaignNotCancellable: ErrMsgCampaignNotCancellable,
	ErrCodeCampaignNotSettleable:  ErrMsgCampaignNotSettleable,
	ErrCodeGatewayDispatchFailed:  ErrMsgGatewayDispatchFailed,
	ErrCodePoolNotFound:           ErrMsgPoolNotFound,
	ErrCodePoolNotConfirmable:     ErrMsgPoolNotConfirmable,
	ErrCodeValidationFailed:       ErrMsgValidationFailed,
	ErrCodeInvalidRequestBody:     ErrMsgInvalidRequestBody,
	ErrCodeMissingTenant:          ErrMsgMissingTenant,
	ErrCodeInternalError:          ErrMsgInternalError,
}

func GetErrorMessage(code string) string {
	if msg, exists := errorMessages[code]; exists {
		return msg
	}
	return ErrMsgInternalError
}

func GetHTTPStatus(code string) int {
	switch code {
	case ErrCodeInvalidRequestBody, ErrCodeMissingTenant:
		return 400
	case ErrCodeInvalidSignature:
		return 401
	case ErrCodeCampaignNotFound, ErrCodePoolNotFound:
		return 404
	case ErrCodeInsufficientCredit, ErrCodeCampaignNotCancellable, ErrCodeCampaignNotSettleable,
		ErrCodePoolNotConfirmable:
		return 409
	case ErrCodeNoValidRecipients, ErrCodeValidationFailed:
		return 422
	case ErrCodeGatewayDispatchFailed:
		return 502
	default:
		return 500
	}
}
