package v1

import (
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/api/contract"
	"github.com/Behyna/sms-services/creditgateway/internal/api/v1/middleware"
	"github.com/Behyna/sms-services/creditgateway/internal/api/validator"
	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultSignatureHeader = "X-Signature"

type Handler struct {
	logger          *zap.Logger
	campaigns       service.CampaignService
	router          service.RouterService
	funding         service.FundingService
	webhook         service.WebhookService
	XValidator      validator.IXValidator
	metrics         *metrics.Metrics
	signatureHeader string
}

func NewHandler(logger *zap.Logger, campaigns service.CampaignService, router service.RouterService,
	funding service.FundingService, webhook service.WebhookService, XValidator validator.IXValidator,
	metrics *metrics.Metrics, cfg *config.Config) *Handler {
	header := cfg.Webhook.HeaderName
	if header == "" {
		header = defaultSignatureHeader
	}

	return &Handler{
		logger:          logger,
		campaigns:       campaigns,
		router:          router,
		funding:         funding,
		webhook:         webhook,
		XValidator:      XValidator,
		metrics:         metrics,
		signatureHeader: header,
	}
}

func (h *Handler) Pong(c *fiber.Ctx) error {
	return c.SendString("pong")
}

func (h *Handler) SubmitCampaign(c *fiber.Ctx) error {
	start := time.Now()
	tenantID := middleware.TenantID(c)

	var handlerRequest SubmitCampaignRequest
	validationStart := time.Now()

	responseError := h.XValidator.Validator(&handlerRequest, constants.MessageErrorFormat, c)
	h.metrics.RecordValidationDuration("submit_campaign", time.Since(validationStart))

	if responseError.Code != "" {
		h.logger.Error("Error Validator",
			zap.String("tenantID", tenantID),
			zap.String("clientRequestID", handlerRequest.ClientRequestID))
		responseError.Code = constants.ErrCodeValidationFailed
		return c.JSON(responseError)
	}

	recipients := make([]service.Recipient, 0, len(handlerRequest.Recipients))
	for _, r := range handlerRequest.Recipients {
		recipients = append(recipients, service.Recipient{Phone: r.Phone, Name: r.Name})
	}

	cmd := service.SubmitCampaignCommand{
		TenantID:        tenantID,
		ClientRequestID: handlerRequest.ClientRequestID,
		Strategy:        model.Strategy(handlerRequest.Strategy),
		ReplaceSms:      handlerRequest.ReplaceSms,
		SenderKey:       handlerRequest.SenderKey,
		KakaoSenderKey:  handlerRequest.KakaoSenderKey,
		TemplateCode:    handlerRequest.TemplateCode,
		Content:         handlerRequest.Content,
		SMSTitle:        handlerRequest.SMSTitle,
		SMSContent:      handlerRequest.SMSContent,
		SendAt:          handlerRequest.SendAt,
		Recipients:      recipients,
	}

	resp, err := h.campaigns.Submit(c.UserContext(), cmd)
	if err != nil {
		h.logger.Warn("Campaign submission failed",
			zap.Error(err),
			zap.String("tenantID", tenantID),
			zap.String("clientRequestID", cmd.ClientRequestID))
		return err
	}

	h.logger.Info("Campaign accepted",
		zap.String("tenantID", tenantID),
		zap.Int64("campaignID", resp.CampaignID),
		zap.String("channel", string(resp.Channel)),
		zap.Bool("duplicate", resp.Duplicate),
		zap.Duration("duration", time.Since(start)))

	status := fiber.StatusCreated
	if resp.Duplicate {
		status = fiber.StatusOK
	}

	return c.Status(status).JSON(contract.Success(trackID(c), constants.MsgCampaignAccepted, resp))
}

func (h *Handler) CancelCampaign(c *fiber.Ctx) error {
	tenantID := middleware.TenantID(c)

	campaignID, err := c.ParamsInt("id")
	if err != nil || campaignID <= 0 {
		return service.NewServiceError(constants.ErrCodeCampaignNotFound, service.ErrCampaignNotFound)
	}

	cmd := service.CancelCampaignCommand{TenantID: tenantID, CampaignID: int64(campaignID)}
	if err := h.campaigns.Cancel(c.UserContext(), cmd); err != nil {
		h.logger.Warn("Campaign cancellation failed",
			zap.Error(err),
			zap.String("tenantID", tenantID),
			zap.Int64("campaignID", cmd.CampaignID))
		return err
	}

	return c.JSON(contract.Success(trackID(c), constants.MsgCampaignCancelled,
		CancelCampaignResponse{CampaignID: cmd.CampaignID, Status: model.CampaignStatusCancelled}))
}

func (h *Handler) GetCampaign(c *fiber.Ctx) error {
	campaignID, err := c.ParamsInt("id")
	if err != nil || campaignID <= 0 {
		return service.NewServiceError(constants.ErrCodeCampaignNotFound, service.ErrCampaignNotFound)
	}

	detail, err := h.campaigns.Get(c.UserContext(), middleware.TenantID(c), int64(campaignID))
	if err != nil {
		return err
	}

	return c.JSON(contract.Success(trackID(c), "", detail))
}

func (h *Handler) EstimateCost(c *fiber.Ctx) error {
	tenantID := middleware.TenantID(c)

	var handlerRequest EstimateCostRequest
	validationStart := time.Now()

	responseError := h.XValidator.Validator(&handlerRequest, constants.MessageErrorFormat, c)
	h.metrics.RecordValidationDuration("estimate_cost", time.Since(validationStart))

	if responseError.Code != "" {
		h.logger.Error("Error Validator", zap.Any("request", handlerRequest))
		responseError.Code = constants.ErrCodeValidationFailed
		return c.JSON(responseError)
	}

	estimate, err := h.router.EstimateCost(c.UserContext(), tenantID,
		model.Channel(handlerRequest.Channel), handlerRequest.Recipients)
	if err != nil {
		return err
	}

	return c.JSON(contract.Success(trackID(c), constants.MsgCostEstimated, estimate))
}

func (h *Handler) CreateCharge(c *fiber.Ctx) error {
	tenantID := middleware.TenantID(c)

	var handlerRequest CreateChargeRequest
	validationStart := time.Now()

	responseError := h.XValidator.Validator(&handlerRequest, constants.MessageErrorFormat, c)
	h.metrics.RecordValidationDuration("create_charge", time.Since(validationStart))

	if responseError.Code != "" {
		h.logger.Error("Error Validator",
			zap.String("tenantID", tenantID),
			zap.String("idempotencyKey", handlerRequest.IdempotencyKey))
		responseError.Code = constants.ErrCodeValidationFailed
		return c.JSON(responseError)
	}

	pool, err := h.funding.CreateCharge(c.UserContext(), service.CreateChargeCommand{
		TenantID:       tenantID,
		PurchaseAmount: handlerRequest.PurchaseAmount,
		CreditsAmount:  handlerRequest.CreditsAmount,
		IdempotencyKey: handlerRequest.IdempotencyKey,
		Confirmed:      handlerRequest.Confirmed,
	})
	if err != nil {
		return err
	}

	h.logger.Info("Credit pool created",
		zap.String("tenantID", tenantID),
		zap.Int64("poolID", pool.ID),
		zap.String("status", string(pool.Status)))

	return c.Status(fiber.StatusCreated).JSON(contract.Success(trackID(c), constants.MsgPoolCreated, newPoolResponse(pool)))
}

func (h *Handler) ConfirmCharge(c *fiber.Ctx) error {
	poolID, err := c.ParamsInt("id")
	if err != nil || poolID <= 0 {
		return service.NewServiceError(constants.ErrCodePoolNotFound, service.ErrPoolNotFound)
	}

	pool, err := h.funding.ConfirmCharge(c.UserContext(), middleware.TenantID(c), int64(poolID))
	if err != nil {
		return err
	}

	return c.JSON(contract.Success(trackID(c), constants.MsgPoolConfirmed, newPoolResponse(pool)))
}

// DeliveryWebhook receives provider delivery reports. The raw body is
// verified before it is decoded.
func (h *Handler) DeliveryWebhook(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	resp, err := h.webhook.ApplyDeliveryResult(c.UserContext(), service.ApplyDeliveryResultCommand{
		Signature: c.Get(h.signatureHeader),
		RawBody:   body,
	})
	if err != nil {
		return err
	}

	return c.JSON(contract.Success(trackID(c), constants.MsgWebhookApplied, resp))
}

func trackID(c *fiber.Ctx) string {
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
