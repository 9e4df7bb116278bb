// Package handlers contains the HTTP handlers for the payment service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/qaura/qaura-payments/internal/core/domain"
	"github.com/qaura/qaura-payments/internal/core/ports"
	"github.com/qaura/qaura-payments/internal/platform/logger"
)

const serviceName = "qaura-payments"

type preferenceCreator interface {
	CreatePreference(ctx context.Context, intent domain.PurchaseIntent) (*domain.CreatedPreference, error)
}

type webhookReconciler interface {
	Handle(ctx context.Context, event domain.WebhookEvent) domain.ReconciliationResult
}

type paymentLookup interface {
	GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
}

// Pinger is a backing dependency checked by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readinessTimeout = 2 * time.Second

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	preferences preferenceCreator
	reconciler  webhookReconciler
	payments    paymentLookup
	validator   ports.WebhookValidator
	log         *logger.Logger
	version     string
	deps        map[string]Pinger
}

// PaymentHandlerParams wires a PaymentHandler. Validator may be nil to accept
// unsigned notifications.
type PaymentHandlerParams struct {
	Preferences preferenceCreator
	Reconciler  webhookReconciler
	Payments    paymentLookup
	Validator   ports.WebhookValidator
	Logger      *logger.Logger
	Version     string

	// Dependencies are pinged by /ready, keyed by the name reported back.
	Dependencies map[string]Pinger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(p PaymentHandlerParams) *PaymentHandler {
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &PaymentHandler{
		preferences: p.Preferences,
		reconciler:  p.Reconciler,
		payments:    p.Payments,
		validator:   p.Validator,
		log:         p.Logger,
		version:     p.Version,
		deps:        p.Dependencies,
	}
}

type createPreferenceRequest struct {
	Title       string              `json:"title"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Quantity    *int                `json:"quantity"`
	Description string              `json:"description"`
	PlanType    string              `json:"plan_type"`
	PayerEmail  string              `json:"payer_email"`
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  domain.Code `json:"code"`
}

// CreatePreference handles POST /api/create-preference
func (h *PaymentHandler) CreatePreference(c *gin.Context) {
	var req createPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Error: "Invalid request: " + err.Error(),
			Code:  domain.CodeValidation,
		})
		return
	}

	created, err := h.preferences.CreatePreference(c.Request.Context(), domain.PurchaseIntent{
		PlanID:      req.PlanType,
		Title:       req.Title,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
		Description: req.Description,
		PayerEmail:  req.PayerEmail,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, created)
}

type paymentResponse struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	DateCreated       *time.Time      `json:"date_created,omitempty"`
}

// GetPayment handles GET /api/payment/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	record, err := h.payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := paymentResponse{
		ID:                record.PaymentID,
		Status:            record.Status.String(),
		StatusDetail:      record.StatusDetail,
		TransactionAmount: record.TransactionAmount,
	}
	if !record.DateCreated.IsZero() {
		created := record.DateCreated
		resp.DateCreated = &created
	}
	c.JSON(http.StatusOK, resp)
}

// flexibleID accepts ids sent either as JSON strings or numbers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type webhookNotification struct {
	ID       flexibleID `json:"id"`
	LiveMode bool       `json:"live_mode"`
	Type     string     `json:"type"`
	Action   string     `json:"action"`
	Data     struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// HandleWebhook handles POST /api/webhook
// Receives Mercado Pago notifications; acknowledges everything except transient failures.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	event, err := h.parseWebhook(c)
	if err != nil {
		// MP may send different formats, log and accept
		h.log.Warn(h.log.WithField(ctx, "error", err.Error()), "webhook.parse_failed")
		c.JSON(http.StatusOK, gin.H{"status": domain.ResultInvalidEvent})
		return
	}

	if h.validator != nil {
		signedID := c.Query("data.id")
		if signedID == "" {
			signedID = event.DataID
		}
		if !h.validator.ValidateSignature(c.GetHeader("x-signature"), c.GetHeader("x-request-id"), signedID) {
			h.log.Warn(h.log.WithField(ctx, "data_id", event.DataID), "webhook.signature_invalid")
			c.JSON(http.StatusUnauthorized, errorResponse{
				Error: domain.ErrWebhookValidationFailed.Error(),
				Code:  domain.CodeInvalidSignature,
			})
			return
		}
	}

	result := h.reconciler.Handle(ctx, event)
	if !result.Acknowledge() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": result.Kind})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": result.Kind})
}

// parseWebhook reads the JSON body and falls back to query-string
// notifications (type/data.id, or the legacy topic/id form).
func (h *PaymentHandler) parseWebhook(c *gin.Context) (domain.WebhookEvent, error) {
	var event domain.WebhookEvent

	body, err := c.GetRawData()
	if err != nil {
		return event, err
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		var n webhookNotification
		if err := json.Unmarshal(body, &n); err != nil {
			return event, err
		}
		event = domain.WebhookEvent{
			NotificationID: string(n.ID),
			Type:           n.Type,
			Action:         n.Action,
			DataID:         string(n.Data.ID),
			LiveMode:       n.LiveMode,
		}
	}

	if event.Type == "" {
		event.Type = c.Query("type")
	}
	if event.DataID == "" {
		event.DataID = c.Query("data.id")
	}
	if event.Type == "" {
		if topic := c.Query("topic"); topic != "" {
			event.Type = topic
			if event.DataID == "" {
				event.DataID = c.Query("id")
			}
		}
	}
	return event, nil
}

// Health handles GET /health
func (h *PaymentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   serviceName,
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. It answers 503 when any dependency fails its ping.
func (h *PaymentHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.log.Warn(h.log.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "readiness.check_failed")
			checks[name] = err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": serviceName,
		"checks":  checks,
	})
}

func (h *PaymentHandler) writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	code := domain.CodeOf(err)
	meta := domain.MetadataFor(code)

	message := "Internal server error"
	switch code {
	case domain.CodeValidation:
		if svcErr := domain.AsServiceError(err); svcErr != nil && svcErr.Message != "" {
			message = svcErr.Message
		}
	case domain.CodeGatewayUnavailable:
		message = "Payment provider temporarily unavailable"
	case domain.CodeGatewayError:
		message = "Payment provider rejected the request"
	case domain.CodeNotFound:
		message = "Payment not found"
	default:
		h.log.Error(ctx, "request.failed", err)
	}

	c.JSON(meta.HTTPStatus, errorResponse{Error: message, Code: code})
}
