package handler

import (
	"context"

	financeapp "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdempotencyKeyHeader carries the client's payment idempotency key
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentService applies and looks up payments
type PaymentService interface {
	ApplyPayment(ctx context.Context, tenantID uuid.UUID, req financeapp.ApplyPaymentRequest) (*financeapp.PaymentResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*financeapp.PaymentResponse, error)
	ListByParty(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) ([]financeapp.PaymentResponse, error)
}

// PaymentHandler handles payment application
type PaymentHandler struct {
	BaseHandler
	payments PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Apply godoc
// @Summary      Apply a payment
// @Description  Applies one payment across invoices or bills of a single party.
// @Description  A repeated Idempotency-Key returns the original payment with replayed=true.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        Idempotency-Key header string false "Idempotency key"
// @Param        request body financeapp.ApplyPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=financeapp.PaymentResponse}
// @Success      200 {object} dto.Response{data=financeapp.PaymentResponse} "Replayed"
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo} "Overpayment or invalid state"
// @Router       /payments [post]
func (h *PaymentHandler) Apply(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req financeapp.ApplyPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if key := c.GetHeader(IdempotencyKeyHeader); key != "" {
		if len(key) > 128 {
			h.BadRequest(c, "Idempotency-Key must be at most 128 characters")
			return
		}
		req.IdempotencyKey = key
	}

	ctx := c.Request.Context()
	if req.IdempotencyKey != "" {
		ctx = logger.WithIdempotencyKey(ctx, req.IdempotencyKey)
	}

	payment, err := h.payments.ApplyPayment(ctx, tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if payment.Replayed {
		h.Success(c, payment)
		return
	}
	h.Created(c, payment)
}

// Get godoc
// @Summary      Get a payment
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.PaymentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.payments.GetByID(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}

// ListByParty godoc
// @Summary      List a party's payments
// @Tags         payments
// @Produce      json
// @Param        type path string true "Party type" Enums(customer, vendor)
// @Param        partyId path string true "Party ID"
// @Success      200 {object} dto.Response{data=[]financeapp.PaymentResponse}
// @Router       /parties/{type}/{partyId}/payments [get]
func (h *PaymentHandler) ListByParty(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	partyType, ok := h.partyTypeParam(c)
	if !ok {
		return
	}

	payments, err := h.payments.ListByParty(c.Request.Context(), tenantID, partyType, c.Param("partyId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// RegisterRoutes mounts the payment routes on rg
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Apply)
	rg.GET("/:id", h.Get)
}
