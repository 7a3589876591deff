package handler

import (
	"context"
	"time"

	financeapp "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BillingService is the document side of the finance application layer
type BillingService interface {
	Create(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, req financeapp.CreateDocumentRequest) (*financeapp.DocumentResponse, error)
	Send(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID) (*financeapp.DocumentResponse, error)
	Cancel(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID, req financeapp.CancelDocumentRequest) (*financeapp.DocumentResponse, error)
	GetByID(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID) (*financeapp.DocumentResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, filter financeapp.DocumentListFilter) ([]financeapp.DocumentResponse, int64, error)
}

// AgingService produces aging reports
type AgingService interface {
	PartyAging(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, partyID string, asOf *time.Time) (*finance.AgingReport, error)
	Summary(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, asOf *time.Time) (*finance.AgingSummary, error)
}

// BillingHandler serves either invoices or bills; one instance per kind
type BillingHandler struct {
	BaseHandler
	kind    finance.DocumentKind
	billing BillingService
	aging   AgingService
}

// NewBillingHandler creates a handler for one document kind
func NewBillingHandler(kind finance.DocumentKind, billing BillingService, aging AgingService) *BillingHandler {
	return &BillingHandler{kind: kind, billing: billing, aging: aging}
}

// Kind returns the document kind this handler serves
func (h *BillingHandler) Kind() finance.DocumentKind {
	return h.kind
}

// Create godoc
// @Summary      Create an invoice or bill
// @Description  Creates a document in sent status, or draft when requested
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        request body financeapp.CreateDocumentRequest true "Document"
// @Success      201 {object} dto.Response{data=financeapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices [post]
// @Router       /bills [post]
func (h *BillingHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req financeapp.CreateDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	doc, err := h.billing.Create(c.Request.Context(), tenantID, h.kind, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// List godoc
// @Summary      List invoices or bills
// @Tags         billing
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        search query string false "Document number or party name contains"
// @Param        party_id query string false "Party"
// @Param        status query string false "Status" Enums(draft, sent, partial, paid, overdue, cancelled)
// @Param        page query int false "Page"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]financeapp.DocumentResponse,meta=dto.Meta}
// @Router       /invoices [get]
// @Router       /bills [get]
func (h *BillingHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter financeapp.DocumentListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	docs, total, err := h.billing.List(c.Request.Context(), tenantID, h.kind, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, docs, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get an invoice or bill
// @Tags         billing
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID"
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.DocumentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id} [get]
// @Router       /bills/{id} [get]
func (h *BillingHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.billing.GetByID(c.Request.Context(), tenantID, h.kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Send godoc
// @Summary      Send a draft document
// @Tags         billing
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.DocumentResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/send [post]
// @Router       /bills/{id}/send [post]
func (h *BillingHandler) Send(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.billing.Send(c.Request.Context(), tenantID, h.kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Cancel godoc
// @Summary      Cancel an unpaid document
// @Description  Releases the document's amount due from the party balance
// @Tags         billing
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body financeapp.CancelDocumentRequest false "Reason"
// @Success      200 {object} dto.Response{data=financeapp.DocumentResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{id}/cancel [post]
// @Router       /bills/{id}/cancel [post]
func (h *BillingHandler) Cancel(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req financeapp.CancelDocumentRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	doc, err := h.billing.Cancel(c.Request.Context(), tenantID, h.kind, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Aging godoc
// @Summary      Aging report
// @Description  One party's aging when party_id is given, otherwise the summary over all parties
// @Tags         billing
// @Produce      json
// @Param        party_id query string false "Party"
// @Param        as_of query string false "As-of date (YYYY-MM-DD), defaults to today"
// @Success      200 {object} dto.Response{data=finance.AgingSummary}
// @Router       /invoices/aging [get]
// @Router       /bills/aging [get]
func (h *BillingHandler) Aging(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	asOf, ok := h.dateQuery(c, "as_of")
	if !ok {
		return
	}

	if partyID := c.Query("party_id"); partyID != "" {
		report, err := h.aging.PartyAging(c.Request.Context(), tenantID, h.kind, partyID, asOf)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, report)
		return
	}

	summary, err := h.aging.Summary(c.Request.Context(), tenantID, h.kind, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// RegisterRoutes mounts the document routes on rg
func (h *BillingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/aging", h.Aging)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/send", h.Send)
	rg.POST("/:id/cancel", h.Cancel)
}
