package handler

import (
	"context"
	"time"

	revenueapp "github.com/erp/settlement/internal/application/revenue"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PayoutService generates partner payouts and moves them through disbursement
type PayoutService interface {
	GeneratePayouts(ctx context.Context, tenantID uuid.UUID, req revenueapp.GeneratePayoutsRequest) (*revenueapp.PayoutBatchResult, error)
	MarkProcessing(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.PayoutResponse, error)
	MarkCompleted(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.PayoutResponse, error)
	MarkFailed(ctx context.Context, tenantID, id uuid.UUID, req revenueapp.FailPayoutRequest) (*revenueapp.PayoutResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.PayoutResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter revenueapp.PayoutListFilter) ([]revenueapp.PayoutResponse, int64, error)
}

// PayoutSummaryService builds the weekly payout summary
type PayoutSummaryService interface {
	WeeklySummary(ctx context.Context, tenantID uuid.UUID, weekOf *time.Time) (*revenueapp.WeeklyPayoutSummary, error)
}

// PayoutHandler handles payout endpoints
type PayoutHandler struct {
	BaseHandler
	payouts PayoutService
	summary PayoutSummaryService
}

// NewPayoutHandler creates a new PayoutHandler
func NewPayoutHandler(payouts PayoutService, summary PayoutSummaryService) *PayoutHandler {
	return &PayoutHandler{payouts: payouts, summary: summary}
}

// Generate godoc
// @Summary      Generate payouts
// @Description  Creates one payout per partner with settled revenue in the period.
// @Description  Partners already paid for the period are skipped; per-partner failures are reported, not fatal.
// @Tags         payouts
// @Accept       json
// @Produce      json
// @Param        request body revenueapp.GeneratePayoutsRequest true "Period (RFC 3339)"
// @Success      200 {object} dto.Response{data=revenueapp.PayoutBatchResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/generate-payouts [post]
func (h *PayoutHandler) Generate(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req revenueapp.GeneratePayoutsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.payouts.GeneratePayouts(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// List godoc
// @Summary      List payouts
// @Tags         payouts
// @Produce      json
// @Param        partner_id query string false "Partner"
// @Param        status query string false "Status" Enums(pending, processing, completed, failed)
// @Param        page query int false "Page"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]revenueapp.PayoutResponse,meta=dto.Meta}
// @Router       /revenue/payouts [get]
func (h *PayoutHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter revenueapp.PayoutListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	payouts, total, err := h.payouts.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, payouts, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get a payout
// @Tags         payouts
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Success      200 {object} dto.Response{data=revenueapp.PayoutResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/payouts/{id} [get]
func (h *PayoutHandler) Get(c *gin.Context) {
	h.withID(c, h.payouts.GetByID)
}

// MarkProcessing godoc
// @Summary      Start disbursing a payout
// @Tags         payouts
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Success      200 {object} dto.Response{data=revenueapp.PayoutResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/payouts/{id}/processing [post]
func (h *PayoutHandler) MarkProcessing(c *gin.Context) {
	h.withID(c, h.payouts.MarkProcessing)
}

// MarkCompleted godoc
// @Summary      Complete a payout
// @Description  Marks the payout's orders paid out
// @Tags         payouts
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Success      200 {object} dto.Response{data=revenueapp.PayoutResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/payouts/{id}/complete [post]
func (h *PayoutHandler) MarkCompleted(c *gin.Context) {
	h.withID(c, h.payouts.MarkCompleted)
}

// MarkFailed godoc
// @Summary      Fail a payout
// @Description  Releases the payout's orders so a later run can pick them up again
// @Tags         payouts
// @Accept       json
// @Produce      json
// @Param        id path string true "Payout ID" format(uuid)
// @Param        request body revenueapp.FailPayoutRequest true "Reason"
// @Success      200 {object} dto.Response{data=revenueapp.PayoutResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/payouts/{id}/fail [post]
func (h *PayoutHandler) MarkFailed(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req revenueapp.FailPayoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	payout, err := h.payouts.MarkFailed(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payout)
}

// WeeklySummary godoc
// @Summary      Weekly payout summary
// @Description  Per-partner totals for the Monday to Sunday week containing week_of
// @Tags         payouts
// @Produce      json
// @Param        week_of query string false "Any day of the week (YYYY-MM-DD), defaults to the current week"
// @Success      200 {object} dto.Response{data=revenueapp.WeeklyPayoutSummary}
// @Router       /revenue/weekly-payout-summary [get]
func (h *PayoutHandler) WeeklySummary(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	weekOf, ok := h.dateQuery(c, "week_of")
	if !ok {
		return
	}

	summary, err := h.summary.WeeklySummary(c.Request.Context(), tenantID, weekOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *PayoutHandler) withID(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*revenueapp.PayoutResponse, error)) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	payout, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payout)
}

// RegisterRoutes mounts the payout routes on the /revenue group
func (h *PayoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/generate-payouts", h.Generate)
	rg.GET("/weekly-payout-summary", h.WeeklySummary)

	payouts := rg.Group("/payouts")
	payouts.GET("", h.List)
	payouts.GET("/:id", h.Get)
	payouts.POST("/:id/processing", h.MarkProcessing)
	payouts.POST("/:id/complete", h.MarkCompleted)
	payouts.POST("/:id/fail", h.MarkFailed)
}
