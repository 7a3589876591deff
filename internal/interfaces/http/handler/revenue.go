package handler

import (
	"context"

	revenueapp "github.com/erp/settlement/internal/application/revenue"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderRevenueService records and transitions order revenue
type OrderRevenueService interface {
	Record(ctx context.Context, tenantID uuid.UUID, req revenueapp.RecordOrderRevenueRequest) (*revenueapp.OrderRevenueResponse, error)
	Settle(ctx context.Context, tenantID uuid.UUID, orderID string) (*revenueapp.OrderRevenueResponse, error)
	Dispute(ctx context.Context, tenantID uuid.UUID, orderID string, req revenueapp.DisputeOrderRequest) (*revenueapp.OrderRevenueResponse, error)
	GetByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*revenueapp.OrderRevenueResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter revenueapp.OrderRevenueListFilter) ([]revenueapp.OrderRevenueResponse, int64, error)
}

// CommissionService quotes commissions
type CommissionService interface {
	Calculate(ctx context.Context, req revenueapp.CalculateCommissionRequest) (*revenueapp.CommissionResponse, error)
}

// RevenueHandler handles order revenue and commission quotes
type RevenueHandler struct {
	BaseHandler
	orders      OrderRevenueService
	commissions CommissionService
}

// NewRevenueHandler creates a new RevenueHandler
func NewRevenueHandler(orders OrderRevenueService, commissions CommissionService) *RevenueHandler {
	return &RevenueHandler{orders: orders, commissions: commissions}
}

// RecordOrder godoc
// @Summary      Record order revenue
// @Description  Splits a completed order into platform and partner commission
// @Tags         revenue
// @Accept       json
// @Produce      json
// @Param        request body revenueapp.RecordOrderRevenueRequest true "Order revenue"
// @Success      201 {object} dto.Response{data=revenueapp.OrderRevenueResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo} "Validation failed or unknown rate"
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo} "Order already recorded"
// @Router       /revenue/orders [post]
func (h *RevenueHandler) RecordOrder(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req revenueapp.RecordOrderRevenueRequest
	if !h.bindJSON(c, &req) {
		return
	}

	record, err := h.orders.Record(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, record)
}

// ListOrders godoc
// @Summary      List order revenue
// @Tags         revenue
// @Produce      json
// @Param        partner_id query string false "Partner"
// @Param        status query string false "Status" Enums(pending, received, settled, paid_out, disputed)
// @Param        page query int false "Page"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]revenueapp.OrderRevenueResponse,meta=dto.Meta}
// @Router       /revenue/orders [get]
func (h *RevenueHandler) ListOrders(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter revenueapp.OrderRevenueListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	records, total, err := h.orders.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

// GetOrder godoc
// @Summary      Get an order's revenue
// @Tags         revenue
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} dto.Response{data=revenueapp.OrderRevenueResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/orders/{orderId} [get]
func (h *RevenueHandler) GetOrder(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	record, err := h.orders.GetByOrderID(c.Request.Context(), tenantID, c.Param("orderId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// SettleOrder godoc
// @Summary      Settle an order's revenue
// @Tags         revenue
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Success      200 {object} dto.Response{data=revenueapp.OrderRevenueResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/orders/{orderId}/settle [post]
func (h *RevenueHandler) SettleOrder(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	record, err := h.orders.Settle(c.Request.Context(), tenantID, c.Param("orderId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// DisputeOrder godoc
// @Summary      Dispute an order's revenue
// @Description  Disputed revenue is held out of payouts until resolved
// @Tags         revenue
// @Accept       json
// @Produce      json
// @Param        orderId path string true "Order ID"
// @Param        request body revenueapp.DisputeOrderRequest true "Reason"
// @Success      200 {object} dto.Response{data=revenueapp.OrderRevenueResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/orders/{orderId}/dispute [post]
func (h *RevenueHandler) DisputeOrder(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req revenueapp.DisputeOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	record, err := h.orders.Dispute(c.Request.Context(), tenantID, c.Param("orderId"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, record)
}

// CalculateCommission godoc
// @Summary      Quote a commission
// @Description  Unknown tiers fall back to the default tier; unknown commission types are rejected
// @Tags         revenue
// @Accept       json
// @Produce      json
// @Param        request body revenueapp.CalculateCommissionRequest true "Quote"
// @Success      200 {object} dto.Response{data=revenueapp.CommissionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/commission/calculate [post]
func (h *RevenueHandler) CalculateCommission(c *gin.Context) {
	var req revenueapp.CalculateCommissionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quote, err := h.commissions.Calculate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// RegisterRoutes mounts the order and commission routes on rg
func (h *RevenueHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("", h.RecordOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:orderId", h.GetOrder)
	orders.POST("/:orderId/settle", h.SettleOrder)
	orders.POST("/:orderId/dispute", h.DisputeOrder)

	rg.POST("/commission/calculate", h.CalculateCommission)
}
