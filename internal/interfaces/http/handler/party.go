package handler

import (
	"context"

	financeapp "github.com/erp/settlement/internal/application/finance"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BalanceService reads party accounts and repairs drifted balances
type BalanceService interface {
	GetAccount(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*financeapp.PartyAccountResponse, error)
	ReconcileBalances(ctx context.Context, tenantID uuid.UUID, partyType *finance.PartyType) (*financeapp.BalanceReconciliationReport, error)
}

// PartyHandler handles party account endpoints
type PartyHandler struct {
	BaseHandler
	balances BalanceService
	payments *PaymentHandler
}

// NewPartyHandler creates a new PartyHandler. payments may be nil, in which
// case the party payment listing is not mounted.
func NewPartyHandler(balances BalanceService, payments *PaymentHandler) *PartyHandler {
	return &PartyHandler{balances: balances, payments: payments}
}

// partyTypeParam parses the :type path parameter
func (h *BaseHandler) partyTypeParam(c *gin.Context) (finance.PartyType, bool) {
	partyType := finance.PartyType(c.Param("type"))
	if !partyType.IsValid() {
		h.BadRequest(c, "Party type must be customer or vendor")
		return "", false
	}
	return partyType, true
}

// GetAccount godoc
// @Summary      Get a party account
// @Description  Returns the running balance, total billed and total paid of a customer or vendor
// @Tags         parties
// @Produce      json
// @Param        type path string true "Party type" Enums(customer, vendor)
// @Param        partyId path string true "Party ID"
// @Success      200 {object} dto.Response{data=financeapp.PartyAccountResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /parties/{type}/{partyId}/account [get]
func (h *PartyHandler) GetAccount(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	partyType, ok := h.partyTypeParam(c)
	if !ok {
		return
	}

	account, err := h.balances.GetAccount(c.Request.Context(), tenantID, partyType, c.Param("partyId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// ReconcileBalances godoc
// @Summary      Reconcile party balances
// @Description  Recomputes every balance from its open documents and corrects drift
// @Tags         parties
// @Produce      json
// @Param        party_type query string false "Restrict to one party type" Enums(customer, vendor)
// @Success      200 {object} dto.Response{data=financeapp.BalanceReconciliationReport}
// @Router       /parties/reconcile-balances [post]
func (h *PartyHandler) ReconcileBalances(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	var partyType *finance.PartyType
	if raw := c.Query("party_type"); raw != "" {
		pt := finance.PartyType(raw)
		if !pt.IsValid() {
			h.BadRequest(c, "Party type must be customer or vendor")
			return
		}
		partyType = &pt
	}

	report, err := h.balances.ReconcileBalances(c.Request.Context(), tenantID, partyType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// RegisterRoutes mounts the party routes on rg
func (h *PartyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reconcile-balances", h.ReconcileBalances)
	rg.GET("/:type/:partyId/account", h.GetAccount)
	if h.payments != nil {
		rg.GET("/:type/:partyId/payments", h.payments.ListByParty)
	}
}
