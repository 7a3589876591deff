package handler

import (
	"net/http"
	"testing"

	revenueapp "github.com/erp/settlement/internal/application/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRevenueEngine() (*gin.Engine, *MockOrderRevenueService, *MockCommissionService) {
	orders := new(MockOrderRevenueService)
	commissions := new(MockCommissionService)
	h := NewRevenueHandler(orders, commissions)
	engine := newTestEngine(func(api *gin.RouterGroup) {
		h.RegisterRoutes(api.Group("/revenue"))
	})
	return engine, orders, commissions
}

func TestRevenueHandler_RecordOrder(t *testing.T) {
	engine, orders, _ := newRevenueEngine()

	orders.On("Record", mock.Anything, testTenantID,
		mock.MatchedBy(func(req revenueapp.RecordOrderRevenueRequest) bool {
			return req.OrderID == "ord-1" && req.OrderAmount.Equal(decimal.NewFromInt(1000))
		})).
		Return(&revenueapp.OrderRevenueResponse{
			OrderID:           "ord-1",
			PartnerCommission: decimal.NewFromInt(850),
			ClutchRevenue:     decimal.NewFromInt(150),
			Status:            "pending",
		}, nil)

	body := map[string]any{
		"order_id":        "ord-1",
		"partner_id":      "partner-1",
		"partner_tier":    "premium",
		"commission_type": "order_completion",
		"order_amount":    "1000",
		"total_fees":      "25",
	}
	w, resp := doRequest(t, engine, http.MethodPost, "/api/v1/revenue/orders", body)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	record := decodeData[revenueapp.OrderRevenueResponse](t, resp)
	assert.True(t, record.PartnerCommission.Equal(decimal.NewFromInt(850)))
	orders.AssertExpectations(t)

	body["total_fees"] = "-1"
	w, resp = doRequest(t, engine, http.MethodPost, "/api/v1/revenue/orders", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "total_fees", resp.Error.Details[0].Field)
}

func TestRevenueHandler_RecordOrderConflicts(t *testing.T) {
	engine, orders, _ := newRevenueEngine()

	orders.On("Record", mock.Anything, testTenantID, mock.Anything).
		Return(nil, shared.NewDomainError(shared.CodeAlreadyExists, "revenue for order ord-1 already recorded")).Once()
	orders.On("Record", mock.Anything, testTenantID, mock.Anything).
		Return(nil, shared.NewDomainError(shared.CodeUnknownRate, "no rate for commission type")).Once()

	body := map[string]any{
		"order_id": "ord-1", "partner_id": "p", "partner_tier": "basic",
		"commission_type": "order_completion", "order_amount": "10", "total_fees": "0",
	}
	w, _ := doRequest(t, engine, http.MethodPost, "/api/v1/revenue/orders", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp := doRequest(t, engine, http.MethodPost, "/api/v1/revenue/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, shared.CodeUnknownRate, resp.Error.Code)
}

func TestRevenueHandler_OrderLifecycle(t *testing.T) {
	engine, orders, _ := newRevenueEngine()

	orders.On("GetByOrderID", mock.Anything, testTenantID, "ord-7").
		Return(&revenueapp.OrderRevenueResponse{OrderID: "ord-7", Status: "received"}, nil)
	orders.On("Settle", mock.Anything, testTenantID, "ord-7").
		Return(&revenueapp.OrderRevenueResponse{OrderID: "ord-7", Status: "settled"}, nil)
	orders.On("Dispute", mock.Anything, testTenantID, "ord-7", revenueapp.DisputeOrderRequest{Reason: "chargeback"}).
		Return(nil, shared.NewInvalidStateError("settled revenue cannot be disputed"))
	orders.On("List", mock.Anything, testTenantID, revenueapp.OrderRevenueListFilter{PartnerID: "p-1", Status: "settled"}).
		Return([]revenueapp.OrderRevenueResponse{{OrderID: "ord-7"}}, int64(1), nil)

	w, resp := doRequest(t, engine, http.MethodGet, "/api/v1/revenue/orders/ord-7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "received", decodeData[revenueapp.OrderRevenueResponse](t, resp).Status)

	w, resp = doRequest(t, engine, http.MethodPost, "/api/v1/revenue/orders/ord-7/settle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "settled", decodeData[revenueapp.OrderRevenueResponse](t, resp).Status)

	w, resp = doRequest(t, engine, http.MethodPost, "/api/v1/revenue/orders/ord-7/dispute", map[string]string{"reason": "chargeback"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, shared.CodeInvalidState, resp.Error.Code)

	w, _ = doRequest(t, engine, http.MethodPost, "/api/v1/revenue/orders/ord-7/dispute", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = doRequest(t, engine, http.MethodGet, "/api/v1/revenue/orders?partner_id=p-1&status=settled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), resp.Meta.Total)
	orders.AssertExpectations(t)
}

func TestRevenueHandler_CalculateCommission(t *testing.T) {
	engine, _, commissions := newRevenueEngine()

	commissions.On("Calculate", mock.Anything,
		mock.MatchedBy(func(req revenueapp.CalculateCommissionRequest) bool {
			return req.PartnerTier == "gold" && req.BaseAmount.Equal(decimal.NewFromInt(200))
		})).
		Return(&revenueapp.CommissionResponse{
			RequestedTier: "gold",
			AppliedTier:   "basic",
			Rate:          decimal.RequireFromString("0.8"),
			Amount:        decimal.NewFromInt(160),
		}, nil)

	w, resp := doRequest(t, engine, http.MethodPost, "/api/v1/revenue/commission/calculate", map[string]any{
		"partner_tier":    "gold",
		"commission_type": "order_completion",
		"base_amount":     "200",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quote := decodeData[revenueapp.CommissionResponse](t, resp)
	assert.Equal(t, "basic", quote.AppliedTier)
	assert.True(t, quote.Amount.Equal(decimal.NewFromInt(160)))
	commissions.AssertExpectations(t)
}
