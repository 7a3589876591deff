package handler

import (
	"context"

	revenueapp "github.com/erp/settlement/internal/application/revenue"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CollectionService tracks payment collections and reconciles them
type CollectionService interface {
	CreateCollection(ctx context.Context, tenantID uuid.UUID, req revenueapp.CreateCollectionRequest) (*revenueapp.CollectionResponse, error)
	MarkCollected(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.CollectionResponse, error)
	MarkDeposited(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.CollectionResponse, error)
	Reconcile(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.ReconciliationResponse, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.CollectionResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter revenueapp.CollectionListFilter) ([]revenueapp.CollectionResponse, int64, error)
}

// CollectionHandler handles payment collection endpoints
type CollectionHandler struct {
	BaseHandler
	collections CollectionService
}

// NewCollectionHandler creates a new CollectionHandler
func NewCollectionHandler(collections CollectionService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

// Create godoc
// @Summary      Record a payment collection
// @Tags         collections
// @Accept       json
// @Produce      json
// @Param        request body revenueapp.CreateCollectionRequest true "Collection"
// @Success      201 {object} dto.Response{data=revenueapp.CollectionResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo} "Unknown order"
// @Router       /revenue/collections [post]
func (h *CollectionHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var req revenueapp.CreateCollectionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	collection, err := h.collections.CreateCollection(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, collection)
}

// List godoc
// @Summary      List payment collections
// @Tags         collections
// @Produce      json
// @Param        search query string false "Collection number contains"
// @Param        collection_method query string false "Method" Enums(gateway, cash, bank_transfer, delivery_partner)
// @Param        status query string false "Status" Enums(pending, collected, deposited, reconciled)
// @Success      200 {object} dto.Response{data=[]revenueapp.CollectionResponse,meta=dto.Meta}
// @Router       /revenue/collections [get]
func (h *CollectionHandler) List(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	var filter revenueapp.CollectionListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	collections, total, err := h.collections.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, collections, total, filter.Page, filter.PageSize)
}

// Get godoc
// @Summary      Get a payment collection
// @Tags         collections
// @Produce      json
// @Param        id path string true "Collection ID" format(uuid)
// @Success      200 {object} dto.Response{data=revenueapp.CollectionResponse}
// @Router       /revenue/collections/{id} [get]
func (h *CollectionHandler) Get(c *gin.Context) {
	h.withID(c, h.collections.GetByID)
}

// MarkCollected godoc
// @Summary      Mark a collection collected
// @Tags         collections
// @Produce      json
// @Param        id path string true "Collection ID" format(uuid)
// @Success      200 {object} dto.Response{data=revenueapp.CollectionResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/collections/{id}/collect [post]
func (h *CollectionHandler) MarkCollected(c *gin.Context) {
	h.withID(c, h.collections.MarkCollected)
}

// MarkDeposited godoc
// @Summary      Mark a collection deposited
// @Tags         collections
// @Produce      json
// @Param        id path string true "Collection ID" format(uuid)
// @Success      200 {object} dto.Response{data=revenueapp.CollectionResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /revenue/collections/{id}/deposit [post]
func (h *CollectionHandler) MarkDeposited(c *gin.Context) {
	h.withID(c, h.collections.MarkDeposited)
}

// Reconcile godoc
// @Summary      Reconcile a collection
// @Description  Matches the collected amount against the orders' totals and marks them received
// @Tags         collections
// @Produce      json
// @Param        id path string true "Collection ID" format(uuid)
// @Success      200 {object} dto.Response{data=revenueapp.ReconciliationResponse}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo} "Amount mismatch"
// @Router       /revenue/collections/{id}/reconcile [post]
func (h *CollectionHandler) Reconcile(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.collections.Reconcile(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *CollectionHandler) withID(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*revenueapp.CollectionResponse, error)) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	collection, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, collection)
}

// RegisterRoutes mounts the collection routes on rg
func (h *CollectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/collect", h.MarkCollected)
	rg.POST("/:id/deposit", h.MarkDeposited)
	rg.POST("/:id/reconcile", h.Reconcile)
}
