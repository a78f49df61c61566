package drug

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/handler"
	"github.com/pharmatrust/pharmacy-api/internal/middleware"
	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/service/inventory"
)

type Handler struct {
	service *inventory.Service
}

func NewHandler(service *inventory.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	drugs := r.Group("/drugs")
	{
		drugs.POST("", h.CreateDrug)
		drugs.GET("", h.ListDrugs)
		drugs.GET("/:id", h.GetDrug)
		drugs.POST("/:id/adjustments", h.AdjustStock)
		drugs.DELETE("/:id", h.Deactivate)
		drugs.GET("/:id/low-stock", h.LowStockStatus)
	}
}

func (h *Handler) CreateDrug(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing actor identity"))
		return
	}

	var req model.CreateDrugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	drug, err := h.service.AddDrug(c.Request.Context(), &req, actorID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(drug))
}

func (h *Handler) GetDrug(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid drug ID"))
		return
	}

	drug, err := h.service.GetDrug(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(drug))
}

func (h *Handler) ListDrugs(c *gin.Context) {
	var filters model.DrugFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	drugs, err := h.service.ListDrugs(c.Request.Context(), &filters)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(drugs))
}

func (h *Handler) AdjustStock(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing actor identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid drug ID"))
		return
	}

	var req model.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	adjustment, err := h.service.AdjustStock(c.Request.Context(), id, req.Delta, req.Type, actorID, req.Note)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(adjustment))
}

func (h *Handler) Deactivate(c *gin.Context) {
	actorID, ok := middleware.ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing actor identity"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid drug ID"))
		return
	}

	drug, err := h.service.Deactivate(c.Request.Context(), id, actorID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(drug))
}

func (h *Handler) LowStockStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid drug ID"))
		return
	}

	low, err := h.service.IsLowStock(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"low_stock": low}))
}
