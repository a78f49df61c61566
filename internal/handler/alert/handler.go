package alert

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pharmatrust/pharmacy-api/internal/handler"
	"github.com/pharmatrust/pharmacy-api/internal/service/alert"
)

type Handler struct {
	service *alert.Service
}

func NewHandler(service *alert.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.GET("/low-stock", h.LowStock)
		alerts.GET("/expiring", h.ExpiringSoon)
		alerts.GET("/expired", h.Expired)
	}
}

func (h *Handler) LowStock(c *gin.Context) {
	drugs, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(drugs))
}

func (h *Handler) ExpiringSoon(c *gin.Context) {
	drugs, err := h.service.ExpiringSoon(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(drugs))
}

func (h *Handler) Expired(c *gin.Context) {
	drugs, err := h.service.Expired(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(drugs))
}
