package ledger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/handler"
	"github.com/pharmatrust/pharmacy-api/internal/service/ledger"
)

type Handler struct {
	service *ledger.Service
}

func NewHandler(service *ledger.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	entries := r.Group("/ledger")
	{
		entries.GET("", h.Export)
		entries.GET("/integrity", h.VerifyIntegrity)
		entries.GET("/subjects/:id", h.History)
	}
}

// Export streams the full chain, genesis first, for offline archival.
// Replaying the export into an empty ledger reproduces it byte for byte.
func (h *Handler) Export(c *gin.Context) {
	entries, err := h.service.ExportAll(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

func (h *Handler) VerifyIntegrity(c *gin.Context) {
	report, err := h.service.VerifyIntegrity(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid subject ID"))
		return
	}

	entries, err := h.service.HistoryFor(c.Request.Context(), id)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}
