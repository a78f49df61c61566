package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pharmatrust/pharmacy-api/internal/handler"
	"github.com/pharmatrust/pharmacy-api/internal/middleware"
	"github.com/pharmatrust/pharmacy-api/internal/model"
	"github.com/pharmatrust/pharmacy-api/internal/service/rbac"
)

type Handler struct {
	service *rbac.Service
}

func NewHandler(service *rbac.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/rbac")
	{
		actors := group.Group("/actors")
		{
			actors.GET("/:id/roles", h.ListRoles)
			actors.POST("/:id/roles", h.AssignRole)
			actors.DELETE("/:id/roles/:role", h.RevokeRole)
		}
	}
}

type assignRoleRequest struct {
	Role model.Role `json:"role" binding:"required"`
}

func (h *Handler) AssignRole(c *gin.Context) {
	grantorID, ok := middleware.ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing actor identity"))
		return
	}

	actorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid actor ID"))
		return
	}

	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.service.Assign(c.Request.Context(), grantorID, actorID, req.Role); err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"actor_id": actorID, "role": req.Role}))
}

func (h *Handler) RevokeRole(c *gin.Context) {
	grantorID, ok := middleware.ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing actor identity"))
		return
	}

	actorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid actor ID"))
		return
	}

	role := model.Role(c.Param("role"))
	if err := h.service.Revoke(c.Request.Context(), grantorID, actorID, role); err != nil {
		handler.WriteError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListRoles(c *gin.Context) {
	actorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid actor ID"))
		return
	}

	roles, err := h.service.ListRoles(c.Request.Context(), actorID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(roles))
}
