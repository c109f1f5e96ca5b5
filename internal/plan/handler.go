package plan

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/auth"
)

type Handler struct {
	resolver EntitlementSource
}

func NewHandler(resolver EntitlementSource) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) GetEntitlement(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	ent, err := h.resolver.Resolve(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve plan"})
		return
	}

	c.JSON(http.StatusOK, ent)
}
