package professional

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/api"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/auth"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
)

type Handler struct {
	repo  Repository
	guard *plan.Guard
}

func NewHandler(repo Repository, guard *plan.Guard) *Handler {
	return &Handler{repo: repo, guard: guard}
}

func (h *Handler) CreateProfessional(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := h.guard.CheckCreateProfessional(c.Request.Context(), tenantID); err != nil {
		respondGuardError(c, err)
		return
	}

	var req CreateProfessionalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	p, err := h.repo.CreateProfessional(c.Request.Context(), tenantID, req.Name, req.Phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create professional"})
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListProfessionals(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	pros, err := h.repo.ListProfessionals(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load professionals"})
		return
	}

	c.JSON(http.StatusOK, pros)
}

// DeactivateProfessional stays available to delinquent tenants: it
// reduces obligations rather than creating them.
func (h *Handler) DeactivateProfessional(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("professionalID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid professional id"})
		return
	}

	if err := h.repo.DeactivateProfessional(c.Request.Context(), tenantID, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate professional"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "professional deactivated"})
}

func (h *Handler) CreateService(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := h.guard.CheckCreateService(c.Request.Context(), tenantID); err != nil {
		respondGuardError(c, err)
		return
	}

	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, duration_min and price_cents are required"})
		return
	}

	s, err := h.repo.CreateService(c.Request.Context(), tenantID, req.Name, req.DurationMin, req.PriceCents)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create service"})
		return
	}

	c.JSON(http.StatusCreated, s)
}

func (h *Handler) ListServices(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	svcs, err := h.repo.ListServices(c.Request.Context(), tenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load services"})
		return
	}

	c.JSON(http.StatusOK, svcs)
}

func respondGuardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, plan.ErrPlanDelinquent):
		c.JSON(http.StatusPaymentRequired, api.PlanErrorResponse{Error: err.Error(), Code: plan.ReasonPlanDelinquent})
	case errors.Is(err, plan.ErrProfessionalLimit):
		c.JSON(http.StatusForbidden, api.PlanErrorResponse{Error: err.Error(), Code: plan.ReasonProfessionalLimit})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check plan"})
	}
}
