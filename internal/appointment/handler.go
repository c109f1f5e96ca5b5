package appointment

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/api"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/auth"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/messaging"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
)

type Handler struct {
	repo      Repository
	guard     *plan.Guard
	messenger messaging.Service
}

func NewHandler(repo Repository, guard *plan.Guard, messenger messaging.Service) *Handler {
	return &Handler{repo: repo, guard: guard, messenger: messenger}
}

func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	if err := h.guard.CheckCreateAppointment(c.Request.Context(), tenantID); err != nil {
		if errors.Is(err, plan.ErrPlanDelinquent) {
			c.JSON(http.StatusPaymentRequired, api.PlanErrorResponse{Error: err.Error(), Code: plan.ReasonPlanDelinquent})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check plan"})
		return
	}

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "starts_at must be RFC3339"})
		return
	}
	if startsAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot schedule an appointment in the past"})
		return
	}

	a, err := h.repo.Create(c.Request.Context(), tenantID, req.ProfessionalID, req.ServiceID, req.CustomerName, req.CustomerPhone, startsAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create appointment"})
		return
	}

	c.JSON(http.StatusCreated, a)
}

// Cancel stays available to delinquent tenants.
func (h *Handler) Cancel(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("appointmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment id"})
		return
	}

	if err := h.repo.Cancel(c.Request.Context(), tenantID, id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel appointment"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "appointment cancelled"})
}

func (h *Handler) List(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	appts, err := h.repo.ListByTenant(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load appointments"})
		return
	}

	c.JSON(http.StatusOK, appts)
}

// Notify sends a WhatsApp message for an appointment, consuming one
// wallet credit. Blocked outcomes (no balance, per-appointment cap,
// delinquent plan) come back as 200 with blocked=true: they are
// expected business states, not errors.
func (h *Handler) Notify(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	id, err := strconv.Atoi(c.Param("appointmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid appointment id"})
		return
	}

	a, err := h.repo.FindByID(c.Request.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "appointment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load appointment"})
		return
	}

	var req NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body is required"})
		return
	}

	result, err := h.messenger.Send(c.Request.Context(), tenantID, &a.ID, a.CustomerPhone, req.Body, req.ProviderMessageID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	c.JSON(http.StatusOK, result)
}
