package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/auth"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/logger"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateTopupRequest struct {
	PackCode string `json:"pack_code" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

type SubscribeRequest struct {
	PlanCode string `json:"plan_code" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	BackURL  string `json:"back_url"`
}

type SubscribeResponse struct {
	Subscription *Subscription `json:"subscription"`
	InitPoint    string        `json:"init_point"`
}

// Webhook receives gateway payment notifications. Always answers 200
// for processed payloads, applied or not, so the gateway stops
// redelivering; replays are the idempotent success path.
func (h *Handler) Webhook(c *gin.Context) {
	var ev PaymentEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	result, err := h.service.Reconcile(c.Request.Context(), ev)
	if err != nil {
		logger.Errorf("Failed to reconcile payment event %s: %v", ev.PaymentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process event"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) CreateTopup(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req CreateTopupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pack_code and email are required"})
		return
	}

	checkout, err := h.service.CreateTopupCheckout(c.Request.Context(), tenantID, req.PackCode, req.Email)
	if err != nil {
		if errors.Is(err, ErrUnknownPack) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown pack code"})
			return
		}
		logger.Errorf("Failed to create top-up checkout: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout"})
		return
	}

	c.JSON(http.StatusCreated, checkout)
}

func (h *Handler) Subscribe(c *gin.Context) {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan_code and email are required"})
		return
	}

	sub, initPoint, err := h.service.Subscribe(c.Request.Context(), tenantID, req.PlanCode, req.Email, req.BackURL)
	if err != nil {
		if errors.Is(err, ErrUnknownPlan) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan code"})
			return
		}
		logger.Errorf("Failed to create subscription checkout: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		return
	}

	c.JSON(http.StatusCreated, SubscribeResponse{Subscription: sub, InitPoint: initPoint})
}

func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, plan.Plans())
}

func (h *Handler) ListPacks(c *gin.Context) {
	c.JSON(http.StatusOK, plan.Packs())
}
