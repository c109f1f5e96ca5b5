package billing

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct{ mock.Mock }

func (m *MockService) Reconcile(ctx context.Context, ev PaymentEvent) (*ReconcileResult, error) {
	args := m.Called(ctx, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReconcileResult), args.Error(1)
}

func (m *MockService) CreateTopupCheckout(ctx context.Context, tenantID int, packCode, payerEmail string) (*TopupCheckout, error) {
	args := m.Called(ctx, tenantID, packCode, payerEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TopupCheckout), args.Error(1)
}

func (m *MockService) Subscribe(ctx context.Context, tenantID int, planCode, payerEmail, backURL string) (*Subscription, string, error) {
	args := m.Called(ctx, tenantID, planCode, payerEmail, backURL)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*Subscription), args.String(1), args.Error(2)
}

func newWebhookRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/billing/webhook", h.Webhook)
	return router
}

func TestWebhook(t *testing.T) {
	t.Run("Processed event answers 200", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)
		router := newWebhookRouter(h)

		svc.On("Reconcile", mock.Anything, mock.AnythingOfType("billing.PaymentEvent")).
			Return(&ReconcileResult{OK: true, Applied: true}, nil)

		body := []byte(`{"type":"wallet_topup","event_id":"evt-1","payment_id":"pay-1","status":"approved","amount":1490}`)
		req := httptest.NewRequest("POST", "/billing/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"applied":true`)
	})

	t.Run("Replay also answers 200", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)
		router := newWebhookRouter(h)

		svc.On("Reconcile", mock.Anything, mock.AnythingOfType("billing.PaymentEvent")).
			Return(&ReconcileResult{OK: true, Applied: false}, nil)

		body := []byte(`{"type":"wallet_topup","event_id":"evt-1","payment_id":"pay-1","status":"approved","amount":1490}`)
		req := httptest.NewRequest("POST", "/billing/webhook", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Malformed payload", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandler(svc)
		router := newWebhookRouter(h)

		req := httptest.NewRequest("POST", "/billing/webhook", bytes.NewReader([]byte(`not json`)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Reconcile", mock.Anything, mock.Anything)
	})
}
