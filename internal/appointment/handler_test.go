package appointment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/messaging"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/wallet"
)

type MockAppointmentRepo struct{ mock.Mock }

func (m *MockAppointmentRepo) Create(ctx context.Context, tenantID, professionalID, serviceID int, customerName, customerPhone string, startsAt time.Time) (*Appointment, error) {
	args := m.Called(ctx, tenantID, professionalID, serviceID, customerName, customerPhone, startsAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Appointment), args.Error(1)
}

func (m *MockAppointmentRepo) FindByID(ctx context.Context, tenantID, id int) (*Appointment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Appointment), args.Error(1)
}

func (m *MockAppointmentRepo) Cancel(ctx context.Context, tenantID, id int) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *MockAppointmentRepo) ListByTenant(ctx context.Context, tenantID, limit, offset int) ([]Appointment, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Appointment), args.Error(1)
}

type MockMessenger struct{ mock.Mock }

func (m *MockMessenger) Send(ctx context.Context, tenantID int, appointmentID *int, phone, body, providerMessageID string) (*messaging.SendResult, error) {
	args := m.Called(ctx, tenantID, appointmentID, phone, body, providerMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.SendResult), args.Error(1)
}

type stubEntitlements struct{ ent plan.Entitlement }

func (s stubEntitlements) Resolve(context.Context, int) (plan.Entitlement, error) {
	return s.ent, nil
}

type stubCounter struct{ count int }

func (s stubCounter) CountActive(context.Context, int) (int, error) {
	return s.count, nil
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("tenant_id", 5)
		c.Next()
	})
	router.POST("/appointments", h.Create)
	router.POST("/appointments/:appointmentID/cancel", h.Cancel)
	router.POST("/appointments/:appointmentID/notify", h.Notify)
	return router
}

func activeGuard() *plan.Guard {
	ent := plan.Entitlement{PlanCode: plan.CodePro, Status: plan.StatusActive, MaxProfessionals: 5}
	return plan.NewGuard(stubEntitlements{ent: ent}, stubCounter{}, nil)
}

func delinquentGuard() *plan.Guard {
	ent := plan.Entitlement{PlanCode: plan.CodePro, Status: plan.StatusDelinquent, IsDelinquent: true, MaxProfessionals: 5}
	return plan.NewGuard(stubEntitlements{ent: ent}, stubCounter{}, nil)
}

func TestCreateAppointment(t *testing.T) {
	t.Run("Active tenant creates an appointment", func(t *testing.T) {
		repo := new(MockAppointmentRepo)
		h := NewHandler(repo, activeGuard(), new(MockMessenger))
		router := newTestRouter(h)

		startsAt := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
		repo.On("Create", mock.Anything, 5, 1, 2, "Ana", "+5511999990000", startsAt).
			Return(&Appointment{ID: 10, TenantID: 5, Status: StatusScheduled}, nil)

		body, _ := json.Marshal(CreateAppointmentRequest{
			ProfessionalID: 1,
			ServiceID:      2,
			CustomerName:   "Ana",
			CustomerPhone:  "+5511999990000",
			StartsAt:       startsAt.Format(time.RFC3339),
		})

		req := httptest.NewRequest("POST", "/appointments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("Delinquent tenant gets 402", func(t *testing.T) {
		repo := new(MockAppointmentRepo)
		h := NewHandler(repo, delinquentGuard(), new(MockMessenger))
		router := newTestRouter(h)

		req := httptest.NewRequest("POST", "/appointments", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.Contains(t, w.Body.String(), plan.ReasonPlanDelinquent)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Past start time is rejected", func(t *testing.T) {
		repo := new(MockAppointmentRepo)
		h := NewHandler(repo, activeGuard(), new(MockMessenger))
		router := newTestRouter(h)

		body, _ := json.Marshal(CreateAppointmentRequest{
			ProfessionalID: 1,
			ServiceID:      2,
			CustomerName:   "Ana",
			CustomerPhone:  "+5511999990000",
			StartsAt:       time.Now().Add(-time.Hour).Format(time.RFC3339),
		})

		req := httptest.NewRequest("POST", "/appointments", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCancelAppointment(t *testing.T) {
	t.Run("Cancel works for delinquent tenants", func(t *testing.T) {
		repo := new(MockAppointmentRepo)
		h := NewHandler(repo, delinquentGuard(), new(MockMessenger))
		router := newTestRouter(h)

		repo.On("Cancel", mock.Anything, 5, 10).Return(nil)

		req := httptest.NewRequest("POST", "/appointments/10/cancel", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Unknown appointment", func(t *testing.T) {
		repo := new(MockAppointmentRepo)
		h := NewHandler(repo, activeGuard(), new(MockMessenger))
		router := newTestRouter(h)

		repo.On("Cancel", mock.Anything, 5, 99).Return(ErrAppointmentNotFound)

		req := httptest.NewRequest("POST", "/appointments/99/cancel", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNotify(t *testing.T) {
	appt := &Appointment{ID: 10, TenantID: 5, CustomerPhone: "+5511999990000", Status: StatusScheduled}

	t.Run("Sends a reminder", func(t *testing.T) {
		repo := new(MockAppointmentRepo)
		messenger := new(MockMessenger)
		h := NewHandler(repo, activeGuard(), messenger)
		router := newTestRouter(h)

		repo.On("FindByID", mock.Anything, 5, 10).Return(appt, nil)
		messenger.On("Send", mock.Anything, 5, &appt.ID, appt.CustomerPhone, "Lembrete", "msg-1").
			Return(&messaging.SendResult{OK: true, Sent: true, Bucket: wallet.BucketIncluded}, nil)

		body, _ := json.Marshal(NotifyRequest{Body: "Lembrete", ProviderMessageID: "msg-1"})
		req := httptest.NewRequest("POST", "/appointments/10/notify", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"sent":true`)
	})

	t.Run("Blocked outcomes are 200 with blocked flag", func(t *testing.T) {
		repo := new(MockAppointmentRepo)
		messenger := new(MockMessenger)
		h := NewHandler(repo, activeGuard(), messenger)
		router := newTestRouter(h)

		repo.On("FindByID", mock.Anything, 5, 10).Return(appt, nil)
		messenger.On("Send", mock.Anything, 5, &appt.ID, appt.CustomerPhone, "Lembrete", "").
			Return(&messaging.SendResult{OK: false, Blocked: true, Reason: wallet.ReasonInsufficientBalance}, nil)

		body, _ := json.Marshal(NotifyRequest{Body: "Lembrete"})
		req := httptest.NewRequest("POST", "/appointments/10/notify", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"blocked":true`)
		assert.Contains(t, w.Body.String(), wallet.ReasonInsufficientBalance)
	})

	t.Run("Unknown appointment", func(t *testing.T) {
		repo := new(MockAppointmentRepo)
		h := NewHandler(repo, activeGuard(), new(MockMessenger))
		router := newTestRouter(h)

		repo.On("FindByID", mock.Anything, 5, 404).Return(nil, ErrAppointmentNotFound)

		body, _ := json.Marshal(NotifyRequest{Body: "Lembrete"})
		req := httptest.NewRequest("POST", "/appointments/404/notify", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
