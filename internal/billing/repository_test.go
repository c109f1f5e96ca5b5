package billing

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() {
		sqlxDB.Close()
	}

	return repo, mock, closer
}

var subCols = []string{"id", "tenant_id", "plan_code", "status", "billing_cycle", "current_period_end", "gateway_subscription_id", "gateway_preference_id", "external_reference", "created_at", "updated_at"}

func TestCurrentSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns the active subscription", func(t *testing.T) {
		repo, mock, close := setupMock(t)
		defer close()

		now := time.Now()
		periodEnd := now.AddDate(0, 0, 20)

		mock.ExpectQuery("SELECT .+ FROM subscriptions").
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(subCols).
				AddRow(9, 5, "pro", "active", "monthly", periodEnd, nil, "pref-1", "ext-1", now, now))

		info, err := repo.CurrentSubscription(ctx, 5)
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, "pro", info.PlanCode)
		assert.Equal(t, "active", info.Status)
		assert.WithinDuration(t, periodEnd, info.CurrentPeriodEnd, time.Second)
	})

	t.Run("No active subscription", func(t *testing.T) {
		repo, mock, close := setupMock(t)
		defer close()

		mock.ExpectQuery("SELECT .+ FROM subscriptions").
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows(subCols))

		info, err := repo.CurrentSubscription(ctx, 5)
		require.NoError(t, err)
		assert.Nil(t, info)
	})
}

func TestInsertEvent(t *testing.T) {
	ctx := context.Background()
	repo, mock, close := setupMock(t)
	defer close()

	eventID := "evt-1"
	subID := 9
	payload := `{"type":"subscription_charge"}`

	mock.ExpectExec("INSERT INTO subscription_events").
		WithArgs(5, subID, eventID, "subscription_charge", "approved", payload).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertEvent(ctx, &SubscriptionEvent{
		TenantID:       5,
		SubscriptionID: &subID,
		GatewayEventID: &eventID,
		EventType:      "subscription_charge",
		Status:         "approved",
		Payload:        &payload,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkTopupConsumed(t *testing.T) {
	ctx := context.Background()
	repo, mock, close := setupMock(t)
	defer close()

	mock.ExpectExec("UPDATE topup_checkouts").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkTopupConsumed(ctx, 3)
	require.NoError(t, err)
}

func TestFindTopupByPaymentID(t *testing.T) {
	ctx := context.Background()

	topupCols := []string{"id", "tenant_id", "pack_code", "payment_id", "qr_code", "status", "created_at", "consumed_at"}

	t.Run("Found", func(t *testing.T) {
		repo, mock, close := setupMock(t)
		defer close()

		mock.ExpectQuery("FROM topup_checkouts").
			WithArgs("pay-1").
			WillReturnRows(sqlmock.NewRows(topupCols).
				AddRow(3, 5, "pack_100", "pay-1", "qr", "pending", time.Now(), nil))

		checkout, err := repo.FindTopupByPaymentID(ctx, "pay-1")
		require.NoError(t, err)
		require.NotNil(t, checkout)
		assert.Equal(t, "pack_100", checkout.PackCode)
	})

	t.Run("Not found", func(t *testing.T) {
		repo, mock, close := setupMock(t)
		defer close()

		mock.ExpectQuery("FROM topup_checkouts").
			WithArgs("pay-x").
			WillReturnRows(sqlmock.NewRows(topupCols))

		checkout, err := repo.FindTopupByPaymentID(ctx, "pay-x")
		require.NoError(t, err)
		assert.Nil(t, checkout)
	})
}
