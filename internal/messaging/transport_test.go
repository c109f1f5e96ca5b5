package messaging

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

func TestEnqueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(queueKey, `.*`).SetVal(1)

	tr := NewRedisTransportWithClient(db, "", "")

	err := tr.Enqueue(ctx, MessageJob{
		TenantID:          5,
		Phone:             "+5511999990000",
		Body:              "Lembrete de agendamento",
		ProviderMessageID: "msg-1",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.Regexp().ExpectLPush(queueKey, `.*`).SetErr(assert.AnError)

	tr := NewRedisTransportWithClient(db, "", "")

	err := tr.Enqueue(ctx, MessageJob{TenantID: 5, Phone: "+5511999990000", ProviderMessageID: "msg-1"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()

	mock.ExpectLLen(queueKey).SetVal(3)

	tr := NewRedisTransportWithClient(db, "", "")

	assert.Equal(t, int64(3), tr.QueueLength(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
