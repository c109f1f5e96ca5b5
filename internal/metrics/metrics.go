package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamentos_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agendamentos_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	MessageDebitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamentos_message_debits_total",
			Help: "Total number of message credit debits",
		},
		[]string{"bucket", "idempotent"},
	)

	MessagesBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamentos_messages_blocked_total",
			Help: "Total number of blocked message sends",
		},
		[]string{"reason"},
	)

	WalletTopUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agendamentos_wallet_topups_total",
			Help: "Total number of wallet top-up credits applied",
		},
	)

	CycleResetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agendamentos_wallet_cycle_resets_total",
			Help: "Total number of wallet cycle resets applied",
		},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamentos_webhook_events_total",
			Help: "Total number of payment gateway webhook events",
		},
		[]string{"type", "status", "outcome"},
	)

	PlanGuardRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamentos_plan_guard_rejections_total",
			Help: "Total number of actions rejected by the plan guard",
		},
		[]string{"action", "reason"},
	)

	OutboundQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agendamentos_outbound_queue_length",
			Help: "Current length of the outbound message queue",
		},
	)

	OutboundSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendamentos_outbound_sent_total",
			Help: "Total number of outbound WhatsApp deliveries",
		},
		[]string{"status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordDebit(bucket string, idempotent bool) {
	flag := "false"
	if idempotent {
		flag = "true"
	}
	MessageDebitsTotal.WithLabelValues(bucket, flag).Inc()
}

func RecordBlocked(reason string) {
	MessagesBlockedTotal.WithLabelValues(reason).Inc()
}

func RecordTopUp() {
	WalletTopUpsTotal.Inc()
}

func RecordCycleReset() {
	CycleResetsTotal.Inc()
}

func RecordWebhookEvent(eventType, status, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, status, outcome).Inc()
}

func RecordGuardRejection(action, reason string) {
	PlanGuardRejectionsTotal.WithLabelValues(action, reason).Inc()
}

func RecordOutbound(status string) {
	OutboundSentTotal.WithLabelValues(status).Inc()
}
