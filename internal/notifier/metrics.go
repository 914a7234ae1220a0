package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kube9_notifications_total",
			Help: "Error notifications by outcome (shown, throttled, failed).",
		},
		[]string{"severity", "result"},
	)
	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kube9_notification_actions_total",
			Help: "Notification actions resolved by action and status.",
		},
		[]string{"action", "status"},
	)
	webhookSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kube9_webhook_send_total",
			Help: "Total webhook error forwarding attempts by status.",
		},
		[]string{"status"},
	)
	webhookSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kube9_webhook_send_duration_seconds",
			Help:    "Duration of webhook error forwarding HTTP requests.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
)
