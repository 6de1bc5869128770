package monitoring

import (
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	paymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_transitions_total",
			Help: "Total payment status transitions",
		},
		[]string{"from", "to"},
	)

	gatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total payment gateway calls",
		},
		[]string{"operation", "status"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of payment gateway calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"operation"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total webhook events by kind and outcome",
		},
		[]string{"event", "result"},
	)

	checkinOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_operations_total",
			Help: "Total check-in attempts by method and outcome",
		},
		[]string{"method", "result"},
	)

	notificationSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sends_total",
			Help: "Total notification send attempts",
		},
		[]string{"kind", "result"},
	)
)

// TrackPaymentTransition records a ledger status transition.
func TrackPaymentTransition(from, to string) {
	paymentTransitions.WithLabelValues(from, to).Inc()
}

// TrackGatewayRequest records one gateway call with its duration.
func TrackGatewayRequest(operation, status string, duration time.Duration) {
	gatewayRequests.WithLabelValues(operation, status).Inc()
	gatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// TrackWebhookEvent records a processed webhook delivery.
func TrackWebhookEvent(event, result string) {
	webhookEvents.WithLabelValues(event, result).Inc()
}

// TrackCheckIn records a check-in attempt.
func TrackCheckIn(method, result string) {
	checkinOps.WithLabelValues(method, result).Inc()
}

// TrackNotification records a notification send attempt.
func TrackNotification(kind, result string) {
	notificationSends.WithLabelValues(kind, result).Inc()
}

// StartMetricsServer serves /metrics and /health on a dedicated port,
// separate from the API server.
func StartMetricsServer(port string) {
	e := echo.New()

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	go func() {
		sc := echo.StartConfig{Address: ":" + port, HideBanner: true}
		if err := sc.Start(e); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}
