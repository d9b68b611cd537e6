package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iars_scoring_duration_seconds",
			Help:    "External scoring call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	ScoringTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iars_scoring_total",
			Help: "Total scoring calls by outcome",
		},
		[]string{"status"},
	)

	StudentsImported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iars_bulk_rows_total",
			Help: "Bulk import rows by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "iars_change_notifications_total",
			Help: "Total change notifications broadcast",
		},
	)

	WebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "iars_websocket_clients",
			Help: "Currently connected websocket subscribers",
		},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iars_requests_total",
			Help: "Total API requests by route and status",
		},
		[]string{"route", "status"},
	)
)

func Init() {
	prometheus.MustRegister(ScoringDuration)
	prometheus.MustRegister(ScoringTotal)
	prometheus.MustRegister(StudentsImported)
	prometheus.MustRegister(NotificationsSent)
	prometheus.MustRegister(WebSocketClients)
	prometheus.MustRegister(RequestsTotal)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
