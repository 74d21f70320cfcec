package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolportal", Name: "http_requests_total", Help: "Processed HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "schoolportal", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "schoolportal", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "schoolportal", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	ChatbotQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolportal", Name: "chatbot_queries_total", Help: "Chatbot queries by outcome",
	}, []string{"outcome"})
	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolportal", Name: "notifications_total", Help: "Notifications created by type",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, HandlerErrors, DBPing, ChatbotQueries, NotificationsSent)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveRequest(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
