package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkumbusha_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mkumbusha_http_request_duration_seconds",
			Help:    "Histogram of response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// DeliveryAttempts counts channel send attempts by outcome
	DeliveryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkumbusha_delivery_attempts_total",
			Help: "Channel send attempts by channel and resulting status",
		},
		[]string{"channel", "status"},
	)

	RemindersDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkumbusha_reminders_dispatched_total",
			Help: "Reminders created by the dispatcher, by configured channel",
		},
		[]string{"channel"},
	)

	Confirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkumbusha_confirmations_total",
			Help: "Confirmation transitions by resulting status",
		},
		[]string{"status"},
	)

	// Escalations counts escalation alerts by outcome: sent, failed or error
	Escalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mkumbusha_escalations_total",
			Help: "Escalation alerts to backup contacts by outcome",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCount, RequestDuration, DeliveryAttempts,
			RemindersDispatched, Confirmations, Escalations)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and durations labelled by route template
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		RequestCount.WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}
