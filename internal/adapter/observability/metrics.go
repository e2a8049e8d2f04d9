package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	// Outbound calls to the talent API
	TalentAPIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talent_api_requests_total",
			Help: "Total number of talent API requests by endpoint and status code",
		},
		[]string{"endpoint", "code"},
	)
	TalentAPIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talent_api_request_duration_seconds",
			Help:    "Talent API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searches_total",
			Help: "Total number of search submissions by outcome",
		},
		[]string{"outcome"},
	)
	SearchStaleResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "search_stale_results_total",
			Help: "Search results discarded because a newer submission superseded them",
		},
	)
	ProfilesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "profiles_dropped_total",
			Help: "Profile fetches that failed and were left out of a result set",
		},
	)

	UploadsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "uploads_started_total",
			Help: "Total number of archive uploads started",
		},
	)
	UploadsPolling = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "uploads_polling",
			Help: "Number of upload jobs currently being polled",
		},
	)
	UploadPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_polls_total",
			Help: "Total number of upload status polls by result",
		},
		[]string{"result"},
	)
	UploadOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_outcomes_total",
			Help: "Total number of uploads that reached a terminal status",
		},
		[]string{"status"},
	)

	TalentAPIBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "talent_api_breaker_state",
			Help: "Circuit breaker state for the talent API (0 closed, 1 open, 2 half-open)",
		},
	)
)

var registerOnce sync.Once

// InitMetrics registers collectors with the default registry. Safe to call
// more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			TalentAPIRequestsTotal,
			TalentAPIRequestDuration,
			SearchesTotal,
			SearchStaleResultsTotal,
			ProfilesDroppedTotal,
			UploadsStartedTotal,
			UploadsPolling,
			UploadPollsTotal,
			UploadOutcomesTotal,
			TalentAPIBreakerState,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveTalentAPI records one outbound call. code is 0 when no response
// was received.
func ObserveTalentAPI(endpoint string, code int, dur time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	TalentAPIRequestsTotal.WithLabelValues(endpoint, label).Inc()
	TalentAPIRequestDuration.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func RecordSearch(outcome string) {
	SearchesTotal.WithLabelValues(outcome).Inc()
}

func RecordStaleSearch() {
	SearchStaleResultsTotal.Inc()
}

func RecordDroppedProfiles(n int) {
	if n > 0 {
		ProfilesDroppedTotal.Add(float64(n))
	}
}

func StartUploadPolling() {
	UploadsStartedTotal.Inc()
	UploadsPolling.Inc()
}

func RecordUploadPoll(result string) {
	UploadPollsTotal.WithLabelValues(result).Inc()
}

// FinishUpload records a terminal status. polling is true when the job had
// entered the polling phase.
func FinishUpload(status string, polling bool) {
	if polling {
		UploadsPolling.Dec()
	}
	UploadOutcomesTotal.WithLabelValues(status).Inc()
}

// SetBreakerState publishes the talent API breaker state.
func SetBreakerState(state int) {
	TalentAPIBreakerState.Set(float64(state))
}
