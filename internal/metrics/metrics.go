package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_log_problems_total",
			Help: "Total number of logged warnings and errors.",
		},
		[]string{"type", "level"},
	)
	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alerts_applications_sync_duration_seconds",
			Help:    "Duration of each applications sync cycle in seconds.",
			Buckets: []float64{0.5, 1, 5, 15, 60, 300},
		},
	)
	NotificationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_notifications_created_total",
			Help: "Total number of notifications created from status transitions.",
		},
		[]string{"status"},
	)
	SkippedTransitionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_transitions_skipped_total",
			Help: "Total number of detected transitions that produced no notification.",
		},
		[]string{"reason"},
	)
	ApplicationChecksCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_application_checks_total",
			Help: "Total number of has-applied checks made for suggestions.",
		},
		[]string{"result"},
	)
	SuggestionUpdatesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_suggestion_updates_total",
			Help: "Total number of confirmed suggestion state updates.",
		},
		[]string{"estado"},
	)
)

func StartMetricsServer(address string) {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(SyncDuration)
	prometheus.MustRegister(NotificationsCounter)
	prometheus.MustRegister(SkippedTransitionsCounter)
	prometheus.MustRegister(ApplicationChecksCounter)
	prometheus.MustRegister(SuggestionUpdatesCounter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(address, mux))
	}()
}
