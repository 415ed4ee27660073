package logger

import (
	"github.com/maxaizer/jobboard-alerts/internal/metrics"
	log "github.com/sirupsen/logrus"
)

const unknownErrorType = "unknown"

// prometheusHook counts warnings and errors by error_type and level.
type prometheusHook struct{}

func (h *prometheusHook) Fire(entry *log.Entry) error {
	errorType, ok := entry.Data[ErrorTypeField].(string)
	if !ok || errorType == "" {
		errorType = unknownErrorType
	}

	metrics.ErrorsCounter.WithLabelValues(errorType, entry.Level.String()).Inc()
	return nil
}

func (h *prometheusHook) Levels() []log.Level {
	return []log.Level{
		log.WarnLevel,
		log.ErrorLevel,
		log.FatalLevel,
		log.PanicLevel,
	}
}

func addPrometheusHook() {
	log.AddHook(&prometheusHook{})
}
