package logger

import (
	"github.com/maxaizer/jobboard-alerts/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"testing"
)

func Test_PrometheusHook_ShouldCountByErrorTypeAndLevel(t *testing.T) {
	hook := &prometheusHook{}
	before := testutil.ToFloat64(metrics.ErrorsCounter.WithLabelValues(ErrorTypeStore, "error"))
	beforeUnknown := testutil.ToFloat64(metrics.ErrorsCounter.WithLabelValues(unknownErrorType, "warning"))

	entry := log.NewEntry(log.New())
	entry.Level = log.ErrorLevel
	entry.Data = log.Fields{ErrorTypeField: ErrorTypeStore}
	assert.NoError(t, hook.Fire(entry))

	warning := log.NewEntry(log.New())
	warning.Level = log.WarnLevel
	assert.NoError(t, hook.Fire(warning))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ErrorsCounter.WithLabelValues(ErrorTypeStore, "error")))
	assert.Equal(t, beforeUnknown+1, testutil.ToFloat64(metrics.ErrorsCounter.WithLabelValues(unknownErrorType, "warning")))
}
