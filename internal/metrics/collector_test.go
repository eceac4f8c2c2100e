package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsCollector(t *testing.T) {
	collector := NewMetricsCollector()

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.Registry())
	assert.NotNil(t, collector.updatesTotal)
	assert.NotNil(t, collector.workerQueueDepth)
}

func TestNewMetricsCollectorWithRegistry_Nil(t *testing.T) {
	collector := NewMetricsCollectorWithRegistry(nil)
	assert.NotNil(t, collector.Registry())
}

func TestCollectorsAreIsolated(t *testing.T) {
	// each collector owns its registry, so creating two must not panic on duplicate registration
	a := NewMetricsCollector()
	b := NewMetricsCollector()

	a.RecordSendError()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.telegramSendErrors))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.telegramSendErrors))
}

func TestRecordUpdate(t *testing.T) {
	collector := NewMetricsCollector()

	collector.RecordUpdate("message", StatusOK, 120*time.Millisecond)
	collector.RecordUpdate("message", StatusOK, 80*time.Millisecond)
	collector.RecordUpdate("callback", StatusError, time.Second)
	collector.RecordUpdate("voice", StatusDropped, 0)

	expected := `
		# HELP hamyon_updates_total Total number of Telegram updates handled
		# TYPE hamyon_updates_total counter
		hamyon_updates_total{kind="callback",status="error"} 1
		hamyon_updates_total{kind="message",status="ok"} 2
		hamyon_updates_total{kind="voice",status="dropped"} 1
	`
	err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "hamyon_updates_total")
	assert.NoError(t, err)

	families, err := collector.Registry().Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "hamyon_handler_duration_seconds" {
			found = true
			// dropped updates carry no duration
			assert.Equal(t, 2, len(mf.GetMetric()))
		}
	}
	assert.True(t, found, "hamyon_handler_duration_seconds metric not found")
}

func TestRecordExpenseAndParser(t *testing.T) {
	collector := NewMetricsCollector()

	collector.RecordExpenseCreated("voice")
	collector.RecordExpenseCreated("text")
	collector.RecordExpenseCreated("text")
	collector.RecordParserResult("ai")
	collector.RecordParserResult("regex")

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.expensesCreated.WithLabelValues("text")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.expensesCreated.WithLabelValues("voice")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.parserResults.WithLabelValues("ai")))
}

func TestRecordAlertSent(t *testing.T) {
	collector := NewMetricsCollector()

	collector.RecordAlertSent(80)
	collector.RecordAlertSent(100)
	collector.RecordAlertSent(100)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.alertsSent.WithLabelValues("80")))
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.alertsSent.WithLabelValues("100")))
}

func TestSpeechAndQueueDepth(t *testing.T) {
	collector := NewMetricsCollector()

	collector.RecordSpeechRequest(StatusOK)
	collector.RecordSpeechRequest(StatusError)
	collector.UpdateWorkerQueueDepth(7)
	collector.UpdateWorkerQueueDepth(3)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.speechRequests.WithLabelValues(StatusError)))
	assert.Equal(t, float64(3), testutil.ToFloat64(collector.workerQueueDepth))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var collector *MetricsCollector

	assert.NotPanics(t, func() {
		collector.RecordUpdate("message", StatusOK, time.Second)
		collector.RecordExpenseCreated("text")
		collector.RecordParserResult("ai")
		collector.RecordSpeechRequest(StatusOK)
		collector.RecordAlertSent(90)
		collector.RecordSendError()
		collector.UpdateWorkerQueueDepth(1)
	})
}

func TestRegistryGathers(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry(reg)
	collector.RecordSendError()

	count, err := testutil.GatherAndCount(reg, "hamyon_telegram_send_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
