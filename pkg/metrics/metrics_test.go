package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoremilk/chat-gateway/pkg/logger"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.DebugLevel, Output: io.Discard})
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	m := NewMetrics(newTestLogger())
	require.NotNil(t, m)

	m.ConnectionsOpened.Inc()
	m.MessagesReceived.Inc()
	m.MessagesReceived.Inc()
	m.RefreshSuccess.WithLabelValues("personas").Inc()
	m.RefreshFailure.WithLabelValues("games").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "gateway_ws_connections_opened_total 1")
	assert.Contains(t, body, "gateway_ws_messages_received_total 2")
	assert.Contains(t, body, `gateway_data_refresh_success_total{entity="personas"} 1`)
	assert.Contains(t, body, `gateway_data_refresh_failure_total{entity="games"} 1`)
}

func TestShutdownWithoutListen(t *testing.T) {
	m := NewMetrics(newTestLogger())
	assert.NoError(t, m.Shutdown(t.Context()))
}
