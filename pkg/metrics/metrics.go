// Package metrics provides Prometheus metrics collection for the chat gateway.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scoremilk/chat-gateway/pkg/logger"
)

const subsystem = "gateway"

// Metrics collects the gateway's operational counters.
type Metrics struct {
	reg *prometheus.Registry

	ConnectionsOpened prometheus.Counter
	ConnectionsClosed prometheus.Counter
	MessagesReceived  prometheus.Counter
	MessagesSent      prometheus.Counter
	AgentPromptErrors prometheus.Counter

	RefreshSuccess *prometheus.CounterVec
	RefreshFailure *prometheus.CounterVec

	AdmissionRejected prometheus.Counter

	server *http.Server
	log    logger.Logger
}

// NewMetrics creates a Metrics instance with all gateway collectors registered.
func NewMetrics(l logger.Logger) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		log: l,
	}

	m.ConnectionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "ws_connections_opened_total",
		Help:      "Total WebSocket connections accepted",
	})
	m.ConnectionsClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "ws_connections_closed_total",
		Help:      "Total WebSocket connections closed",
	})
	m.MessagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "ws_messages_received_total",
		Help:      "Total messages received from clients",
	})
	m.MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "ws_messages_sent_total",
		Help:      "Total messages sent to clients",
	})
	m.AgentPromptErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "agent_prompt_errors_total",
		Help:      "Total agent prompt calls that returned an error",
	})
	m.RefreshSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "data_refresh_success_total",
		Help:      "Successful data refreshes per entity type",
	}, []string{"entity"})
	m.RefreshFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "data_refresh_failure_total",
		Help:      "Failed data refreshes per entity type",
	}, []string{"entity"})
	m.AdmissionRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "admission_rejected_total",
		Help:      "Connections rejected by the platform admission check",
	})

	m.reg.MustRegister(
		m.ConnectionsOpened,
		m.ConnectionsClosed,
		m.MessagesReceived,
		m.MessagesSent,
		m.AgentPromptErrors,
		m.RefreshSuccess,
		m.RefreshFailure,
		m.AdmissionRejected,
	)

	return m
}

// Handler returns the HTTP handler serving the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Listen starts a dedicated metrics HTTP server on the specified port.
func (m *Metrics) Listen(port int) chan error {
	m.log.Info("Starting metrics listener", logger.IntField("port", port))

	mux := http.NewServeMux()
	mux.Handle("/", http.NotFoundHandler())
	mux.Handle("/metrics", m.Handler())

	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	return errChan
}

// Shutdown stops the metrics server if it was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
