package health

import (
	"encoding/json"
	"net/http"

	"github.com/scoremilk/chat-gateway/pkg/logger"
)

// Response is the JSON body returned by the probe endpoints.
type Response struct {
	Status  string                 `json:"status"`            // "healthy" | "unhealthy"
	Checks  map[string]CheckStatus `json:"checks,omitempty"`  // check name -> status
	Message string                 `json:"message,omitempty"` // aggregate failure message
}

// CheckStatus is one check's entry in the HTTP response.
type CheckStatus struct {
	Status  string `json:"status"`            // "ok" | "error"
	Error   string `json:"error,omitempty"`   // error message if status is "error"
	Latency string `json:"latency,omitempty"` // latency in human-readable format
}

// LivenessHandler returns the HTTP handler for the liveness probe.
// Responds 200 if the process is alive, 503 if it should be restarted.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := c.CheckLiveness(r.Context())
		c.writeResponse(w, status, err)
	}
}

// ReadinessHandler returns the HTTP handler for the readiness probe.
// Responds 200 if the gateway can accept chat connections, 503 otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := c.CheckReadiness(r.Context())
		c.writeResponse(w, status, err)
	}
}

func (c *Checker) writeResponse(w http.ResponseWriter, status *Status, err error) {
	w.Header().Set("Content-Type", "application/json")

	resp := Response{Checks: make(map[string]CheckStatus)}
	if status.Healthy {
		resp.Status = "healthy"
		w.WriteHeader(http.StatusOK)
	} else {
		resp.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
		if err != nil {
			resp.Message = err.Error()
		}
	}

	for _, result := range status.Checks {
		cs := CheckStatus{Latency: result.Latency.String()}
		if result.Healthy {
			cs.Status = "ok"
		} else {
			cs.Status = "error"
			cs.Error = result.Error
		}
		resp.Checks[result.Name] = cs
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil && c.log != nil {
		c.log.Error("failed to encode health response", logger.ErrorField(err))
	}
}
