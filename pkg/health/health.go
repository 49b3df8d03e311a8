// Package health provides readiness state tracking and HTTP health check
// handlers, including a per-connection report for the database registry.
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// Report status values.
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"
	StatusUnavailable = "unavailable"
)

// Checker tracks the readiness state of the server.
// It is safe for concurrent use.
type Checker struct {
	state atomic.Int32
}

// NewChecker creates a Checker in the Starting state.
func NewChecker() *Checker {
	return &Checker{}
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

// LivenessHandler always responds 200 OK (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: StatusOK})
	}
}

// ReadinessHandler responds 200 when ready and 503 when starting or
// draining (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		code := http.StatusServiceUnavailable
		if c.IsReady() {
			code = http.StatusOK
		}
		writeJSON(w, code, statusResponse{Status: c.State()})
	}
}

// ConnectionStatus is the read side of the connection registry.
type ConnectionStatus interface {
	GetConnectionNames() []string
	GetConnection(name string) (string, error)
}

// ConnectionReport describes one connection in the /connectionz body.
type ConnectionReport struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

type connectionsResponse struct {
	Status      string             `json:"status"`
	Connections []ConnectionReport `json:"connections"`
}

// ConnectionsHandler reports every discovered connection (/connectionz).
// It responds 200 with "ok" when all are available, 200 with "degraded"
// when some are, and 503 when none are.
func ConnectionsHandler(src ConnectionStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		names := src.GetConnectionNames()
		reports := make([]ConnectionReport, 0, len(names))
		available := 0
		for _, name := range names {
			report := ConnectionReport{Name: name, Available: true}
			if _, err := src.GetConnection(name); err != nil {
				report.Available = false
				report.Error = err.Error()
			} else {
				available++
			}
			reports = append(reports, report)
		}

		resp := connectionsResponse{Status: StatusOK, Connections: reports}
		code := http.StatusOK
		switch {
		case available == 0:
			resp.Status = StatusUnavailable
			code = http.StatusServiceUnavailable
		case available < len(names):
			resp.Status = StatusDegraded
		}
		writeJSON(w, code, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
