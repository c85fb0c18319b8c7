package health

import (
	"encoding/json"
	"net/http"

	"github.com/luismedel/protohackers-challenge/internal/server"
)

// Overall statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Service is a component whose lifecycle state is reported.
type Service interface {
	Name() string
	State() server.State
}

// Report is the body of a /health response.
type Report struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Checker aggregates service states.
type Checker struct {
	services []Service
}

// NewChecker creates a Checker over services.
func NewChecker(services ...Service) *Checker {
	return &Checker{services: services}
}

// Report returns the current state of every service. A stopped service makes
// the process unhealthy; a service that is starting or draining degrades it.
func (c *Checker) Report() Report {
	r := Report{
		Status:   StatusHealthy,
		Services: make(map[string]string, len(c.services)),
	}
	for _, s := range c.services {
		state := s.State()
		r.Services[s.Name()] = state.String()

		switch state {
		case server.StateRunning:
		case server.StateStopped:
			r.Status = StatusUnhealthy
		default:
			if r.Status == StatusHealthy {
				r.Status = StatusDegraded
			}
		}
	}
	return r
}

// Handler returns the HTTP handler for /health and, when metrics is not nil,
// for metricsPath.
func (c *Checker) Handler(metrics http.Handler, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		report := c.Report()

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	})

	if metrics != nil {
		mux.Handle(metricsPath, metrics)
	}

	return mux
}
