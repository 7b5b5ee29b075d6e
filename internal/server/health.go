package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusTokenMissing = "missing"
)

// HealthChecker serves /healthz, /readyz and /healthz/detailed for the
// streamable-http transport.
//
// Readiness fails while the server is draining and when no token file exists
// and interactive authorization is off, since every tool call would then
// fail with an authorization error.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext // nil in tests of the handlers alone
	startTime time.Time
	version   string
}

func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{sc: sc, startTime: time.Now(), version: version}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness, e.g. to false at the start of shutdown.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type DetailedHealthResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	Version      string `json:"version,omitempty"`
	TokenPresent bool   `json:"token_present"`
	ReadOnly     bool   `json:"read_only"`
}

// probe is one evaluation of the server state.
type probe struct {
	ready        bool
	shuttingDown bool
	tokenPresent bool
	authPossible bool
	readOnly     bool
}

func (h *HealthChecker) probe() probe {
	p := probe{ready: h.ready.Load(), tokenPresent: true, authPossible: true}
	if h.sc != nil {
		p.shuttingDown = h.sc.IsShutdown()
		p.tokenPresent = h.sc.HasToken()
		p.authPossible = p.tokenPresent || h.sc.Config().InteractiveAuth
		p.readOnly = h.sc.ReadOnly()
	}
	return p
}

// RegisterHealthEndpoints mounts the three endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// LivenessHandler answers ok for as long as the process serves HTTP.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		p := h.probe()
		checks := map[string]string{
			"ready":    statusIf(p.ready, healthStatusNotReady),
			"shutdown": statusIf(!p.shuttingDown, healthStatusShuttingDown),
			"token":    statusIf(p.tokenPresent, healthStatusTokenMissing),
		}

		if p.ready && !p.shuttingDown && p.authPossible {
			writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
			return
		}
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
	})
}

func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		p := h.probe()
		resp := DetailedHealthResponse{
			Status:       healthStatusOK,
			Uptime:       time.Since(h.startTime).Truncate(time.Second).String(),
			Version:      h.version,
			TokenPresent: p.tokenPresent,
			ReadOnly:     p.readOnly,
		}

		code := http.StatusOK
		switch {
		case !p.ready:
			resp.Status, code = healthStatusNotReady, http.StatusServiceUnavailable
		case p.shuttingDown:
			resp.Status, code = healthStatusShuttingDown, http.StatusServiceUnavailable
		}
		writeHealth(w, code, resp)
	})
}

func statusIf(ok bool, failure string) string {
	if ok {
		return healthStatusOK
	}
	return failure
}

func writeHealth(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
