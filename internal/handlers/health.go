package handlers

import (
	"net/http"
	"time"

	domain "github.com/go-link/api/internal/domain"
	"github.com/go-link/api/internal/platform/httpx"
	"github.com/go-link/api/internal/services"
)

// HealthHandlersDeps bundles collaborators for liveness and readiness endpoints.
type HealthHandlersDeps struct {
	System services.SystemService
	Clock  func() time.Time
}

// HealthHandlers serves /healthz and /readyz.
type HealthHandlers struct {
	system services.SystemService
	clock  func() time.Time
}

// NewHealthHandlers constructs health handlers. Without a system service the
// readiness probe degrades to a static ok, which keeps tests and local runs
// working before the Firestore client is wired.
func NewHealthHandlers(deps HealthHandlersDeps) *HealthHandlers {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &HealthHandlers{system: deps.System, clock: clock}
}

// Healthz is the liveness probe: the process is up and serving.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":    string(domain.HealthStatusOK),
		"timestamp": h.clock().UTC().Format(time.RFC3339),
	}
	if h.system != nil {
		build := h.system.Build()
		if build.Version != "" {
			payload["version"] = build.Version
		}
		if build.CommitSHA != "" {
			payload["commit"] = build.CommitSHA
		}
		if !build.StartedAt.IsZero() {
			payload["uptime"] = h.clock().Sub(build.StartedAt).Round(time.Second).String()
		}
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// Readyz is the readiness probe: dependency checks must pass before traffic
// is routed here.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, map[string]any{"status": string(domain.HealthStatusOK)})
		return
	}

	report, err := h.system.HealthReport(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("health_check_failed", err.Error(), http.StatusServiceUnavailable))
		return
	}

	checks := make(map[string]healthCheckPayload, len(report.Checks))
	for name, check := range report.Checks {
		checks[name] = healthCheckPayload{
			Status:    string(check.Status),
			Detail:    check.Detail,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		}
	}

	status := http.StatusOK
	if report.Status == domain.HealthStatusError {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, healthReportPayload{
		Status:      string(report.Status),
		Checks:      checks,
		GeneratedAt: formatTime(report.GeneratedAt),
	})
}

type healthReportPayload struct {
	Status      string                        `json:"status"`
	Checks      map[string]healthCheckPayload `json:"checks,omitempty"`
	GeneratedAt string                        `json:"generated_at,omitempty"`
}

type healthCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	CheckedAt string `json:"checked_at,omitempty"`
}
