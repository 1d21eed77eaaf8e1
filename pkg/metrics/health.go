package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthReport is the JSON body served by HealthHandler and ReadyHandler.
type HealthReport struct {
	Status     string            `json:"status"` // "healthy"/"unhealthy" or "ready"/"not_ready"
	Timestamp  time.Time         `json:"timestamp"`
	Subsystems map[string]string `json:"subsystems,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
	StartTime  time.Time         `json:"-"`
}

// criticalSubsystems are the ones GetReadiness requires to be healthy
// before a driftd instance reports ready. Sync is deliberately excluded:
// a standalone instance with no configured peers never registers it at
// all, and that must not block readiness.
var criticalSubsystems = []string{"store", "persistence"}

var registry = &subsystemRegistry{
	subsystems: make(map[string]subsystemHealth),
	startTime:  time.Now(),
}

// subsystemHealth tracks the last reported state of one driftd subsystem
// (store, persistence, sync).
type subsystemHealth struct {
	Ready   bool
	Detail  string
	Updated time.Time
}

// subsystemRegistry is the process-wide table of subsystem health reports.
type subsystemRegistry struct {
	mu         sync.RWMutex
	subsystems map[string]subsystemHealth
	startTime  time.Time
	version    string
}

// SetVersion sets the version string reported in health/readiness bodies.
func SetVersion(version string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.version = version
}

// ReportSubsystem records the current health of one named subsystem
// ("store", "persistence", "sync"). boltsnap calls this after its initial
// load and after every flush; httpsnap's plugin calls it after every round
// of peer pulls.
func ReportSubsystem(name string, ready bool, detail string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	registry.subsystems[name] = subsystemHealth{
		Ready:   ready,
		Detail:  detail,
		Updated: time.Now(),
	}
}

// GetHealth reports "unhealthy" if any reported subsystem is unready,
// regardless of whether it is critical for readiness.
func GetHealth() HealthReport {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	status := "healthy"
	subsystems := make(map[string]string, len(registry.subsystems))

	for name, h := range registry.subsystems {
		if !h.Ready {
			status = "unhealthy"
			subsystems[name] = "unhealthy: " + h.Detail
		} else {
			subsystems[name] = "healthy"
		}
	}

	return HealthReport{
		Status:     status,
		Timestamp:  time.Now(),
		Subsystems: subsystems,
		Version:    registry.version,
		Uptime:     time.Since(registry.startTime).String(),
		StartTime:  registry.startTime,
	}
}

// GetReadiness reports "ready" only when every entry in criticalSubsystems
// has reported in and its latest report is healthy. A subsystem that hasn't
// reported yet (persistence still loading its snapshot, say) counts as
// not ready rather than being silently skipped.
func GetReadiness() HealthReport {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	status := "ready"
	message := ""
	subsystems := make(map[string]string, len(criticalSubsystems))

	for _, name := range criticalSubsystems {
		h, reported := registry.subsystems[name]
		switch {
		case !reported:
			status = "not_ready"
			message = "waiting for " + name + " to report in"
			subsystems[name] = "not reported"
		case !h.Ready:
			status = "not_ready"
			message = "waiting for " + name
			subsystems[name] = "not ready: " + h.Detail
		default:
			subsystems[name] = "ready"
		}
	}

	return HealthReport{
		Status:     status,
		Timestamp:  time.Now(),
		Subsystems: subsystems,
		Message:    message,
		Version:    registry.version,
		Uptime:     time.Since(registry.startTime).String(),
		StartTime:  registry.startTime,
	}
}

// HealthHandler serves GetHealth as JSON, returning 503 when unhealthy.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := GetHealth()

		w.Header().Set("Content-Type", "application/json")
		statusCode := http.StatusOK
		if health.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
		w.WriteHeader(statusCode)

		_ = json.NewEncoder(w).Encode(health)
	}
}

// ReadyHandler serves GetReadiness as JSON, returning 503 when not ready.
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := GetReadiness()

		w.Header().Set("Content-Type", "application/json")
		statusCode := http.StatusOK
		if readiness.Status != "ready" {
			statusCode = http.StatusServiceUnavailable
		}
		w.WriteHeader(statusCode)

		_ = json.NewEncoder(w).Encode(readiness)
	}
}

// LivenessHandler always reports 200 while the process is running — it
// answers "is driftd's HTTP server scheduling at all", not "is it useful".
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": time.Since(registry.startTime).String(),
		})
	}
}
