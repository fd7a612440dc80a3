package internal

import (
	"encoding/json"
	"net/http"
	"sync"

	healthv1 "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	healthLock sync.RWMutex
	healthMap  = map[string]healthv1.HealthCheckResponse_ServingStatus{}
)

// SetHealth records the serving status of one named component. Components
// should register themselves NOT_SERVING at startup and flip to SERVING once
// their dependencies answer.
func SetHealth(component string, status healthv1.HealthCheckResponse_ServingStatus) {
	healthLock.Lock()
	defer healthLock.Unlock()
	healthMap[component] = status
}

// Healthy reports whether every registered component is SERVING.
func Healthy() bool {
	healthLock.RLock()
	defer healthLock.RUnlock()

	for _, status := range healthMap {
		if status != healthv1.HealthCheckResponse_SERVING {
			return false
		}
	}

	return true
}

// HealthHandler answers load balancer probes: 200 when everything is SERVING,
// 503 otherwise, with a JSON map of component statuses either way.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		healthLock.RLock()
		statuses := make(map[string]string, len(healthMap))
		for component, status := range healthMap {
			statuses[component] = status.String()
		}
		healthLock.RUnlock()

		code := http.StatusOK
		if !Healthy() {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(statuses)
	})
}
