package failover

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// ReadinessHandler returns an [http.Handler] reporting the readiness of the
// strategies registered with reg: 200 OK while at least one candidate of
// every strategy may be tried, 503 Service Unavailable otherwise. GET
// responses carry the JSON-encoded [ReadinessStatus]; HEAD only the status.
func ReadinessHandler(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := reg.CheckReadiness()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		code := http.StatusOK
		if !status.Ready {
			code = http.StatusServiceUnavailable
		}

		w.WriteHeader(code)

		if r.Method == http.MethodHead {
			return
		}

		//nolint:errcheck // best-effort JSON encoding to HTTP response
		_ = json.NewEncoder(w).Encode(status)
	})
}
