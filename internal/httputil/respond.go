package httputil

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Problem is an RFC 7807 style error body.
type Problem struct {
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// RespondJSON writes v as a JSON response.
func RespondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondProblem writes a problem+json error response.
func RespondProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	problem := Problem{
		Title:  http.StatusText(status),
		Status: status,
		Detail: strings.TrimSpace(detail),
	}
	if r != nil {
		problem.RequestID = RequestIDFromContext(r.Context())
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// HealthHandler reports liveness.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
}

// ReadinessHandler reports readiness via the supplied check.
func ReadinessHandler(check func() error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				RespondJSON(w, http.StatusServiceUnavailable, map[string]any{
					"status": "unavailable",
					"error":  err.Error(),
				})
				return
			}
		}
		RespondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})
}

// VersionHandler reports build metadata.
func VersionHandler(version, commit, buildDate string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]any{
			"version":   strings.TrimSpace(version),
			"commit":    strings.TrimSpace(commit),
			"buildDate": strings.TrimSpace(buildDate),
		})
	})
}
