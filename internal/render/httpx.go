package render

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/go-chi/chi/v5/middleware"
)

type errorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"error": errorJSON{Code: code, Message: msg}})
}

type deploymentJSON struct {
	Address           string  `json:"address"`
	Label             string  `json:"label,omitempty"`
	Version           string  `json:"version"`
	StartingProjectID *uint64 `json:"starting_project_id,omitempty"`
}

func toDeploymentJSON(d deployments.Deployment) deploymentJSON {
	return deploymentJSON{
		Address:           d.Address.Hex(),
		Label:             d.Label,
		Version:           d.VersionString(),
		StartingProjectID: d.StartingProjectID,
	}
}

// requestLogger logs one line per request at info level.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Microsecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
