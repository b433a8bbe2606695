package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/sirupsen/logrus"
)

// NewRouter serves the ping page, the health check and the table websocket.
func NewRouter(logger *logrus.Logger, s *TableServer) http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(logger)

	mux.Handle("GET /{$}", logged(http.HandlerFunc(PingHandler)))
	mux.Handle("GET /healthz", logged(HealthHandler(s)))
	// Logged on disconnect instead.
	mux.Handle("GET /ws", TableWSHandler(logger, s))

	return middleware.RequestID(mux)
}

// PingHandler answers liveness probes.
func PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("UNO server is running"))
}

// HealthHandler reports the table summary as JSON.
func HealthHandler(s *TableServer) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := struct {
			Status      string `json:"status"`
			Connections int    `json:"connections"`
			Table       any    `json:"table"`
		}{
			Status:      "ok",
			Connections: s.ConnectionCount(),
			Table:       s.Table.Stats(),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
