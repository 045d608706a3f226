package httpapi

import (
	"net/http"
)

// ConnectionChecker reports broker connectivity.
type ConnectionChecker interface {
	IsConnected() bool
}

type healthchecker struct {
	conn ConnectionChecker
}

func (h *healthchecker) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !h.conn.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"mqtt":   "disconnected",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mqtt":   "connected",
	})
}

func registerHealthcheck(mux *http.ServeMux, conn ConnectionChecker) {
	h := &healthchecker{conn: conn}
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
