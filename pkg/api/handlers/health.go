package handlers

import "net/http"

// Health serves the liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
