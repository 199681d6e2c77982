// Package health provides shared types for health check responses.
package health

// Response represents the API health response structure.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Healthy reports whether the response indicates a healthy server.
func (r Response) Healthy() bool {
	return r.Status == "healthy"
}
