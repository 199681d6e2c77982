package apiclient

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// Capabilities describes the debugging host.
type Capabilities struct {
	Platform       string `json:"platform"`
	Architecture   string `json:"architecture"`
	IsAlpine       bool   `json:"isAlpine"`
	DebuggerType   string `json:"debuggerType"`
	RuntimeVersion string `json:"runtimeVersion,omitempty"`
	Hostname       string `json:"hostname"`
	Version        string `json:"version"`
}

// ServerInfo extends Capabilities with the server's auto-generated name.
type ServerInfo struct {
	Capabilities
	Name string `json:"name"`
}

// Health checks the unauthenticated health endpoint.
func (c *Client) Health() (*HealthResponse, error) {
	return getResource[HealthResponse](c, "/health")
}

// Capabilities fetches the host capability metadata.
func (c *Client) Capabilities() (*Capabilities, error) {
	return getResource[Capabilities](c, "/api/server/capabilities")
}

// ServerInfo fetches the full server identity.
func (c *Client) ServerInfo() (*ServerInfo, error) {
	return getResource[ServerInfo](c, "/api/server/info")
}
