package handlers

import (
	"net/http"

	"github.com/coredock/coredock/pkg/hostinfo"
)

// Capabilities is the body of GET /api/server/capabilities.
type Capabilities struct {
	Platform       string `json:"platform"`
	Architecture   string `json:"architecture"`
	IsAlpine       bool   `json:"isAlpine"`
	DebuggerType   string `json:"debuggerType"`
	RuntimeVersion string `json:"runtimeVersion,omitempty"`
	Hostname       string `json:"hostname"`
	Version        string `json:"version"`
}

// ServerInfo extends Capabilities with the auto-generated server name.
type ServerInfo struct {
	Capabilities
	Name string `json:"name"`
}

// ServerHandler serves host capability metadata.
type ServerHandler struct {
	host           hostinfo.Info
	version        string
	runtimeVersion string
}

// NewServerHandler builds the handler from a host probe. runtimeVersion
// is the managed runtime version detected at startup, empty when none.
func NewServerHandler(host hostinfo.Info, version, runtimeVersion string) *ServerHandler {
	return &ServerHandler{host: host, version: version, runtimeVersion: runtimeVersion}
}

func (h *ServerHandler) capabilities() Capabilities {
	return Capabilities{
		Platform:       h.host.Platform,
		Architecture:   h.host.Arch,
		IsAlpine:       h.host.IsAlpine,
		DebuggerType:   h.host.Debugger,
		RuntimeVersion: h.runtimeVersion,
		Hostname:       h.host.Hostname,
		Version:        h.version,
	}
}

// Capabilities handles GET /api/server/capabilities.
func (h *ServerHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.capabilities())
}

// Info handles GET /api/server/info.
func (h *ServerHandler) Info(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, ServerInfo{
		Capabilities: h.capabilities(),
		Name:         h.host.Name,
	})
}
