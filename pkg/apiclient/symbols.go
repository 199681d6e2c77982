package apiclient

import "time"

// SymbolInfo describes one stored symbol file.
type SymbolInfo struct {
	DumpID     string    `json:"dumpId"`
	RelPath    string    `json:"relPath"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	Kind       string    `json:"kind"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// SymbolZipResponse summarizes an archive extraction.
type SymbolZipResponse struct {
	DumpID         string   `json:"dumpId"`
	ExtractedFiles []string `json:"extractedFiles"`
	Directories    []string `json:"directories"`
	Skipped        []string `json:"skipped,omitempty"`
}

// SymbolListResponse is the body of GET /api/symbols/dump/{dumpId}.
type SymbolListResponse struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// SymbolExistsResponse reports whether a dump has any symbols.
type SymbolExistsResponse struct {
	HasSymbols bool `json:"hasSymbols"`
}

// SymbolClearResponse confirms a symbol wipe.
type SymbolClearResponse struct {
	Cleared bool   `json:"cleared"`
	DumpID  string `json:"dumpId"`
}

// SymbolServersResponse lists well-known public symbol servers.
type SymbolServersResponse struct {
	Servers []string `json:"servers"`
}

// UploadSymbol uploads one symbol file for a dump.
func (c *Client) UploadSymbol(filePath, dumpID string) (*SymbolInfo, error) {
	return uploadResource[SymbolInfo](c, "/api/symbols/upload", "file", filePath,
		map[string]string{"dumpId": dumpID})
}

// UploadSymbolZip uploads a ZIP archive of symbols for a dump. Entries
// that are not symbol files are skipped, not fatal.
func (c *Client) UploadSymbolZip(filePath, dumpID string) (*SymbolZipResponse, error) {
	return uploadResource[SymbolZipResponse](c, "/api/symbols/upload-zip", "file", filePath,
		map[string]string{"dumpId": dumpID})
}

// ListSymbols lists the symbol files stored for a dump.
func (c *Client) ListSymbols(dumpID string) (*SymbolListResponse, error) {
	return getResource[SymbolListResponse](c, resourcePath("/api/symbols/dump/%s", dumpID))
}

// HasSymbols reports whether any symbols are stored for a dump.
func (c *Client) HasSymbols(dumpID string) (bool, error) {
	resp, err := getResource[SymbolExistsResponse](c, resourcePath("/api/symbols/dump/%s/exists", dumpID))
	if err != nil {
		return false, err
	}
	return resp.HasSymbols, nil
}

// ClearSymbols removes all symbols stored for a dump.
func (c *Client) ClearSymbols(dumpID string) (*SymbolClearResponse, error) {
	return deleteResource[SymbolClearResponse](c, resourcePath("/api/symbols/dump/%s", dumpID))
}

// SymbolServers lists the well-known public symbol servers.
func (c *Client) SymbolServers() ([]string, error) {
	resp, err := getResource[SymbolServersResponse](c, "/api/symbols/servers")
	if err != nil {
		return nil, err
	}
	return resp.Servers, nil
}
