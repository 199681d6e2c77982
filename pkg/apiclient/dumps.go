package apiclient

import "time"

// DumpInfo is the stored metadata for one dump.
type DumpInfo struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	FileName       string    `json:"fileName"`
	Size           int64     `json:"size"`
	Format         string    `json:"format"`
	Arch           string    `json:"arch"`
	IsAlpine       *bool     `json:"isAlpine,omitempty"`
	RuntimeVersion string    `json:"runtimeVersion,omitempty"`
	ExecutableName string    `json:"executableName,omitempty"`
	Description    string    `json:"description,omitempty"`
	UploadedAt     time.Time `json:"uploadedAt"`
}

// DumpListResponse is the body of GET /api/dumps/user/{userId}.
type DumpListResponse struct {
	Dumps []DumpInfo `json:"dumps"`
	Count int        `json:"count"`
}

// DumpDeleteResponse confirms a deletion.
type DumpDeleteResponse struct {
	Deleted bool   `json:"deleted"`
	DumpID  string `json:"dumpId"`
}

// DumpStats aggregates the store contents.
type DumpStats struct {
	TotalDumps int            `json:"totalDumps"`
	TotalBytes int64          `json:"totalBytes"`
	PerFormat  map[string]int `json:"perFormat"`
	PerUser    map[string]int `json:"perUser"`
}

// UploadDump uploads a dump file for the given user.
func (c *Client) UploadDump(filePath, userID, description string) (*DumpInfo, error) {
	fields := map[string]string{"userId": userID}
	if description != "" {
		fields["description"] = description
	}
	return uploadResource[DumpInfo](c, "/api/dumps/upload", "file", filePath, fields)
}

// UploadExecutable attaches a companion binary to an existing dump.
func (c *Client) UploadExecutable(filePath, userID, dumpID string) (*DumpInfo, error) {
	return uploadResource[DumpInfo](c,
		resourcePath("/api/dumps/%s/%s/binary", userID, dumpID), "file", filePath, nil)
}

// ListDumps lists the user's dumps, newest first.
func (c *Client) ListDumps(userID string) (*DumpListResponse, error) {
	return getResource[DumpListResponse](c, resourcePath("/api/dumps/user/%s", userID))
}

// GetDump fetches one dump's metadata.
func (c *Client) GetDump(userID, dumpID string) (*DumpInfo, error) {
	return getResource[DumpInfo](c, resourcePath("/api/dumps/%s/%s", userID, dumpID))
}

// DeleteDump removes a dump. Fails with a conflict while a live session
// has it open.
func (c *Client) DeleteDump(userID, dumpID string) (*DumpDeleteResponse, error) {
	return deleteResource[DumpDeleteResponse](c, resourcePath("/api/dumps/%s/%s", userID, dumpID))
}

// DumpStats fetches store-wide aggregate statistics.
func (c *Client) DumpStats() (*DumpStats, error) {
	return getResource[DumpStats](c, "/api/dumps/stats")
}
