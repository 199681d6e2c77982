package dump

import "time"

// Format identifies the container format of an uploaded dump.
type Format string

const (
	FormatMinidump  Format = "minidump"
	FormatELFCore   Format = "elf-core"
	FormatMachOCore Format = "macho-core"
	FormatUnknown   Format = "unknown"
)

// Arch identifies the processor architecture a dump was taken on.
type Arch string

const (
	ArchX64     Arch = "x64"
	ArchArm64   Arch = "arm64"
	ArchX86     Arch = "x86"
	ArchArm     Arch = "arm"
	ArchUnknown Arch = "unknown"
)

// metadataSchemaVersion is bumped when the metadata.json layout changes.
const metadataSchemaVersion = 1

// Info describes a stored dump. It is the unit persisted to metadata.json
// and indexed for listing.
//
// Format, Arch, IsAlpine, and RuntimeVersion are detected exactly once
// during upload and are advisory: a mismatch with the host only produces a
// warning, never a rejection.
type Info struct {
	SchemaVersion int    `json:"schemaVersion"`
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	FileName      string `json:"fileName"`
	Size          int64  `json:"size"`
	Format        Format `json:"format"`
	Arch          Arch   `json:"arch"`

	// IsAlpine is non-nil only for Linux cores where the loader could be
	// identified: true for musl (Alpine), false for glibc.
	IsAlpine *bool `json:"isAlpine,omitempty"`

	// RuntimeVersion is the detected managed runtime version
	// (e.g. "9.0.10"), empty for native-only dumps.
	RuntimeVersion string `json:"runtimeVersion,omitempty"`

	// ExecutableName is the file name of the companion executable uploaded
	// via PutExecutable, empty when none is attached.
	ExecutableName string `json:"executableName,omitempty"`

	Description string    `json:"description,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Stats aggregates the whole store for the stats endpoint.
type Stats struct {
	TotalDumps int            `json:"totalDumps"`
	TotalBytes int64          `json:"totalBytes"`
	PerFormat  map[Format]int `json:"perFormat"`
	PerUser    map[string]int `json:"perUser"`
}

// SessionRegistry answers whether a dump is currently open in any live
// session. Implemented by the session manager; the store consults it before
// deleting.
type SessionRegistry interface {
	DumpInUse(dumpID string) bool
}
