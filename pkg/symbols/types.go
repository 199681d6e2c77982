package symbols

import "time"

// Kind identifies the format of a stored symbol file.
type Kind string

const (
	KindPortablePDB Kind = "portable-pdb"
	KindPDB         Kind = "pdb"
	KindELF         Kind = "elf"
	KindMachO       Kind = "macho"
)

// Info describes one stored symbol file.
type Info struct {
	// RelPath is the path relative to the dump's symbol directory, in
	// slash form. For single-file uploads it is the sanitized basename.
	RelPath string `json:"relPath"`

	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	Kind       Kind      `json:"kind"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// ZipInfo summarizes a ZIP extraction.
type ZipInfo struct {
	// ExtractedFiles lists the relative paths written, in archive order.
	ExtractedFiles []string `json:"extractedFiles"`

	// Directories lists the unique directories that received files,
	// sorted, relative to the dump's symbol directory ("." for the root).
	Directories []string `json:"directories"`

	// Skipped lists entries rejected for path traversal or unrecognized
	// format.
	Skipped []string `json:"skipped,omitempty"`
}
