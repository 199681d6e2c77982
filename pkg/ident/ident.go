// Package ident validates and generates the identifiers Coredock embeds in
// filesystem paths: dump ids, session ids, user ids, and uploaded file names.
//
// Every identifier that reaches a store ends up as a path segment under the
// storage root, so validation here is the single chokepoint against path
// traversal. Stores call these helpers before touching the filesystem.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identifier length limits
const (
	// MaxIDLen is the maximum length of a user/session/dump identifier
	MaxIDLen = 128
	// MaxFilenameLen is the maximum length of an uploaded file name component
	MaxFilenameLen = 255
)

// ErrInvalid reports an identifier that cannot be used as a path segment.
var ErrInvalid = errors.New("invalid identifier")

// NewDumpID returns a fresh 128-bit dump identifier as 32 lowercase hex
// characters.
func NewDumpID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// UUID rather than returning a predictable id.
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return hex.EncodeToString(b[:])
}

// NewSessionID returns a fresh session identifier (UUID v4).
func NewSessionID() string {
	return uuid.NewString()
}

// ValidateID checks that id is safe to use as a single path segment under
// the storage root. It rejects empty and over-long values, path separators,
// NUL bytes, and the dot segments "." and "..".
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalid)
	}
	if len(id) > MaxIDLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalid, MaxIDLen)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalid, id)
	}
	if strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("%w: contains path separator or NUL", ErrInvalid)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("%w: contains dot-dot", ErrInvalid)
	}
	return nil
}

// ValidateFilename checks an uploaded file name. Same rules as ValidateID
// but with the POSIX NAME_MAX length and allowing dots inside the name
// (extensions) while still rejecting traversal.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty file name", ErrInvalid)
	}
	if len(name) > MaxFilenameLen {
		return fmt.Errorf("%w: file name longer than %d bytes", ErrInvalid, MaxFilenameLen)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalid, name)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: file name contains path separator or NUL", ErrInvalid)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: file name contains dot-dot", ErrInvalid)
	}
	return nil
}

// SanitizeBasename strips any directory components from name and replaces
// characters that cannot appear in a path segment. The result always passes
// ValidateFilename; inputs with no usable characters become "file".
func SanitizeBasename(name string) string {
	// Take the last component regardless of separator style
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.TrimSpace(name)
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	if name == "" || name == "." {
		return "file"
	}
	if len(name) > MaxFilenameLen {
		name = name[:MaxFilenameLen]
	}
	return name
}
