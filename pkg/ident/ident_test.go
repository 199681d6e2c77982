package ident

import (
	"errors"
	"strings"
	"testing"
)

func TestNewDumpID(t *testing.T) {
	id := NewDumpID()

	if len(id) != 32 {
		t.Errorf("Expected 32 hex chars, got %d: %q", len(id), id)
	}
	if strings.ToLower(id) != id {
		t.Errorf("Expected lowercase hex, got %q", id)
	}
	if err := ValidateID(id); err != nil {
		t.Errorf("Generated dump id failed validation: %v", err)
	}

	// Two ids must differ
	if NewDumpID() == id {
		t.Error("Expected distinct ids from successive calls")
	}
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	if err := ValidateID(id); err != nil {
		t.Errorf("Generated session id failed validation: %v", err)
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "alice", false},
		{"uuid", "f47ac10b-58cc-4372-a567-0e02b2c3d479", false},
		{"hex dump id", "0123456789abcdef0123456789abcdef", false},
		{"with underscore", "user_1", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"embedded dotdot", "a..b", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"traversal", "../../etc/passwd", true},
		{"nul", "a\x00b", true},
		{"too long", strings.Repeat("x", MaxIDLen+1), true},
		{"max length ok", strings.Repeat("x", MaxIDLen), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateID(%q) expected error, got nil", tt.id)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateID(%q) unexpected error: %v", tt.id, err)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("ValidateID(%q) error should wrap ErrInvalid, got: %v", tt.id, err)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"simple", "dump.dmp", false},
		{"dotted", "libcoreclr.so.dbg", false},
		{"pdb", "MyApp.pdb", false},
		{"empty", "", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"embedded dotdot", "foo..bar", true},
		{"leading dotdot", "..hidden", true},
		{"trailing dotdot", "trace..", true},
		{"slash", "dir/file.pdb", true},
		{"backslash", `dir\file.pdb`, true},
		{"nul", "file\x00.pdb", true},
		{"too long", strings.Repeat("x", MaxFilenameLen+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateFilename(%q) expected error, got nil", tt.filename)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateFilename(%q) unexpected error: %v", tt.filename, err)
			}
		})
	}
}

func TestSanitizeBasename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dump.dmp", "dump.dmp"},
		{"dir/sub/file.pdb", "file.pdb"},
		{`C:\Users\bob\app.pdb`, "app.pdb"},
		{"../../evil.so", "evil.so"},
		{"", "file"},
		{"..", "file"},
		{"foo..bar", "foo.bar"},
		{"..hidden", ".hidden"},
		{"   ", "file"},
		{"a\x00b", "ab"},
	}

	for _, tt := range tests {
		got := SanitizeBasename(tt.in)
		if got != tt.want {
			t.Errorf("SanitizeBasename(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if err := ValidateFilename(got); err != nil {
			t.Errorf("SanitizeBasename(%q) result %q fails validation: %v", tt.in, got, err)
		}
	}
}
