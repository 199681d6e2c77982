package symbols

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testDumpID = "0123456789abcdef0123456789abcdef"

// portablePDB returns a minimal valid portable PDB payload.
func portablePDB() []byte {
	return append([]byte("BSJB"), make([]byte, 28)...)
}

// classicPDB returns a minimal valid MSF 7.00 payload.
func classicPDB() []byte {
	return append([]byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS"), make([]byte, 16)...)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func TestSniffKind(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantKind Kind
		wantErr  error
	}{
		{"portable pdb", portablePDB(), KindPortablePDB, nil},
		{"classic pdb", classicPDB(), KindPDB, nil},
		{"elf", append([]byte{0x7F, 0x45, 0x4C, 0x46}, make([]byte, 28)...), KindELF, nil},
		{"macho 64", append([]byte{0xCF, 0xFA, 0xED, 0xFE}, make([]byte, 28)...), KindMachO, nil},
		{"macho 32", append([]byte{0xCE, 0xFA, 0xED, 0xFE}, make([]byte, 28)...), KindMachO, nil},
		{"below sanity floor", []byte("BSJB"), "", ErrInvalidFormat},
		{"unknown magic", append([]byte("JUNK"), make([]byte, 28)...), "", ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := sniffKind(tt.data, int64(len(tt.data)))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("sniffKind() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("sniffKind() unexpected error: %v", err)
			}
			if kind != tt.wantKind {
				t.Errorf("sniffKind() = %v, want %v", kind, tt.wantKind)
			}
		})
	}
}

func TestPutAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	info, err := s.Put(ctx, testDumpID, "app.pdb", bytes.NewReader(portablePDB()))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if info.Kind != KindPortablePDB {
		t.Errorf("Expected portable-pdb kind, got %v", info.Kind)
	}
	if info.RelPath != "app.pdb" {
		t.Errorf("Expected relPath app.pdb, got %q", info.RelPath)
	}

	files, err := s.List(testDumpID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 1 || files[0] != "app.pdb" {
		t.Errorf("Expected [app.pdb], got %v", files)
	}
}

func TestPut_SanitizesDirectoryComponents(t *testing.T) {
	s := newTestStore(t)

	info, err := s.Put(context.Background(), testDumpID,
		"../../etc/app.pdb", bytes.NewReader(portablePDB()))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if info.RelPath != "app.pdb" {
		t.Errorf("Expected basename only, got %q", info.RelPath)
	}

	files, err := s.List(testDumpID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 1 || files[0] != "app.pdb" {
		t.Errorf("Expected sanitized [app.pdb], got %v", files)
	}
}

func TestPut_Rejections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Below the sanity floor
	if _, err := s.Put(ctx, testDumpID, "tiny.pdb", bytes.NewReader([]byte("BSJB"))); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat for tiny file, got %v", err)
	}

	// Unknown magic
	if _, err := s.Put(ctx, testDumpID, "readme.txt",
		bytes.NewReader([]byte("not a symbol file at all, sorry"))); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat for unknown magic, got %v", err)
	}

	// Bad dump id
	if _, err := s.Put(ctx, "../escape", "app.pdb", bytes.NewReader(portablePDB())); !errors.Is(err, ErrBadID) {
		t.Errorf("Expected ErrBadID for traversal dump id, got %v", err)
	}

	// Rejected uploads must not leave files behind
	files, err := s.List(testDumpID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Rejected uploads left files behind: %v", files)
	}
}

func TestPutZip(t *testing.T) {
	s := newTestStore(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range map[string][]byte{
		"lib/app.pdb":    portablePDB(),
		"lib/native.so":  append([]byte{0x7F, 0x45, 0x4C, 0x46}, make([]byte, 28)...),
		"root.pdb":       classicPDB(),
		"../escape.pdb":  portablePDB(),
		"notes/todo.txt": []byte("not a symbol, should be skipped!!"),
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to create zip entry: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("Failed to write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}

	info, err := s.PutZip(context.Background(), testDumpID, &buf)
	if err != nil {
		t.Fatalf("PutZip failed: %v", err)
	}

	if len(info.ExtractedFiles) != 3 {
		t.Errorf("Expected 3 extracted files, got %v", info.ExtractedFiles)
	}
	if len(info.Skipped) != 2 {
		t.Errorf("Expected 2 skipped entries, got %v", info.Skipped)
	}

	files, err := s.List(testDumpID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := map[string]bool{"lib/app.pdb": true, "lib/native.so": true, "root.pdb": true}
	if len(files) != len(want) {
		t.Fatalf("Expected %d files, got %v", len(want), files)
	}
	for _, f := range files {
		if !want[f] {
			t.Errorf("Unexpected extracted file %q", f)
		}
	}

	// The traversal entry must not exist anywhere near the store
	if _, err := os.Stat(filepath.Join(s.root, "..", "escape.pdb")); !os.IsNotExist(err) {
		t.Error("Traversal zip entry escaped the symbol directory")
	}

	// Unique containing directories, sorted
	if len(info.Directories) != 2 || info.Directories[0] != "." || info.Directories[1] != "lib" {
		t.Errorf("Expected directories [. lib], got %v", info.Directories)
	}
}

func TestPutZip_InvalidArchive(t *testing.T) {
	s := newTestStore(t)

	_, err := s.PutZip(context.Background(), testDumpID,
		bytes.NewReader([]byte("this is not a zip archive")))
	if !errors.Is(err, ErrBadArchive) {
		t.Errorf("Expected ErrBadArchive, got %v", err)
	}
}

func TestList_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.List(testDumpID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for dump without symbols, got %v", err)
	}
}

func TestHas(t *testing.T) {
	s := newTestStore(t)

	has, err := s.Has(testDumpID)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if has {
		t.Error("Expected no symbols before upload")
	}

	if _, err := s.Put(context.Background(), testDumpID, "app.pdb", bytes.NewReader(portablePDB())); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	has, err = s.Has(testDumpID)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !has {
		t.Error("Expected symbols after upload")
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	if err := s.Clear(testDumpID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound clearing absent symbols, got %v", err)
	}

	if _, err := s.Put(context.Background(), testDumpID, "app.pdb", bytes.NewReader(portablePDB())); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Clear(testDumpID); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := s.List(testDumpID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after clear, got %v", err)
	}
}

func TestSearchPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// No symbols: empty, not an error
	paths, err := s.SearchPath(testDumpID)
	if err != nil {
		t.Fatalf("SearchPath failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("Expected empty search path, got %v", paths)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"lib/app.pdb", "lib/sub/dep.pdb", "root.pdb"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("Failed to create zip entry: %v", err)
		}
		if _, err := w.Write(portablePDB()); err != nil {
			t.Fatalf("Failed to write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Failed to close zip: %v", err)
	}
	if _, err := s.PutZip(ctx, testDumpID, &buf); err != nil {
		t.Fatalf("PutZip failed: %v", err)
	}

	paths, err = s.SearchPath(testDumpID)
	if err != nil {
		t.Fatalf("SearchPath failed: %v", err)
	}
	root := filepath.Join(s.root, testDumpID)
	want := []string{root, filepath.Join(root, "lib"), filepath.Join(root, "lib", "sub")}
	if len(paths) != len(want) {
		t.Fatalf("Expected %d directories, got %v", len(want), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("SearchPath[%d] = %q, want %q", i, paths[i], want[i])
		}
	}

	// Stable across calls
	again, err := s.SearchPath(testDumpID)
	if err != nil {
		t.Fatalf("SearchPath failed: %v", err)
	}
	for i := range paths {
		if again[i] != paths[i] {
			t.Error("Search path order not stable across calls")
			break
		}
	}
}
