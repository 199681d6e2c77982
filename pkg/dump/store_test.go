package dump

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a store over a temp directory with an in-memory
// index.
func newTestStore(t *testing.T, maxSize int64) *Store {
	t.Helper()

	s, err := New(Config{
		Root:          t.TempDir(),
		MaxDumpSize:   maxSize,
		InMemoryIndex: true,
	})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// stubRegistry marks a fixed set of dumps as in use.
type stubRegistry struct {
	inUse map[string]bool
}

func (r *stubRegistry) DumpInUse(dumpID string) bool { return r.inUse[dumpID] }

func TestStorePutGet(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	data := buildMinidump(minidumpArchAMD64)
	info, err := s.Put(ctx, "alice", "crash.dmp", bytes.NewReader(data), "prod crash")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if info.ID == "" {
		t.Error("Expected non-empty dump id")
	}
	if info.Format != FormatMinidump {
		t.Errorf("Expected minidump format, got %v", info.Format)
	}
	if info.Arch != ArchX64 {
		t.Errorf("Expected x64 arch, got %v", info.Arch)
	}
	if info.Size != int64(len(data)) {
		t.Errorf("Expected size %d, got %d", len(data), info.Size)
	}

	got, err := s.Get("alice", info.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != info.ID || got.FileName != "crash.dmp" || got.Description != "prod crash" {
		t.Errorf("Get returned unexpected info: %+v", got)
	}

	// Bytes must be on disk at the path the driver will open
	path, err := s.Path("alice", info.ID)
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read stored dump: %v", err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Error("Stored bytes differ from uploaded bytes")
	}
}

func TestStorePut_InvalidFormat(t *testing.T) {
	s := newTestStore(t, 0)

	_, err := s.Put(context.Background(), "alice", "notes.txt",
		bytes.NewReader([]byte("definitely not a dump")), "")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat, got %v", err)
	}
}

func TestStorePut_SizeBoundary(t *testing.T) {
	data := buildMinidump(minidumpArchAMD64)
	cap := int64(len(data))

	// Exactly at the cap: accepted
	s := newTestStore(t, cap)
	if _, err := s.Put(context.Background(), "alice", "at-cap.dmp", bytes.NewReader(data), ""); err != nil {
		t.Errorf("Upload exactly at cap should succeed, got %v", err)
	}

	// One byte over: rejected
	over := append(append([]byte{}, data...), 0x00)
	if _, err := s.Put(context.Background(), "alice", "over-cap.dmp", bytes.NewReader(over), ""); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge one byte over cap, got %v", err)
	}
}

func TestStorePut_PathTraversalRejected(t *testing.T) {
	s := newTestStore(t, 0)
	data := buildMinidump(minidumpArchAMD64)

	badUserIDs := []string{"../alice", "a/b", `a\b`, "..", "a\x00b", ""}
	for _, uid := range badUserIDs {
		if _, err := s.Put(context.Background(), uid, "crash.dmp", bytes.NewReader(data), ""); !errors.Is(err, ErrBadID) {
			t.Errorf("Put(userID=%q) expected ErrBadID, got %v", uid, err)
		}
	}

	badNames := []string{"../../etc/passwd", "dir/evil.dmp", ""}
	for _, name := range badNames {
		if _, err := s.Put(context.Background(), "alice", name, bytes.NewReader(data), ""); !errors.Is(err, ErrBadID) {
			t.Errorf("Put(fileName=%q) expected ErrBadID, got %v", name, err)
		}
	}
}

func TestStoreGet_OwnershipLooksLikeAbsence(t *testing.T) {
	s := newTestStore(t, 0)

	info, err := s.Put(context.Background(), "alice", "crash.dmp",
		bytes.NewReader(buildMinidump(minidumpArchAMD64)), "")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Bob asking for Alice's dump must get the same error as for a
	// nonexistent one
	_, err = s.Get("bob", info.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other user's dump, got %v", err)
	}
	_, err = s.Get("bob", "00000000000000000000000000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing dump, got %v", err)
	}
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t, 0)

	info, err := s.Put(context.Background(), "alice", "crash.dmp",
		bytes.NewReader(buildMinidump(minidumpArchAMD64)), "")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if err := s.Delete("alice", info.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("alice", info.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// List no longer includes it
	infos, err := s.List("alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("Expected empty list after delete, got %d entries", len(infos))
	}
}

func TestStoreDelete_InUse(t *testing.T) {
	s := newTestStore(t, 0)

	info, err := s.Put(context.Background(), "alice", "crash.dmp",
		bytes.NewReader(buildMinidump(minidumpArchAMD64)), "")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	s.SetSessionRegistry(&stubRegistry{inUse: map[string]bool{info.ID: true}})

	if err := s.Delete("alice", info.ID); !errors.Is(err, ErrInUse) {
		t.Errorf("Expected ErrInUse, got %v", err)
	}

	// Still present
	if _, err := s.Get("alice", info.ID); err != nil {
		t.Errorf("Dump should survive refused delete, got %v", err)
	}
}

func TestStoreList_OrderedByUploadDesc(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		info, err := s.Put(ctx, "alice", "crash.dmp",
			bytes.NewReader(buildMinidump(minidumpArchAMD64)), "")
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ids = append(ids, info.ID)
		time.Sleep(5 * time.Millisecond) // distinct upload timestamps
	}

	infos, err := s.List("alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("Expected 3 dumps, got %d", len(infos))
	}
	// Most recent first
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if infos[i].ID != want {
			t.Errorf("List[%d] = %s, want %s", i, infos[i].ID, want)
		}
	}

	// Other users see nothing
	others, err := s.List("bob")
	if err != nil {
		t.Fatalf("List(bob) failed: %v", err)
	}
	if len(others) != 0 {
		t.Errorf("Expected empty list for other user, got %d", len(others))
	}
}

func TestStoreStats(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	mini := buildMinidump(minidumpArchAMD64)
	core := buildELFCore(elfMachineAArch64)

	if _, err := s.Put(ctx, "alice", "a.dmp", bytes.NewReader(mini), ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Put(ctx, "alice", "b.core", bytes.NewReader(core), ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Put(ctx, "bob", "c.dmp", bytes.NewReader(mini), ""); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.TotalDumps != 3 {
		t.Errorf("Expected 3 dumps, got %d", st.TotalDumps)
	}
	wantBytes := int64(2*len(mini) + len(core))
	if st.TotalBytes != wantBytes {
		t.Errorf("Expected %d total bytes, got %d", wantBytes, st.TotalBytes)
	}
	if st.PerFormat[FormatMinidump] != 2 || st.PerFormat[FormatELFCore] != 1 {
		t.Errorf("Unexpected per-format counts: %+v", st.PerFormat)
	}
	if st.PerUser["alice"] != 2 || st.PerUser["bob"] != 1 {
		t.Errorf("Unexpected per-user counts: %+v", st.PerUser)
	}
}

func TestStorePutExecutable(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	info, err := s.Put(ctx, "alice", "crash.dmp",
		bytes.NewReader(buildMinidump(minidumpArchAMD64)), "")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exe := []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01}
	updated, err := s.PutExecutable(ctx, "alice", info.ID, "myapp", bytes.NewReader(exe))
	if err != nil {
		t.Fatalf("PutExecutable failed: %v", err)
	}
	if updated.ExecutableName != "myapp" {
		t.Errorf("Expected executable name recorded, got %q", updated.ExecutableName)
	}

	path, err := s.ExecutablePath("alice", info.ID)
	if err != nil {
		t.Fatalf("ExecutablePath failed: %v", err)
	}
	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read executable: %v", err)
	}
	if !bytes.Equal(onDisk, exe) {
		t.Error("Stored executable differs from upload")
	}
}

func TestStoreStartupSweep(t *testing.T) {
	root := t.TempDir()

	// A healthy dump written by a prior run
	s, err := New(Config{Root: root, InMemoryIndex: true})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	info, err := s.Put(context.Background(), "alice", "crash.dmp",
		bytes.NewReader(buildMinidump(minidumpArchAMD64)), "")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	s.Close()

	// Simulate a crash between bytes and metadata: a directory with dump
	// bytes but no metadata.json
	tornDir := filepath.Join(root, "alice", "deadbeefdeadbeefdeadbeefdeadbeef")
	if err := os.MkdirAll(tornDir, 0755); err != nil {
		t.Fatalf("Failed to create torn dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tornDir, "dump"), buildMinidump(minidumpArchAMD64), 0644); err != nil {
		t.Fatalf("Failed to write torn dump: %v", err)
	}

	// Restart
	s2, err := New(Config{Root: root, InMemoryIndex: true})
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer s2.Close()

	// Torn directory swept
	if _, err := os.Stat(tornDir); !os.IsNotExist(err) {
		t.Error("Expected torn dump directory to be swept at startup")
	}

	// Healthy dump survives and is re-indexed
	if _, err := s2.Get("alice", info.ID); err != nil {
		t.Errorf("Healthy dump lost across restart: %v", err)
	}
	infos, err := s2.List("alice")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != info.ID {
		t.Errorf("Expected rebuilt index with 1 dump, got %+v", infos)
	}
}

func TestStoreELFCoreRuntimeDetection(t *testing.T) {
	s := newTestStore(t, 0)

	core := append(buildELFCore(elfMachineAArch64),
		[]byte("/lib/ld-musl-aarch64.so.1\x00"+
			"/usr/share/dotnet/shared/Microsoft.NETCore.App/8.0.3/libcoreclr.so\x00")...)

	info, err := s.Put(context.Background(), "alice", "app.core", bytes.NewReader(core), "")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if info.IsAlpine == nil || !*info.IsAlpine {
		t.Errorf("Expected Alpine core detection, got %v", info.IsAlpine)
	}
	if info.RuntimeVersion != "8.0.3" {
		t.Errorf("Expected runtime 8.0.3, got %q", info.RuntimeVersion)
	}
}
