// Package dump implements the dump store: upload validation, format
// sniffing, per-user isolated persistence, and metadata indexing.
//
// On-disk layout under the store root:
//
//	<root>/<userId>/<dumpId>/dump            raw dump bytes
//	<root>/<userId>/<dumpId>/metadata.json   Info, written atomically
//	<root>/<userId>/<dumpId>/exe/<name>      optional companion executable
//
// File bytes and metadata are written with write-then-rename so a crash
// never leaves a partially visible dump. Any directory lacking
// metadata.json at startup is a torn write and is swept.
package dump

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/ident"
)

// Config holds configuration for the dump store.
type Config struct {
	// Root is the directory dumps are stored under (required).
	Root string

	// IndexDir is the directory for the badger metadata index.
	// Ignored when InMemoryIndex is set.
	IndexDir string

	// MaxDumpSize caps a single upload in bytes. Zero means unlimited.
	MaxDumpSize int64

	// InMemoryIndex uses an ephemeral index, for tests.
	InMemoryIndex bool
}

// Store is the filesystem-backed dump store.
type Store struct {
	mu       sync.RWMutex
	root     string
	maxSize  int64
	ix       *index
	sessions SessionRegistry
	closed   bool
}

// New creates the store, sweeps torn uploads, and rebuilds the metadata
// index from the filesystem.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("dump store root is required")
	}
	if err := os.MkdirAll(cfg.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating dump root: %w", err)
	}

	var ix *index
	var err error
	if cfg.InMemoryIndex {
		ix, err = openInMemoryIndex()
	} else {
		dir := cfg.IndexDir
		if dir == "" {
			dir = filepath.Join(cfg.Root, ".index")
		}
		ix, err = openIndex(dir)
	}
	if err != nil {
		return nil, err
	}

	s := &Store{
		root:    cfg.Root,
		maxSize: cfg.MaxDumpSize,
		ix:      ix,
	}

	if err := s.rebuild(); err != nil {
		ix.close()
		return nil, err
	}
	return s, nil
}

// SetSessionRegistry wires the in-use guard. Until set, Delete never
// reports ErrInUse.
func (s *Store) SetSessionRegistry(reg SessionRegistry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = reg
}

// Close releases the metadata index.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.ix.close()
}

// dumpDir returns <root>/<userId>/<dumpId>. Identifiers must already be
// validated by the caller.
func (s *Store) dumpDir(userID, dumpID string) string {
	return filepath.Join(s.root, userID, dumpID)
}

// Path returns the location of the raw dump bytes for the debugger and the
// structured-helper mmap path. Fails ErrNotFound like Get.
func (s *Store) Path(userID, dumpID string) (string, error) {
	if _, err := s.Get(userID, dumpID); err != nil {
		return "", err
	}
	return filepath.Join(s.dumpDir(userID, dumpID), "dump"), nil
}

// ExecutablePath returns the companion binary location, or ErrNotFound when
// the dump has none.
func (s *Store) ExecutablePath(userID, dumpID string) (string, error) {
	info, err := s.Get(userID, dumpID)
	if err != nil {
		return "", err
	}
	if info.ExecutableName == "" {
		return "", ErrNotFound
	}
	return filepath.Join(s.dumpDir(userID, dumpID), "exe", info.ExecutableName), nil
}

// Put streams an upload to disk, classifies it, and registers it.
//
// The copy is capped at the configured size; exceeding it fails ErrTooLarge
// without leaving a partial file. Unrecognized magic fails ErrInvalidFormat.
func (s *Store) Put(ctx context.Context, userID, fileName string, r io.Reader, description string) (*Info, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ident.ValidateID(userID); err != nil {
		return nil, fmt.Errorf("%w: user id: %v", ErrBadID, err)
	}
	if err := ident.ValidateFilename(fileName); err != nil {
		return nil, fmt.Errorf("%w: file name: %v", ErrBadID, err)
	}

	userDir := filepath.Join(s.root, userID)
	if err := os.MkdirAll(userDir, 0755); err != nil {
		return nil, fmt.Errorf("creating user directory: %w", err)
	}

	tmp, err := os.CreateTemp(userDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("creating upload temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath) // no-op after successful rename
	}()

	// Copy one byte past the cap so an exactly-at-cap upload succeeds and
	// an over-cap one is detected without draining the request.
	limit := s.maxSize
	var written int64
	if limit > 0 {
		written, err = io.Copy(tmp, io.LimitReader(r, limit+1))
	} else {
		written, err = io.Copy(tmp, r)
	}
	if err != nil {
		return nil, fmt.Errorf("writing upload: %w", err)
	}
	if limit > 0 && written > limit {
		return nil, ErrTooLarge
	}

	format, arch, err := Detect(tmp, written)
	if err != nil {
		return nil, err
	}

	var isAlpine *bool
	var runtimeVersion string
	if format == FormatELFCore {
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewinding upload: %w", err)
		}
		isAlpine, runtimeVersion, err = scanCoreStrings(tmp)
		if err != nil {
			return nil, err
		}
	}

	dumpID := ident.NewDumpID()
	dir := s.dumpDir(userID, dumpID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating dump directory: %w", err)
	}

	info := &Info{
		SchemaVersion:  metadataSchemaVersion,
		ID:             dumpID,
		UserID:         userID,
		FileName:       fileName,
		Size:           written,
		Format:         format,
		Arch:           arch,
		IsAlpine:       isAlpine,
		RuntimeVersion: runtimeVersion,
		Description:    description,
		UploadedAt:     time.Now().UTC(),
	}

	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing upload: %w", err)
	}
	// Bytes first, metadata last: a dump is visible only once metadata.json
	// lands, and the startup sweep collects anything in between.
	if err := os.Rename(tmpPath, filepath.Join(dir, "dump")); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("placing dump bytes: %w", err)
	}
	if err := writeMetadata(dir, info); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := s.ix.put(info); err != nil {
		logger.WarnCtx(ctx, "dump index update failed",
			logger.DumpID(dumpID), logger.Err(err))
	}

	logger.InfoCtx(ctx, "dump stored",
		logger.DumpID(dumpID),
		logger.UserID(userID),
		logger.Filename(fileName),
		logger.Format(string(format)),
		logger.Arch(string(arch)),
		logger.Size(written))
	return info, nil
}

// Get returns the dump's metadata. Absence and ownership mismatch are both
// ErrNotFound.
func (s *Store) Get(userID, dumpID string) (*Info, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ident.ValidateID(userID); err != nil {
		return nil, fmt.Errorf("%w: user id: %v", ErrBadID, err)
	}
	if err := ident.ValidateID(dumpID); err != nil {
		return nil, fmt.Errorf("%w: dump id: %v", ErrBadID, err)
	}

	// The filesystem, not the index, is authoritative for reads.
	info, err := readMetadata(s.dumpDir(userID, dumpID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return info, nil
}

// Delete removes the dump. Fails ErrInUse while any live session has it
// open. Metadata is removed before the directory so a crash in between
// leaves a directory the startup sweep collects.
func (s *Store) Delete(userID, dumpID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	info, err := s.Get(userID, dumpID)
	if err != nil {
		return err
	}

	s.mu.RLock()
	reg := s.sessions
	s.mu.RUnlock()
	if reg != nil && reg.DumpInUse(dumpID) {
		return ErrInUse
	}

	dir := s.dumpDir(userID, dumpID)
	if err := os.Remove(filepath.Join(dir, "metadata.json")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing dump metadata: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing dump directory: %w", err)
	}

	if err := s.ix.delete(userID, dumpID); err != nil {
		logger.Warn("dump index delete failed", logger.DumpID(dumpID), logger.Err(err))
	}

	logger.Info("dump deleted", logger.DumpID(info.ID), logger.UserID(userID))
	return nil
}

// List returns the user's dumps ordered by upload time descending.
func (s *Store) List(userID string) ([]*Info, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ident.ValidateID(userID); err != nil {
		return nil, fmt.Errorf("%w: user id: %v", ErrBadID, err)
	}
	return s.ix.listUser(userID)
}

// Stats aggregates the whole store.
func (s *Store) Stats() (*Stats, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.ix.stats()
}

// PutExecutable attaches a companion binary to an existing dump, for
// self-contained apps whose code lives outside the runtime.
func (s *Store) PutExecutable(ctx context.Context, userID, dumpID, fileName string, r io.Reader) (*Info, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	info, err := s.Get(userID, dumpID)
	if err != nil {
		return nil, err
	}

	name := ident.SanitizeBasename(fileName)
	exeDir := filepath.Join(s.dumpDir(userID, dumpID), "exe")
	if err := os.MkdirAll(exeDir, 0755); err != nil {
		return nil, fmt.Errorf("creating exe directory: %w", err)
	}

	tmp, err := os.CreateTemp(exeDir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("creating exe temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath)
	}()

	limit := s.maxSize
	var written int64
	if limit > 0 {
		written, err = io.Copy(tmp, io.LimitReader(r, limit+1))
	} else {
		written, err = io.Copy(tmp, r)
	}
	if err != nil {
		return nil, fmt.Errorf("writing executable: %w", err)
	}
	if limit > 0 && written > limit {
		return nil, ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing executable: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(exeDir, name)); err != nil {
		return nil, fmt.Errorf("placing executable: %w", err)
	}

	info.ExecutableName = name
	if err := writeMetadata(s.dumpDir(userID, dumpID), info); err != nil {
		return nil, err
	}
	if err := s.ix.put(info); err != nil {
		logger.WarnCtx(ctx, "dump index update failed",
			logger.DumpID(dumpID), logger.Err(err))
	}

	logger.InfoCtx(ctx, "executable attached",
		logger.DumpID(dumpID), logger.UserID(userID),
		logger.Filename(name), logger.Size(written))
	return info, nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// rebuild sweeps torn uploads and reloads the index from metadata.json
// files. Called once from New.
func (s *Store) rebuild() error {
	if err := s.ix.clear(); err != nil {
		return fmt.Errorf("clearing dump index: %w", err)
	}

	userDirs, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("reading dump root: %w", err)
	}

	for _, userDir := range userDirs {
		if !userDir.IsDir() || strings.HasPrefix(userDir.Name(), ".") {
			continue
		}
		userPath := filepath.Join(s.root, userDir.Name())

		dumpDirs, err := os.ReadDir(userPath)
		if err != nil {
			return fmt.Errorf("reading user directory %s: %w", userDir.Name(), err)
		}
		for _, entry := range dumpDirs {
			name := entry.Name()
			full := filepath.Join(userPath, name)

			// Orphaned upload temp file
			if !entry.IsDir() {
				if strings.HasPrefix(name, ".upload-") {
					os.Remove(full)
				}
				continue
			}

			info, err := readMetadata(full)
			if err != nil {
				// Torn write: dump bytes without metadata. Sweep it.
				logger.Warn("sweeping dump directory without metadata",
					logger.Path(full), logger.Err(err))
				os.RemoveAll(full)
				continue
			}
			if err := s.ix.put(info); err != nil {
				return fmt.Errorf("indexing dump %s: %w", info.ID, err)
			}
		}
	}
	return nil
}

// writeMetadata writes metadata.json atomically via write-then-rename.
func writeMetadata(dir string, info *Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dump metadata: %w", err)
	}

	path := filepath.Join(dir, "metadata.json")
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing dump metadata: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("placing dump metadata: %w", err)
	}
	return nil
}

func readMetadata(dir string) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding dump metadata: %w", err)
	}
	return &info, nil
}
