// Package symbols implements the per-dump symbol store: format-sniffed
// uploads, ZIP extraction with containment checks, and debugger
// search-path assembly.
//
// On-disk layout under the store root:
//
//	<root>/<dumpId>/<relative-path>
//
// Single-file uploads land at the root of the dump's directory under a
// sanitized basename; ZIP uploads preserve the archive's directory
// structure. Files are written with write-then-rename.
package symbols

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/coredock/coredock/internal/logger"
	"github.com/coredock/coredock/pkg/ident"
)

// Store is the filesystem-backed symbol store.
type Store struct {
	root string
}

// New creates the store rooted at dir.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("symbol store root is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating symbol root: %w", err)
	}
	return &Store{root: dir}, nil
}

// dumpDir returns <root>/<dumpId>. The id must already be validated.
func (s *Store) dumpDir(dumpID string) string {
	return filepath.Join(s.root, dumpID)
}

// Put stores one symbol file for the dump under its sanitized basename.
// Unrecognized magic or a file below the sanity floor fails
// ErrInvalidFormat.
func (s *Store) Put(ctx context.Context, dumpID, fileName string, r io.Reader) (*Info, error) {
	if err := ident.ValidateID(dumpID); err != nil {
		return nil, fmt.Errorf("%w: dump id: %v", ErrBadID, err)
	}
	if fileName == "" {
		return nil, fmt.Errorf("%w: empty file name", ErrBadID)
	}
	name := ident.SanitizeBasename(fileName)

	dir := s.dumpDir(dumpID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating symbol directory: %w", err)
	}

	size, kind, err := writeSniffed(dir, name, r)
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "symbol stored",
		logger.DumpID(dumpID),
		logger.Filename(name),
		logger.Format(string(kind)),
		logger.Size(size))

	return &Info{
		RelPath:    name,
		FileName:   name,
		Size:       size,
		Kind:       kind,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// PutZip extracts a ZIP of symbol files, preserving the archive's
// directory layout. Entries that escape the dump's symbol directory or
// fail the format sniff are skipped, not fatal.
func (s *Store) PutZip(ctx context.Context, dumpID string, r io.Reader) (*ZipInfo, error) {
	if err := ident.ValidateID(dumpID); err != nil {
		return nil, fmt.Errorf("%w: dump id: %v", ErrBadID, err)
	}

	dir := s.dumpDir(dumpID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating symbol directory: %w", err)
	}

	// archive/zip needs random access; spool the upload first
	tmp, err := os.CreateTemp(dir, ".zip-*")
	if err != nil {
		return nil, fmt.Errorf("spooling zip upload: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return nil, fmt.Errorf("spooling zip upload: %w", err)
	}
	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArchive, err)
	}

	result := &ZipInfo{}
	dirs := make(map[string]struct{})

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		rel, ok := containedPath(dir, entry.Name)
		if !ok {
			logger.WarnCtx(ctx, "skipping zip entry escaping symbol directory",
				logger.DumpID(dumpID), logger.Filename(entry.Name))
			result.Skipped = append(result.Skipped, entry.Name)
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("reading zip entry %s: %w", entry.Name, err)
		}
		dest := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			rc.Close()
			return nil, fmt.Errorf("creating symbol subdirectory: %w", err)
		}
		_, _, werr := writeSniffed(filepath.Dir(dest), filepath.Base(dest), rc)
		rc.Close()
		if werr != nil {
			if errors.Is(werr, ErrInvalidFormat) {
				result.Skipped = append(result.Skipped, entry.Name)
				continue
			}
			return nil, werr
		}

		result.ExtractedFiles = append(result.ExtractedFiles, rel)
		dirs[path.Dir(rel)] = struct{}{}
	}

	for d := range dirs {
		result.Directories = append(result.Directories, d)
	}
	sort.Strings(result.Directories)

	logger.InfoCtx(ctx, "symbol zip extracted",
		logger.DumpID(dumpID),
		logger.Size(size))
	return result, nil
}

// List returns the dump's symbol files as relative slash paths, sorted.
// A dump without a symbol directory fails ErrNotFound.
func (s *Store) List(dumpID string) ([]string, error) {
	if err := ident.ValidateID(dumpID); err != nil {
		return nil, fmt.Errorf("%w: dump id: %v", ErrBadID, err)
	}

	dir := s.dumpDir(dumpID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading symbol directory: %w", err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking symbol directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// Has reports whether the dump has at least one symbol file.
func (s *Store) Has(dumpID string) (bool, error) {
	files, err := s.List(dumpID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// Clear removes the dump's whole symbol tree. Fails ErrNotFound when the
// dump never had symbols.
func (s *Store) Clear(dumpID string) error {
	if err := ident.ValidateID(dumpID); err != nil {
		return fmt.Errorf("%w: dump id: %v", ErrBadID, err)
	}

	dir := s.dumpDir(dumpID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("reading symbol directory: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing symbol directory: %w", err)
	}

	logger.Info("symbols cleared", logger.DumpID(dumpID))
	return nil
}

// SearchPath returns every directory under the dump's symbol tree holding
// at least one symbol file, sorted for a stable debugger search order. A
// dump without symbols yields an empty list, not an error.
func (s *Store) SearchPath(dumpID string) ([]string, error) {
	if err := ident.ValidateID(dumpID); err != nil {
		return nil, fmt.Errorf("%w: dump id: %v", ErrBadID, err)
	}

	dir := s.dumpDir(dumpID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading symbol directory: %w", err)
	}

	seen := make(map[string]struct{})
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		seen[filepath.Dir(p)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking symbol directory: %w", err)
	}

	paths := make([]string, 0, len(seen))
	for d := range seen {
		paths = append(paths, d)
	}
	sort.Strings(paths)
	return paths, nil
}

// writeSniffed streams r into dir/name with write-then-rename, validating
// the sanity floor and magic before the file becomes visible.
func writeSniffed(dir, name string, r io.Reader) (int64, Kind, error) {
	tmp, err := os.CreateTemp(dir, ".sym-*")
	if err != nil {
		return 0, "", fmt.Errorf("creating symbol temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath) // no-op after successful rename
	}()

	size, err := io.Copy(tmp, r)
	if err != nil {
		return 0, "", fmt.Errorf("writing symbol file: %w", err)
	}

	hdr := make([]byte, 32)
	n, err := tmp.ReadAt(hdr, 0)
	if err != nil && err != io.EOF {
		return 0, "", fmt.Errorf("reading symbol header: %w", err)
	}
	kind, err := sniffKind(hdr[:n], size)
	if err != nil {
		return 0, "", err
	}

	if err := tmp.Close(); err != nil {
		return 0, "", fmt.Errorf("closing symbol file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		return 0, "", fmt.Errorf("placing symbol file: %w", err)
	}
	return size, kind, nil
}

// containedPath resolves a ZIP entry name against base and reports whether
// it stays inside. Returns the clean relative slash path.
func containedPath(base, entryName string) (string, bool) {
	rel := path.Clean(strings.TrimPrefix(entryName, "/"))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	dest := filepath.Join(base, filepath.FromSlash(rel))
	if dest != base && !strings.HasPrefix(dest, base+string(os.PathSeparator)) {
		return "", false
	}
	return rel, true
}
