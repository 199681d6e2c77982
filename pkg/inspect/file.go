package inspect

import (
	"bytes"
	"context"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/coredock/coredock/pkg/dump"
)

// fileInspector answers module queries by parsing the dump container
// directly from the memory-mapped file. It never touches the debugger
// subprocess. Managed-state queries are out of its reach and fail
// ErrManagedUnavailable; the composite inspector routes those to SOS.
type fileInspector struct {
	m      *mapping
	format dump.Format

	modules []Module // parsed once at open
}

func newFileInspector(path string, format dump.Format) (*fileInspector, error) {
	m, err := openMapping(path)
	if err != nil {
		return nil, err
	}

	fi := &fileInspector{m: m, format: format}
	switch format {
	case dump.FormatMinidump:
		fi.modules, err = parseMinidumpModules(m)
	case dump.FormatELFCore:
		fi.modules, err = parseELFModules(m)
	case dump.FormatMachOCore:
		// Mach-O cores carry no image list in their load commands; the
		// dyld all-image-infos lives in dumped memory. Module queries for
		// these dumps go through the debugger.
		fi.modules = nil
	default:
		m.Close()
		return nil, ErrUnsupportedDump
	}
	if err != nil {
		m.Close()
		return nil, err
	}

	sort.Slice(fi.modules, func(i, j int) bool { return fi.modules[i].Base < fi.modules[j].Base })
	return fi, nil
}

func (fi *fileInspector) Close() error {
	return fi.m.Close()
}

func (fi *fileInspector) ListModules(context.Context) ([]Module, error) {
	return fi.modules, nil
}

func (fi *fileInspector) DumpModule(_ context.Context, addr uint64) (*ModuleDetail, error) {
	for i := range fi.modules {
		mod := &fi.modules[i]
		if mod.Base == addr || (addr > mod.Base && addr < mod.Base+mod.Size) {
			return &ModuleDetail{Module: *mod}, nil
		}
	}
	return nil, ErrNotFound
}

func (fi *fileInspector) InspectObject(context.Context, uint64, InspectOptions) (*ObjectInfo, error) {
	return nil, ErrManagedUnavailable
}

func (fi *fileInspector) FindType(context.Context, string, string) ([]TypeMatch, error) {
	return nil, ErrManagedUnavailable
}

func (fi *fileInspector) WalkManagedStacks(context.Context, StackOptions) ([]ThreadStack, error) {
	return nil, ErrManagedUnavailable
}

// ============================================================================
// Minidump ModuleList stream
// ============================================================================

const (
	minidumpStreamModuleList = 4
	minidumpModuleEntrySize  = 108
	maxModules               = 16384
)

// parseMinidumpModules walks the stream directory to the ModuleList
// stream (type 4) and decodes its MINIDUMP_MODULE entries.
func parseMinidumpModules(m *mapping) ([]Module, error) {
	var hdr [16]byte
	if _, err := m.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("reading minidump header: %w", err)
	}
	numStreams := binary.LittleEndian.Uint32(hdr[8:12])
	dirRVA := int64(binary.LittleEndian.Uint32(hdr[12:16]))
	if numStreams > 4096 || dirRVA <= 0 || dirRVA >= m.Size() {
		return nil, fmt.Errorf("minidump stream directory out of bounds")
	}

	entry := make([]byte, 12)
	for i := int64(0); i < int64(numStreams); i++ {
		if _, err := m.ReadAt(entry, dirRVA+i*12); err != nil {
			return nil, fmt.Errorf("reading minidump directory: %w", err)
		}
		if binary.LittleEndian.Uint32(entry[0:4]) != minidumpStreamModuleList {
			continue
		}
		rva := int64(binary.LittleEndian.Uint32(entry[8:12]))
		return parseModuleList(m, rva)
	}
	return nil, nil // no module list stream
}

func parseModuleList(m *mapping, rva int64) ([]Module, error) {
	var countBuf [4]byte
	if _, err := m.ReadAt(countBuf[:], rva); err != nil {
		return nil, fmt.Errorf("reading module list: %w", err)
	}
	count := binary.LittleEndian.Uint32(countBuf[:])
	if count > maxModules {
		return nil, fmt.Errorf("module list claims %d modules", count)
	}

	modules := make([]Module, 0, count)
	raw := make([]byte, minidumpModuleEntrySize)
	for i := int64(0); i < int64(count); i++ {
		if _, err := m.ReadAt(raw, rva+4+i*minidumpModuleEntrySize); err != nil {
			return nil, fmt.Errorf("reading module entry: %w", err)
		}
		base := binary.LittleEndian.Uint64(raw[0:8])
		size := uint64(binary.LittleEndian.Uint32(raw[8:12]))
		nameRVA := int64(binary.LittleEndian.Uint32(raw[20:24]))

		name, err := readMinidumpString(m, nameRVA)
		if err != nil {
			return nil, err
		}
		modules = append(modules, Module{
			Name: moduleBasename(name),
			Path: name,
			Base: base,
			Size: size,
		})
	}
	return modules, nil
}

// readMinidumpString decodes a MINIDUMP_STRING: a byte length followed by
// UTF-16LE characters.
func readMinidumpString(m *mapping, rva int64) (string, error) {
	var lenBuf [4]byte
	if _, err := m.ReadAt(lenBuf[:], rva); err != nil {
		return "", fmt.Errorf("reading module name: %w", err)
	}
	byteLen := binary.LittleEndian.Uint32(lenBuf[:])
	if byteLen > 64*1024 {
		return "", fmt.Errorf("module name length %d out of range", byteLen)
	}

	raw := make([]byte, byteLen)
	if _, err := m.ReadAt(raw, rva+4); err != nil {
		return "", fmt.Errorf("reading module name: %w", err)
	}
	u16 := make([]uint16, 0, byteLen/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u16 = append(u16, binary.LittleEndian.Uint16(raw[i:i+2]))
	}
	return string(utf16.Decode(u16)), nil
}

// ============================================================================
// ELF core NT_FILE note
// ============================================================================

const noteTypeFile = 0x46494c45 // NT_FILE ("FILE")

// parseELFModules reads the core's NT_FILE note, which records every
// file-backed mapping with its address range and path.
func parseELFModules(m *mapping) ([]Module, error) {
	f, err := elf.NewFile(m)
	if err != nil {
		return nil, fmt.Errorf("parsing elf core: %w", err)
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_NOTE {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := m.ReadAt(data, int64(prog.Off)); err != nil {
			return nil, fmt.Errorf("reading note segment: %w", err)
		}
		if mods, ok := parseFileNote(data, f.ByteOrder); ok {
			return mods, nil
		}
	}
	return nil, nil // core without an NT_FILE note
}

// parseFileNote scans one PT_NOTE segment for NT_FILE and decodes it:
// count and page size, then (start, end, file offset) triples, then the
// NUL-terminated path for each mapping. Adjacent mappings of the same
// file collapse into one module.
func parseFileNote(data []byte, order binary.ByteOrder) ([]Module, bool) {
	align := func(n int) int { return (n + 3) &^ 3 }

	for off := 0; off+12 <= len(data); {
		nameSz := int(order.Uint32(data[off : off+4]))
		descSz := int(order.Uint32(data[off+4 : off+8]))
		noteType := order.Uint32(data[off+8 : off+12])
		descOff := off + 12 + align(nameSz)
		if descOff+descSz > len(data) {
			return nil, false
		}
		if noteType != noteTypeFile {
			off = descOff + align(descSz)
			continue
		}

		desc := data[descOff : descOff+descSz]
		if len(desc) < 16 {
			return nil, false
		}
		count := order.Uint64(desc[0:8])
		if count > maxModules {
			return nil, false
		}
		entriesEnd := 16 + int(count)*24
		if entriesEnd > len(desc) {
			return nil, false
		}

		names := desc[entriesEnd:]
		byPath := make(map[string]*Module)
		var orderKeys []string
		for i := 0; i < int(count); i++ {
			start := order.Uint64(desc[16+i*24 : 16+i*24+8])
			end := order.Uint64(desc[16+i*24+8 : 16+i*24+16])

			nul := bytes.IndexByte(names, 0)
			if nul < 0 {
				return nil, false
			}
			p := string(names[:nul])
			names = names[nul+1:]

			if mod, seen := byPath[p]; seen {
				if start < mod.Base {
					mod.Base = start
				}
				if end > mod.Base+mod.Size {
					mod.Size = end - mod.Base
				}
				continue
			}
			byPath[p] = &Module{
				Name: moduleBasename(p),
				Path: p,
				Base: start,
				Size: end - start,
			}
			orderKeys = append(orderKeys, p)
		}

		modules := make([]Module, 0, len(orderKeys))
		for _, k := range orderKeys {
			modules = append(modules, *byPath[k])
		}
		return modules, true
	}
	return nil, false
}

func moduleBasename(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	return path.Base(p)
}
