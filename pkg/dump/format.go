package dump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
)

// Magic numbers for the supported dump containers.
var (
	magicMinidump = []byte{0x4D, 0x44, 0x4D, 0x50} // "MDMP"
	magicELF      = []byte{0x7F, 0x45, 0x4C, 0x46} // "\x7fELF"
	magicMachO64  = []byte{0xCF, 0xFA, 0xED, 0xFE} // MH_MAGIC_64, little-endian
	magicMachO32  = []byte{0xCE, 0xFA, 0xED, 0xFE} // MH_MAGIC, little-endian
)

// ELF constants (see elf(5))
const (
	elfTypeCore = 4 // ET_CORE, e_type offset 16

	elfMachine386     = 3   // EM_386
	elfMachineARM     = 40  // EM_ARM
	elfMachineX86_64  = 62  // EM_X86_64
	elfMachineAArch64 = 183 // EM_AARCH64
)

// Mach-O constants (see <mach-o/loader.h>)
const (
	machoFileTypeCore = 0x4 // MH_CORE, filetype offset 12

	machoCPUX86   = 0x00000007
	machoCPUX64   = 0x01000007
	machoCPUArm   = 0x0000000C
	machoCPUArm64 = 0x0100000C
)

// Minidump constants (see minidumpapiset.h)
const (
	minidumpStreamSystemInfo = 7

	minidumpArchIntel = 0  // PROCESSOR_ARCHITECTURE_INTEL
	minidumpArchArm   = 5  // PROCESSOR_ARCHITECTURE_ARM
	minidumpArchAMD64 = 9  // PROCESSOR_ARCHITECTURE_AMD64
	minidumpArchArm64 = 12 // PROCESSOR_ARCHITECTURE_ARM64
)

// Detect classifies the dump at r. It reads only what it needs: the magic,
// the relevant header fields, and for minidumps the stream directory.
//
// Returns ErrInvalidFormat when the bytes match no known dump container.
// First match wins; an ELF that is not ET_CORE is invalid, not "unknown".
func Detect(r io.ReaderAt, size int64) (Format, Arch, error) {
	hdr := make([]byte, 64)
	n, err := r.ReadAt(hdr, 0)
	if err != nil && err != io.EOF {
		return FormatUnknown, ArchUnknown, fmt.Errorf("reading dump header: %w", err)
	}
	hdr = hdr[:n]
	if len(hdr) < 4 {
		return FormatUnknown, ArchUnknown, ErrInvalidFormat
	}

	switch {
	case bytes.HasPrefix(hdr, magicMinidump):
		return FormatMinidump, minidumpArch(r, size), nil

	case bytes.HasPrefix(hdr, magicELF):
		if len(hdr) < 20 {
			return FormatUnknown, ArchUnknown, ErrInvalidFormat
		}
		// EI_DATA: 1 = little-endian, 2 = big-endian
		var order binary.ByteOrder = binary.LittleEndian
		if hdr[5] == 2 {
			order = binary.BigEndian
		}
		if order.Uint16(hdr[16:18]) != elfTypeCore {
			return FormatUnknown, ArchUnknown, ErrInvalidFormat
		}
		return FormatELFCore, elfArch(order.Uint16(hdr[18:20])), nil

	case bytes.HasPrefix(hdr, magicMachO64), bytes.HasPrefix(hdr, magicMachO32):
		if len(hdr) < 16 {
			return FormatUnknown, ArchUnknown, ErrInvalidFormat
		}
		if binary.LittleEndian.Uint32(hdr[12:16]) != machoFileTypeCore {
			return FormatUnknown, ArchUnknown, ErrInvalidFormat
		}
		return FormatMachOCore, machoArch(binary.LittleEndian.Uint32(hdr[4:8])), nil
	}

	return FormatUnknown, ArchUnknown, ErrInvalidFormat
}

func elfArch(machine uint16) Arch {
	switch machine {
	case elfMachineX86_64:
		return ArchX64
	case elfMachineAArch64:
		return ArchArm64
	case elfMachine386:
		return ArchX86
	case elfMachineARM:
		return ArchArm
	default:
		return ArchUnknown
	}
}

func machoArch(cputype uint32) Arch {
	switch cputype {
	case machoCPUX64:
		return ArchX64
	case machoCPUArm64:
		return ArchArm64
	case machoCPUX86:
		return ArchX86
	case machoCPUArm:
		return ArchArm
	default:
		return ArchUnknown
	}
}

// minidumpArch walks the minidump stream directory looking for the
// SystemInfo stream and returns its ProcessorArchitecture field.
//
// The probe is advisory. The magic alone makes the file a minidump; a
// missing, truncated, or hostile stream directory yields ArchUnknown,
// never a rejection.
//
// Header layout: Signature(4) Version(4) NumberOfStreams(4)
// StreamDirectoryRva(4). Directory entry: StreamType(4) DataSize(4) Rva(4).
func minidumpArch(r io.ReaderAt, size int64) Arch {
	var hdr [16]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return ArchUnknown
	}

	numStreams := binary.LittleEndian.Uint32(hdr[8:12])
	dirRVA := int64(binary.LittleEndian.Uint32(hdr[12:16]))

	// A hostile header can claim an absurd directory; cap the walk.
	const maxStreams = 4096
	if numStreams > maxStreams || dirRVA <= 0 || dirRVA >= size {
		return ArchUnknown
	}

	entry := make([]byte, 12)
	for i := int64(0); i < int64(numStreams); i++ {
		if _, err := r.ReadAt(entry, dirRVA+i*12); err != nil {
			return ArchUnknown
		}
		streamType := binary.LittleEndian.Uint32(entry[0:4])
		if streamType != minidumpStreamSystemInfo {
			continue
		}
		rva := int64(binary.LittleEndian.Uint32(entry[8:12]))
		if rva <= 0 || rva+2 > size {
			return ArchUnknown
		}
		var archField [2]byte
		if _, err := r.ReadAt(archField[:], rva); err != nil {
			return ArchUnknown
		}
		switch binary.LittleEndian.Uint16(archField[:]) {
		case minidumpArchAMD64:
			return ArchX64
		case minidumpArchArm64:
			return ArchArm64
		case minidumpArchIntel:
			return ArchX86
		case minidumpArchArm:
			return ArchArm
		default:
			return ArchUnknown
		}
	}

	// No SystemInfo stream; still a valid minidump
	return ArchUnknown
}

var (
	muslLoaderPattern  = []byte("ld-musl-")
	glibcLoaderPattern = []byte("ld-linux")
	runtimeVersionRE   = regexp.MustCompile(`Microsoft\.NETCore\.App/(\d+\.\d+\.\d+[^/\x00]*)/`)
)

// scanCoreStrings streams a Linux core looking for the loader name and the
// shared-framework path. Returns the Alpine/glibc verdict (nil when neither
// loader string appears) and the managed runtime version if present.
//
// The scan is chunked with overlap so patterns spanning a chunk boundary
// are still found.
func scanCoreStrings(r io.Reader) (isAlpine *bool, runtimeVersion string, err error) {
	const (
		chunkSize = 1 << 20 // 1 MiB
		overlap   = 256     // longer than any pattern
	)

	buf := make([]byte, chunkSize+overlap)
	carry := 0
	var foundMusl, foundGlibc bool

	for {
		n, rerr := io.ReadFull(r, buf[carry:])
		window := buf[:carry+n]

		if !foundMusl && bytes.Contains(window, muslLoaderPattern) {
			foundMusl = true
		}
		if !foundGlibc && bytes.Contains(window, glibcLoaderPattern) {
			foundGlibc = true
		}
		if runtimeVersion == "" {
			if m := runtimeVersionRE.FindSubmatch(window); m != nil {
				runtimeVersion = string(m[1])
			}
		}

		// Everything detectable has been seen; no need to read further
		if foundMusl && runtimeVersion != "" {
			break
		}

		if rerr != nil {
			if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
				break
			}
			return nil, "", fmt.Errorf("scanning core strings: %w", rerr)
		}

		// Keep the tail of this window as the head of the next
		carry = copy(buf, window[len(window)-overlap:])
	}

	switch {
	case foundMusl:
		v := true
		isAlpine = &v
	case foundGlibc:
		v := false
		isAlpine = &v
	}
	return isAlpine, runtimeVersion, nil
}
