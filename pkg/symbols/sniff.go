package symbols

import "bytes"

// minSymbolSize is the sanity floor: no real symbol file is smaller than
// its own magic plus a header.
const minSymbolSize = 16

// Magic numbers for the supported symbol formats.
var (
	magicPortablePDB = []byte("BSJB")
	magicMSF7        = []byte("Microsoft C/C++ MSF 7.00\r\n\x1aDS")
	magicELF         = []byte{0x7F, 0x45, 0x4C, 0x46}
	magicMachO64     = []byte{0xCF, 0xFA, 0xED, 0xFE}
	magicMachO32     = []byte{0xCE, 0xFA, 0xED, 0xFE}
)

// sniffKind classifies a symbol file by its leading bytes. size is the
// full file size; files below the sanity floor are rejected regardless of
// magic.
func sniffKind(hdr []byte, size int64) (Kind, error) {
	if size < minSymbolSize {
		return "", ErrInvalidFormat
	}

	switch {
	case bytes.HasPrefix(hdr, magicPortablePDB):
		return KindPortablePDB, nil
	case bytes.HasPrefix(hdr, magicMSF7):
		return KindPDB, nil
	case bytes.HasPrefix(hdr, magicELF):
		return KindELF, nil
	case bytes.HasPrefix(hdr, magicMachO64), bytes.HasPrefix(hdr, magicMachO32):
		return KindMachO, nil
	}
	return "", ErrInvalidFormat
}
