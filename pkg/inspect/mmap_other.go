//go:build !unix

package inspect

import "os"

// mapping falls back to pread on platforms without mmap support.
type mapping struct {
	f    *os.File
	size int64
}

func openMapping(path string) (*mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mapping{f: f, size: st.Size()}, nil
}

func (m *mapping) ReadAt(p []byte, off int64) (int, error) {
	return m.f.ReadAt(p, off)
}

func (m *mapping) Size() int64 {
	return m.size
}

func (m *mapping) Close() error {
	return m.f.Close()
}
