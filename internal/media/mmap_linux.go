//go:build linux
// +build linux

package media

import (
	"os"

	"golang.org/x/sys/unix"
)

// Memory-map a container file read-only. The mapping is released on Close.
func openMapped(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		// mmap rejects zero-length mappings.
		return FromBytes("mem:"+path, nil), nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	log.Debug("Mapped %d bytes of %s", len(data), path)
	return &memorySource{
		name:  "mem:" + path,
		data:  data,
		close: func() error { return unix.Munmap(data) },
	}, nil
}
