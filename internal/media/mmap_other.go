//go:build !linux
// +build !linux

package media

import "os"

func openMapped(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromBytes("mem:"+path, data), nil
}
