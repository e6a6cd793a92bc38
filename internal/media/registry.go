package media

import (
	"net"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// ErrUnknownSource is returned when a source spec names an unregistered tag.
var ErrUnknownSource = errors.New("source type not registered")

// Open a source based on its "source spec". A source spec is a colon-separated string
// consisting of a source tag and a source path:
//    sourceSpec = sourceTag + ":" + sourcePath
// The format of the source path is defined by the registered OpenFunc. A spec
// without a tag is opened as a plain file.
func OpenSource(spec string) (Source, error) {
	log.Debug("Registered source types: %v", SourceTypes())

	tag, path := "file", spec
	if parts := strings.SplitN(spec, ":", 2); len(parts) == 2 {
		if _, found := registry[parts[0]]; found {
			tag, path = parts[0], parts[1]
		} else if !looksLikePath(parts[0]) {
			return nil, errors.Wrapf(ErrUnknownSource, "'%s'", parts[0])
		}
	}

	src, err := registry[tag](path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s source", tag)
	}
	log.Info("Opened %s", src.Name())
	return src, nil
}

// Drive letters, or paths that happen to contain a colon.
func looksLikePath(s string) bool {
	return len(s) == 1 || strings.ContainsAny(s, `/\.`)
}

// A function used to open a specific source type.
type OpenFunc func(path string) (Source, error)

var registry = map[string]OpenFunc{}

// Register a source type, identified by its "source tag". Sources of this type will be
// opened with the given function.
func RegisterSourceType(tag string, open OpenFunc) {
	registry[tag] = open
}

// SourceTypes lists registered tags in sorted order.
func SourceTypes() []string {
	var tags []string
	for t := range registry {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func openFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return FromReader("file:"+path, f), nil
}

func openZstd(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &zstdSource{
		streamSource: streamSource{Reader: dec, name: "zstd:" + path},
		dec:          dec,
		file:         f,
	}, nil
}

type zstdSource struct {
	streamSource
	dec  *zstd.Decoder
	file *os.File
}

func (s *zstdSource) Close() error {
	s.dec.Close()
	return s.file.Close()
}

func openTCP(addr string) (Source, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return FromReader("tcp:"+addr, conn), nil
}

func init() {
	RegisterSourceType("file", openFile)
	RegisterSourceType("mem", openMapped)
	RegisterSourceType("zstd", openZstd)
	RegisterSourceType("tcp", openTCP)
}
