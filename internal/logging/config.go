package logging

import (
	"fmt"
	"os"
	"strings"
)

const envVar = "LOGLEVEL"

type tagLevel struct {
	tag   string
	level Level
}

var tagLevels []tagLevel

func init() {
	var err error
	defaultLevel, tagLevels, err = parseDirectives(os.Getenv(envVar), defaultLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", envVar, err)
	}
	DefaultLogger.Level = defaultLevel
}

// parseDirectives parses comma-separated "tag=level" directives. A directive
// without "tag=" sets the default level. Invalid directives are skipped, and
// the last error is returned.
func parseDirectives(s string, fallback Level) (def Level, tags []tagLevel, err error) {
	def = fallback
	for _, d := range strings.Split(s, ",") {
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		level, perr := ParseLevel(v[len(v)-1])
		if perr != nil {
			err = fmt.Errorf("directive '%s': %v", d, perr)
			continue
		}
		if len(v) == 1 {
			def = level
		} else {
			tags = append(tags, tagLevel{v[0], level})
		}
	}
	return
}

func determineLevel(tag string, fallback Level) Level {
	for _, e := range tagLevels {
		if e.tag == tag {
			return e.level
		}
	}
	return fallback
}
