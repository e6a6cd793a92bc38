package logging

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]Level{
		"e": Error, "WARN": Warn, "info": Info, "D": Debug, "trace": MaxLevel, "5": Level(5),
	} {
		got, err := ParseLevel(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	_, err = ParseLevel("12")
	assert.Error(t, err)
}

func TestParseDirectives(t *testing.T) {
	def, tags, err := parseDirectives("debug,ring=trace,extract=w", Info)
	require.NoError(t, err)
	assert.Equal(t, Debug, def)
	assert.Equal(t, []tagLevel{{"ring", MaxLevel}, {"extract", Warn}}, tags)

	def, tags, err = parseDirectives("ring=bogus", Warn)
	assert.Error(t, err)
	assert.Equal(t, Warn, def)
	assert.Empty(t, tags)
}

func TestLogFiltersByLevel(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	log := New(&out, Info).WithTag("test")

	log.Debug("hidden %d", 1)
	assert.Zero(t, out.Len())

	log.Warn("slot %d dropped", 2)
	line := out.String()
	assert.Contains(t, line, "W/test[logger_test.go:")
	assert.Contains(t, line, "slot 2 dropped\n")
}
