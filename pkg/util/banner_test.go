package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "dl", "ColorGreen", "run 42")

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, ColorGreen))
		assert.True(t, strings.HasSuffix(l, ColorReset))
	}
	assert.Contains(t, lines[len(lines)-1], "run 42")
}

func TestColorCodeFallback(t *testing.T) {
	assert.Equal(t, ColorReset, colorCode("Purple"))
	assert.Equal(t, ColorCyan, colorCode("ColorCyan"))
}
