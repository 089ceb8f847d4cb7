package codec

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frame-datalogger/pkg/frame"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 20), G: uint8(y * 20), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodePNG(t *testing.T) {
	f, err := New("default").Decode(encodePNG(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, "png", f.Format)
	assert.Equal(t, 10, f.Width())
	assert.Equal(t, 10, f.Height())
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(16, 8), nil))

	f, err := New("default").Decode(base64.StdEncoding.EncodeToString(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", f.Format)
	assert.Equal(t, 16, f.Width())
	assert.Equal(t, 8, f.Height())
}

func TestDecodeToleratesDataURLAndWhitespace(t *testing.T) {
	enc := encodePNG(t, 4, 4)
	wrapped := "data:image/png;base64," + enc[:10] + "\n" + enc[10:20] + " \r\n" + enc[20:]

	f, err := New("default").Decode(wrapped)
	require.NoError(t, err)
	assert.Equal(t, 4, f.Width())
}

func TestDecodeUnpadded(t *testing.T) {
	enc := strings.TrimRight(encodePNG(t, 3, 3), "=")
	f, err := New("default").Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Height())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"not an image", base64.StdEncoding.EncodeToString([]byte("hello world"))},
		{"data url without comma", "data:image/png;base64"},
	}
	c := New("default")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestEncodeWritesPNG(t *testing.T) {
	for _, level := range []string{"default", "none", "speed", "best", "bogus"} {
		t.Run(level, func(t *testing.T) {
			c := New(level)
			f, err := c.Decode(encodePNG(t, 10, 10))
			require.NoError(t, err)

			var out bytes.Buffer
			require.NoError(t, c.Encode(&out, f))

			img, err := png.Decode(&out)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 10, 10), img.Bounds())
		})
	}
	assert.Equal(t, "png", New("").Ext())
}

func TestEncodeWithoutImage(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, New("default").Encode(&out, frame.RawFrame{}))
	assert.Zero(t, out.Len())
}
