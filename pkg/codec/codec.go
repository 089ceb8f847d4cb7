// Package codec 把传输字符串解码为图片，并把图片编码为磁盘格式
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/frame-datalogger/pkg/frame"
)

// Ext Encode 输出文件的扩展名
const Ext = "png"

// ErrDecode 载荷不是 base64 或不是可解码的图片
var ErrDecode = errors.New("frame decode failed")

// PNGCodec 可解码任意已注册的图片格式，统一编码为 PNG
type PNGCodec struct {
	encoder png.Encoder
}

// New 按压缩级别名称创建编解码器（default/none/speed/best），未知名称按 default 处理
func New(compression string) *PNGCodec {
	return &PNGCodec{encoder: png.Encoder{CompressionLevel: compressionLevel(compression)}}
}

func compressionLevel(name string) png.CompressionLevel {
	switch name {
	case "none":
		return png.NoCompression
	case "speed":
		return png.BestSpeed
	case "best":
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

// Decode 解码 base64 图片载荷，容忍 data URL 前缀和内嵌空白
func (c *PNGCodec) Decode(encoded string) (frame.RawFrame, error) {
	payload := encoded
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i < 0 {
			return frame.RawFrame{}, fmt.Errorf("%w: malformed data url", ErrDecode)
		}
		payload = payload[i+1:]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return frame.RawFrame{}, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// 部分编码器省略了填充
		var rawErr error
		raw, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return frame.RawFrame{}, fmt.Errorf("%w: base64: %w", ErrDecode, err)
		}
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return frame.RawFrame{}, fmt.Errorf("%w: image: %w", ErrDecode, err)
	}
	return frame.RawFrame{Image: img, Format: format}, nil
}

// Encode 以 PNG 写出帧
func (c *PNGCodec) Encode(w io.Writer, f frame.RawFrame) error {
	if f.Image == nil {
		return errors.New("encode: frame has no image")
	}
	return c.encoder.Encode(w, f.Image)
}

// Ext 返回不带点的扩展名
func (c *PNGCodec) Ext() string { return Ext }
