// Package frame 一个采集周期内 source、codec、store 与 agent 之间传递的数据
package frame

import (
	"image"
	"time"
)

// Status 单次拉取的结果分类
type Status int

const (
	// StatusData 远端返回了帧和记录
	StatusData Status = iota
	// StatusNoData 远端返回非 200 状态码
	StatusNoData
	// StatusUnreachable 请求失败或响应体不是 JSON
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusData:
		return "data"
	case StatusNoData:
		return "no_data"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Metadata 原样透传远端响应中的字段
type Metadata map[string]any

// Record 与帧一起持久化的记录，不包含帧数据本身
type Record struct {
	Metadata  Metadata `json:"metadata"`
	Labels    Metadata `json:"labels"`
	Timestamp int64    `json:"timestamp"`
}

// Normalize 把 nil map 替换为空 map，序列化为 {}
func (r Record) Normalize() Record {
	if r.Metadata == nil {
		r.Metadata = Metadata{}
	}
	if r.Labels == nil {
		r.Labels = Metadata{}
	}
	return r
}

// PollResult 单次拉取结果。Encoded/Record 仅在 StatusData 时有值，
// Code/Message 为 StatusNoData 时的远端状态，Err 描述非 StatusData 的失败原因。
type PollResult struct {
	Status   Status
	Encoded  string
	Record   Record
	Code     int
	Message  string
	Err      error
	Duration time.Duration
}

// RawFrame 解码后的图片，等待编码落盘
type RawFrame struct {
	Image  image.Image
	Format string
}

// Width 图片宽度（像素）
func (f RawFrame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height 图片高度（像素）
func (f RawFrame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}
