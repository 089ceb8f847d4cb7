package goid

import (
	"bytes"
	"runtime"
)

var goroutinePrefix = []byte("goroutine ")

// GetGID 解析当前 goroutine 的 ID，仅用于日志字段，失败返回 0
func GetGID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// 栈信息类似: "goroutine 123 [running]:\n"
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if len(b) == n {
		return 0
	}
	var id uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
