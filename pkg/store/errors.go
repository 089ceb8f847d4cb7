package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryUnavailable 帧目录无法创建，未写入任何文件
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	// ErrFrameWriteFailed 帧文件写入失败，磁盘上不留任何文件
	ErrFrameWriteFailed = errors.New("frame write failed")
	// ErrMetadataWriteFailed 元数据写入失败，帧文件已回滚
	ErrMetadataWriteFailed = errors.New("metadata write failed")
)

// SaveError 保存失败的阶段和原因，errors.Is 可同时匹配 Kind 和底层错误
type SaveError struct {
	Kind error
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *SaveError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
