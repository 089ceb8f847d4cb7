// Package store 把帧和元数据作为一个整体持久化。
//
// 先写帧，再写元数据；元数据写入失败时删除刚写入的帧，
// 因此同一文件名下要么两个文件都存在，要么都不存在。
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/frame-datalogger/pkg/frame"
	"github.com/frame-datalogger/pkg/logger"
)

const (
	metadataExt = "json"
	tmpSuffix   = ".tmp"
	dirPerm     = 0o755
	filePerm    = 0o644
)

// Encoder 把解码后的帧编码为磁盘上的图片格式
type Encoder interface {
	Encode(w io.Writer, f frame.RawFrame) error
	Ext() string
}

// FrameStore 在 fs 的两个目录下写入帧/元数据文件对
type FrameStore struct {
	fs          afero.Fs
	frameDir    string
	metadataDir string
	encoder     Encoder
}

// New 创建存储，frameDir 与 metadataDir 可以相同
func New(fs afero.Fs, frameDir, metadataDir string, enc Encoder) *FrameStore {
	return &FrameStore{
		fs:          fs,
		frameDir:    frameDir,
		metadataDir: metadataDir,
		encoder:     enc,
	}
}

// FramePath 帧文件路径
func (s *FrameStore) FramePath(filename string) string {
	return filepath.Join(s.frameDir, filename+"."+s.encoder.Ext())
}

// MetadataPath 元数据文件路径
func (s *FrameStore) MetadataPath(filename string) string {
	return filepath.Join(s.metadataDir, filename+"."+metadataExt)
}

// Save 先写帧再写元数据，失败返回 *SaveError，不留下不完整的文件对
func (s *FrameStore) Save(f frame.RawFrame, rec frame.Record, filename string) error {
	framePath := s.FramePath(filename)
	metaPath := s.MetadataPath(filename)

	if err := s.ensureDir(s.frameDir); err != nil {
		logger.Error("frame directory cannot be created, consider granting necessary rights",
			zap.String("dir", s.frameDir), zap.Error(err))
		return &SaveError{Kind: ErrDirectoryUnavailable, Path: s.frameDir, Err: err}
	}

	begin := time.Now()
	if err := s.writeAtomic(framePath, func(w io.Writer) error {
		return s.encoder.Encode(w, f)
	}); err != nil {
		logger.Error("saving frame failed", zap.String("path", framePath), zap.Error(err))
		return &SaveError{Kind: ErrFrameWriteFailed, Path: framePath, Err: err}
	}
	logger.Info("frame saved", zap.String("path", framePath), zap.Duration("took", time.Since(begin)))

	begin = time.Now()
	if err := s.writeMetadata(metaPath, rec); err != nil {
		logger.Error("saving metadata failed, rolling back frame",
			zap.String("path", metaPath), zap.String("frame", framePath), zap.Error(err))
		if rbErr := s.rollback(framePath, metaPath); rbErr != nil {
			logger.Error("rollback incomplete", zap.String("frame", framePath), zap.Error(rbErr))
			err = multierr.Append(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return &SaveError{Kind: ErrMetadataWriteFailed, Path: metaPath, Err: err}
	}
	logger.Info("metadata saved", zap.String("path", metaPath), zap.Duration("took", time.Since(begin)))
	return nil
}

func (s *FrameStore) writeMetadata(path string, rec frame.Record) error {
	if err := s.ensureDir(s.metadataDir); err != nil {
		return fmt.Errorf("metadata directory %s: %w", s.metadataDir, err)
	}
	// 不转义 HTML 字符，元数据按远端原样落盘
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rec.Normalize()); err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// writeAtomic 先写同目录临时文件，再 rename 到目标路径
func (s *FrameStore) writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp := path + tmpSuffix
	file, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = s.fs.Remove(tmp)
		}
	}()

	if err = write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err = file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return err
	}
	return s.fs.Rename(tmp, path)
}

// rollback 删除帧以及同名元数据（含临时文件），避免旧记录比帧活得更久
func (s *FrameStore) rollback(framePath, metaPath string) error {
	var err error
	for _, p := range []string{framePath, metaPath, metaPath + tmpSuffix} {
		if rmErr := s.fs.Remove(p); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = multierr.Append(err, rmErr)
		}
	}
	if err == nil {
		logger.Warn("frame rolled back", zap.String("frame", framePath))
	}
	return err
}

func (s *FrameStore) ensureDir(dir string) error {
	info, err := s.fs.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	logger.Info("saving directory does not exist, creating", zap.String("dir", dir))
	return s.fs.MkdirAll(dir, dirPerm)
}

// Filenames 按升序返回已保存帧的文件名（不含扩展名），帧目录不存在时返回空
func (s *FrameStore) Filenames() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.frameDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	suffix := "." + s.encoder.Ext()
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), suffix))
	}
	sort.Strings(names)
	return names, nil
}
