package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Validate HTTP服务配置校验
func (h *ServerConfig) Validate() error {
	if err := valid.Struct(h); err != nil {
		return err
	}
	if h.Addr == "" {
		return errors.New("server.addr cannot be empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", h.Addr); err != nil {
		return fmt.Errorf("server.addr format invalid (expected: :port or ip:port), got %s: %w", h.Addr, err)
	}
	return nil
}

// Validate 远端地址校验：仅支持 http/https，且必须带结尾 "/"（请求路径直接拼接 get_frame）
func (a *APIConfig) Validate() error {
	if err := valid.Struct(a); err != nil {
		return err
	}
	u, err := url.Parse(a.Endpoint)
	if err != nil {
		return fmt.Errorf("api.endpoint invalid, got %s: %w", a.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.endpoint scheme must be http or https, got %q", u.Scheme)
	}
	if !strings.HasSuffix(a.Endpoint, "/") {
		return fmt.Errorf("api.endpoint must end with '/', got %s", a.Endpoint)
	}
	return nil
}

// Validate 存储配置校验
// 文件名前缀不能包含路径分隔符，帧目录与元数据目录允许相同（扩展名不同）
func (s *StorageConfig) Validate() error {
	if err := valid.Struct(s); err != nil {
		return err
	}
	if s.IntervalDuration() < 10*time.Millisecond {
		return fmt.Errorf("storage.interval must be at least 10 ms, got %d", s.Interval)
	}
	if strings.ContainsAny(s.FilenameMask, `/\`) || strings.Contains(s.FilenameMask, "..") {
		return fmt.Errorf("storage.filename_mask must not contain path elements, got %q", s.FilenameMask)
	}
	for name, dir := range map[string]string{
		"storage.frame_folder":    s.FrameFolder,
		"storage.metadata_folder": s.MetadataFolder,
	} {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		if _, err := filepath.Abs(dir); err != nil {
			return fmt.Errorf("%s cannot be resolved, got %s: %w", name, dir, err)
		}
	}
	return nil
}
