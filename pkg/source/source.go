// Package source 每次调用向远端视觉服务拉取一帧
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/frame-datalogger/pkg/frame"
	"github.com/frame-datalogger/pkg/logger"
)

// FramePath 直接拼接在 endpoint 之后
const FramePath = "get_frame"

// maxBodyBytes 响应体上限（帧以 base64 形式放在 JSON 中）
const maxBodyBytes = 64 << 20

var (
	// ErrTransport 连接失败、超时或响应体不是合法 JSON
	ErrTransport = errors.New("remote unreachable")
	// ErrRemoteSoftFailure 响应格式正确但状态码非 200
	ErrRemoteSoftFailure = errors.New("remote reported no frame")
)

// response GET {endpoint}get_frame 返回的 JSON 结构
type response struct {
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Frame struct {
		Frame string `json:"frame"`
	} `json:"frame"`
	Metadata  frame.Metadata `json:"metadata"`
	Labels    frame.Metadata `json:"labels"`
	Timestamp json.Number    `json:"timestamp"`
}

// HTTPSource 每次 Poll 发起一次 GET，不重试
type HTTPSource struct {
	endpoint string
	url      string
	client   *http.Client
}

// New 创建数据源，client 为 nil 时使用带 timeout 的默认客户端
func New(endpoint string, timeout time.Duration, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSource{
		endpoint: endpoint,
		url:      endpoint + FramePath,
		client:   client,
	}
}

// URL 返回请求地址
func (s *HTTPSource) URL() string { return s.url }

// Poll 拉取一帧；不直接返回 error，失败通过结果状态表达
func (s *HTTPSource) Poll(ctx context.Context) frame.PollResult {
	start := time.Now()
	res := s.poll(ctx)
	res.Duration = time.Since(start)
	return res
}

func (s *HTTPSource) poll(ctx context.Context) frame.PollResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return unreachable(fmt.Errorf("%w: build request: %w", ErrTransport, err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Error("cannot establish connection to remote", zap.String("endpoint", s.endpoint), zap.Error(err))
		return unreachable(fmt.Errorf("%w: %w", ErrTransport, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		logger.Error("cannot read response body", zap.String("endpoint", s.endpoint), zap.Error(err))
		return unreachable(fmt.Errorf("%w: read body: %w", ErrTransport, err))
	}

	var r response
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		logger.Warn("cannot deserialise received json",
			zap.String("endpoint", s.endpoint),
			zap.Int("http_status", resp.StatusCode),
			zap.Int("body_bytes", len(body)),
			zap.Error(err))
		return unreachable(fmt.Errorf("%w: decode json: %w", ErrTransport, err))
	}

	if r.Status.Code != http.StatusOK {
		logger.Warn("no frame retrieved",
			zap.String("endpoint", s.endpoint),
			zap.Int("code", r.Status.Code),
			zap.String("message", r.Status.Message))
		return frame.PollResult{
			Status:  frame.StatusNoData,
			Code:    r.Status.Code,
			Message: r.Status.Message,
			Err:     fmt.Errorf("%w: code %d: %s", ErrRemoteSoftFailure, r.Status.Code, r.Status.Message),
		}
	}

	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		logger.Warn("invalid timestamp in response", zap.String("endpoint", s.endpoint), zap.Error(err))
		return unreachable(fmt.Errorf("%w: %w", ErrTransport, err))
	}

	logger.Info("frame received", zap.String("endpoint", s.endpoint), zap.Int64("timestamp", ts))
	return frame.PollResult{
		Status:  frame.StatusData,
		Encoded: r.Frame.Frame,
		Code:    r.Status.Code,
		Record: frame.Record{
			Metadata:  r.Metadata,
			Labels:    r.Labels,
			Timestamp: ts,
		}.Normalize(),
	}
}

// parseTimestamp 接受整数和整数值浮点数（"1000"、"1000.0"）
func parseTimestamp(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("timestamp %q is not an integer", n.String())
	}
	return int64(f), nil
}

func unreachable(err error) frame.PollResult {
	return frame.PollResult{Status: frame.StatusUnreachable, Err: err}
}
