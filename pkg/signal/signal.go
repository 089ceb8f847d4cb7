package signal

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/frame-datalogger/pkg/logger"
)

var ErrShutdownTimeout = errors.New("graceful shutdown timed out")

// WaitForShutdown 阻塞直到收到 SIGINT/SIGTERM 或 ctx 结束，然后在 timeout 内执行 shutdownFunc
func WaitForShutdown(ctx context.Context, timeout time.Duration, shutdownFunc func(ctx context.Context) error) error {
	if shutdownFunc == nil {
		return errors.New("shutdownFunc is nil, cannot execute shutdown")
	}
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("service is running, waiting for shutdown signal (SIGINT/SIGTERM)...")
	<-sigCtx.Done()
	logger.Info("received shutdown signal", zap.NamedError("cause", context.Cause(sigCtx)))

	// 超时控制关闭逻辑
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- shutdownFunc(shutdownCtx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		logger.Info("graceful shutdown completed successfully")
		return nil
	case <-shutdownCtx.Done():
		logger.Error("graceful shutdown timed out", zap.Duration("timeout", timeout))
		return fmt.Errorf("%w after %s", ErrShutdownTimeout, timeout)
	}
}
