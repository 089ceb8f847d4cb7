package agent

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/frame-datalogger/internal/server"
	"github.com/frame-datalogger/pkg/config"
	"github.com/frame-datalogger/pkg/logger"
	"github.com/frame-datalogger/pkg/registers"
	"github.com/frame-datalogger/pkg/signal"
	"github.com/frame-datalogger/pkg/util"
)

// minShutdownTimeout 关闭流程的下限；实际超时还要覆盖一次完整请求加一个采集间隔
const minShutdownTimeout = 10 * time.Second

func shutdownTimeout(cfg *config.Config) time.Duration {
	return max(minShutdownTimeout, cfg.API.Timeout+cfg.Storage.IntervalDuration()+5*time.Second)
}

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "frame-datalogger",
	Short: "Polls a vision service at a fixed cadence and stores every frame with its metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			// 统一输出错误到 stderr，不返回给 cobra
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "请检查配置文件路径或使用 -c 参数指定\n")
			os.Exit(1)
		}
		if err := runServer(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "服务运行失败: %v\n", err)
			os.Exit(1)
		}
		return nil
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "configs/config.yaml", "配置文件路径")
	// 注册分组 flag
	initServerFlags(rootCmd)
	initAPIFlags(rootCmd)
	initStorageFlags(rootCmd)
	initMonitorFlags(rootCmd)
	initLogFlags(rootCmd)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.SetDefaultComponent("datalogger")

	rt, err := registers.InitPromRegistry(cfg, registers.Options{})
	if err != nil {
		return fmt.Errorf("init components: %w", err)
	}
	util.PrintBanner(os.Stdout, "frame-datalogger", "ColorBlue", "run "+rt.Agent.RunID())
	logger.Info("configuration loaded",
		zap.String("config", cfgFile),
		zap.String("endpoint", cfg.API.Endpoint),
		zap.Int("interval_ms", cfg.Storage.Interval),
		zap.String("frame_folder", cfg.Storage.FrameFolder),
		zap.String("metadata_folder", cfg.Storage.MetadataFolder))

	var httpServer *server.Server
	if cfg.Server.Enable {
		httpServer = server.NewHTTPServer(cfg.Server, rt.Registry, rt.Agent)
		if err := httpServer.Start(); err != nil {
			return fmt.Errorf("start HTTP server failed: %w", err)
		}
	}
	if rt.Monitor != nil {
		if err := rt.Monitor.Start(ctx); err != nil {
			return fmt.Errorf("start collector monitor: %w", err)
		}
	}
	if err := rt.Agent.Start(ctx); err != nil {
		return fmt.Errorf("start data logger: %w", err)
	}

	// 关闭顺序：采集主循环 → 自监控 → HTTP 服务
	return signal.WaitForShutdown(ctx, shutdownTimeout(cfg), func(shutdownCtx context.Context) error {
		var errs error
		if err := rt.Agent.Shutdown(shutdownCtx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("stop data logger: %w", err))
		}
		if rt.Monitor != nil {
			if err := rt.Monitor.Shutdown(shutdownCtx); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("shutdown collector monitor: %w", err))
			}
		}
		if httpServer != nil {
			if err := httpServer.Shutdown(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("shutdown HTTP server: %w", err))
			}
		}
		if errs == nil {
			logger.Info("all services shutdown successfully")
		}
		return errs
	})
}
