package agent

import (
	"github.com/spf13/cobra"
)

func initAPIFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("api.endpoint", defaultCfg.API.Endpoint, "-> Vision service base URL, must end with / (远端服务地址)")
	f.Duration("api.timeout", defaultCfg.API.Timeout, "-> Timeout of one poll (单次请求超时)")
}

func initStorageFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	storagePrefix := "storage."

	f.Int(storagePrefix+"interval", defaultCfg.Storage.Interval, "-> Milliseconds between cycle starts (采集间隔毫秒)")
	f.String(storagePrefix+"filename_mask", defaultCfg.Storage.FilenameMask, "-> Filename prefix, {timestamp} for remote timestamps (文件名前缀)")
	f.String(storagePrefix+"frame_folder", defaultCfg.Storage.FrameFolder, "-> Frame output folder (帧目录)")
	f.String(storagePrefix+"metadata_folder", defaultCfg.Storage.MetadataFolder, "-> Metadata output folder (元数据目录)")
	f.String(storagePrefix+"png_compression", defaultCfg.Storage.PNGCompression, "-> PNG compression [default,none,speed,best] (PNG压缩级别)")
	f.Bool(storagePrefix+"resume_sequence", defaultCfg.Storage.ResumeSequence, "-> Continue numbering after existing frames (从已有文件恢复序号)")
}

func initMonitorFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.Duration("monitor.interval", defaultCfg.Monitor.Interval, "-> Storage capacity sampling interval (磁盘容量采样间隔)")
	f.Bool("monitor.enable_process", defaultCfg.Monitor.EnableProcess, "-> Export process metrics (进程指标)")
	f.Bool("monitor.enable_storage", defaultCfg.Monitor.EnableStorage, "-> Export storage capacity metrics (磁盘容量指标)")
}
