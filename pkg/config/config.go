package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// EnvPrefix 环境变量前缀（DATALOGGER_STORAGE_INTERVAL -> storage.interval）
const EnvPrefix = "DATALOGGER"

// TimestampMask selects timestamp based filenames instead of a sequence prefix.
const TimestampMask = "{timestamp}"

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server" comment:"HTTP服务配置"`
	API     APIConfig     `yaml:"api" mapstructure:"api" comment:"远端视觉服务"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage" comment:"帧与元数据存储"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor" comment:"自监控采集配置"`
	Log     ZapLogConfig  `yaml:"log" mapstructure:"log" comment:"日志配置"`
}

// ServerConfig HTTP服务配置（/metrics /health /status）
type ServerConfig struct {
	Enable       bool          `yaml:"enable" mapstructure:"enable" env:"SERVER_ENABLE" comment:"是否启动HTTP服务"`
	Addr         string        `yaml:"addr" mapstructure:"addr" env:"SERVER_ADDR" validate:"required,hostname_port" comment:"HTTP监听地址（格式：ip:port）"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"required,gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"required,gt=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"required,gt=0"`
}

// APIConfig 远端服务配置。Endpoint 必须以 "/" 结尾，请求地址为 Endpoint + "get_frame"。
type APIConfig struct {
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint" env:"API_ENDPOINT" validate:"required,url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout" env:"API_TIMEOUT" validate:"required,gt=0"`
}

// StorageConfig 存储配置，interval 单位为毫秒
type StorageConfig struct {
	Interval       int    `yaml:"interval" mapstructure:"interval" env:"STORAGE_INTERVAL" validate:"required,gt=0" comment:"两次采集开始之间的间隔（毫秒）"`
	FilenameMask   string `yaml:"filename_mask" mapstructure:"filename_mask" env:"STORAGE_FILENAME_MASK" comment:"文件名前缀，{timestamp} 表示使用远端时间戳"`
	FrameFolder    string `yaml:"frame_folder" mapstructure:"frame_folder" validate:"required"`
	MetadataFolder string `yaml:"metadata_folder" mapstructure:"metadata_folder" validate:"required"`
	PNGCompression string `yaml:"png_compression" mapstructure:"png_compression" validate:"required,oneof=default none speed best"`
	ResumeSequence bool   `yaml:"resume_sequence" mapstructure:"resume_sequence" comment:"启动时从已有文件恢复序号"`
}

// IntervalDuration 返回 time.Duration 形式的采集间隔
func (s StorageConfig) IntervalDuration() time.Duration {
	return time.Duration(s.Interval) * time.Millisecond
}

// UseTimestamp reports whether filenames come from the remote timestamp.
func (s StorageConfig) UseTimestamp() bool {
	return s.FilenameMask == TimestampMask
}

// MonitorConfig 自监控配置（磁盘容量采样、进程指标）
type MonitorConfig struct {
	Interval      time.Duration `yaml:"interval" mapstructure:"interval" env:"MONITOR_INTERVAL" validate:"required,gt=0"`
	EnableProcess bool          `yaml:"enable_process" mapstructure:"enable_process"`
	EnableStorage bool          `yaml:"enable_storage" mapstructure:"enable_storage" comment:"采集帧/元数据目录所在磁盘容量"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" env:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal" comment:"日志级别"`
	Format    string `yaml:"format" mapstructure:"format" env:"LOG_FORMAT" validate:"required,oneof=json console" comment:"控制台日志格式（json/console）"`
	Path      string `yaml:"path" mapstructure:"path" env:"LOG_PATH" validate:"required" comment:"日志存储路径"`
	MaxSize   int    `yaml:"max_size" mapstructure:"max_size" validate:"gt=0" comment:"单个日志文件最大大小（MB）"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max_backup" validate:"gte=0" comment:"日志文件最大备份数，0 表示按天数清理"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0" comment:"日志文件最大保存天数"`
}

// NewDefaultConfig 创建默认配置（所有字段兜底，避免空指针/非法值）
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Enable:       true,
			Addr:         "0.0.0.0:9100",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
		},
		API: APIConfig{
			Endpoint: "http://127.0.0.1:5000/",
			Timeout:  5 * time.Second,
		},
		Storage: StorageConfig{
			Interval:       1000,
			FilenameMask:   "frame_",
			FrameFolder:    "./data/frames",
			MetadataFolder: "./data/metadata",
			PNGCompression: "default",
		},
		Monitor: MonitorConfig{
			Interval:      30 * time.Second,
			EnableProcess: true,
			EnableStorage: true,
		},
		Log: ZapLogConfig{
			Level:     "info",
			Format:    "console",
			Path:      "./logs",
			MaxSize:   100,
			MaxBackup: 0,
			MaxAge:    7,
		},
	}
}

// LoadConfigWithCli 加载配置 (Flags + YAML + ENV)，支持 time.Duration
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)
	configFile, _ := cmd.Flags().GetString("config")
	return load(v, configFile)
}

// Load 仅从配置文件 + 环境变量加载（无命令行）
func Load(configFile string) (*Config, error) {
	return load(viper.New(), configFile)
}

func load(v *viper.Viper, configFile string) (*Config, error) {
	cfg := NewDefaultConfig()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	// 3. 绑定环境变量 ENV -> Viper （DATALOGGER_API_ENDPOINT -> api.endpoint）
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v, cfg)

	// 4. 解码反序列化到结构体
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// 5. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// bindEnvKeys AutomaticEnv 只对已知 key 生效，这里把所有配置 key 注册一遍，
// 保证没有 flag/文件 时环境变量也能覆盖。
func bindEnvKeys(v *viper.Viper, cfg *Config) {
	var m map[string]any
	if err := mapstructure.Decode(cfg, &m); err != nil {
		return
	}
	for section, raw := range m {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for key := range fields {
			_ = v.BindEnv(section + "." + key)
		}
	}
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
