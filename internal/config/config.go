package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mstoykov/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，例如 ACTIVITYLOG_SQLITE_DSN
const EnvPrefix = "ACTIVITYLOG"

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version" envconfig:"VERSION"`

	Sqlite struct {
		Dsn    string `yaml:"dsn" envconfig:"DSN"`
		Prefix string `yaml:"prefix" envconfig:"PREFIX"`
	} `yaml:"sqlite" envconfig:"SQLITE"`

	Log struct {
		Level      string   `yaml:"level" envconfig:"LEVEL"`
		Writer     []string `yaml:"writer" envconfig:"WRITER"`
		File       string   `yaml:"file" envconfig:"FILE"`
		MaxSizeMB  int      `yaml:"maxSizeMB" envconfig:"MAX_SIZE_MB"`
		MaxBackups int      `yaml:"maxBackups" envconfig:"MAX_BACKUPS"`
		MaxAgeDays int      `yaml:"maxAgeDays" envconfig:"MAX_AGE_DAYS"`
	} `yaml:"log" envconfig:"LOG"`

	Stream struct {
		DevToolsURL string `yaml:"devToolsURL" envconfig:"DEVTOOLS_URL"`
		QueueSize   int    `yaml:"queueSize" envconfig:"QUEUE_SIZE"`
		RefreshMS   int    `yaml:"refreshMS" envconfig:"REFRESH_MS"`
		Archive     bool   `yaml:"archive" envconfig:"ARCHIVE"`
	} `yaml:"stream" envconfig:"STREAM"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}
	c.Sqlite.Dsn = "activitylog.sqlite3"
	c.Sqlite.Prefix = "activitylog_"
	c.Log.Level = "info"
	c.Log.Writer = []string{"console"}
	c.Log.File = "logs/activitylog.log"
	c.Log.MaxSizeMB = 10
	c.Log.MaxBackups = 3
	c.Log.MaxAgeDays = 7
	c.Stream.DevToolsURL = "http://127.0.0.1:9222"
	c.Stream.QueueSize = 256
	c.Stream.RefreshMS = 500
	c.Stream.Archive = true
	return c
}

// Load 读取配置：默认值 -> YAML 文件（可选）-> 环境变量
func Load(path string) (*Config, error) {
	c := NewConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// 配置文件不存在时使用默认值
		case err != nil:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		default:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		}
	}
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}
	return c, c.Validate()
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Stream.QueueSize <= 0 {
		return fmt.Errorf("stream.queueSize 必须大于 0，当前为 %d", c.Stream.QueueSize)
	}
	if c.Stream.RefreshMS <= 0 {
		return fmt.Errorf("stream.refreshMS 必须大于 0，当前为 %d", c.Stream.RefreshMS)
	}
	for _, w := range c.Log.Writer {
		if w != "console" && w != "file" {
			return fmt.Errorf("未知的日志输出: %q", w)
		}
	}
	return nil
}
