package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Config 描述了 agentsim 在启动阶段需要加载的核心配置。
type Config struct {
	Server  ServerConfig  `json:"server"`
	Agent   AgentConfig   `json:"agent"`
	Oracle  OracleConfig  `json:"oracle"`
	Catalog CatalogConfig `json:"catalog"`
	Archive ArchiveConfig `json:"archive"`
	LogSink LogSinkConfig `json:"log_sink"`
	Chain   ChainConfig   `json:"chain"`
	Log     LogConfig     `json:"log"`
	Runtime RuntimeConfig `json:"runtime"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// AgentConfig 控制智能体的初始目标与调度参数。
type AgentConfig struct {
	Goal                 string  `json:"goal"`
	InitialBalance       float64 `json:"initial_balance"`
	TickIntervalSeconds  int     `json:"tick_interval_seconds"`
	OracleTimeoutSeconds int     `json:"oracle_timeout_seconds"`
}

// OracleConfig 用于选择决策预言机的实现。
type OracleConfig struct {
	Provider string       `json:"provider"`
	OpenAI   OpenAIConfig `json:"openai"`
}

// OpenAIConfig 描述调用 OpenAI 所需的信息。
type OpenAIConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Timeout 返回以 time.Duration 表示的超时时间。
func (c OpenAIConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CatalogConfig 控制服务目录的来源。Source 为空时使用内置目录。
type CatalogConfig struct {
	Source         string `json:"source"`
	LoanServiceID  string `json:"loan_service_id"`
	RepayServiceID string `json:"repay_service_id"`
}

// ArchiveConfig 描述交易归档后端。
type ArchiveConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// LogSinkConfig 描述活动日志的外部分发后端。Driver 为空表示不分发。
type LogSinkConfig struct {
	Driver   string             `json:"driver"`
	Redis    RedisSinkConfig    `json:"redis"`
	RabbitMQ RabbitMQSinkConfig `json:"rabbitmq"`
}

// RedisSinkConfig 描述 Redis 分发器的连接参数。
type RedisSinkConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
	MaxLen   int64  `json:"max_len"`
}

// RabbitMQSinkConfig 描述 RabbitMQ 分发器的连接参数。
type RabbitMQSinkConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// ChainConfig 包含访问区块链节点所需的 RPC 地址。为空表示不观察链上状态。
type ChainConfig struct {
	RPCURL string `json:"rpc_url"`
}

// LogConfig 控制结构化日志的输出方式。
type LogConfig struct {
	Level       string      `json:"level"`
	Format      string      `json:"format"`
	OutputPaths []string    `json:"output_paths"`
	Audit       AuditConfig `json:"audit"`
}

// AuditConfig 控制审计日志文件。
type AuditConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// 默认的智能体参数，与模拟经济体的初始面板保持一致。
const (
	defaultGoal           = "Acquire 150 AGENT-COIN by trading data packets."
	defaultInitialBalance = 100
	defaultTickSeconds    = 8
)

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// Default 返回不依赖配置文件的默认配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}

	if c.Agent.Goal == "" {
		c.Agent.Goal = defaultGoal
	}
	if c.Agent.InitialBalance == 0 {
		c.Agent.InitialBalance = defaultInitialBalance
	}
	if c.Agent.TickIntervalSeconds <= 0 {
		c.Agent.TickIntervalSeconds = defaultTickSeconds
	}

	if c.Oracle.Provider == "" {
		c.Oracle.Provider = "openai"
	}
	// 未在配置中填写密钥时回退到环境变量。
	if c.Oracle.OpenAI.APIKey == "" {
		c.Oracle.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if c.Archive.Driver == "" {
		c.Archive.Driver = "memory"
	}

	if c.Catalog.Source != "" && !filepath.IsAbs(c.Catalog.Source) {
		c.Catalog.Source = filepath.Join(baseDir, c.Catalog.Source)
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}
}

// TickInterval 返回两次决策之间的间隔。
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Agent.TickIntervalSeconds) * time.Second
}

// OracleTimeout 返回单次预言机调用的超时时间。
func (c *Config) OracleTimeout() time.Duration {
	if c.Agent.OracleTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Agent.OracleTimeoutSeconds) * time.Second
}
