package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"AgentCoin-Sim/internal/actlog"
	"AgentCoin-Sim/internal/agent"
	"AgentCoin-Sim/internal/api"
	"AgentCoin-Sim/internal/catalog"
	"AgentCoin-Sim/internal/chain"
	"AgentCoin-Sim/internal/chain/ethereum"
	"AgentCoin-Sim/internal/config"
	"AgentCoin-Sim/internal/inventory"
	"AgentCoin-Sim/internal/ledger"
	"AgentCoin-Sim/internal/observability/alerting"
	"AgentCoin-Sim/internal/oracle"
	"AgentCoin-Sim/internal/oracle/openai"
	"AgentCoin-Sim/internal/oracle/static"
	"AgentCoin-Sim/internal/storage/mysql"
	"AgentCoin-Sim/pkg/logger"
)

// main 是 agentsim 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("agentsimd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("AGENTSIM_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "agentsim.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Log.Audit.Enabled,
			Path:       cfg.Log.Audit.Path,
			MaxSizeMB:  cfg.Log.Audit.MaxSizeMB,
			MaxBackups: cfg.Log.Audit.MaxBackups,
			MaxAgeDays: cfg.Log.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	dataDir := cfg.Runtime.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// 服务目录：Source 为空时使用内置的默认目录。
	var cat *catalog.Catalog
	if cfg.Catalog.Source != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.Source)
		if err != nil {
			return err
		}
	} else if cfg.Catalog.LoanServiceID != "" || cfg.Catalog.RepayServiceID != "" {
		cat, err = catalog.New(catalog.Default().Services(),
			cfg.Catalog.LoanServiceID, cfg.Catalog.RepayServiceID)
		if err != nil {
			return err
		}
	} else {
		cat = catalog.Default()
	}

	var archive ledger.Archive
	switch cfg.Archive.Driver {
	case "memory", "":
		repo, err := mysql.NewMemoryArchive(dataDir)
		if err != nil {
			return err
		}
		archive = repo
	case "mysql":
		repo, err := mysql.NewSQLArchive(cfg.Archive.DSN)
		if err != nil {
			return err
		}
		archive = repo
	default:
		return mysql.ErrUnsupportedDriver
	}
	if closer, ok := archive.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	led := ledger.New(cfg.Agent.InitialBalance, ledger.WithArchive(archive))
	inv := inventory.NewStore()

	var logOpts []actlog.Option
	switch cfg.LogSink.Driver {
	case "":
		// 不分发活动日志。
	case "memory":
		logOpts = append(logOpts, actlog.WithSink(actlog.NewMemorySink(256)))
	case "redis":
		sink, err := actlog.NewRedisSink(actlog.RedisSinkConfig{
			Address:  cfg.LogSink.Redis.Address,
			Password: cfg.LogSink.Redis.Password,
			DB:       cfg.LogSink.Redis.DB,
			Key:      cfg.LogSink.Redis.Key,
			MaxLen:   cfg.LogSink.Redis.MaxLen,
		})
		if err != nil {
			return err
		}
		defer sink.Close()
		logOpts = append(logOpts, actlog.WithSink(sink))
	case "rabbitmq":
		sink, err := actlog.NewRabbitMQSink(actlog.RabbitMQSinkConfig{
			URL:        cfg.LogSink.RabbitMQ.URL,
			Queue:      cfg.LogSink.RabbitMQ.Queue,
			Durable:    cfg.LogSink.RabbitMQ.Durable,
			AutoDelete: cfg.LogSink.RabbitMQ.AutoDelete,
		})
		if err != nil {
			return err
		}
		defer sink.Close()
		logOpts = append(logOpts, actlog.WithSink(sink))
	default:
		return fmt.Errorf("未知的日志分发驱动: %s", cfg.LogSink.Driver)
	}
	activity := actlog.New(logOpts...)

	orc, err := createOracle(cfg)
	if err != nil {
		return err
	}

	opts := []agent.Option{
		agent.WithTickInterval(cfg.TickInterval()),
		agent.WithAlertDispatcher(alerting.NewFanout(&alerting.LogNotifier{})),
	}
	if timeout := cfg.OracleTimeout(); timeout > 0 {
		opts = append(opts, agent.WithOracleTimeout(timeout))
	}

	// 链观察器是可选的：仅在配置了 RPC 地址时接入。
	if cfg.Chain.RPCURL != "" {
		observer, err := ethereum.NewObserver(ctx, chain.Config{RPCURL: cfg.Chain.RPCURL})
		if err != nil {
			return err
		}
		defer observer.Close()
		opts = append(opts, agent.WithChainObserver(observer))
	}

	orch := agent.New(cfg.Agent.Goal, cat, led, inv, activity, orc, opts...)
	defer func() {
		if orch.Running() {
			_ = orch.Stop()
		}
	}()

	server := api.NewServer(cfg.Server.Address, orch, led, inv, activity, cat)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// createOracle 根据配置选择决策预言机实现。缺少密钥时退化为静态预言机，
// 与面板在未配置 API Key 时的行为保持一致。
func createOracle(cfg *config.Config) (oracle.Oracle, error) {
	switch cfg.Oracle.Provider {
	case "openai", "":
		if cfg.Oracle.OpenAI.APIKey == "" {
			logger.L().Warn("未配置 OpenAI 密钥，使用静态预言机")
			return static.New(""), nil
		}
		return openai.NewClient(openai.Config{
			APIKey:  cfg.Oracle.OpenAI.APIKey,
			BaseURL: cfg.Oracle.OpenAI.BaseURL,
			Model:   cfg.Oracle.OpenAI.Model,
			Timeout: cfg.Oracle.OpenAI.Timeout(),
		})
	case "static":
		return static.New(""), nil
	default:
		return nil, fmt.Errorf("未知的预言机实现: %s", cfg.Oracle.Provider)
	}
}
