package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"actionScope/internal/actions"
	"actionScope/internal/chain"
	"actionScope/internal/config"
	"actionScope/internal/model"
	"actionScope/internal/storage"
	"actionScope/internal/storage/postgres"
)

func runProcess(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var caller chain.ContractCaller
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.MaxRetries, cfg.RetryBackoff)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		caller = chainClient
	}

	rdb, err := newRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline, err := newPipeline(cfg, caller, store, rdb, logger)
	if err != nil {
		return err
	}

	opts, err := pipelineOptions(cfg)
	if err != nil {
		return err
	}

	logs, skipped, err := readLogs(cfg.In, logger)
	if err != nil {
		return err
	}

	logger.Info("process start",
		zap.String("in", cfg.In),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.Int("logs", len(logs)),
		zap.Int("skipped", skipped),
		zap.Bool("rewrite", cfg.Rewrite),
	)

	derived, err := pipeline.Run(ctx, logs, opts)
	if err != nil {
		return err
	}
	if err := store.AppendActions(ctx, derived); err != nil {
		return fmt.Errorf("append actions: %w", err)
	}

	logger.Info("process complete",
		zap.Int("logs", len(logs)),
		zap.Int("actions", len(derived)),
	)
	return nil
}

func newRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func newStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, store.Close, nil
	}
	if cfg.Out == "" {
		return nil, nil, fmt.Errorf("output path is required in file mode")
	}
	return storage.NewJsonlStore(cfg.Out), func() {}, nil
}

func newPipeline(cfg config.Config, caller chain.ContractCaller, store storage.Store, rdb *redis.Client, logger *zap.Logger) (*actions.Pipeline, error) {
	return actions.NewPipeline(actions.PipelineConfig{
		Deleter:           store,
		TokenStore:        store,
		Caller:            caller,
		Redis:             rdb,
		Logger:            logger,
		AavePool:          cfg.AavePool,
		AaveChains:        cfg.AaveChains,
		AaveEtherChains:   cfg.AaveEtherChains,
		UniswapChains:     cfg.UniswapChains,
		UniswapFactory:    cfg.UniswapFactory,
		UniswapNFTManager: cfg.UniswapNFTManager,
		GolemBaseChain:    cfg.GolemBaseChain,
	})
}

func pipelineOptions(cfg config.Config) (actions.Options, error) {
	protocols, err := parseProtocols(cfg.Protocols)
	if err != nil {
		return actions.Options{}, err
	}
	rewriteProtocols, err := parseProtocols(cfg.RewriteProtocols)
	if err != nil {
		return actions.Options{}, err
	}
	return actions.Options{
		ChainID:          cfg.ChainID,
		Protocols:        protocols,
		Rewrite:          cfg.Rewrite,
		RewriteProtocols: rewriteProtocols,
	}, nil
}

func parseProtocols(names []string) ([]model.Protocol, error) {
	out := make([]model.Protocol, 0, len(names))
	for _, name := range names {
		proto, ok := model.ParseProtocol(name)
		if !ok {
			return nil, fmt.Errorf("unknown protocol: %s", name)
		}
		out = append(out, proto)
	}
	return out, nil
}

func readLogs(path string, logger *zap.Logger) ([]model.LogRecord, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var logs []model.LogRecord
	var skipped int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			skipped++
			logger.Warn("skip malformed log line", zap.Error(err))
			continue
		}
		logs = append(logs, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan input: %w", err)
	}
	return logs, skipped, nil
}
