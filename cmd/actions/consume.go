package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"actionScope/internal/chain"
	"actionScope/internal/config"
	"actionScope/internal/model"
)

func runConsume(cmd *cobra.Command, _ []string) error {
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

	if len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if cfg.KafkaTopic == "" {
		return fmt.Errorf("kafka topic is required")
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
	// Streaming derivation is append-only; rewrites are a batch-mode concern.
	opts.Rewrite = false

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroup,
		Topic:    cfg.KafkaTopic,
		MinBytes: 1,
		MaxBytes: 10 * 1024 * 1024,
	})
	defer reader.Close()

	logger.Info("consume start",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroup),
		zap.Int("batch_size", cfg.KafkaBatchSize),
	)

	var logs []model.LogRecord
	var messages []kafka.Message

	flush := func() error {
		if len(messages) == 0 {
			return nil
		}
		if len(logs) > 0 {
			derived, err := pipeline.Run(ctx, logs, opts)
			if err != nil {
				return err
			}
			if err := store.AppendActions(ctx, derived); err != nil {
				return fmt.Errorf("append actions: %w", err)
			}
			logger.Info("batch processed",
				zap.Int("logs", len(logs)),
				zap.Int("actions", len(derived)),
			)
		}
		if err := reader.CommitMessages(ctx, messages...); err != nil {
			return fmt.Errorf("commit offsets: %w", err)
		}
		logs = logs[:0]
		messages = messages[:0]
		return nil
	}

	for {
		fetchCtx, cancel := context.WithTimeout(ctx, cfg.KafkaFlush)
		message, err := reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				_ = flush()
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				if err := flush(); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		messages = append(messages, message)
		var record model.LogRecord
		if err := json.Unmarshal(message.Value, &record); err != nil {
			logger.Warn("skip malformed log message",
				zap.Int64("offset", message.Offset),
				zap.Error(err),
			)
		} else {
			logs = append(logs, record)
		}

		if len(logs) >= cfg.KafkaBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
}
