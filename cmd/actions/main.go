package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "actions",
		Short:        "Derive transaction actions from raw chain logs",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Process a raw log JSONL batch into actions",
		RunE:  runProcess,
	}
	addPipelineFlags(processCmd)
	processCmd.Flags().String("in", "", "input raw logs JSONL")
	processCmd.Flags().String("out", "./data/actions.jsonl", "output actions JSONL (file mode, ignored with pg-dsn)")
	processCmd.Flags().Bool("rewrite", false, "delete stored actions for the batch's transactions before decoding")
	processCmd.Flags().StringSlice("rewrite-protocols", nil, "protocol subset for the rewrite delete (empty = all protocols)")
	root.AddCommand(processCmd)

	consumeCmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume raw logs from Kafka and derive actions continuously",
		RunE:  runConsume,
	}
	addPipelineFlags(consumeCmd)
	consumeCmd.Flags().StringSlice("kafka-brokers", nil, "Kafka broker addresses (comma-separated)")
	consumeCmd.Flags().String("kafka-topic", "", "Kafka topic carrying raw log records")
	consumeCmd.Flags().String("kafka-group", "actions", "Kafka consumer group id")
	consumeCmd.Flags().Int("kafka-batch-size", 500, "logs per pipeline invocation")
	consumeCmd.Flags().Duration("kafka-flush", 2*time.Second, "max wait before a partial batch is processed")
	root.AddCommand(consumeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().Uint64("chain-id", 0, "chain identifier")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("redis", "", "Redis address for cross-run caches")
	cmd.Flags().StringSlice("protocols", nil, "protocols to process (empty = all)")
	cmd.Flags().String("aave-pool", "", "lending pool contract address (empty = any emitter)")
	cmd.Flags().StringSlice("aave-chains", nil, "chain ids with lending decoding enabled (empty = all)")
	cmd.Flags().StringSlice("aave-ether-chains", []string{"1", "5", "10"}, "chain ids rendering WETH as Ether")
	cmd.Flags().StringSlice("uniswap-chains", nil, "chain ids with AMM decoding enabled (empty = all)")
	cmd.Flags().String("uniswap-factory", "0x1F98431c8aD98523631AE4a59f267346ea31F984", "AMM factory address")
	cmd.Flags().String("uniswap-nft-manager", "0xC36442b4a4522E871399CD717aBDD847Ab11FE88", "positions NFT manager address")
	cmd.Flags().Uint64("golembase-chain", 0, "chain id with storage-ledger decoding enabled (0 = disabled)")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts for remote calls")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
