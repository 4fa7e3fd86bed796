package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL  string
	ChainID uint64

	PGDSN     string
	RedisAddr string
	In        string
	Out       string

	Protocols        []string
	Rewrite          bool
	RewriteProtocols []string

	AavePool        string
	AaveChains      []uint64
	AaveEtherChains []uint64

	UniswapChains     []uint64
	UniswapFactory    string
	UniswapNFTManager string

	GolemBaseChain uint64

	KafkaBrokers   []string
	KafkaTopic     string
	KafkaGroup     string
	KafkaBatchSize int
	KafkaFlush     time.Duration

	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ACTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("out", "./data/actions.jsonl")
	v.SetDefault("aave-ether-chains", "1,5,10")
	v.SetDefault("uniswap-factory", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	v.SetDefault("uniswap-nft-manager", "0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
	v.SetDefault("kafka-batch-size", 500)
	v.SetDefault("kafka-flush", 2*time.Second)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	aaveChains, err := getUint64Slice(v, "aave-chains")
	if err != nil {
		return Config{}, err
	}
	etherChains, err := getUint64Slice(v, "aave-ether-chains")
	if err != nil {
		return Config{}, err
	}
	uniswapChains, err := getUint64Slice(v, "uniswap-chains")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:            v.GetString("rpc"),
		ChainID:           v.GetUint64("chain-id"),
		PGDSN:             v.GetString("pg-dsn"),
		RedisAddr:         v.GetString("redis"),
		In:                v.GetString("in"),
		Out:               v.GetString("out"),
		Protocols:         getStringSlice(v, "protocols"),
		Rewrite:           v.GetBool("rewrite"),
		RewriteProtocols:  getStringSlice(v, "rewrite-protocols"),
		AavePool:          v.GetString("aave-pool"),
		AaveChains:        aaveChains,
		AaveEtherChains:   etherChains,
		UniswapChains:     uniswapChains,
		UniswapFactory:    v.GetString("uniswap-factory"),
		UniswapNFTManager: v.GetString("uniswap-nft-manager"),
		GolemBaseChain:    v.GetUint64("golembase-chain"),
		KafkaBrokers:      getStringSlice(v, "kafka-brokers"),
		KafkaTopic:        v.GetString("kafka-topic"),
		KafkaGroup:        v.GetString("kafka-group"),
		KafkaBatchSize:    v.GetInt("kafka-batch-size"),
		KafkaFlush:        v.GetDuration("kafka-flush"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func getUint64Slice(v *viper.Viper, key string) ([]uint64, error) {
	items := getStringSlice(v, key)
	out := make([]uint64, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseUint(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s entry %q: %w", key, item, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
