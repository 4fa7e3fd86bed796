package actions

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"actionScope/internal/chain"
	"actionScope/internal/model"
)

// ActionDeleter is the rewrite face of the persistent store.
type ActionDeleter interface {
	DeleteActions(ctx context.Context, txHashes []string, protocols []string) error
}

// PipelineConfig wires the pipeline's collaborators and per-protocol gates.
type PipelineConfig struct {
	Deleter    ActionDeleter
	TokenStore TokenStore
	Caller     chain.ContractCaller
	Redis      *redis.Client
	Logger     *zap.Logger

	AavePool        string
	AaveChains      []uint64
	AaveEtherChains []uint64

	UniswapChains     []uint64
	UniswapFactory    string
	UniswapNFTManager string

	GolemBaseChain uint64
}

// Options selects what one Run invocation processes.
type Options struct {
	ChainID uint64
	// Protocols restricts decoding to the listed protocols; empty means all.
	Protocols []model.Protocol
	// Rewrite deletes previously stored actions for the batch's transactions
	// before decoding. RewriteProtocols scopes the delete; empty means every
	// protocol. When Rewrite is false decoding appends without deleting.
	Rewrite          bool
	RewriteProtocols []model.Protocol
}

// Pipeline transforms raw log batches into transaction actions.
type Pipeline struct {
	deleter   ActionDeleter
	aave      *AaveDecoder
	uniswap   *UniswapDecoder
	golembase *GolemBaseDecoder

	aaveChains     map[uint64]struct{}
	uniswapChains  map[uint64]struct{}
	golemBaseChain uint64

	logger *zap.Logger
}

// NewPipeline builds the full pipeline: shared caches, resolvers, and the
// three protocol decoders.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tokenCache := NewTokenMetaCache(cfg.Redis)
	poolCache := NewPoolPairCache(cfg.Redis)
	resolver := NewTokenResolver(tokenCache, cfg.TokenStore, cfg.Caller, logger)

	factory := cfg.UniswapFactory
	if factory == "" {
		factory = DefaultUniswapV3Factory
	}
	nftManager := cfg.UniswapNFTManager
	if nftManager == "" {
		nftManager = DefaultUniswapPositionsNFT
	}
	verifier := NewPoolVerifier(poolCache, cfg.Caller, factory, logger)

	aave, err := NewAaveDecoder(resolver, cfg.AavePool, cfg.AaveEtherChains, logger)
	if err != nil {
		return nil, err
	}
	uniswap, err := NewUniswapDecoder(resolver, verifier, nftManager, logger)
	if err != nil {
		return nil, err
	}
	golembase, err := NewGolemBaseDecoder(logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		deleter:        cfg.Deleter,
		aave:           aave,
		uniswap:        uniswap,
		golembase:      golembase,
		aaveChains:     chainSet(cfg.AaveChains),
		uniswapChains:  chainSet(cfg.UniswapChains),
		golemBaseChain: cfg.GolemBaseChain,
		logger:         logger,
	}, nil
}

// Run processes one raw log batch. The rewrite delete, when requested,
// executes once upfront against the batch's transaction set so the decode
// pass yields a complete, non-duplicated replacement. Per-log failures
// degrade gracefully and never abort the remaining logs.
func (p *Pipeline) Run(ctx context.Context, logs []model.LogRecord, opts Options) ([]model.TransactionAction, error) {
	if opts.Rewrite {
		if p.deleter == nil {
			return nil, fmt.Errorf("rewrite requested without a store")
		}
		hashes := TxHashes(logs)
		if err := p.deleter.DeleteActions(ctx, hashes, protocolNames(opts.RewriteProtocols)); err != nil {
			return nil, fmt.Errorf("rewrite delete: %w", err)
		}
	}

	var out []model.TransactionAction

	if p.enabled(opts, model.ProtocolAave) && p.gated(p.aaveChains, opts.ChainID) {
		for _, group := range GroupByTransaction(logs, p.aave.TopicFilter()) {
			out = append(out, p.aave.DecodeTransaction(ctx, opts.ChainID, group)...)
		}
	}

	if p.enabled(opts, model.ProtocolUniswapV3) && p.gated(p.uniswapChains, opts.ChainID) {
		groups := GroupByTransaction(logs, p.uniswap.TopicFilter())
		legitimate := p.uniswap.VerifyPools(ctx, groups)
		for _, group := range groups {
			out = append(out, p.uniswap.DecodeTransaction(ctx, group, legitimate)...)
		}
	}

	if p.enabled(opts, model.ProtocolGolemBase) && opts.ChainID == p.golemBaseChain && p.golemBaseChain != 0 {
		for _, group := range GroupByTransaction(logs, p.golembase.TopicFilter()) {
			out = append(out, p.golembase.DecodeTransaction(group)...)
		}
	}

	return out, nil
}

func (p *Pipeline) enabled(opts Options, proto model.Protocol) bool {
	if len(opts.Protocols) == 0 {
		return true
	}
	for _, candidate := range opts.Protocols {
		if candidate == proto {
			return true
		}
	}
	return false
}

func (p *Pipeline) gated(chains map[uint64]struct{}, chainID uint64) bool {
	if len(chains) == 0 {
		return true
	}
	_, ok := chains[chainID]
	return ok
}

func chainSet(ids []uint64) map[uint64]struct{} {
	out := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func protocolNames(protocols []model.Protocol) []string {
	out := make([]string, 0, len(protocols))
	for _, proto := range protocols {
		out = append(out, string(proto))
	}
	return out
}
