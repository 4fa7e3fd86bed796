package actions

import (
	"bytes"
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"actionScope/internal/chain"
	"actionScope/internal/model"
)

// TokenStore is the persistent-store tier of token metadata resolution.
type TokenStore interface {
	TokenMetadata(ctx context.Context, addresses []string) (map[string]model.TokenMeta, error)
}

// TokenResolver resolves {symbol, decimals} per token address through three
// tiers: in-memory/Redis cache, persistent store, batched contract calls.
type TokenResolver struct {
	cache  *TokenMetaCache
	store  TokenStore
	caller chain.ContractCaller
	logger *zap.Logger
}

// NewTokenResolver builds a resolver. store and caller may be nil; a nil tier
// is skipped.
func NewTokenResolver(cache *TokenMetaCache, store TokenStore, caller chain.ContractCaller, logger *zap.Logger) *TokenResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewTokenMetaCache(nil)
	}
	return &TokenResolver{cache: cache, store: store, caller: caller, logger: logger}
}

// Resolve returns fully resolved metadata for every requested address, keyed
// by lower-cased address. The result is all-or-nothing: if any address still
// lacks a non-empty symbol or valid decimals after all tiers, ok is false and
// the caller must drop the in-progress action rather than emit partial data.
func (r *TokenResolver) Resolve(ctx context.Context, addresses []string) (map[string]model.TokenMeta, bool) {
	result := make(map[string]model.TokenMeta, len(addresses))
	pending := make([]string, 0, len(addresses))

	for _, address := range addresses {
		key := strings.ToLower(address)
		if _, ok := result[key]; ok {
			continue
		}
		meta, ok := r.cache.Get(ctx, key)
		if ok && meta.Resolved() {
			result[key] = meta
			continue
		}
		if !ok {
			meta = model.TokenMeta{Address: key}
		}
		result[key] = meta
		pending = append(pending, key)
	}

	pending = r.lookupStore(ctx, pending, result)

	if len(pending) > 0 && r.caller != nil {
		r.fetchRemote(ctx, pending, result)
	}

	for key, meta := range result {
		if !meta.Resolved() {
			r.logger.Warn("token metadata unresolved", zap.String("token", key))
			return nil, false
		}
	}
	return result, true
}

// lookupStore fills gaps from the persistent store, preferring store values
// over stale cache values, and returns the addresses still unresolved.
func (r *TokenResolver) lookupStore(ctx context.Context, pending []string, result map[string]model.TokenMeta) []string {
	if len(pending) == 0 {
		return pending
	}
	if r.store == nil {
		return pending
	}

	stored, err := r.store.TokenMetadata(ctx, pending)
	if err != nil {
		r.logger.Warn("token store lookup failed", zap.Strings("tokens", pending), zap.Error(err))
		return pending
	}

	remaining := make([]string, 0, len(pending))
	for _, key := range pending {
		if fromStore, ok := stored[key]; ok {
			merged := fromStore.Merge(result[key])
			merged.Address = key
			result[key] = merged
			r.cache.Set(ctx, merged)
		}
		if !result[key].Resolved() {
			remaining = append(remaining, key)
		}
	}
	return remaining
}

type tokenCall struct {
	address string
	method  string
}

// fetchRemote issues one batched multicall for every missing (address, field)
// pair. Individual call failures leave that field unresolved without aborting
// the batch; a systemic batch failure leaves everything unresolved.
func (r *TokenResolver) fetchRemote(ctx context.Context, pending []string, result map[string]model.TokenMeta) {
	erc20, err := erc20ABIStringInstance()
	if err != nil {
		r.logger.Error("parse erc20 abi", zap.Error(err))
		return
	}
	symbolData, err := erc20.Pack("symbol")
	if err != nil {
		r.logger.Error("pack symbol", zap.Error(err))
		return
	}
	decimalsData, err := erc20.Pack("decimals")
	if err != nil {
		r.logger.Error("pack decimals", zap.Error(err))
		return
	}

	reqs := make([]chain.CallRequest, 0, 2*len(pending))
	calls := make([]tokenCall, 0, 2*len(pending))
	for _, key := range pending {
		meta := result[key]
		to := common.HexToAddress(key)
		if meta.Symbol == "" {
			reqs = append(reqs, chain.CallRequest{To: to, Data: symbolData})
			calls = append(calls, tokenCall{address: key, method: "symbol"})
		}
		if !meta.HasDecimals {
			reqs = append(reqs, chain.CallRequest{To: to, Data: decimalsData})
			calls = append(calls, tokenCall{address: key, method: "decimals"})
		}
	}
	if len(reqs) == 0 {
		return
	}

	results, err := r.caller.BatchCall(ctx, reqs)
	if err != nil || len(results) != len(reqs) {
		r.logger.Error("token multicall failed",
			zap.Int("requests", len(reqs)),
			zap.Int("responses", len(results)),
			zap.Error(err),
		)
		return
	}

	var failed []string
	for i, res := range results {
		call := calls[i]
		meta := result[call.address]
		if res.Err != nil {
			failed = append(failed, call.address+"/"+call.method)
			continue
		}
		switch call.method {
		case "symbol":
			if symbol, ok := decodeSymbolOutput(res.Output); ok && symbol != "" {
				meta.Symbol = symbol
			} else {
				failed = append(failed, call.address+"/symbol")
			}
		case "decimals":
			if value := new(big.Int).SetBytes(res.Output); len(res.Output) > 0 && value.IsUint64() {
				meta.Decimals = value.Uint64()
				meta.HasDecimals = true
			} else {
				failed = append(failed, call.address+"/decimals")
			}
		}
		result[call.address] = meta
	}
	if len(failed) > 0 {
		r.logger.Warn("token metadata calls unresolved", zap.Strings("calls", failed))
	}

	// Partially resolved records are cached too; the remaining gaps get
	// re-checked on the next resolution need.
	for _, key := range pending {
		r.cache.Set(ctx, result[key])
	}
}

// decodeSymbolOutput decodes a symbol() return value, accepting both the
// standard string encoding and the legacy bytes32 variant.
func decodeSymbolOutput(output []byte) (string, bool) {
	if len(output) == 0 {
		return "", false
	}

	if stringABI, err := erc20ABIStringInstance(); err == nil {
		if values, err := stringABI.Unpack("symbol", output); err == nil && len(values) == 1 {
			if symbol, ok := values[0].(string); ok {
				return strings.TrimSpace(symbol), true
			}
		}
	}
	if bytes32ABI, err := erc20ABIBytes32Instance(); err == nil {
		if values, err := bytes32ABI.Unpack("symbol", output); err == nil && len(values) == 1 {
			if raw, ok := values[0].([32]byte); ok {
				return string(bytes.TrimRight(raw[:], "\x00")), true
			}
		}
	}
	return "", false
}
