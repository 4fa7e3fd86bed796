package actions

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"actionScope/internal/chain"
)

// PoolVerifier decides, per AMM pool contract address observed in logs,
// whether the contract is a genuine pool deployed by the canonical factory
// for its claimed token pair and fee tier. Spoofed contracts emitting
// look-alike events fail the factory lookup and are recorded as illegitimate.
type PoolVerifier struct {
	cache   *PoolPairCache
	caller  chain.ContractCaller
	factory common.Address
	logger  *zap.Logger
}

// NewPoolVerifier builds a verifier against the given factory address.
func NewPoolVerifier(cache *PoolPairCache, caller chain.ContractCaller, factory string, logger *zap.Logger) *PoolVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = NewPoolPairCache(nil)
	}
	return &PoolVerifier{
		cache:   cache,
		caller:  caller,
		factory: common.HexToAddress(factory),
		logger:  logger,
	}
}

type poolProbe struct {
	address string
	token0  common.Address
	token1  common.Address
}

// Verify resolves legitimacy for every distinct pool address, merging fresh
// results with previously cached ones. The returned map holds, per
// lower-cased pool address, either the factory-canonical [token0, token1]
// pair or an empty slice for illegitimate/unverifiable pools.
func (v *PoolVerifier) Verify(ctx context.Context, pools []string) map[string][]string {
	out := make(map[string][]string, len(pools))
	need := make([]string, 0, len(pools))

	for _, pool := range pools {
		key := strings.ToLower(pool)
		if _, ok := out[key]; ok {
			continue
		}
		if pair, ok := v.cache.Get(ctx, key); ok {
			out[key] = pair
			continue
		}
		out[key] = nil
		need = append(need, key)
	}
	if len(need) == 0 || v.caller == nil {
		return out
	}

	poolABI, err := UniswapPoolABI()
	if err != nil {
		v.logger.Error("parse pool abi", zap.Error(err))
		return out
	}
	factoryABI, err := UniswapFactoryABI()
	if err != nil {
		v.logger.Error("parse factory abi", zap.Error(err))
		return out
	}

	getters := []string{"token0", "token1", "fee"}
	getterData := make([][]byte, len(getters))
	for i, method := range getters {
		data, err := poolABI.Pack(method)
		if err != nil {
			v.logger.Error("pack pool getter", zap.String("method", method), zap.Error(err))
			return out
		}
		getterData[i] = data
	}

	reqs := make([]chain.CallRequest, 0, len(need)*len(getters))
	for _, key := range need {
		to := common.HexToAddress(key)
		for _, data := range getterData {
			reqs = append(reqs, chain.CallRequest{To: to, Data: data})
		}
	}

	results, err := v.caller.BatchCall(ctx, reqs)
	if err != nil || len(results) != len(reqs) {
		v.logger.Error("pool multicall failed",
			zap.Int("requests", len(reqs)),
			zap.Int("responses", len(results)),
			zap.Error(err),
		)
		return out
	}

	// Pools whose getters failed are presumed not genuine rather than
	// retried: they are cached as illegitimate immediately.
	var unreadable []string
	probes := make([]poolProbe, 0, len(need))
	factoryReqs := make([]chain.CallRequest, 0, len(need))
	for i, key := range need {
		res0 := results[i*len(getters)]
		res1 := results[i*len(getters)+1]
		resFee := results[i*len(getters)+2]
		if res0.Err != nil || res1.Err != nil || resFee.Err != nil {
			unreadable = append(unreadable, key)
			v.cache.Set(ctx, key, []string{})
			out[key] = []string{}
			continue
		}

		token0 := addressFromOutput(res0.Output)
		token1 := addressFromOutput(res1.Output)
		// An empty fee() response is read as fee tier 0 rather than a
		// failed read.
		fee := new(big.Int)
		if len(resFee.Output) > 0 {
			fee.SetBytes(resFee.Output)
		}

		data, err := factoryABI.Pack("getPool", token0, token1, fee)
		if err != nil {
			v.logger.Error("pack getPool", zap.String("pool", key), zap.Error(err))
			v.cache.Set(ctx, key, []string{})
			out[key] = []string{}
			continue
		}
		probes = append(probes, poolProbe{address: key, token0: token0, token1: token1})
		factoryReqs = append(factoryReqs, chain.CallRequest{To: v.factory, Data: data})
	}
	if len(unreadable) > 0 {
		v.logger.Warn("pools with unreadable getters marked illegitimate", zap.Strings("pools", unreadable))
	}
	if len(factoryReqs) == 0 {
		return out
	}

	factoryResults, err := v.caller.BatchCall(ctx, factoryReqs)
	if err != nil || len(factoryResults) != len(factoryReqs) {
		v.logger.Error("factory multicall failed",
			zap.Int("requests", len(factoryReqs)),
			zap.Int("responses", len(factoryResults)),
			zap.Error(err),
		)
		return out
	}

	for i, probe := range probes {
		pair := []string{}
		res := factoryResults[i]
		if res.Err == nil {
			computed := addressFromOutput(res.Output)
			if strings.EqualFold(computed.Hex(), probe.address) {
				pair = []string{lowerAddress(probe.token0), lowerAddress(probe.token1)}
			}
		}
		v.cache.Set(ctx, probe.address, pair)
		out[probe.address] = pair
	}
	return out
}
