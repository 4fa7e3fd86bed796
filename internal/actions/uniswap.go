package actions

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"actionScope/internal/model"
)

// UniswapDecoder maps filtered pool and position-NFT logs to AMM actions.
// Pool events are gated on factory-verified legitimacy; NFT mints are
// aggregated per recipient across the transaction.
type UniswapDecoder struct {
	resolver    *TokenResolver
	verifier    *PoolVerifier
	nftManager  common.Address
	logger      *zap.Logger
	topicToName map[string]string
	transferID  string
}

// NewUniswapDecoder builds the AMM decoder. nftManager is the positions-NFT
// contract whose Transfer events are aggregated into mint_nft actions.
func NewUniswapDecoder(resolver *TokenResolver, verifier *PoolVerifier, nftManager string, logger *zap.Logger) (*UniswapDecoder, error) {
	poolABI, err := UniswapPoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	topicToName := map[string]string{
		strings.ToLower(poolABI.Events["Mint"].ID.Hex()):    "Mint",
		strings.ToLower(poolABI.Events["Burn"].ID.Hex()):    "Burn",
		strings.ToLower(poolABI.Events["Collect"].ID.Hex()): "Collect",
		strings.ToLower(poolABI.Events["Swap"].ID.Hex()):    "Swap",
	}

	return &UniswapDecoder{
		resolver:    resolver,
		verifier:    verifier,
		nftManager:  common.HexToAddress(nftManager),
		logger:      logger,
		topicToName: topicToName,
		transferID:  strings.ToLower(poolABI.Events["Transfer"].ID.Hex()),
	}, nil
}

// TopicFilter returns the routing allow-list: pool events from any emitter,
// Transfer events only from the positions-NFT contract.
func (d *UniswapDecoder) TopicFilter() TopicFilter {
	filter := make(TopicFilter, len(d.topicToName)+1)
	for topic0 := range d.topicToName {
		filter[topic0] = ""
	}
	filter[d.transferID] = lowerAddress(d.nftManager)
	return filter
}

// PoolAddresses collects the distinct pool addresses emitting non-transfer
// events across all groups, in encounter order.
func (d *UniswapDecoder) PoolAddresses(groups []TxGroup) []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range groups {
		for _, log := range group.Logs {
			topic0 := strings.ToLower(log.Topic0())
			if topic0 == d.transferID {
				continue
			}
			if _, ok := d.topicToName[topic0]; !ok {
				continue
			}
			key := strings.ToLower(log.Address)
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	return out
}

// VerifyPools resolves pool legitimacy for the whole batch in one pass.
func (d *UniswapDecoder) VerifyPools(ctx context.Context, groups []TxGroup) map[string][]string {
	if d.verifier == nil {
		return nil
	}
	return d.verifier.Verify(ctx, d.PoolAddresses(groups))
}

// DecodeTransaction produces the AMM actions of one transaction: aggregated
// mint_nft actions first, then one action per legitimate pool event.
func (d *UniswapDecoder) DecodeTransaction(ctx context.Context, group TxGroup, legitimate map[string][]string) []model.TransactionAction {
	actions := d.decodeNFTMints(group)

	for _, log := range group.Logs {
		topic0 := strings.ToLower(log.Topic0())
		if topic0 == d.transferID {
			continue
		}
		name, ok := d.topicToName[topic0]
		if !ok {
			continue
		}

		pair := legitimate[strings.ToLower(log.Address)]
		if len(pair) != 2 {
			continue
		}
		metas, ok := d.resolver.Resolve(ctx, pair)
		if !ok {
			continue
		}
		token0 := metas[pair[0]]
		token1 := metas[pair[1]]

		if action, ok := d.decodePoolEvent(log, name, token0, token1); ok {
			actions = append(actions, action)
		}
	}
	return actions
}

type nftMintGroup struct {
	to          string
	ids         []string
	logIndex    uint64
	blockNumber uint64
}

// decodeNFTMints aggregates Transfer-of-NFT events whose sender is the burn
// address into one mint_nft action per recipient, carrying every token id
// minted to that recipient within the transaction.
func (d *UniswapDecoder) decodeNFTMints(group TxGroup) []model.TransactionAction {
	var order []string
	byRecipient := make(map[string]*nftMintGroup)

	for _, log := range group.Logs {
		if strings.ToLower(log.Topic0()) != d.transferID {
			continue
		}
		if !strings.EqualFold(log.Address, d.nftManager.Hex()) {
			continue
		}
		if addressFromTopic(log.Topic(1)) != BurnAddress {
			continue
		}
		idTopic := log.Topic(3)
		if idTopic == "" {
			continue
		}
		raw, err := hexutil.Decode(idTopic)
		if err != nil {
			d.logger.Warn("invalid nft token id topic",
				zap.String("tx_hash", log.TxHash),
				zap.Uint64("log_index", log.LogIndex),
				zap.String("topic", idTopic),
			)
			continue
		}
		tokenID := new(big.Int).SetBytes(raw).String()

		to := lowerAddress(addressFromTopic(log.Topic(2)))
		entry, ok := byRecipient[to]
		if !ok {
			entry = &nftMintGroup{to: to, logIndex: log.LogIndex, blockNumber: log.BlockNumber}
			byRecipient[to] = entry
			order = append(order, to)
		}
		entry.ids = append(entry.ids, tokenID)
	}

	actions := make([]model.TransactionAction, 0, len(order))
	for _, to := range order {
		entry := byRecipient[to]
		actions = append(actions, model.TransactionAction{
			Protocol: model.ProtocolUniswapV3,
			Type:     model.ActionMintNFT,
			Data: map[string]interface{}{
				"name":         positionsNFTName,
				"symbol":       positionsNFTSymbol,
				"address":      lowerAddress(d.nftManager),
				"to":           entry.to,
				"ids":          entry.ids,
				"block_number": entry.blockNumber,
			},
			TxHash:   group.TxHash,
			LogIndex: entry.logIndex,
		})
	}
	return actions
}

func (d *UniswapDecoder) decodePoolEvent(log model.LogRecord, name string, token0, token1 model.TokenMeta) (model.TransactionAction, bool) {
	poolABI, err := UniswapPoolABI()
	if err != nil {
		return model.TransactionAction{}, false
	}
	event := poolABI.Events[name]

	data, err := hexutil.Decode(log.Data)
	if err != nil {
		d.logger.Error("invalid pool event data",
			zap.String("tx_hash", log.TxHash),
			zap.Uint64("log_index", log.LogIndex),
			zap.Error(err),
		)
		return model.TransactionAction{}, false
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		d.logger.Error("unpack pool event",
			zap.String("event", name),
			zap.String("tx_hash", log.TxHash),
			zap.Uint64("log_index", log.LogIndex),
			zap.Error(err),
		)
		return model.TransactionAction{}, false
	}

	var actionType string
	var amount0, amount1 *big.Int
	switch name {
	case "Mint":
		// values: sender, amount, amount0, amount1
		if len(values) != 4 {
			return model.TransactionAction{}, false
		}
		actionType = model.ActionMint
		amount0, _ = values[2].(*big.Int)
		amount1, _ = values[3].(*big.Int)
	case "Burn":
		// values: amount, amount0, amount1
		if len(values) != 3 {
			return model.TransactionAction{}, false
		}
		actionType = model.ActionBurn
		amount0, _ = values[1].(*big.Int)
		amount1, _ = values[2].(*big.Int)
	case "Collect":
		// values: recipient, amount0, amount1
		if len(values) != 3 {
			return model.TransactionAction{}, false
		}
		actionType = model.ActionCollect
		amount0, _ = values[1].(*big.Int)
		amount1, _ = values[2].(*big.Int)
	case "Swap":
		// values: amount0, amount1, sqrtPriceX96, liquidity, tick
		if len(values) != 5 {
			return model.TransactionAction{}, false
		}
		actionType = model.ActionSwap
		amount0, _ = values[0].(*big.Int)
		amount1, _ = values[1].(*big.Int)
	default:
		return model.TransactionAction{}, false
	}
	if amount0 == nil || amount1 == nil {
		return model.TransactionAction{}, false
	}

	side0 := swapSide{
		address: token0.Address,
		symbol:  token0.Symbol,
		amount:  NormalizeAmount(amount0, token0.Decimals),
	}
	side1 := swapSide{
		address: token1.Address,
		symbol:  token1.Symbol,
		amount:  NormalizeAmount(amount1, token1.Decimals),
	}

	if actionType == model.ActionSwap {
		in, out, err := orderSwapSides(amount0, amount1, side0, side1)
		if err != nil {
			d.logger.Error("inconsistent swap amounts",
				zap.String("tx_hash", log.TxHash),
				zap.Uint64("log_index", log.LogIndex),
				zap.String("amount0", amount0.String()),
				zap.String("amount1", amount1.String()),
			)
			return model.TransactionAction{}, false
		}
		side0, side1 = in, out
	}

	return model.TransactionAction{
		Protocol: model.ProtocolUniswapV3,
		Type:     actionType,
		Data: map[string]interface{}{
			"address0":     side0.address,
			"address1":     side1.address,
			"amount0":      side0.amount,
			"amount1":      side1.amount,
			"symbol0":      side0.symbol,
			"symbol1":      side1.symbol,
			"block_number": log.BlockNumber,
		},
		TxHash:   log.TxHash,
		LogIndex: log.LogIndex,
	}, true
}

type swapSide struct {
	address string
	symbol  string
	amount  string
}

// orderSwapSides reorders a swap's token sides so the inflow is reported
// first and the outflow second with its sign stripped. Exactly one side must
// be negative, or one side exactly zero with the other non-negative; any
// other sign combination is an error.
func orderSwapSides(amount0, amount1 *big.Int, side0, side1 swapSide) (swapSide, swapSide, error) {
	neg0 := amount0.Sign() < 0
	neg1 := amount1.Sign() < 0

	switch {
	case neg0 && !neg1:
		side0.amount = strings.TrimPrefix(side0.amount, "-")
		return side1, side0, nil
	case neg1 && !neg0:
		side1.amount = strings.TrimPrefix(side1.amount, "-")
		return side0, side1, nil
	case amount1.Sign() == 0 && !neg0:
		return side0, side1, nil
	case amount0.Sign() == 0 && !neg1:
		return side1, side0, nil
	default:
		return swapSide{}, swapSide{}, fmt.Errorf("unexpected sign combination: %s / %s", amount0, amount1)
	}
}
