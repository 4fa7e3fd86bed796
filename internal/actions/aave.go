package actions

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"actionScope/internal/model"
)

// AaveDecoder maps filtered lending-pool logs to lending actions.
type AaveDecoder struct {
	resolver    *TokenResolver
	poolAddress string
	etherChains map[uint64]struct{}
	logger      *zap.Logger
	topicToName map[string]string
}

// NewAaveDecoder builds the lending decoder. poolAddress optionally restricts
// routing to one pool contract; etherChains lists the chain ids on which a
// WETH symbol is rendered as "Ether".
func NewAaveDecoder(resolver *TokenResolver, poolAddress string, etherChains []uint64, logger *zap.Logger) (*AaveDecoder, error) {
	poolABI, err := AavePoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse aave abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	topicToName := make(map[string]string, len(poolABI.Events))
	for name, event := range poolABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	chains := make(map[uint64]struct{}, len(etherChains))
	for _, id := range etherChains {
		chains[id] = struct{}{}
	}

	return &AaveDecoder{
		resolver:    resolver,
		poolAddress: strings.ToLower(poolAddress),
		etherChains: chains,
		logger:      logger,
		topicToName: topicToName,
	}, nil
}

// TopicFilter returns the routing allow-list for lending events.
func (d *AaveDecoder) TopicFilter() TopicFilter {
	filter := make(TopicFilter, len(d.topicToName))
	for topic0 := range d.topicToName {
		filter[topic0] = d.poolAddress
	}
	return filter
}

// DecodeTransaction produces the lending actions of one transaction. Logs
// whose token metadata cannot be resolved are skipped silently.
func (d *AaveDecoder) DecodeTransaction(ctx context.Context, chainID uint64, group TxGroup) []model.TransactionAction {
	var actions []model.TransactionAction
	for _, log := range group.Logs {
		name, ok := d.topicToName[strings.ToLower(log.Topic0())]
		if !ok {
			continue
		}
		if action, ok := d.decodeEvent(ctx, chainID, name, log); ok {
			actions = append(actions, action)
		}
	}
	return actions
}

func (d *AaveDecoder) decodeEvent(ctx context.Context, chainID uint64, name string, log model.LogRecord) (model.TransactionAction, bool) {
	switch name {
	case "Borrow":
		return d.amountAction(ctx, chainID, log, model.ActionBorrow, 3)
	case "Supply":
		return d.amountAction(ctx, chainID, log, model.ActionSupply, 1)
	case "Withdraw":
		return d.amountAction(ctx, chainID, log, model.ActionWithdraw, 0)
	case "Repay":
		return d.amountAction(ctx, chainID, log, model.ActionRepay, 1)
	case "FlashLoan":
		return d.flashLoanAction(ctx, chainID, log)
	case "ReserveUsedAsCollateralEnabled":
		return d.collateralAction(ctx, chainID, log, model.ActionEnableCollateral)
	case "ReserveUsedAsCollateralDisabled":
		return d.collateralAction(ctx, chainID, log, model.ActionDisableCollateral)
	case "LiquidationCall":
		return d.liquidationAction(ctx, chainID, log)
	default:
		return model.TransactionAction{}, false
	}
}

// amountAction handles the events carrying a single reserve (second topic)
// and a uint256 amount somewhere in the data payload; extraFields is the
// number of decoded values besides the amount, which always sits right after
// any leading address field.
func (d *AaveDecoder) amountAction(ctx context.Context, chainID uint64, log model.LogRecord, actionType string, extraFields int) (model.TransactionAction, bool) {
	values, ok := d.unpackEvent(log)
	if !ok {
		return model.TransactionAction{}, false
	}
	if len(values) != extraFields+1 {
		d.logger.Error("unexpected lending event layout",
			zap.String("type", actionType),
			zap.String("tx_hash", log.TxHash),
			zap.Uint64("log_index", log.LogIndex),
			zap.Int("values", len(values)),
		)
		return model.TransactionAction{}, false
	}

	var amount *big.Int
	switch actionType {
	case model.ActionBorrow, model.ActionSupply:
		// user precedes the amount
		amount, _ = values[1].(*big.Int)
	default:
		amount, _ = values[0].(*big.Int)
	}
	if amount == nil {
		return model.TransactionAction{}, false
	}

	reserve := lowerAddress(addressFromTopic(log.Topic(1)))
	meta, ok := d.resolveOne(ctx, reserve)
	if !ok {
		return model.TransactionAction{}, false
	}

	return model.TransactionAction{
		Protocol: model.ProtocolAave,
		Type:     actionType,
		Data: map[string]interface{}{
			"amount":       NormalizeAmount(amount, meta.Decimals),
			"symbol":       d.displaySymbol(chainID, meta.Symbol),
			"address":      reserve,
			"block_number": log.BlockNumber,
		},
		TxHash:   log.TxHash,
		LogIndex: log.LogIndex,
	}, true
}

func (d *AaveDecoder) flashLoanAction(ctx context.Context, chainID uint64, log model.LogRecord) (model.TransactionAction, bool) {
	values, ok := d.unpackEvent(log)
	if !ok || len(values) != 4 {
		return model.TransactionAction{}, false
	}
	// values: initiator, amount, interestRateMode, premium
	amount, _ := values[1].(*big.Int)
	if amount == nil {
		return model.TransactionAction{}, false
	}

	asset := lowerAddress(addressFromTopic(log.Topic(2)))
	meta, ok := d.resolveOne(ctx, asset)
	if !ok {
		return model.TransactionAction{}, false
	}

	return model.TransactionAction{
		Protocol: model.ProtocolAave,
		Type:     model.ActionFlashLoan,
		Data: map[string]interface{}{
			"amount":       NormalizeAmount(amount, meta.Decimals),
			"symbol":       d.displaySymbol(chainID, meta.Symbol),
			"address":      asset,
			"block_number": log.BlockNumber,
		},
		TxHash:   log.TxHash,
		LogIndex: log.LogIndex,
	}, true
}

func (d *AaveDecoder) collateralAction(ctx context.Context, chainID uint64, log model.LogRecord, actionType string) (model.TransactionAction, bool) {
	reserve := lowerAddress(addressFromTopic(log.Topic(1)))
	meta, ok := d.resolveOne(ctx, reserve)
	if !ok {
		return model.TransactionAction{}, false
	}

	return model.TransactionAction{
		Protocol: model.ProtocolAave,
		Type:     actionType,
		Data: map[string]interface{}{
			"symbol":       d.displaySymbol(chainID, meta.Symbol),
			"address":      reserve,
			"block_number": log.BlockNumber,
		},
		TxHash:   log.TxHash,
		LogIndex: log.LogIndex,
	}, true
}

func (d *AaveDecoder) liquidationAction(ctx context.Context, chainID uint64, log model.LogRecord) (model.TransactionAction, bool) {
	values, ok := d.unpackEvent(log)
	if !ok || len(values) != 4 {
		return model.TransactionAction{}, false
	}
	// values: debtToCover, liquidatedCollateralAmount, liquidator, receiveAToken
	debtToCover, _ := values[0].(*big.Int)
	liquidatedCollateral, _ := values[1].(*big.Int)
	if debtToCover == nil || liquidatedCollateral == nil {
		return model.TransactionAction{}, false
	}

	collateral := lowerAddress(addressFromTopic(log.Topic(1)))
	debt := lowerAddress(addressFromTopic(log.Topic(2)))
	metas, ok := d.resolver.Resolve(ctx, []string{collateral, debt})
	if !ok {
		return model.TransactionAction{}, false
	}
	collateralMeta := metas[collateral]
	debtMeta := metas[debt]

	return model.TransactionAction{
		Protocol: model.ProtocolAave,
		Type:     model.ActionLiquidationCall,
		Data: map[string]interface{}{
			"debt_amount":        NormalizeAmount(debtToCover, debtMeta.Decimals),
			"debt_symbol":        d.displaySymbol(chainID, debtMeta.Symbol),
			"debt_address":       debt,
			"collateral_amount":  NormalizeAmount(liquidatedCollateral, collateralMeta.Decimals),
			"collateral_symbol":  d.displaySymbol(chainID, collateralMeta.Symbol),
			"collateral_address": collateral,
			"block_number":       log.BlockNumber,
		},
		TxHash:   log.TxHash,
		LogIndex: log.LogIndex,
	}, true
}

func (d *AaveDecoder) unpackEvent(log model.LogRecord) ([]interface{}, bool) {
	poolABI, err := AavePoolABI()
	if err != nil {
		return nil, false
	}
	name, ok := d.topicToName[strings.ToLower(log.Topic0())]
	if !ok {
		return nil, false
	}
	event := poolABI.Events[name]

	data, err := hexutil.Decode(log.Data)
	if err != nil {
		d.logger.Error("invalid lending event data",
			zap.String("event", name),
			zap.String("tx_hash", log.TxHash),
			zap.Uint64("log_index", log.LogIndex),
			zap.Error(err),
		)
		return nil, false
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		d.logger.Error("unpack lending event",
			zap.String("event", name),
			zap.String("tx_hash", log.TxHash),
			zap.Uint64("log_index", log.LogIndex),
			zap.Error(err),
		)
		return nil, false
	}
	return values, true
}

func (d *AaveDecoder) resolveOne(ctx context.Context, address string) (model.TokenMeta, bool) {
	metas, ok := d.resolver.Resolve(ctx, []string{address})
	if !ok {
		return model.TokenMeta{}, false
	}
	return metas[address], true
}

// displaySymbol applies the chain-specific cosmetic override rendering a
// wrapped-ether symbol as "Ether".
func (d *AaveDecoder) displaySymbol(chainID uint64, symbol string) string {
	if _, ok := d.etherChains[chainID]; ok && strings.EqualFold(symbol, "WETH") {
		return "Ether"
	}
	return symbol
}
