package actions

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"actionScope/internal/model"
)

// GolemBaseDecoder maps storage-ledger entity events to actions. Entity keys
// are full 32-byte identifiers and are re-emitted as-is, not truncated to
// address width. No token or pool resolution is involved.
type GolemBaseDecoder struct {
	logger      *zap.Logger
	topicToName map[string]string
}

func NewGolemBaseDecoder(logger *zap.Logger) (*GolemBaseDecoder, error) {
	ledgerABI, err := GolemBaseABI()
	if err != nil {
		return nil, fmt.Errorf("parse golembase abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	topicToName := make(map[string]string, len(ledgerABI.Events))
	for name, event := range ledgerABI.Events {
		topicToName[strings.ToLower(event.ID.Hex())] = name
	}

	return &GolemBaseDecoder{logger: logger, topicToName: topicToName}, nil
}

// TopicFilter returns the routing allow-list for entity events. The decoder
// is gated by chain id, not by emitting contract, so any address matches.
func (d *GolemBaseDecoder) TopicFilter() TopicFilter {
	filter := make(TopicFilter, len(d.topicToName))
	for topic0 := range d.topicToName {
		filter[topic0] = ""
	}
	return filter
}

// DecodeTransaction produces the storage-ledger actions of one transaction.
func (d *GolemBaseDecoder) DecodeTransaction(group TxGroup) []model.TransactionAction {
	var actions []model.TransactionAction
	for _, log := range group.Logs {
		name, ok := d.topicToName[strings.ToLower(log.Topic0())]
		if !ok {
			continue
		}
		if action, ok := d.decodeEvent(name, log); ok {
			actions = append(actions, action)
		}
	}
	return actions
}

func (d *GolemBaseDecoder) decodeEvent(name string, log model.LogRecord) (model.TransactionAction, bool) {
	entityKey := log.Topic(1)
	if entityKey == "" {
		return model.TransactionAction{}, false
	}

	data := map[string]interface{}{
		"entity_id":    entityKey,
		"block_number": log.BlockNumber,
	}

	var actionType string
	switch name {
	case "GolemBaseStorageEntityCreated":
		actionType = model.ActionEntityCreated
		values, ok := d.unpackEvent(name, log, 1)
		if !ok {
			return model.TransactionAction{}, false
		}
		data["expiration_block"] = bigString(values[0])
	case "GolemBaseStorageEntityUpdated":
		actionType = model.ActionEntityUpdated
		values, ok := d.unpackEvent(name, log, 1)
		if !ok {
			return model.TransactionAction{}, false
		}
		data["new_expiration_block"] = bigString(values[0])
	case "GolemBaseStorageEntityDeleted":
		actionType = model.ActionEntityDeleted
	case "GolemBaseStorageEntityBTLExtended":
		actionType = model.ActionEntityTTLExtended
		values, ok := d.unpackEvent(name, log, 2)
		if !ok {
			return model.TransactionAction{}, false
		}
		data["old_expiration_block"] = bigString(values[0])
		data["new_expiration_block"] = bigString(values[1])
	default:
		return model.TransactionAction{}, false
	}

	return model.TransactionAction{
		Protocol: model.ProtocolGolemBase,
		Type:     actionType,
		Data:     data,
		TxHash:   log.TxHash,
		LogIndex: log.LogIndex,
	}, true
}

func (d *GolemBaseDecoder) unpackEvent(name string, log model.LogRecord, want int) ([]interface{}, bool) {
	ledgerABI, err := GolemBaseABI()
	if err != nil {
		return nil, false
	}

	raw, err := hexutil.Decode(log.Data)
	if err != nil {
		d.logger.Error("invalid entity event data",
			zap.String("event", name),
			zap.String("tx_hash", log.TxHash),
			zap.Uint64("log_index", log.LogIndex),
			zap.Error(err),
		)
		return nil, false
	}
	values, err := ledgerABI.Events[name].Inputs.NonIndexed().Unpack(raw)
	if err != nil || len(values) != want {
		d.logger.Error("unpack entity event",
			zap.String("event", name),
			zap.String("tx_hash", log.TxHash),
			zap.Uint64("log_index", log.LogIndex),
			zap.Error(err),
		)
		return nil, false
	}
	return values, true
}

func bigString(value interface{}) string {
	if v, ok := value.(*big.Int); ok && v != nil {
		return v.String()
	}
	return "0"
}
