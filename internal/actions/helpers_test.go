package actions

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"actionScope/internal/chain"
	"actionScope/internal/model"
)

// fakeCaller answers batched contract calls from a respond function and
// counts batch round-trips.
type fakeCaller struct {
	respond func(req chain.CallRequest) chain.CallResult
	batches int
	calls   int
}

func (f *fakeCaller) BatchCall(_ context.Context, reqs []chain.CallRequest) ([]chain.CallResult, error) {
	f.batches++
	f.calls += len(reqs)
	out := make([]chain.CallResult, len(reqs))
	for i, req := range reqs {
		out[i] = f.respond(req)
	}
	return out, nil
}

// fakeTokenStore serves canned token metadata and records lookups.
type fakeTokenStore struct {
	tokens  map[string]model.TokenMeta
	lookups int
}

func (f *fakeTokenStore) TokenMetadata(_ context.Context, addresses []string) (map[string]model.TokenMeta, error) {
	f.lookups++
	out := make(map[string]model.TokenMeta)
	for _, address := range addresses {
		if meta, ok := f.tokens[strings.ToLower(address)]; ok {
			out[strings.ToLower(address)] = meta
		}
	}
	return out, nil
}

func topicFromAddress(address common.Address) string {
	return common.BytesToHash(address.Bytes()).Hex()
}

func topicFromBig(value *big.Int) string {
	return common.BigToHash(value).Hex()
}

func buildLog(t *testing.T, address common.Address, event abi.Event, topics []string, values ...interface{}) model.LogRecord {
	t.Helper()
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", event.Name, err)
	}
	allTopics := append([]string{event.ID.Hex()}, topics...)
	return model.LogRecord{
		BlockNumber: 1234,
		TxHash:      "0x" + strings.Repeat("ab", 32),
		LogIndex:    0,
		Address:     address.Hex(),
		Topics:      allTopics,
		Data:        hexutil.Encode(data),
	}
}

func selectorOf(t *testing.T, parsed abi.ABI, method string) string {
	t.Helper()
	data, err := parsed.Pack(method)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	return hexutil.Encode(data[:4])
}

func packStringOutput(t *testing.T, value string) []byte {
	t.Helper()
	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		t.Fatalf("erc20 abi: %v", err)
	}
	out, err := stringABI.Methods["symbol"].Outputs.Pack(value)
	if err != nil {
		t.Fatalf("pack string output: %v", err)
	}
	return out
}

func packUintOutput(value uint64) []byte {
	return common.BigToHash(new(big.Int).SetUint64(value)).Bytes()
}

func packAddressOutput(address common.Address) []byte {
	return common.BytesToHash(address.Bytes()).Bytes()
}

func resolverWithTokens(metas ...model.TokenMeta) *TokenResolver {
	cache := NewTokenMetaCache(nil)
	for _, meta := range metas {
		cache.Set(context.Background(), meta)
	}
	return NewTokenResolver(cache, nil, nil, nil)
}
