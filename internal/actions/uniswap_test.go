package actions

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"actionScope/internal/model"
)

var (
	ammPool   = common.HexToAddress("0x00000000000000000000000000000000000000d0")
	ammToken0 = "0x00000000000000000000000000000000000000e0"
	ammToken1 = "0x00000000000000000000000000000000000000e1"
)

func ammDecoder(t *testing.T) *UniswapDecoder {
	t.Helper()
	resolver := resolverWithTokens(
		model.TokenMeta{Address: ammToken0, Symbol: "WETH", Decimals: 0, HasDecimals: true},
		model.TokenMeta{Address: ammToken1, Symbol: "USDC", Decimals: 0, HasDecimals: true},
	)
	decoder, err := NewUniswapDecoder(resolver, nil, DefaultUniswapPositionsNFT, nil)
	if err != nil {
		t.Fatal(err)
	}
	return decoder
}

func ammEvent(t *testing.T, name string) abi.Event {
	t.Helper()
	poolABI, err := UniswapPoolABI()
	if err != nil {
		t.Fatal(err)
	}
	return poolABI.Events[name]
}

func legitimatePair() map[string][]string {
	return map[string][]string{
		strings.ToLower(ammPool.Hex()): {ammToken0, ammToken1},
	}
}

func swapLog(t *testing.T, amount0, amount1 int64) model.LogRecord {
	sender := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000f2")
	return buildLog(t, ammPool, ammEvent(t, "Swap"),
		[]string{topicFromAddress(sender), topicFromAddress(recipient)},
		big.NewInt(amount0), big.NewInt(amount1), big.NewInt(1), big.NewInt(1), big.NewInt(0),
	)
}

func TestDecodeSwapOrdersSides(t *testing.T) {
	decoder := ammDecoder(t)
	log := swapLog(t, -500, 300)
	group := TxGroup{TxHash: log.TxHash, Logs: []model.LogRecord{log}}

	actions := decoder.DecodeTransaction(context.Background(), group, legitimatePair())
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	action := actions[0]
	if action.Type != model.ActionSwap || action.Protocol != model.ProtocolUniswapV3 {
		t.Fatalf("unexpected action %+v", action)
	}

	// Token1 flowed in (positive pool delta 300), token0 flowed out (-500).
	if action.Data["symbol0"] != "USDC" || action.Data["amount0"] != "300" {
		t.Errorf("inflow side wrong: %+v", action.Data)
	}
	if action.Data["symbol1"] != "WETH" || action.Data["amount1"] != "500" {
		t.Errorf("outflow side wrong: %+v", action.Data)
	}
	if action.Data["address0"] != ammToken1 || action.Data["address1"] != ammToken0 {
		t.Errorf("addresses wrong: %+v", action.Data)
	}
}

func TestDecodeSwapZeroSide(t *testing.T) {
	decoder := ammDecoder(t)
	log := swapLog(t, 500, 0)
	group := TxGroup{TxHash: log.TxHash, Logs: []model.LogRecord{log}}

	actions := decoder.DecodeTransaction(context.Background(), group, legitimatePair())
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	if actions[0].Data["amount0"] != "500" || actions[0].Data["amount1"] != "0" {
		t.Errorf("zero-outflow swap decoded wrong: %+v", actions[0].Data)
	}
}

func TestDecodeSwapInconsistentSigns(t *testing.T) {
	decoder := ammDecoder(t)
	log := swapLog(t, 500, 300)
	group := TxGroup{TxHash: log.TxHash, Logs: []model.LogRecord{log}}

	if actions := decoder.DecodeTransaction(context.Background(), group, legitimatePair()); len(actions) != 0 {
		t.Fatalf("two positive deltas must yield no action, got %+v", actions)
	}
}

func TestDecodeIllegitimatePoolSkipped(t *testing.T) {
	decoder := ammDecoder(t)
	log := swapLog(t, -500, 300)
	group := TxGroup{TxHash: log.TxHash, Logs: []model.LogRecord{log}}

	legit := map[string][]string{strings.ToLower(ammPool.Hex()): {}}
	if actions := decoder.DecodeTransaction(context.Background(), group, legit); len(actions) != 0 {
		t.Fatalf("illegitimate pool must be skipped, got %+v", actions)
	}
}

func TestDecodeMint(t *testing.T) {
	decoder := ammDecoder(t)
	owner := common.HexToAddress("0x00000000000000000000000000000000000000f3")
	log := buildLog(t, ammPool, ammEvent(t, "Mint"),
		[]string{topicFromAddress(owner), topicFromBig(big.NewInt(-100)), topicFromBig(big.NewInt(100))},
		common.HexToAddress("0x00000000000000000000000000000000000000f1"),
		big.NewInt(777), big.NewInt(11), big.NewInt(22),
	)
	group := TxGroup{TxHash: log.TxHash, Logs: []model.LogRecord{log}}

	actions := decoder.DecodeTransaction(context.Background(), group, legitimatePair())
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	action := actions[0]
	if action.Type != model.ActionMint {
		t.Fatalf("got type %s", action.Type)
	}
	if action.Data["amount0"] != "11" || action.Data["amount1"] != "22" {
		t.Errorf("amounts wrong: %+v", action.Data)
	}
	if action.Data["symbol0"] != "WETH" || action.Data["symbol1"] != "USDC" {
		t.Errorf("symbols wrong: %+v", action.Data)
	}
}

func TestDecodeNFTMintAggregation(t *testing.T) {
	decoder := ammDecoder(t)
	manager := common.HexToAddress(DefaultUniswapPositionsNFT)
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000f4")
	other := common.HexToAddress("0x00000000000000000000000000000000000000f5")
	transfer := ammEvent(t, "Transfer")

	mint1 := buildLog(t, manager, transfer, []string{
		topicFromAddress(BurnAddress), topicFromAddress(recipient), topicFromBig(big.NewInt(7)),
	})
	mint1.LogIndex = 5
	mint2 := buildLog(t, manager, transfer, []string{
		topicFromAddress(BurnAddress), topicFromAddress(recipient), topicFromBig(big.NewInt(9)),
	})
	mint2.LogIndex = 6
	// An ordinary transfer between holders is not a mint.
	moved := buildLog(t, manager, transfer, []string{
		topicFromAddress(other), topicFromAddress(recipient), topicFromBig(big.NewInt(11)),
	})
	moved.LogIndex = 7

	group := TxGroup{TxHash: mint1.TxHash, Logs: []model.LogRecord{mint1, mint2, moved}}
	actions := decoder.DecodeTransaction(context.Background(), group, nil)
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1 aggregated mint", len(actions))
	}

	action := actions[0]
	if action.Type != model.ActionMintNFT || action.LogIndex != 5 {
		t.Fatalf("unexpected action %+v", action)
	}
	ids, ok := action.Data["ids"].([]string)
	if !ok || len(ids) != 2 || ids[0] != "7" || ids[1] != "9" {
		t.Errorf("ids wrong: %v", action.Data["ids"])
	}
	if action.Data["name"] != "Uniswap V3: Positions NFT" || action.Data["symbol"] != "UNI-V3-POS" {
		t.Errorf("collection fields wrong: %+v", action.Data)
	}
	if action.Data["to"] != strings.ToLower(recipient.Hex()) {
		t.Errorf("recipient wrong: %+v", action.Data)
	}
}

func TestNFTMintsPerRecipient(t *testing.T) {
	decoder := ammDecoder(t)
	manager := common.HexToAddress(DefaultUniswapPositionsNFT)
	first := common.HexToAddress("0x00000000000000000000000000000000000000f6")
	second := common.HexToAddress("0x00000000000000000000000000000000000000f7")
	transfer := ammEvent(t, "Transfer")

	logA := buildLog(t, manager, transfer, []string{
		topicFromAddress(BurnAddress), topicFromAddress(first), topicFromBig(big.NewInt(1)),
	})
	logB := buildLog(t, manager, transfer, []string{
		topicFromAddress(BurnAddress), topicFromAddress(second), topicFromBig(big.NewInt(2)),
	})
	logB.LogIndex = 1

	group := TxGroup{TxHash: logA.TxHash, Logs: []model.LogRecord{logA, logB}}
	actions := decoder.DecodeTransaction(context.Background(), group, nil)
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want one per recipient", len(actions))
	}
	if actions[0].Data["to"] != strings.ToLower(first.Hex()) || actions[1].Data["to"] != strings.ToLower(second.Hex()) {
		t.Errorf("recipient order wrong: %+v", actions)
	}
}

func TestPoolAddressesDistinct(t *testing.T) {
	decoder := ammDecoder(t)
	logA := swapLog(t, -1, 1)
	logB := swapLog(t, -2, 2)
	groups := []TxGroup{{TxHash: logA.TxHash, Logs: []model.LogRecord{logA, logB}}}

	pools := decoder.PoolAddresses(groups)
	if len(pools) != 1 || pools[0] != strings.ToLower(ammPool.Hex()) {
		t.Errorf("got pools %v", pools)
	}
}
