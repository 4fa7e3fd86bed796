package actions

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"actionScope/internal/model"
)

var (
	lendingPool     = common.HexToAddress("0x0000000000000000000000000000000000000a10")
	reserveUSDC     = common.HexToAddress("0x0000000000000000000000000000000000000a20")
	reserveWETH     = common.HexToAddress("0x0000000000000000000000000000000000000a21")
	lendingUser     = common.HexToAddress("0x0000000000000000000000000000000000000a30")
	lendingOnBehalf = common.HexToAddress("0x0000000000000000000000000000000000000a31")
)

func lendingDecoder(t *testing.T) *AaveDecoder {
	t.Helper()
	resolver := resolverWithTokens(
		model.TokenMeta{Address: lowerAddress(reserveUSDC), Symbol: "USDC", Decimals: 6, HasDecimals: true},
		model.TokenMeta{Address: lowerAddress(reserveWETH), Symbol: "WETH", Decimals: 18, HasDecimals: true},
	)
	decoder, err := NewAaveDecoder(resolver, "", []uint64{1, 5, 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return decoder
}

func lendingEvent(t *testing.T, name string) abi.Event {
	t.Helper()
	poolABI, err := AavePoolABI()
	if err != nil {
		t.Fatal(err)
	}
	return poolABI.Events[name]
}

func decodeOne(t *testing.T, decoder *AaveDecoder, chainID uint64, log model.LogRecord) model.TransactionAction {
	t.Helper()
	group := TxGroup{TxHash: log.TxHash, Logs: []model.LogRecord{log}}
	actions := decoder.DecodeTransaction(context.Background(), chainID, group)
	if len(actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(actions))
	}
	return actions[0]
}

func TestDecodeBorrow(t *testing.T) {
	decoder := lendingDecoder(t)
	log := buildLog(t, lendingPool, lendingEvent(t, "Borrow"),
		[]string{topicFromAddress(reserveUSDC), topicFromAddress(lendingOnBehalf), topicFromBig(big.NewInt(0))},
		lendingUser, big.NewInt(2_500_000), uint8(2), big.NewInt(0),
	)

	action := decodeOne(t, decoder, 137, log)
	if action.Protocol != model.ProtocolAave || action.Type != model.ActionBorrow {
		t.Fatalf("unexpected action %+v", action)
	}
	if action.Data["amount"] != "2.5" || action.Data["symbol"] != "USDC" {
		t.Errorf("payload wrong: %+v", action.Data)
	}
	if action.Data["address"] != lowerAddress(reserveUSDC) {
		t.Errorf("reserve address wrong: %+v", action.Data)
	}
	if action.Data["block_number"] != uint64(1234) {
		t.Errorf("block number wrong: %+v", action.Data)
	}
}

func TestDecodeSupplyAndWithdraw(t *testing.T) {
	decoder := lendingDecoder(t)

	supply := buildLog(t, lendingPool, lendingEvent(t, "Supply"),
		[]string{topicFromAddress(reserveUSDC), topicFromAddress(lendingOnBehalf), topicFromBig(big.NewInt(0))},
		lendingUser, big.NewInt(1_000_000),
	)
	action := decodeOne(t, decoder, 137, supply)
	if action.Type != model.ActionSupply || action.Data["amount"] != "1" {
		t.Errorf("supply decoded wrong: %+v", action)
	}

	withdraw := buildLog(t, lendingPool, lendingEvent(t, "Withdraw"),
		[]string{topicFromAddress(reserveUSDC), topicFromAddress(lendingUser), topicFromAddress(lendingOnBehalf)},
		big.NewInt(500_000),
	)
	action = decodeOne(t, decoder, 137, withdraw)
	if action.Type != model.ActionWithdraw || action.Data["amount"] != "0.5" {
		t.Errorf("withdraw decoded wrong: %+v", action)
	}
}

func TestDecodeRepay(t *testing.T) {
	decoder := lendingDecoder(t)
	log := buildLog(t, lendingPool, lendingEvent(t, "Repay"),
		[]string{topicFromAddress(reserveUSDC), topicFromAddress(lendingUser), topicFromAddress(lendingOnBehalf)},
		big.NewInt(750_000), true,
	)
	action := decodeOne(t, decoder, 137, log)
	if action.Type != model.ActionRepay || action.Data["amount"] != "0.75" {
		t.Errorf("repay decoded wrong: %+v", action)
	}
}

func TestDecodeFlashLoan(t *testing.T) {
	decoder := lendingDecoder(t)
	amount, _ := new(big.Int).SetString("1000000000000000000", 10)
	// Data carries exactly initiator, amount, interestRateMode, premium; the
	// referral code rides in the third indexed topic.
	log := buildLog(t, lendingPool, lendingEvent(t, "FlashLoan"),
		[]string{topicFromAddress(lendingUser), topicFromAddress(reserveWETH), topicFromBig(big.NewInt(0))},
		lendingOnBehalf, amount, uint8(0), big.NewInt(900),
	)
	action := decodeOne(t, decoder, 137, log)
	if action.Type != model.ActionFlashLoan {
		t.Fatalf("got type %s", action.Type)
	}
	if action.Data["amount"] != "1" || action.Data["symbol"] != "WETH" {
		t.Errorf("payload wrong: %+v", action.Data)
	}
	if action.Data["address"] != lowerAddress(reserveWETH) {
		t.Errorf("asset address wrong: %+v", action.Data)
	}
}

func TestDecodeCollateralToggle(t *testing.T) {
	decoder := lendingDecoder(t)
	log := buildLog(t, lendingPool, lendingEvent(t, "ReserveUsedAsCollateralEnabled"),
		[]string{topicFromAddress(reserveUSDC), topicFromAddress(lendingUser)},
	)
	action := decodeOne(t, decoder, 137, log)
	if action.Type != model.ActionEnableCollateral {
		t.Fatalf("got type %s", action.Type)
	}
	if _, ok := action.Data["amount"]; ok {
		t.Errorf("collateral toggle carries no amount: %+v", action.Data)
	}
	if action.Data["symbol"] != "USDC" || action.Data["address"] != lowerAddress(reserveUSDC) {
		t.Errorf("payload wrong: %+v", action.Data)
	}
}

func TestDecodeLiquidationCall(t *testing.T) {
	decoder := lendingDecoder(t)
	collateralAmount, _ := new(big.Int).SetString("2000000000000000000", 10)
	log := buildLog(t, lendingPool, lendingEvent(t, "LiquidationCall"),
		[]string{topicFromAddress(reserveWETH), topicFromAddress(reserveUSDC), topicFromAddress(lendingUser)},
		big.NewInt(3_000_000), collateralAmount, lendingOnBehalf, false,
	)
	action := decodeOne(t, decoder, 137, log)
	if action.Type != model.ActionLiquidationCall {
		t.Fatalf("got type %s", action.Type)
	}
	if action.Data["debt_amount"] != "3" || action.Data["debt_symbol"] != "USDC" || action.Data["debt_address"] != lowerAddress(reserveUSDC) {
		t.Errorf("debt side wrong: %+v", action.Data)
	}
	if action.Data["collateral_amount"] != "2" || action.Data["collateral_symbol"] != "WETH" || action.Data["collateral_address"] != lowerAddress(reserveWETH) {
		t.Errorf("collateral side wrong: %+v", action.Data)
	}
}

func TestWrappedEtherDisplay(t *testing.T) {
	decoder := lendingDecoder(t)
	log := buildLog(t, lendingPool, lendingEvent(t, "Supply"),
		[]string{topicFromAddress(reserveWETH), topicFromAddress(lendingOnBehalf), topicFromBig(big.NewInt(0))},
		lendingUser, big.NewInt(1),
	)

	action := decodeOne(t, decoder, 1, log)
	if action.Data["symbol"] != "Ether" {
		t.Errorf("mainnet WETH should render as Ether, got %v", action.Data["symbol"])
	}

	action = decodeOne(t, decoder, 137, log)
	if action.Data["symbol"] != "WETH" {
		t.Errorf("chain 137 must keep WETH, got %v", action.Data["symbol"])
	}
}

func TestUnresolvedReserveSkipsLog(t *testing.T) {
	resolver := NewTokenResolver(NewTokenMetaCache(nil), nil, nil, nil)
	decoder, err := NewAaveDecoder(resolver, "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	log := buildLog(t, lendingPool, lendingEvent(t, "Supply"),
		[]string{topicFromAddress(reserveUSDC), topicFromAddress(lendingOnBehalf), topicFromBig(big.NewInt(0))},
		lendingUser, big.NewInt(1),
	)
	group := TxGroup{TxHash: log.TxHash, Logs: []model.LogRecord{log}}
	if actions := decoder.DecodeTransaction(context.Background(), 1, group); len(actions) != 0 {
		t.Fatalf("unresolvable reserve must yield no action, got %+v", actions)
	}
}

func TestLendingTopicFilterPoolRestriction(t *testing.T) {
	resolver := resolverWithTokens()
	decoder, err := NewAaveDecoder(resolver, lendingPool.Hex(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	filter := decoder.TopicFilter()
	for topic0, address := range filter {
		if address != lowerAddress(lendingPool) {
			t.Errorf("topic %s not restricted to the pool: %q", topic0, address)
		}
	}
}
