package actions

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const aavePoolABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "reserve", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "onBehalfOf", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "interestRateMode", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "borrowRate", "type": "uint256"},
      {"indexed": true, "internalType": "uint16", "name": "referralCode", "type": "uint16"}
    ],
    "name": "Borrow",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "reserve", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "onBehalfOf", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": true, "internalType": "uint16", "name": "referralCode", "type": "uint16"}
    ],
    "name": "Supply",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "reserve", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "Withdraw",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "reserve", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "repayer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "bool", "name": "useATokens", "type": "bool"}
    ],
    "name": "Repay",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "target", "type": "address"},
      {"indexed": false, "internalType": "address", "name": "initiator", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "asset", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"},
      {"indexed": false, "internalType": "uint8", "name": "interestRateMode", "type": "uint8"},
      {"indexed": false, "internalType": "uint256", "name": "premium", "type": "uint256"},
      {"indexed": true, "internalType": "uint16", "name": "referralCode", "type": "uint16"}
    ],
    "name": "FlashLoan",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "reserve", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"}
    ],
    "name": "ReserveUsedAsCollateralEnabled",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "reserve", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"}
    ],
    "name": "ReserveUsedAsCollateralDisabled",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "collateralAsset", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "debtAsset", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "debtToCover", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "liquidatedCollateralAmount", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "liquidator", "type": "address"},
      {"indexed": false, "internalType": "bool", "name": "receiveAToken", "type": "bool"}
    ],
    "name": "LiquidationCall",
    "type": "event"
  }
]`

var (
	aavePoolABI     abi.ABI
	aavePoolABIOnce sync.Once
	aavePoolABIErr  error
)

// AavePoolABI returns the parsed lending pool ABI.
func AavePoolABI() (abi.ABI, error) {
	aavePoolABIOnce.Do(func() {
		aavePoolABI, aavePoolABIErr = abi.JSON(strings.NewReader(aavePoolABIJSON))
	})
	return aavePoolABI, aavePoolABIErr
}
