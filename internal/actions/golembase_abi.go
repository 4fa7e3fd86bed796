package actions

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const golemBaseABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "entityKey", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "expirationBlock", "type": "uint256"}
    ],
    "name": "GolemBaseStorageEntityCreated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "entityKey", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "newExpirationBlock", "type": "uint256"}
    ],
    "name": "GolemBaseStorageEntityUpdated",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "entityKey", "type": "uint256"}
    ],
    "name": "GolemBaseStorageEntityDeleted",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "entityKey", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "oldExpirationBlock", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "newExpirationBlock", "type": "uint256"}
    ],
    "name": "GolemBaseStorageEntityBTLExtended",
    "type": "event"
  }
]`

var (
	golemBaseABI     abi.ABI
	golemBaseABIOnce sync.Once
	golemBaseABIErr  error
)

// GolemBaseABI returns the parsed storage-ledger ABI.
func GolemBaseABI() (abi.ABI, error) {
	golemBaseABIOnce.Do(func() {
		golemBaseABI, golemBaseABIErr = abi.JSON(strings.NewReader(golemBaseABIJSON))
	})
	return golemBaseABI, golemBaseABIErr
}
