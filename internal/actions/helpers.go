package actions

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BurnAddress is substituted for absent or malformed address topics.
var BurnAddress = common.Address{}

// addressFromTopic recovers an EVM address from a 32-byte, left-zero-padded
// topic slot by truncating to the trailing 20 bytes. Absent or malformed
// topics yield the burn address.
func addressFromTopic(topic string) common.Address {
	if topic == "" {
		return BurnAddress
	}
	raw, err := hexutil.Decode(topic)
	if err != nil || len(raw) == 0 || len(raw) > 32 {
		return BurnAddress
	}
	return common.BytesToAddress(raw)
}

// addressFromOutput interprets a contract-call return word as an address.
// Empty or non-address output maps to the burn address.
func addressFromOutput(output []byte) common.Address {
	if len(output) == 0 || len(output) > 32 {
		return BurnAddress
	}
	return common.BytesToAddress(output)
}

func lowerAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
