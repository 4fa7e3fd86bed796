package model

// Protocol identifies the protocol an action belongs to.
type Protocol string

const (
	ProtocolAave      Protocol = "aave"
	ProtocolUniswapV3 Protocol = "uniswapv3"
	ProtocolGolemBase Protocol = "golembase"
)

// Protocols lists every supported protocol tag.
func Protocols() []Protocol {
	return []Protocol{ProtocolAave, ProtocolUniswapV3, ProtocolGolemBase}
}

// ParseProtocol maps a protocol name onto its tag.
func ParseProtocol(name string) (Protocol, bool) {
	switch Protocol(name) {
	case ProtocolAave, ProtocolUniswapV3, ProtocolGolemBase:
		return Protocol(name), true
	default:
		return "", false
	}
}

// Aave action types.
const (
	ActionBorrow            = "borrow"
	ActionSupply            = "supply"
	ActionWithdraw          = "withdraw"
	ActionRepay             = "repay"
	ActionFlashLoan         = "flash_loan"
	ActionLiquidationCall   = "liquidation_call"
	ActionEnableCollateral  = "enable_collateral"
	ActionDisableCollateral = "disable_collateral"
)

// Uniswap V3 action types.
const (
	ActionMint    = "mint"
	ActionBurn    = "burn"
	ActionCollect = "collect"
	ActionSwap    = "swap"
	ActionMintNFT = "mint_nft"
)

// GolemBase action types.
const (
	ActionEntityCreated     = "entity_created"
	ActionEntityUpdated     = "entity_updated"
	ActionEntityDeleted     = "entity_deleted"
	ActionEntityTTLExtended = "entity_ttl_extended"
)

// TransactionAction is one normalized record describing a single on-chain
// event pertinent to a supported protocol. The Data payload shape depends
// on (Protocol, Type).
type TransactionAction struct {
	Protocol Protocol               `json:"protocol"`
	Type     string                 `json:"type"`
	Data     map[string]interface{} `json:"data"`
	TxHash   string                 `json:"tx_hash"`
	LogIndex uint64                 `json:"log_index"`
}
