package model

// MaxTokenDecimals is the largest decimals value accepted from any source.
const MaxTokenDecimals = 255

// TokenMeta captures ERC20 metadata keyed by lower-cased token address.
// An empty symbol means "not yet resolved", never a valid empty symbol.
type TokenMeta struct {
	Address     string `json:"address"`
	Symbol      string `json:"symbol"`
	Decimals    uint64 `json:"decimals"`
	HasDecimals bool   `json:"has_decimals"`
}

// Resolved reports whether both fields are populated and in range.
func (tm TokenMeta) Resolved() bool {
	return tm.Symbol != "" && tm.HasDecimals && tm.Decimals <= MaxTokenDecimals
}

// Merge fills gaps in tm from other, preferring values already present.
func (tm TokenMeta) Merge(other TokenMeta) TokenMeta {
	out := tm
	if out.Symbol == "" {
		out.Symbol = other.Symbol
	}
	if !out.HasDecimals && other.HasDecimals {
		out.Decimals = other.Decimals
		out.HasDecimals = true
	}
	return out
}
