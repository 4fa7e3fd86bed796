package actions

import (
	"math/big"
	"strings"
)

// NormalizeAmount renders amount * 10^(-decimals) as a canonical decimal
// string: exact arbitrary-precision arithmetic, no exponent notation, no
// trailing fractional zeros. The sign of the amount is preserved.
func NormalizeAmount(amount *big.Int, decimals uint64) string {
	if amount == nil {
		return "0"
	}
	if decimals == 0 {
		return amount.String()
	}

	sign := amount.Sign()
	abs := new(big.Int).Abs(amount)
	denom := new(big.Int).Exp(big.NewInt(10), new(big.Int).SetUint64(decimals), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(int(decimals))

	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	if text == "" {
		text = "0"
	}
	if sign < 0 && text != "0" {
		text = "-" + text
	}
	return text
}
