package decimals

import (
	"math/big"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/gaze-network/uint128"
	"github.com/shopspring/decimal"
)

// MaxDivisibility is the largest divisibility a rune can be etched with.
const MaxDivisibility = 38

// MustFromString convert string to decimal.Decimal. Panic if error
// string must be a valid number, not NaN, Inf or empty string.
func MustFromString(s string) decimal.Decimal {
	return utils.Must(decimal.NewFromString(s))
}

// FromUint128 shifts value right by divisibility decimal places, e.g. 1234 with divisibility 2 is 12.34.
func FromUint128(value uint128.Uint128, divisibility uint8) decimal.Decimal {
	return decimal.NewFromBigInt(value.Big(), -int32(divisibility))
}

// ToUint128 is the inverse of FromUint128. Fractional digits beyond divisibility are truncated.
func ToUint128(value decimal.Decimal, divisibility uint8) (uint128.Uint128, bool) {
	if value.IsNegative() {
		return uint128.Zero, false
	}
	result, err := uint128.FromBig(value.Shift(int32(divisibility)).Truncate(0).BigInt())
	if err != nil {
		return uint128.Zero, false
	}
	return result, true
}

// SatsToBTC converts an amount in sats to BTC.
func SatsToBTC(sats uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(sats), -8)
}

// FormatSats renders sats the way btcutil renders amounts, e.g. "0.5 BTC".
func FormatSats(sats uint64) string {
	return btcutil.Amount(int64(sats)).String()
}
