package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of decimal places kept by quotients.
const DivisionPrecision = 36

var (
	ZeroBD = decimal.Zero
	OneBD  = decimal.NewFromInt(1)
	TwoBD  = decimal.NewFromInt(2)

	BI18 = int64(18)
)

// SafeDiv returns a / b, or zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return ZeroBD
	}
	return a.DivRound(b, DivisionPrecision)
}

func ExponentToDecimal(decimals int64) decimal.Decimal {
	return decimal.New(1, int32(decimals))
}

// ConvertTokenToDecimal scales a raw on-chain amount down by 10^decimals. A
// zero decimals value returns the raw amount as is.
func ConvertTokenToDecimal(amount *big.Int, decimals int64) decimal.Decimal {
	if amount == nil {
		return ZeroBD
	}

	if decimals == 0 {
		return decimal.NewFromBigInt(amount, 0)
	}

	return decimal.NewFromBigInt(amount, -int32(decimals))
}

func MaxBD(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func MinBD(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
