package entity

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeDiv(t *testing.T) {
	for _, a := range []string{"0", "1", "-42.5", "123456789012345678901234567890"} {
		assert.True(t, SafeDiv(decimal.RequireFromString(a), ZeroBD).IsZero(), "a=%s", a)
	}

	res := SafeDiv(decimal.NewFromInt(10), decimal.NewFromInt(4))
	assert.Equal(t, "2.5", res.String())

	third := SafeDiv(OneBD, decimal.NewFromInt(3))
	assert.Equal(t, int32(-DivisionPrecision), third.Exponent())
}

func TestConvertTokenToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		decimals int64
		expected string
	}{
		{"zero decimals keeps raw", big.NewInt(12345), 0, "12345"},
		{"eighteen decimals", new(big.Int).Mul(big.NewInt(15), new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)), 18, "1.5"},
		{"six decimals", big.NewInt(1000000), 6, "1"},
		{"nil amount", nil, 18, "0"},
		{"beyond uint64", new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil), 18, "1000000000000"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := ConvertTokenToDecimal(test.amount, test.decimals)
			assert.True(t, decimal.RequireFromString(test.expected).Equal(res), "got %s", res)
		})
	}
}

func TestExponentToDecimal(t *testing.T) {
	require.True(t, ExponentToDecimal(0).Equal(OneBD))
	require.True(t, ExponentToDecimal(3).Equal(decimal.NewFromInt(1000)))
}

func TestMinMax(t *testing.T) {
	a, b := decimal.NewFromInt(1), decimal.NewFromInt(2)
	assert.True(t, MaxBD(a, b).Equal(b))
	assert.True(t, MinBD(a, b).Equal(a))
}

type testEntity struct {
	Base
}

func TestTypeName(t *testing.T) {
	ent := &testEntity{Base: NewBase("1-0xa")}
	assert.Equal(t, "testEntity", TypeName(ent))
	assert.Equal(t, "1-0xa", ent.GetID())
	assert.False(t, ent.Exists())
	ent.SetExists(true)
	assert.True(t, ent.Exists())
}
