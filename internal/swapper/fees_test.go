package swapper

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeePortion_Truncates(t *testing.T) {
	// 333 * 100 / 10000 = 3.33 -> truncated to 3
	fee := feePortion(big.NewInt(333), 100)
	assert.Equal(t, int64(3), fee.Int64())

	// 999 * 1 / 10000 = 0.0999 -> truncated to 0
	fee = feePortion(big.NewInt(999), 1)
	assert.Equal(t, int64(0), fee.Int64())

	// 10000 * 9999 / 10000 = 9999 exactly
	fee = feePortion(big.NewInt(10000), 9999)
	assert.Equal(t, int64(9999), fee.Int64())
}

func TestFeePortion_NeverExceedsAmount(t *testing.T) {
	amounts := []int64{0, 1, 7, 9999, 10000, 10001, 123456789}
	for _, a := range amounts {
		for _, bps := range []uint32{0, 1, 50, 5000, 9999, 10000} {
			fee := feePortion(big.NewInt(a), bps)
			assert.LessOrEqual(t, fee.Int64(), a,
				"fee must never exceed the amount (amount=%d bps=%d)", a, bps)
			assert.GreaterOrEqual(t, fee.Sign(), 0)
		}
	}
}

func TestFeePortion_FullFee(t *testing.T) {
	amount := new(big.Int)
	amount.SetString("123456789012345678901234567890", 10)

	fee := feePortion(amount, maxBps)
	assert.Equal(t, 0, fee.Cmp(amount), "10000 bps must take the whole amount")
}

func TestFeePortion_HalfSplit(t *testing.T) {
	// 5000 bps on 100 units splits proceeds exactly in half.
	fee := feePortion(big.NewInt(100), 5000)
	assert.Equal(t, int64(50), fee.Int64())

	// Odd amounts truncate in the custody's favor.
	fee = feePortion(big.NewInt(101), 5000)
	assert.Equal(t, int64(50), fee.Int64())
}

func TestFeePortion_BigAmounts(t *testing.T) {
	// 100 units of an 18-decimals asset.
	amount, _ := new(big.Int).SetString("100000000000000000000", 10)
	fee := feePortion(amount, 25)

	expected, _ := new(big.Int).SetString("250000000000000000", 10)
	assert.Equal(t, 0, fee.Cmp(expected))
}

func TestValidBps(t *testing.T) {
	assert.True(t, validBps(0))
	assert.True(t, validBps(10000))
	assert.False(t, validBps(10001))
}
