package swapper

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"asset-swapper-go/internal/feeds"
	"github.com/stretchr/testify/assert"
)

// stubFeed is a fixed-answer price feed for tests.
type stubFeed struct {
	answer   *big.Int
	decimals uint8
	err      error
}

func (f *stubFeed) Decimals(ctx context.Context) (uint8, error) {
	return f.decimals, f.err
}

func (f *stubFeed) LatestRoundData(ctx context.Context) (feeds.RoundData, error) {
	if f.err != nil {
		return feeds.RoundData{}, f.err
	}
	return feeds.RoundData{RoundID: 1, Answer: new(big.Int).Set(f.answer), AnsweredInRound: 1}, nil
}

func TestComputeConversionRate_Formula(t *testing.T) {
	// Arrange: the reference scenario, both feeds publishing 8 decimals.
	oracle := &RateOracle{
		Input:  &stubFeed{answer: big.NewInt(1234567890), decimals: 8},
		Output: &stubFeed{answer: big.NewInt(152470933), decimals: 8},
	}

	// Act
	rate, rateDecimals, err := oracle.ComputeConversionRate(context.Background())

	// Assert: consistent with independently recomputing
	// inputAnswer * 10^outputDecimals / outputAnswer.
	assert.NoError(t, err)
	assert.Equal(t, uint8(8), rateDecimals)

	expected := new(big.Int).Mul(big.NewInt(1234567890), new(big.Int).Exp(big.NewInt(10), big.NewInt(8), nil))
	expected.Quo(expected, big.NewInt(152470933))
	assert.Equal(t, 0, rate.Cmp(expected))
}

func TestComputeConversionRate_MixedDecimals(t *testing.T) {
	// The output answer's scaling cancels against 10^outputDecimals, so
	// the rate stays in the input feed's decimal frame.
	oracle := &RateOracle{
		Input:  &stubFeed{answer: big.NewInt(200000000), decimals: 8}, // 2.0 at 8 decimals
		Output: &stubFeed{answer: big.NewInt(500000), decimals: 6},    // 0.5 at 6 decimals
	}

	rate, rateDecimals, err := oracle.ComputeConversionRate(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, uint8(8), rateDecimals)
	// 2.0 / 0.5 = 4.0 expressed at 8 decimals
	assert.Equal(t, int64(400000000), rate.Int64())
}

func TestComputeConversionRate_NegativeRateIsFatal(t *testing.T) {
	t.Run("NegativeInputAnswer", func(t *testing.T) {
		oracle := &RateOracle{
			Input:  &stubFeed{answer: big.NewInt(-1234567890), decimals: 8},
			Output: &stubFeed{answer: big.NewInt(152470933), decimals: 8},
		}

		_, _, err := oracle.ComputeConversionRate(context.Background())

		assert.ErrorIs(t, err, ErrNegativeRate)
	})

	t.Run("NegativeOutputAnswer", func(t *testing.T) {
		oracle := &RateOracle{
			Input:  &stubFeed{answer: big.NewInt(1234567890), decimals: 8},
			Output: &stubFeed{answer: big.NewInt(-152470933), decimals: 8},
		}

		_, _, err := oracle.ComputeConversionRate(context.Background())

		assert.ErrorIs(t, err, ErrNegativeRate)
	})
}

func TestComputeConversionRate_ZeroOutputPrice(t *testing.T) {
	oracle := &RateOracle{
		Input:  &stubFeed{answer: big.NewInt(1234567890), decimals: 8},
		Output: &stubFeed{answer: big.NewInt(0), decimals: 8},
	}

	_, _, err := oracle.ComputeConversionRate(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "zero price")
}

func TestComputeConversionRate_FeedFailurePropagates(t *testing.T) {
	oracle := &RateOracle{
		Input:  &stubFeed{err: errors.New("feed down")},
		Output: &stubFeed{answer: big.NewInt(152470933), decimals: 8},
	}

	_, _, err := oracle.ComputeConversionRate(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "feed down")
}
