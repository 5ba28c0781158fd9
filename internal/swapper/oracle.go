package swapper

import (
	"context"
	"fmt"
	"math/big"

	"asset-swapper-go/internal/feeds"
)

// RateOracle derives a single conversion rate from two independent
// price feeds instead of trusting the exchange venue's own quote.
type RateOracle struct {
	Input  feeds.Feed
	Output feeds.Feed
}

// ComputeConversionRate reads the latest answer from both feeds and
// normalizes them into one rate:
//
//	rate = inputAnswer * 10^outputDecimals / outputAnswer
//
// The returned rateDecimals equals the input feed's decimal precision:
// the output answer's own scaling cancels against the 10^outputDecimals
// factor, leaving the rate expressed in the input feed's decimal frame.
// A negative result is a fatal oracle fault and is never clamped.
func (o *RateOracle) ComputeConversionRate(ctx context.Context) (*big.Int, uint8, error) {
	inputRound, err := o.Input.LatestRoundData(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("input feed read failed: %w", err)
	}
	outputRound, err := o.Output.LatestRoundData(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("output feed read failed: %w", err)
	}

	inputDecimals, err := o.Input.Decimals(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("input feed decimals read failed: %w", err)
	}
	outputDecimals, err := o.Output.Decimals(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("output feed decimals read failed: %w", err)
	}

	if outputRound.Answer.Sign() == 0 {
		return nil, 0, fmt.Errorf("output feed returned a zero price (round %d)", outputRound.RoundID)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(outputDecimals)), nil)
	rate := new(big.Int).Mul(inputRound.Answer, scale)
	rate.Quo(rate, outputRound.Answer)

	if rate.Sign() < 0 {
		return nil, 0, fmt.Errorf("%w: input answer %s, output answer %s",
			ErrNegativeRate, inputRound.Answer, outputRound.Answer)
	}

	return rate, inputDecimals, nil
}
