package venue

import (
	"context"
	"fmt"
	"math/big"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ExactInputSingleParams describes an exact-input swap request against
// the venue's router. AmountOutMinimum is the slippage floor: the venue
// rejects the whole swap rather than settle below it.
type ExactInputSingleParams struct {
	TokenIn           string
	TokenOut          string
	Fee               uint32
	Recipient         string
	Deadline          int64
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Router is the exchange-venue contract the swap engine consumes.
type Router interface {
	ExactInputSingle(ctx context.Context, params ExactInputSingleParams) (*big.Int, error)
}

// Client is a REST client for the exchange-venue router API.
// It implements the Router interface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ Router = (*Client)(nil)

// NewClient creates a new exchange-venue router client.
func NewClient(baseURL string, limit float64, burst int, logger *zap.Logger) *Client {
	return &Client{
		client:  resty.New().SetBaseURL(baseURL),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
	}
}

type swapRequest struct {
	TokenIn           string `json:"token_in"`
	TokenOut          string `json:"token_out"`
	Fee               uint32 `json:"fee"`
	Recipient         string `json:"recipient"`
	Deadline          int64  `json:"deadline"`
	AmountIn          string `json:"amount_in"`
	AmountOutMinimum  string `json:"amount_out_minimum"`
	SqrtPriceLimitX96 string `json:"sqrt_price_limit_x96"`
}

type swapResponse struct {
	AmountOut string `json:"amount_out"`
}

// ExactInputSingle submits an exact-input swap and returns the realized
// output amount. A venue refusal (slippage floor not met, bad pool,
// expired deadline) comes back as an error with the venue's message.
func (c *Client) ExactInputSingle(ctx context.Context, params ExactInputSingleParams) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	sqrtLimit := "0"
	if params.SqrtPriceLimitX96 != nil {
		sqrtLimit = params.SqrtPriceLimitX96.String()
	}

	body := swapRequest{
		TokenIn:           params.TokenIn,
		TokenOut:          params.TokenOut,
		Fee:               params.Fee,
		Recipient:         params.Recipient,
		Deadline:          params.Deadline,
		AmountIn:          params.AmountIn.String(),
		AmountOutMinimum:  params.AmountOutMinimum.String(),
		SqrtPriceLimitX96: sqrtLimit,
	}

	var result swapResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&result).
		Post("/swap")
	if err != nil {
		return nil, fmt.Errorf("swap request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("venue rejected swap with status %s: %s", resp.Status(), resp.String())
	}

	amountOut, ok := new(big.Int).SetString(result.AmountOut, 10)
	if !ok {
		return nil, fmt.Errorf("venue returned unparseable amount_out %q", result.AmountOut)
	}

	c.logger.Info("Swap executed on venue",
		zap.String("token_in", params.TokenIn),
		zap.String("token_out", params.TokenOut),
		zap.String("amount_in", params.AmountIn.String()),
		zap.String("amount_out", amountOut.String()),
	)

	return amountOut, nil
}
