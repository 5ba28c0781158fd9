package ledger

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Ledger is the fungible-asset contract the swapper consumes: balance
// queries, transfers out of custody, pull-transfers into custody and
// allowance grants for the exchange venue.
type Ledger interface {
	BalanceOf(ctx context.Context, asset, account string) (*big.Int, error)
	Transfer(ctx context.Context, asset, to string, amount *big.Int) error
	TransferFrom(ctx context.Context, asset, from, to string, amount *big.Int) error
	Approve(ctx context.Context, asset, spender string, amount *big.Int) error
	Decimals(ctx context.Context, asset string) (uint8, error)
}

// Client is a REST client for the fungible-asset ledger API.
// It implements the Ledger interface.
type Client struct {
	client  *resty.Client
	account string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ Ledger = (*Client)(nil)

// NewClient creates a new ledger client acting as the given account.
// Mutating requests (transfer, approve) are issued on its behalf.
func NewClient(baseURL, account string, limit float64, burst int, logger *zap.Logger) *Client {
	return &Client{
		client:  resty.New().SetBaseURL(baseURL),
		account: account,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
	}
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing ledger request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			// 4xx responses are ledger verdicts (insufficient funds,
			// unknown account) and retrying cannot change them.
			return nil, fmt.Errorf("ledger request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Ledger request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("ledger request failed after %d attempts: %w", maxRetries, err)
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

// BalanceOf returns the account's balance of the given asset.
func (c *Client) BalanceOf(ctx context.Context, asset, account string) (*big.Int, error) {
	req := c.client.R().
		SetContext(ctx).
		SetResult(&balanceResponse{})

	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/assets/%s/balances/%s", asset, account), req)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	result := resp.Result().(*balanceResponse)
	balance, ok := new(big.Int).SetString(result.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("ledger returned unparseable balance %q", result.Balance)
	}
	return balance, nil
}

type transferRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// Transfer moves amount of asset from the client's own account to the recipient.
func (c *Client) Transfer(ctx context.Context, asset, to string, amount *big.Int) error {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Account", c.account).
		SetBody(transferRequest{To: to, Amount: amount.String()})

	if _, err := c.doRequest(ctx, "POST", fmt.Sprintf("/assets/%s/transfers", asset), req); err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	c.logger.Info("Transfer executed",
		zap.String("asset", asset),
		zap.String("to", to),
		zap.String("amount", amount.String()),
	)
	return nil
}

// TransferFrom pulls amount of asset from the depositor into the recipient,
// consuming the allowance the depositor granted to the client's account.
func (c *Client) TransferFrom(ctx context.Context, asset, from, to string, amount *big.Int) error {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Account", c.account).
		SetBody(transferRequest{From: from, To: to, Amount: amount.String()})

	if _, err := c.doRequest(ctx, "POST", fmt.Sprintf("/assets/%s/transfers", asset), req); err != nil {
		return fmt.Errorf("transfer-from failed: %w", err)
	}
	return nil
}

type approveRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// Approve grants the spender an allowance over the client's own balance.
func (c *Client) Approve(ctx context.Context, asset, spender string, amount *big.Int) error {
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Account", c.account).
		SetBody(approveRequest{Spender: spender, Amount: amount.String()})

	if _, err := c.doRequest(ctx, "POST", fmt.Sprintf("/assets/%s/approvals", asset), req); err != nil {
		return fmt.Errorf("approve failed: %w", err)
	}
	return nil
}

type assetDecimalsResponse struct {
	Decimals uint8 `json:"decimals"`
}

// Decimals returns the asset's native decimal precision.
func (c *Client) Decimals(ctx context.Context, asset string) (uint8, error) {
	req := c.client.R().
		SetContext(ctx).
		SetResult(&assetDecimalsResponse{})

	resp, err := c.doRequest(ctx, "GET", fmt.Sprintf("/assets/%s", asset), req)
	if err != nil {
		return 0, fmt.Errorf("failed to get asset decimals: %w", err)
	}

	return resp.Result().(*assetDecimalsResponse).Decimals, nil
}
