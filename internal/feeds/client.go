package feeds

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const decimalsCacheKey = "decimals"

// RoundData is the latest published round of a price feed. Only Answer
// and the feed's decimals are consumed by the swapper; the remaining
// fields are carried for logging and staleness inspection.
type RoundData struct {
	RoundID         uint64
	Answer          *big.Int
	StartedAt       int64
	UpdatedAt       int64
	AnsweredInRound uint64
}

// Feed is the price-feed contract the rate oracle consumes.
type Feed interface {
	Decimals(ctx context.Context) (uint8, error)
	LatestRoundData(ctx context.Context) (RoundData, error)
}

// Client is a REST client for a single price-feed API.
// It implements the Feed interface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	cache   *cache.Cache
}

// ensure Client implements the interface
var _ Feed = (*Client)(nil)

// NewClient creates a new price-feed client. The feed's decimal
// precision is cached for decimalsTTL since it effectively never changes.
func NewClient(baseURL string, limit float64, burst int, decimalsTTL time.Duration, logger *zap.Logger) *Client {
	return &Client{
		client:  resty.New().SetBaseURL(baseURL),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(limit), burst),
		cache:   cache.New(decimalsTTL, 2*decimalsTTL),
	}
}

type decimalsResponse struct {
	Decimals uint8 `json:"decimals"`
}

// Decimals returns the feed's decimal precision.
func (c *Client) Decimals(ctx context.Context) (uint8, error) {
	if v, ok := c.cache.Get(decimalsCacheKey); ok {
		return v.(uint8), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var result decimalsResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/decimals")
	if err != nil {
		return 0, fmt.Errorf("failed to get feed decimals: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("feed decimals request failed with status %s: %s", resp.Status(), resp.String())
	}

	c.cache.Set(decimalsCacheKey, result.Decimals, cache.DefaultExpiration)
	return result.Decimals, nil
}

type latestRoundResponse struct {
	RoundID         uint64 `json:"round_id"`
	Answer          string `json:"answer"`
	StartedAt       int64  `json:"started_at"`
	UpdatedAt       int64  `json:"updated_at"`
	AnsweredInRound uint64 `json:"answered_in_round"`
}

// LatestRoundData returns the feed's most recent round. The answer is a
// scaled integer in the feed's own decimal precision and may be negative
// on a faulted feed; interpreting that is the caller's concern.
func (c *Client) LatestRoundData(ctx context.Context) (RoundData, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return RoundData{}, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var result latestRoundResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/rounds/latest")
	if err != nil {
		return RoundData{}, fmt.Errorf("failed to get latest round: %w", err)
	}
	if resp.IsError() {
		return RoundData{}, fmt.Errorf("latest round request failed with status %s: %s", resp.Status(), resp.String())
	}

	answer, ok := new(big.Int).SetString(result.Answer, 10)
	if !ok {
		return RoundData{}, fmt.Errorf("feed returned unparseable answer %q", result.Answer)
	}

	c.logger.Debug("Fetched latest feed round",
		zap.Uint64("round_id", result.RoundID),
		zap.String("answer", result.Answer),
		zap.Int64("updated_at", result.UpdatedAt),
	)

	return RoundData{
		RoundID:         result.RoundID,
		Answer:          answer,
		StartedAt:       result.StartedAt,
		UpdatedAt:       result.UpdatedAt,
		AnsweredInRound: result.AnsweredInRound,
	}, nil
}
