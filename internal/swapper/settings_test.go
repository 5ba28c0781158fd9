package swapper

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"Valid", func(s *Settings) {}, ""},
		{"MissingInputAsset", func(s *Settings) { s.InputAsset = "" }, "assets must be set"},
		{"SameAssets", func(s *Settings) { s.OutputAsset = s.InputAsset }, "must differ"},
		{"MissingFeed", func(s *Settings) { s.OutputFeed = "" }, "feeds must be set"},
		{"SameFeeds", func(s *Settings) { s.OutputFeed = s.InputFeed }, "must differ"},
		{"MissingVenue", func(s *Settings) { s.Venue = "" }, "venue must be set"},
		{"MissingAdmin", func(s *Settings) { s.Admin = "" }, "administrator must be set"},
		{"MissingFeeRecipient", func(s *Settings) { s.FeeRecipient = "" }, "recipients must be set"},
		{"MissingTokenRecipient", func(s *Settings) { s.TokenRecipient = "" }, "recipients must be set"},
		{"SwapFeeTooHigh", func(s *Settings) { s.SwapFeeBps = 10001 }, "swap_fee_bps"},
		{"DepositFeeTooHigh", func(s *Settings) { s.DepositFeeBps = 12000 }, "deposit_fee_bps"},
		{"MinExpectedTooHigh", func(s *Settings) { s.MinExpectedSwapBps = 20000 }, "min_expected_swap_bps"},
		{"NegativeDelay", func(s *Settings) { s.WithdrawalDelay = -time.Second }, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			tt.mutate(&settings)

			err := settings.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSetters_RequireAdmin(t *testing.T) {
	svc, _, _, _ := setupService(t, testSettings())
	ctx := context.Background()

	setters := map[string]func() error{
		"SetInputAsset":         func() error { return svc.SetInputAsset(ctx, "mallory", "DAI") },
		"SetOutputAsset":        func() error { return svc.SetOutputAsset(ctx, "mallory", "DAI") },
		"SetInputFeed":          func() error { return svc.SetInputFeed("mallory", "feed-x") },
		"SetOutputFeed":         func() error { return svc.SetOutputFeed("mallory", "feed-x") },
		"SetVenue":              func() error { return svc.SetVenue("mallory", "venue-x") },
		"SetFeeRecipient":       func() error { return svc.SetFeeRecipient("mallory", "x") },
		"SetTokenRecipient":     func() error { return svc.SetTokenRecipient("mallory", "x") },
		"SetSwapFeeBps":         func() error { return svc.SetSwapFeeBps("mallory", 1) },
		"SetDepositFeeBps":      func() error { return svc.SetDepositFeeBps("mallory", 1) },
		"SetMinExpectedSwapBps": func() error { return svc.SetMinExpectedSwapBps("mallory", 1) },
		"SetWithdrawalDelay":    func() error { return svc.SetWithdrawalDelay("mallory", time.Minute) },
		"Pause":                 func() error { return svc.Pause("mallory") },
		"Unpause":               func() error { return svc.Unpause("mallory") },
		"TransferAdmin":         func() error { return svc.TransferAdmin("mallory", "mallory") },
	}

	before := svc.settings
	for name, set := range setters {
		assert.ErrorIs(t, set(), ErrUnauthorized, name)
	}
	assert.Equal(t, before, svc.settings, "rejected setters must not mutate any setting")
}

func TestSetters_Revalidate(t *testing.T) {
	svc, _, _, _ := setupService(t, testSettings())
	ctx := context.Background()

	// Paired identities must stay distinct.
	assert.Error(t, svc.SetInputAsset(ctx, testAdmin, testOutputAsset))
	assert.Error(t, svc.SetOutputAsset(ctx, testAdmin, testInputAsset))
	assert.Error(t, svc.SetInputFeed(testAdmin, "feed-out"))
	assert.Error(t, svc.SetOutputFeed(testAdmin, "feed-in"))
	assert.Error(t, svc.SetVenue(testAdmin, ""))
	assert.Error(t, svc.SetFeeRecipient(testAdmin, ""))
	assert.Error(t, svc.SetTokenRecipient(testAdmin, ""))
	assert.Error(t, svc.TransferAdmin(testAdmin, ""))

	// Basis points capped at 10000.
	assert.Error(t, svc.SetSwapFeeBps(testAdmin, 10001))
	assert.Error(t, svc.SetDepositFeeBps(testAdmin, 10001))
	assert.Error(t, svc.SetMinExpectedSwapBps(testAdmin, 10001))
	assert.Error(t, svc.SetWithdrawalDelay(testAdmin, -time.Second))

	// Valid updates go through.
	assert.NoError(t, svc.SetSwapFeeBps(testAdmin, 25))
	assert.Equal(t, uint32(25), svc.settings.SwapFeeBps)
	assert.NoError(t, svc.SetWithdrawalDelay(testAdmin, 2*time.Hour))
	assert.Equal(t, 2*time.Hour, svc.settings.WithdrawalDelay)
}

func TestSetAsset_RefreshesDecimals(t *testing.T) {
	svc, lg, _, _ := setupService(t, testSettings())
	lg.decimals["DAI"] = 18

	assert.NoError(t, svc.SetInputAsset(context.Background(), testAdmin, "DAI"))
	assert.Equal(t, "DAI", svc.settings.InputAsset)
	assert.Equal(t, uint8(18), svc.inputDecimals)

	// An asset the ledger does not know is rejected without mutation.
	assert.Error(t, svc.SetInputAsset(context.Background(), testAdmin, "UNKNOWN"))
	assert.Equal(t, "DAI", svc.settings.InputAsset)
}

func TestTransferAdmin(t *testing.T) {
	svc, _, _, _ := setupService(t, testSettings())

	assert.NoError(t, svc.TransferAdmin(testAdmin, "carol"))

	// The old administrator is locked out, the new one is in charge.
	assert.ErrorIs(t, svc.Pause(testAdmin), ErrUnauthorized)
	assert.NoError(t, svc.Pause("carol"))
	assert.True(t, svc.settings.Paused)
}

func TestPauseGatesOnlySwap(t *testing.T) {
	svc, lg, _, _ := setupService(t, testSettings())
	lg.credit(testInputAsset, testCustody, big.NewInt(1000))
	lg.credit(testOutputAsset, testCustody, big.NewInt(1000))

	assert.NoError(t, svc.Pause(testAdmin))

	// Swap is gated.
	_, err := svc.Swap(context.Background(), testAdmin, big.NewInt(100))
	assert.ErrorIs(t, err, ErrPaused)

	// Deposit and withdraw are not.
	lg.credit(testInputAsset, "bob", big.NewInt(100))
	assert.NoError(t, svc.Deposit(context.Background(), "bob", big.NewInt(100)))
	assert.NoError(t, svc.Withdraw(context.Background(), testAdmin, big.NewInt(100)))
}
