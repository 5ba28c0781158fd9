package swapper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Settings is the full mutable configuration of the service. It is
// validated as a whole at construction; afterwards each field changes
// only through its administrator-gated setter, which re-applies the
// same rule before replacing the value.
type Settings struct {
	InputAsset  string `json:"input_asset"`
	OutputAsset string `json:"output_asset"`
	InputFeed   string `json:"input_feed"`
	OutputFeed  string `json:"output_feed"`
	Venue       string `json:"venue"`
	FeeTier     uint32 `json:"fee_tier"`

	Admin          string `json:"admin"`
	FeeRecipient   string `json:"fee_recipient"`
	TokenRecipient string `json:"token_recipient"`

	SwapFeeBps         uint32 `json:"swap_fee_bps"`
	DepositFeeBps      uint32 `json:"deposit_fee_bps"`
	MinExpectedSwapBps uint32 `json:"min_expected_swap_bps"`

	WithdrawalDelay time.Duration `json:"withdrawal_delay"`
	Paused          bool          `json:"paused"`
}

// Validate applies the construction-time rules: paired identities must
// be non-empty and mutually distinct, basis points within [0, 10000].
func (s *Settings) Validate() error {
	if s.InputAsset == "" || s.OutputAsset == "" {
		return fmt.Errorf("input and output assets must be set")
	}
	if s.InputAsset == s.OutputAsset {
		return fmt.Errorf("input and output assets must differ")
	}
	if s.InputFeed == "" || s.OutputFeed == "" {
		return fmt.Errorf("input and output feeds must be set")
	}
	if s.InputFeed == s.OutputFeed {
		return fmt.Errorf("input and output feeds must differ")
	}
	if s.Venue == "" {
		return fmt.Errorf("exchange venue must be set")
	}
	if s.Admin == "" {
		return fmt.Errorf("administrator must be set")
	}
	if s.FeeRecipient == "" || s.TokenRecipient == "" {
		return fmt.Errorf("fee and token recipients must be set")
	}
	for name, bps := range map[string]uint32{
		"swap_fee_bps":          s.SwapFeeBps,
		"deposit_fee_bps":       s.DepositFeeBps,
		"min_expected_swap_bps": s.MinExpectedSwapBps,
	} {
		if !validBps(bps) {
			return fmt.Errorf("%s %d exceeds %d", name, bps, maxBps)
		}
	}
	if s.WithdrawalDelay < 0 {
		return fmt.Errorf("withdrawal delay must not be negative")
	}
	return nil
}

func (s *Service) requireAdmin(caller string) error {
	if caller != s.settings.Admin {
		return fmt.Errorf("%w: %q", ErrUnauthorized, caller)
	}
	return nil
}

// SetInputAsset changes the input asset and refreshes its cached
// decimal precision from the ledger.
func (s *Service) SetInputAsset(ctx context.Context, caller, asset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if asset == "" || asset == s.settings.OutputAsset {
		return fmt.Errorf("input asset must be set and differ from the output asset")
	}
	decimals, err := s.ledger.Decimals(ctx, asset)
	if err != nil {
		return fmt.Errorf("could not resolve decimals for %s: %w", asset, err)
	}
	s.settings.InputAsset = asset
	s.inputDecimals = decimals
	return nil
}

// SetOutputAsset changes the output asset and refreshes its cached
// decimal precision from the ledger.
func (s *Service) SetOutputAsset(ctx context.Context, caller, asset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if asset == "" || asset == s.settings.InputAsset {
		return fmt.Errorf("output asset must be set and differ from the input asset")
	}
	decimals, err := s.ledger.Decimals(ctx, asset)
	if err != nil {
		return fmt.Errorf("could not resolve decimals for %s: %w", asset, err)
	}
	s.settings.OutputAsset = asset
	s.outputDecimals = decimals
	return nil
}

// SetInputFeed points the rate oracle at a different input price feed.
func (s *Service) SetInputFeed(caller, feed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if feed == "" || feed == s.settings.OutputFeed {
		return fmt.Errorf("input feed must be set and differ from the output feed")
	}
	s.settings.InputFeed = feed
	s.oracle.Input = s.newFeed(feed)
	return nil
}

// SetOutputFeed points the rate oracle at a different output price feed.
func (s *Service) SetOutputFeed(caller, feed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if feed == "" || feed == s.settings.InputFeed {
		return fmt.Errorf("output feed must be set and differ from the input feed")
	}
	s.settings.OutputFeed = feed
	s.oracle.Output = s.newFeed(feed)
	return nil
}

// SetVenue replaces the exchange-venue router.
func (s *Service) SetVenue(caller, venueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if venueID == "" {
		return fmt.Errorf("exchange venue must be set")
	}
	s.settings.Venue = venueID
	s.router = s.newRouter(venueID)
	return nil
}

// SetFeeRecipient changes the destination of deposit and swap fees.
func (s *Service) SetFeeRecipient(caller, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if recipient == "" {
		return fmt.Errorf("fee recipient must be set")
	}
	s.settings.FeeRecipient = recipient
	return nil
}

// SetTokenRecipient changes the destination of withdrawals.
func (s *Service) SetTokenRecipient(caller, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if recipient == "" {
		return fmt.Errorf("token recipient must be set")
	}
	s.settings.TokenRecipient = recipient
	return nil
}

// SetSwapFeeBps changes the fee taken from swap proceeds.
func (s *Service) SetSwapFeeBps(caller string, bps uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if !validBps(bps) {
		return fmt.Errorf("swap fee %d exceeds %d bps", bps, maxBps)
	}
	s.settings.SwapFeeBps = bps
	return nil
}

// SetDepositFeeBps changes the fee taken from deposits.
func (s *Service) SetDepositFeeBps(caller string, bps uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if !validBps(bps) {
		return fmt.Errorf("deposit fee %d exceeds %d bps", bps, maxBps)
	}
	s.settings.DepositFeeBps = bps
	return nil
}

// SetMinExpectedSwapBps changes the slippage floor as a fraction of the
// oracle-implied output.
func (s *Service) SetMinExpectedSwapBps(caller string, bps uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if !validBps(bps) {
		return fmt.Errorf("min expected swap %d exceeds %d bps", bps, maxBps)
	}
	s.settings.MinExpectedSwapBps = bps
	return nil
}

// SetWithdrawalDelay changes the minimum time between withdrawals.
// A zero delay means withdrawals are released immediately, and swaps
// chain straight into one.
func (s *Service) SetWithdrawalDelay(caller string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if delay < 0 {
		return fmt.Errorf("withdrawal delay must not be negative")
	}
	s.settings.WithdrawalDelay = delay
	return nil
}

// Pause stops the swap entry point. Deposits and withdrawals are
// deliberately left operational: funds can keep arriving and being
// recovered during maintenance, while a deposit's chained swap simply
// fails silently.
func (s *Service) Pause(caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	s.settings.Paused = true
	s.logger.Warn("Swapping paused")
	return nil
}

// Unpause re-enables the swap entry point.
func (s *Service) Unpause(caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	s.settings.Paused = false
	s.logger.Info("Swapping unpaused")
	return nil
}

// TransferAdmin hands the administrator role to a new identity.
func (s *Service) TransferAdmin(caller, newAdmin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if newAdmin == "" {
		return fmt.Errorf("new administrator must be set")
	}
	s.settings.Admin = newAdmin
	s.logger.Warn("Administrator transferred", zap.String("new_admin", newAdmin))
	return nil
}
