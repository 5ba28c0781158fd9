package swapper

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"asset-swapper-go/internal/feeds"
	"asset-swapper-go/internal/ledger"
	"asset-swapper-go/internal/models"
	"asset-swapper-go/internal/venue"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Params bundles the dependencies of a Service.
type Params struct {
	Logger     *zap.Logger
	DB         *gorm.DB
	Ledger     ledger.Ledger
	Router     venue.Router
	InputFeed  feeds.Feed
	OutputFeed feeds.Feed
	Settings   Settings

	// Account is the service's own custody identity on the ledger.
	Account string

	// NewFeed and NewRouter build replacement clients when the
	// administrator repoints a feed or the venue. Optional in tests
	// that never touch those setters.
	NewFeed   func(id string) feeds.Feed
	NewRouter func(id string) venue.Router

	// Clock defaults to time.Now; tests inject a fake.
	Clock func() time.Time
}

// Service is the custodial asset-conversion core. It holds input-asset
// custody, converts it through the exchange venue at an oracle-checked
// rate, and releases proceeds to the token recipient behind the
// withdrawal delay gate.
//
// All mutating operations serialize on one mutex: the invariants
// (custody balances, the withdrawal timestamp, the fee configuration)
// assume strictly sequential execution.
type Service struct {
	logger  *zap.Logger
	db      *gorm.DB
	ledger  ledger.Ledger
	router  venue.Router
	oracle  *RateOracle
	account string

	newFeed   func(id string) feeds.Feed
	newRouter func(id string) venue.Router
	clock     func() time.Time
	escape    *resty.Client

	mu             sync.Mutex
	settings       Settings
	inputDecimals  uint8
	outputDecimals uint8
	lastWithdrawal time.Time
}

// NewService validates the settings and assembles a service.
// Initialize must be called before the first operation.
func NewService(p Params) (*Service, error) {
	if err := p.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if p.Account == "" {
		return nil, fmt.Errorf("custody account must be set")
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.NewFeed == nil {
		p.NewFeed = func(id string) feeds.Feed {
			return feeds.NewClient(id, 10, 2, time.Hour, p.Logger)
		}
	}
	if p.NewRouter == nil {
		p.NewRouter = func(id string) venue.Router {
			return venue.NewClient(id, 10, 2, p.Logger)
		}
	}

	return &Service{
		logger:    p.Logger,
		db:        p.DB,
		ledger:    p.Ledger,
		router:    p.Router,
		oracle:    &RateOracle{Input: p.InputFeed, Output: p.OutputFeed},
		account:   p.Account,
		newFeed:   p.NewFeed,
		newRouter: p.NewRouter,
		clock:     p.Clock,
		escape:    newEscapeClient(),
		settings:  p.Settings,
	}, nil
}

// Initialize resolves and caches the decimal precision of both assets.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inputDecimals, err := s.ledger.Decimals(ctx, s.settings.InputAsset)
	if err != nil {
		return fmt.Errorf("could not resolve input asset decimals: %w", err)
	}
	outputDecimals, err := s.ledger.Decimals(ctx, s.settings.OutputAsset)
	if err != nil {
		return fmt.Errorf("could not resolve output asset decimals: %w", err)
	}

	s.inputDecimals = inputDecimals
	s.outputDecimals = outputDecimals

	s.logger.Info("Service initialized",
		zap.String("input_asset", s.settings.InputAsset),
		zap.String("output_asset", s.settings.OutputAsset),
		zap.Uint8("input_decimals", inputDecimals),
		zap.Uint8("output_decimals", outputDecimals),
	)
	return nil
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Deposit pulls amount of the input asset from the depositor into
// custody, takes the deposit fee, and then tries to chain straight into
// a swap of the net amount. The chained swap is best-effort: whatever
// makes it fail (pause, oracle fault, slippage floor), the deposit
// itself has already succeeded and the funds stay in custody as input
// asset.
func (s *Service) Deposit(ctx context.Context, caller string, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.TransferFrom(ctx, s.settings.InputAsset, caller, s.account, amount); err != nil {
		return fmt.Errorf("deposit pull failed: %w", err)
	}

	fee := feePortion(amount, s.settings.DepositFeeBps)
	if fee.Sign() > 0 {
		if err := s.ledger.Transfer(ctx, s.settings.InputAsset, s.settings.FeeRecipient, fee); err != nil {
			// Undo the pull so a failed deposit strands nothing in
			// custody.
			if refundErr := s.ledger.Transfer(ctx, s.settings.InputAsset, caller, amount); refundErr != nil {
				s.logger.Error("Failed to refund deposit after fee transfer failure",
					zap.String("depositor", caller),
					zap.String("amount", amount.String()),
					zap.Error(refundErr),
				)
			}
			return fmt.Errorf("deposit fee transfer failed: %w", err)
		}
	}
	net := new(big.Int).Sub(amount, fee)

	now := s.clock()
	s.recordEvent(&models.Deposit{
		Amount:    amount.String(),
		NetAmount: net.String(),
		Depositor: caller,
		Timestamp: now.Unix(),
	})
	s.logger.Info("Deposit received",
		zap.String("depositor", caller),
		zap.String("amount", amount.String()),
		zap.String("net_amount", net.String()),
	)

	// Best-effort chain into a swap. A failure here must never
	// surface to the depositor. A fee of the full deposit leaves
	// nothing to convert, so skip the venue entirely.
	if net.Sign() > 0 {
		if _, err := s.swapLocked(ctx, caller, net, true); err != nil {
			s.logger.Warn("Chained swap after deposit failed, funds retained as input asset",
				zap.String("amount", net.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Swap converts amountIn of custody input asset through the venue.
// Administrator only.
func (s *Service) Swap(ctx context.Context, caller string, amountIn *big.Int) (*big.Int, error) {
	if err := validAmount(amountIn); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swapLocked(ctx, caller, amountIn, false)
}

// swapLocked is the swap engine. privileged marks invocations by the
// service's own pipeline, which bypass the administrator check but not
// the pause switch. Every fallible validation runs before the first
// external effect, so a failure leaves no partial state behind.
func (s *Service) swapLocked(ctx context.Context, caller string, amountIn *big.Int, privileged bool) (*big.Int, error) {
	if !privileged {
		if err := s.requireAdmin(caller); err != nil {
			return nil, err
		}
	}
	if s.settings.Paused {
		return nil, ErrPaused
	}

	balance, err := s.ledger.BalanceOf(ctx, s.settings.InputAsset, s.account)
	if err != nil {
		return nil, fmt.Errorf("could not read custody balance: %w", err)
	}
	if balance.Cmp(amountIn) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amountIn)
	}

	rate, rateDecimals, err := s.oracle.ComputeConversionRate(ctx)
	if err != nil {
		return nil, err
	}

	// expectedOut = amountIn * rate * 10^outputDecimals / 10^(rateDecimals + inputDecimals)
	expectedOut := new(big.Int).Mul(amountIn, rate)
	expectedOut.Mul(expectedOut, pow10(s.outputDecimals))
	expectedOut.Quo(expectedOut, pow10(rateDecimals+s.inputDecimals))

	minOut := feePortion(expectedOut, s.settings.MinExpectedSwapBps)

	if err := s.ledger.Approve(ctx, s.settings.InputAsset, s.settings.Venue, amountIn); err != nil {
		return nil, fmt.Errorf("venue allowance grant failed: %w", err)
	}

	now := s.clock()
	totalOut, err := s.router.ExactInputSingle(ctx, venue.ExactInputSingleParams{
		TokenIn:          s.settings.InputAsset,
		TokenOut:         s.settings.OutputAsset,
		Fee:              s.settings.FeeTier,
		Recipient:        s.account,
		Deadline:         now.Unix(),
		AmountIn:         amountIn,
		AmountOutMinimum: minOut,
	})
	if err != nil {
		// The allowance was granted but not consumed; revoke it so a
		// failed swap leaves nothing the venue could still spend.
		if revokeErr := s.ledger.Approve(ctx, s.settings.InputAsset, s.settings.Venue, big.NewInt(0)); revokeErr != nil {
			s.logger.Error("Failed to revoke unused venue allowance", zap.Error(revokeErr))
		}
		return nil, fmt.Errorf("venue swap failed: %w", err)
	}

	fee := feePortion(totalOut, s.settings.SwapFeeBps)
	if fee.Sign() > 0 {
		if err := s.ledger.Transfer(ctx, s.settings.OutputAsset, s.settings.FeeRecipient, fee); err != nil {
			// The venue leg is settled and cannot be unwound. Keep the
			// fee in custody for the administrator to recover instead
			// of failing an executed swap.
			s.logger.Error("Swap fee transfer failed, fee retained in custody",
				zap.String("fee", fee.String()),
				zap.Error(err),
			)
			fee.SetInt64(0)
		}
	}
	amountOut := new(big.Int).Sub(totalOut, fee)

	s.recordEvent(&models.Settlement{
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
		Price:     executionPrice(amountIn, s.inputDecimals, amountOut, s.outputDecimals),
		Caller:    caller,
		Timestamp: now.Unix(),
	})
	s.logger.Info("Swap settled",
		zap.String("caller", caller),
		zap.String("amount_in", amountIn.String()),
		zap.String("amount_out", amountOut.String()),
		zap.String("expected_out", expectedOut.String()),
		zap.String("min_out", minOut.String()),
	)

	// With no delay gate configured, chain straight into releasing the
	// proceeds. Best-effort: a failure must not unwind the swap.
	if s.settings.WithdrawalDelay == 0 {
		if err := s.withdrawLocked(ctx, caller, amountOut, true); err != nil {
			s.logger.Warn("Chained withdrawal after swap failed, proceeds retained in custody",
				zap.String("amount", amountOut.String()),
				zap.Error(err),
			)
		}
	}

	return amountOut, nil
}

// Withdraw releases amount of custody output asset to the token
// recipient. Administrator only, gated by the withdrawal delay.
func (s *Service) Withdraw(ctx context.Context, caller string, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withdrawLocked(ctx, caller, amount, false)
}

// withdrawLocked enforces the rolling delay gate. The timestamp is
// advanced only after the transfer succeeds, so a failed withdrawal
// (including a best-effort chained one) leaves the gate untouched.
func (s *Service) withdrawLocked(ctx context.Context, caller string, amount *big.Int, privileged bool) error {
	if !privileged {
		if err := s.requireAdmin(caller); err != nil {
			return err
		}
	}

	now := s.clock()
	if s.settings.WithdrawalDelay > 0 && now.Sub(s.lastWithdrawal) < s.settings.WithdrawalDelay {
		remaining := s.settings.WithdrawalDelay - now.Sub(s.lastWithdrawal)
		return fmt.Errorf("%w: %s remaining", ErrWithdrawalDelayed, remaining)
	}

	balance, err := s.ledger.BalanceOf(ctx, s.settings.OutputAsset, s.account)
	if err != nil {
		return fmt.Errorf("could not read custody balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance, amount)
	}

	if err := s.ledger.Transfer(ctx, s.settings.OutputAsset, s.settings.TokenRecipient, amount); err != nil {
		return fmt.Errorf("withdrawal transfer failed: %w", err)
	}

	s.lastWithdrawal = now
	s.recordEvent(&models.Withdrawal{
		Amount:    amount.String(),
		Recipient: s.settings.TokenRecipient,
		Timestamp: now.Unix(),
	})
	s.logger.Info("Withdrawal released",
		zap.String("recipient", s.settings.TokenRecipient),
		zap.String("amount", amount.String()),
	)
	return nil
}

// Status is a read-only snapshot for the API.
type Status struct {
	Settings       Settings  `json:"settings"`
	LastWithdrawal time.Time `json:"last_withdrawal"`
	InputBalance   string    `json:"input_balance"`
	OutputBalance  string    `json:"output_balance"`
}

// CurrentStatus returns the settings and custody balances.
func (s *Service) CurrentStatus(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inputBalance, err := s.ledger.BalanceOf(ctx, s.settings.InputAsset, s.account)
	if err != nil {
		return Status{}, fmt.Errorf("could not read input balance: %w", err)
	}
	outputBalance, err := s.ledger.BalanceOf(ctx, s.settings.OutputAsset, s.account)
	if err != nil {
		return Status{}, fmt.Errorf("could not read output balance: %w", err)
	}

	return Status{
		Settings:       s.settings,
		LastWithdrawal: s.lastWithdrawal,
		InputBalance:   inputBalance.String(),
		OutputBalance:  outputBalance.String(),
	}, nil
}

// recordEvent persists an audit record. Persistence failures are logged
// and swallowed: the operation itself has already taken effect on the
// ledger and must not report failure over a bookkeeping problem.
func (s *Service) recordEvent(event any) {
	if s.db == nil {
		return
	}
	if err := s.db.Create(event).Error; err != nil {
		s.logger.Error("Failed to save audit record", zap.Error(err))
	}
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// executionPrice is the realized output per unit input, decimal-adjusted.
func executionPrice(amountIn *big.Int, inDecimals uint8, amountOut *big.Int, outDecimals uint8) decimal.Decimal {
	in := decimal.NewFromBigInt(amountIn, -int32(inDecimals))
	out := decimal.NewFromBigInt(amountOut, -int32(outDecimals))
	if in.IsZero() {
		return decimal.Zero
	}
	return out.Div(in)
}
