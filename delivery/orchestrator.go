// Package delivery implements the post-payment token delivery chain: an
// ordered fallback of direct transfer, DEX swap, mint, and refund. Delivery
// runs after the HTTP response has been written; its outcome is observable
// only through logs.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	seller "github.com/zorroteam/x402-seller"
)

// Fixed quantities for one purchase. Amounts are atomic-unit big.Ints tagged
// by the decimals they were scaled with; no floating point anywhere.
var (
	// TokenQuantity is the deliverable amount: 10,000 tokens at 18 decimals.
	TokenQuantity = mustUnits("10000", 18)

	// PaymentQuantity is the purchase price: 2 USDC at 6 decimals. The refund
	// stage returns exactly this amount.
	PaymentQuantity = mustUnits("2", 6)
)

// swapDeadline bounds how long a submitted swap stays valid.
const swapDeadline = 300 * time.Second

// TokenMover is the transaction-submission collaborator the orchestrator
// drives. Every write waits for on-chain confirmation before returning.
// The production implementation is evm.Client.
type TokenMover interface {
	// Account is the server wallet address funds move from.
	Account() common.Address

	// BalanceOf returns the token balance of an account.
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)

	// Allowance returns the router's current spending allowance.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)

	// Approve grants a spender an allowance from the server wallet.
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error

	// Transfer moves tokens from the server wallet.
	Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error

	// Mint creates tokens directly to an account via the privileged mint.
	Mint(ctx context.Context, token, to common.Address, amount *big.Int) error

	// Swap executes an exactInputSingle swap through one fee-tier pool.
	Swap(ctx context.Context, router, tokenIn, tokenOut common.Address, fee seller.FeeTier, amountIn *big.Int, deadline time.Time) error
}

// Outcome is the terminal state of one delivery attempt.
type Outcome string

const (
	OutcomeDirectTransferred     Outcome = "direct_transferred"
	OutcomeSwappedAndTransferred Outcome = "swapped_and_transferred"
	OutcomeMinted                Outcome = "minted"
	OutcomeRefunded              Outcome = "refunded"
	OutcomeFailed                Outcome = "failed"
)

// Request is one unit of delivery work, created after payment verification
// and discarded once an outcome is reached.
type Request struct {
	// Payer is the address the deliverable is sent to.
	Payer common.Address
}

// Orchestrator walks one Request through the fallback chain. Stages run
// strictly in order; a stage error is logged and causes fallthrough to the
// next stage, never a crash. Exactly one Outcome is reached per request.
type Orchestrator struct {
	chain      TokenMover
	token      common.Address
	usdc       common.Address
	weth       common.Address
	router     common.Address
	autoRefund bool
	logger     *slog.Logger
	now        func() time.Time
}

// NewOrchestrator builds an orchestrator over the configured contracts.
func NewOrchestrator(chain TokenMover, cfg *seller.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		chain:      chain,
		token:      common.HexToAddress(cfg.TokenAddress),
		usdc:       common.HexToAddress(cfg.USDCAddress),
		weth:       common.HexToAddress(cfg.WETHAddress),
		router:     common.HexToAddress(cfg.SwapRouterAddress),
		autoRefund: cfg.AutoRefund,
		logger:     logger,
		now:        time.Now,
	}
}

// stage is one named step of the fallback chain with its success outcome.
type stage struct {
	name    string
	outcome Outcome
	run     func(ctx context.Context, payer common.Address) error
}

// Deliver runs the fallback chain for one payer and returns the terminal
// outcome. It never returns an error: failures are logged operational events.
func (o *Orchestrator) Deliver(ctx context.Context, req Request) Outcome {
	if req.Payer == (common.Address{}) {
		o.logger.Error("delivery request without payer address")
		return OutcomeFailed
	}

	log := o.logger.With("payer", req.Payer.Hex())

	stages := []stage{
		{"direct-transfer", OutcomeDirectTransferred, o.directTransfer},
		{"swap", OutcomeSwappedAndTransferred, o.swapAndForward},
		{"mint", OutcomeMinted, o.mint},
	}

	for _, st := range stages {
		log.Info("delivery stage starting", "stage", st.name)
		if err := st.run(ctx, req.Payer); err != nil {
			log.Warn("delivery stage failed", "stage", st.name, "error", err)
			continue
		}
		log.Info("delivery complete", "stage", st.name, "outcome", string(st.outcome))
		return st.outcome
	}

	if !o.autoRefund {
		log.Error("all delivery stages failed and auto-refund is disabled; manual intervention required")
		return OutcomeFailed
	}

	if err := o.refund(ctx, req.Payer); err != nil {
		log.Error("refund failed; manual intervention required", "error", err)
		return OutcomeFailed
	}
	log.Info("delivery complete", "stage", "refund", "outcome", string(OutcomeRefunded))
	return OutcomeRefunded
}

// directTransfer sends the fixed deliverable quantity from pre-funded
// inventory, the cheapest path when the wallet holds enough.
func (o *Orchestrator) directTransfer(ctx context.Context, payer common.Address) error {
	balance, err := o.chain.BalanceOf(ctx, o.token, o.chain.Account())
	if err != nil {
		return fmt.Errorf("balance check failed: %w", err)
	}

	if balance.Cmp(TokenQuantity) < 0 {
		return fmt.Errorf("%w: have %s, need %s",
			seller.ErrInsufficientBalance,
			seller.FormatUnits(balance, 18), seller.FormatUnits(TokenQuantity, 18))
	}

	return o.chain.Transfer(ctx, o.token, payer, TokenQuantity)
}

// swapAndForward acquires WETH by swapping the payment amount of USDC through
// the V3 router, trying fee tiers in ascending order, and forwards the full
// swap output to the payer. The unlimited router approval is granted once and
// reused; it is skipped when the current allowance already covers the swap.
func (o *Orchestrator) swapAndForward(ctx context.Context, payer common.Address) error {
	allowance, err := o.chain.Allowance(ctx, o.usdc, o.chain.Account(), o.router)
	if err != nil {
		return fmt.Errorf("allowance check failed: %w", err)
	}
	if allowance.Cmp(PaymentQuantity) < 0 {
		if err := o.chain.Approve(ctx, o.usdc, o.router, abi.MaxUint256); err != nil {
			return fmt.Errorf("router approval failed: %w", err)
		}
		o.logger.Info("approved router to spend payment asset", "router", o.router.Hex())
	}

	var lastErr error
	for _, tier := range seller.FeeTiers {
		deadline := o.now().Add(swapDeadline)
		if err := o.chain.Swap(ctx, o.router, o.usdc, o.weth, tier, PaymentQuantity, deadline); err != nil {
			// Typically no pool exists at this tier. Try the next one.
			o.logger.Warn("swap failed", "tier", tier.String(), "error", err)
			lastErr = err
			continue
		}

		output, err := o.chain.BalanceOf(ctx, o.weth, o.chain.Account())
		if err != nil {
			return fmt.Errorf("swap output check failed: %w", err)
		}
		if output.Sign() <= 0 {
			o.logger.Warn("swap confirmed with no output", "tier", tier.String())
			lastErr = seller.ErrSwapNoOutput
			continue
		}

		o.logger.Info("swap succeeded", "tier", tier.String(),
			"output", seller.FormatUnits(output, 18))
		return o.chain.Transfer(ctx, o.weth, payer, output)
	}

	if lastErr == nil {
		lastErr = seller.ErrSwapNoOutput
	}
	return fmt.Errorf("all fee tiers exhausted: %w", lastErr)
}

// mint creates the fixed deliverable quantity directly to the payer. Fails
// when the server wallet lacks the minter role.
func (o *Orchestrator) mint(ctx context.Context, payer common.Address) error {
	return o.chain.Mint(ctx, o.token, payer, TokenQuantity)
}

// refund returns the original payment amount to the payer.
func (o *Orchestrator) refund(ctx context.Context, payer common.Address) error {
	return o.chain.Transfer(ctx, o.usdc, payer, PaymentQuantity)
}

func mustUnits(amount string, decimals int) *big.Int {
	v, err := seller.ParseUnits(amount, decimals)
	if err != nil {
		panic(err)
	}
	return v
}
