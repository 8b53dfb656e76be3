// Package dex exposes the decentralized-exchange gateway: pool creation and
// seeding, quote-then-swap with slippage protection, pool state reads, and
// the (dry-run) dead-pool liquidity recycle.
package dex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/sirupsen/logrus"

	"reactor-watcher/internal/domain"
)

// ErrRecycleUnimplemented is returned by a live (non-dry-run) recycle. A real
// withdrawal needs per-position tick range and liquidity, which the ledger
// does not expose yet.
var ErrRecycleUnimplemented = errors.New(
	"liquidity recycle requires per-position parameters (tick range + liquidity); " +
		"enable REACTOR_RECYCLE_DRY_RUN or implement a position resolver")

// CreatePoolParams are the arguments of the create-and-seed operation.
// TokenAmount is decimalized by TokenDecimals; QuoteAmount is in raw base
// units of the QuoteDecimals-decimal quote asset.
type CreatePoolParams struct {
	TokenAssetID  string
	QuoteAssetID  string
	TokenDecimals int
	QuoteDecimals int
	TokenAmount   float64
	QuoteAmount   float64
	FeeTier       domain.FeeTier
	PriceLower    int
	PriceUpper    int
}

// SwapParams are the arguments of a quote-then-swap operation. Zero
// SlippageBps and DeadlineBlocks fall back to the service defaults.
type SwapParams struct {
	Pool           PoolKey
	TokenInID      string
	TokenOutID     string
	AmountIn       *big.Int
	SlippageBps    int
	DeadlineBlocks int
}

// Gateway is the DEX operation contract consumed by the migration processor
// and the dead-pool watcher. The gateway itself does not deduplicate;
// idempotency is the caller's responsibility via the pool-existence check.
type Gateway interface {
	// Address returns the owner wallet address.
	Address() string

	// ReadPoolState returns the on-chain state of the pool.
	ReadPoolState(ctx context.Context, tokenA, tokenB string, fee domain.FeeTier) (*PoolState, error)

	// CreatePoolAndSeedLiquidity creates the pool and seeds its initial
	// liquidity in the configured price range.
	CreatePoolAndSeedLiquidity(ctx context.Context, params CreatePoolParams) (*Receipt, error)

	// SwapExactInWithQuote quotes the swap, derives the minimum acceptable
	// output from the slippage tolerance, and executes it.
	SwapExactInWithQuote(ctx context.Context, params SwapParams) (*Receipt, error)

	// PullLiquidityForRecycle withdraws liquidity from a dead pool. In
	// dry-run mode it only logs; live mode returns ErrRecycleUnimplemented.
	PullLiquidityForRecycle(ctx context.Context, campaignID, poolID string, dryRun bool) error
}

// Service implements Gateway on top of an Engine.
type Service struct {
	engine         Engine
	wallet         *Wallet
	slippageBps    int
	deadlineBlocks int
	log            *logrus.Logger
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Engine         Engine
	Wallet         *Wallet
	SlippageBps    int
	DeadlineBlocks int
	Logger         *logrus.Logger
}

// NewService creates a DEX gateway service.
func NewService(cfg ServiceConfig) *Service {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		engine:         cfg.Engine,
		wallet:         cfg.Wallet,
		slippageBps:    cfg.SlippageBps,
		deadlineBlocks: cfg.DeadlineBlocks,
		log:            log,
	}
}

// Address implements Gateway.
func (s *Service) Address() string {
	return s.wallet.Address()
}

// ReadPoolState implements Gateway.
func (s *Service) ReadPoolState(ctx context.Context, tokenA, tokenB string, fee domain.FeeTier) (*PoolState, error) {
	return s.engine.GetPoolState(ctx, PoolKey{TokenA: tokenA, TokenB: tokenB, Fee: fee})
}

// CreatePoolAndSeedLiquidity implements Gateway.
func (s *Service) CreatePoolAndSeedLiquidity(ctx context.Context, params CreatePoolParams) (*Receipt, error) {
	if !ValidAssetID(params.TokenAssetID) {
		return nil, fmt.Errorf("invalid token asset id: %q", params.TokenAssetID)
	}
	if !ValidAssetID(params.QuoteAssetID) {
		return nil, fmt.Errorf("invalid quote asset id: %q", params.QuoteAssetID)
	}
	if !positiveFinite(params.TokenAmount) || !positiveFinite(params.QuoteAmount) {
		return nil, fmt.Errorf("seed amounts must be positive and finite: token=%v quote=%v",
			params.TokenAmount, params.QuoteAmount)
	}

	s.log.WithFields(logrus.Fields{
		"token_asset_id": params.TokenAssetID,
		"quote_asset_id": params.QuoteAssetID,
		"token_amount":   params.TokenAmount,
		"quote_amount":   params.QuoteAmount,
		"fee_tier":       params.FeeTier.String(),
	}).Info("Creating pool and seeding liquidity")

	return s.engine.CreatePoolWithLiquidity(ctx, CreatePoolCall{
		TokenAssetID:   params.TokenAssetID,
		QuoteAssetID:   params.QuoteAssetID,
		TokenDecimals:  params.TokenDecimals,
		QuoteDecimals:  params.QuoteDecimals,
		TokenAmount:    params.TokenAmount,
		QuoteAmount:    params.QuoteAmount,
		Fee:            params.FeeTier,
		PriceLower:     params.PriceLower,
		PriceUpper:     params.PriceUpper,
		DeadlineBlocks: s.deadlineBlocks,
	})
}

// SwapExactInWithQuote implements Gateway.
func (s *Service) SwapExactInWithQuote(ctx context.Context, params SwapParams) (*Receipt, error) {
	if params.AmountIn == nil || params.AmountIn.Sign() <= 0 {
		return nil, fmt.Errorf("swap amount must be positive")
	}

	deadline := params.DeadlineBlocks
	if deadline == 0 {
		deadline = s.deadlineBlocks
	}

	quoted, err := s.engine.QuoteExactIn(ctx, QuoteCall{
		Pool:           params.Pool,
		TokenInID:      params.TokenInID,
		TokenOutID:     params.TokenOutID,
		AmountIn:       params.AmountIn.String(),
		DeadlineBlocks: deadline,
	})
	if err != nil {
		return nil, fmt.Errorf("quote exact in: %w", err)
	}
	if quoted.Sign() <= 0 {
		return nil, fmt.Errorf("quote returned zero output")
	}

	bps := params.SlippageBps
	if bps == 0 {
		bps = s.slippageBps
	}
	minOut := applySlippage(quoted, bps)

	return s.engine.SwapExactIn(ctx, SwapCall{
		Pool:           params.Pool,
		TokenInID:      params.TokenInID,
		TokenOutID:     params.TokenOutID,
		AmountIn:       params.AmountIn.String(),
		MinAmountOut:   minOut.String(),
		DeadlineBlocks: deadline,
	})
}

// PullLiquidityForRecycle implements Gateway.
func (s *Service) PullLiquidityForRecycle(ctx context.Context, campaignID, poolID string, dryRun bool) error {
	if dryRun {
		s.log.WithFields(logrus.Fields{
			"campaign_id": campaignID,
			"pool_id":     poolID,
		}).Info("Dead-pool recycle dry-run hit")
		return nil
	}
	return ErrRecycleUnimplemented
}

// applySlippage returns quoted * (10000 - bps) / 10000 with floor division,
// clamping bps to [0, 10000].
func applySlippage(quoted *big.Int, bps int) *big.Int {
	if bps < 0 {
		bps = 0
	}
	if bps > 10_000 {
		bps = 10_000
	}
	out := new(big.Int).Mul(quoted, big.NewInt(int64(10_000-bps)))
	return out.Quo(out, big.NewInt(10_000))
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
