// Package stub provides a recording fake of the DEX gateway for tests.
package stub

import (
	"context"
	"sync"

	"reactor-watcher/internal/dex"
	"reactor-watcher/internal/domain"
)

// RecycleCall records one PullLiquidityForRecycle invocation.
type RecycleCall struct {
	CampaignID string
	PoolID     string
	DryRun     bool
}

// Gateway is an in-memory dex.Gateway that records every call.
type Gateway struct {
	mu sync.Mutex

	// Errors to inject per operation.
	CreateErr  error
	RecycleErr error

	CreateCalls  []dex.CreatePoolParams
	RecycleCalls []RecycleCall
}

// New creates an empty stub gateway.
func New() *Gateway {
	return &Gateway{}
}

// Address implements dex.Gateway.
func (g *Gateway) Address() string {
	return "stub-wallet"
}

// ReadPoolState implements dex.Gateway.
func (g *Gateway) ReadPoolState(ctx context.Context, tokenA, tokenB string, fee domain.FeeTier) (*dex.PoolState, error) {
	return &dex.PoolState{}, nil
}

// CreatePoolAndSeedLiquidity implements dex.Gateway.
func (g *Gateway) CreatePoolAndSeedLiquidity(ctx context.Context, params dex.CreatePoolParams) (*dex.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.CreateCalls = append(g.CreateCalls, params)
	return &dex.Receipt{TxID: "stub-tx", Status: "success"}, nil
}

// SwapExactInWithQuote implements dex.Gateway.
func (g *Gateway) SwapExactInWithQuote(ctx context.Context, params dex.SwapParams) (*dex.Receipt, error) {
	return &dex.Receipt{TxID: "stub-tx", Status: "success"}, nil
}

// PullLiquidityForRecycle implements dex.Gateway.
func (g *Gateway) PullLiquidityForRecycle(ctx context.Context, campaignID, poolID string, dryRun bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RecycleErr != nil {
		return g.RecycleErr
	}
	g.RecycleCalls = append(g.RecycleCalls, RecycleCall{CampaignID: campaignID, PoolID: poolID, DryRun: dryRun})
	return nil
}
