// Package deadpool periodically scans pools created for migrated campaigns
// and recycles the ones whose recent activity fell below every liveness
// threshold at once.
package deadpool

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"reactor-watcher/internal/dex"
	"reactor-watcher/internal/domain"
	"reactor-watcher/internal/indexer"
	"reactor-watcher/internal/observability"
)

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Ledger  indexer.Client
	Gateway dex.Gateway
	Logger  *logrus.Logger

	BaseAssetID string
	FeeTier     domain.FeeTier

	Interval   time.Duration
	DeadWindow time.Duration

	// Liveness thresholds. A pool is dead only when ALL of volume, swap
	// count, and unique traders are strictly below their thresholds.
	MinVolume        *big.Int
	MinSwaps         int
	MinUniqueTraders int

	DryRun bool

	// Now is the clock used for window computation. Nil means time.Now.
	Now func() time.Time
}

// PoolActivity aggregates a pool's swap activity inside the dead window.
type PoolActivity struct {
	SwapCount     int
	UniqueTraders int
	TotalVolume   *big.Int
}

// Watcher runs the periodic dead-pool scan. Ticks never overlap: a tick that
// fires while the previous one is still running is skipped.
type Watcher struct {
	ledger  indexer.Client
	gateway dex.Gateway
	log     *logrus.Logger

	baseAssetID string
	feeTier     domain.FeeTier

	interval         time.Duration
	deadWindow       time.Duration
	minVolume        *big.Int
	minSwaps         int
	minUniqueTraders int
	dryRun           bool
	now              func() time.Time

	running atomic.Bool
	started atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu            sync.Mutex
	recycledPools map[string]struct{}
}

// NewWatcher creates a dead-pool watcher with empty recycle state.
func NewWatcher(cfg WatcherConfig) *Watcher {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	minVolume := cfg.MinVolume
	if minVolume == nil {
		minVolume = big.NewInt(0)
	}
	return &Watcher{
		ledger:           cfg.Ledger,
		gateway:          cfg.Gateway,
		log:              log,
		baseAssetID:      cfg.BaseAssetID,
		feeTier:          cfg.FeeTier,
		interval:         cfg.Interval,
		deadWindow:       cfg.DeadWindow,
		minVolume:        minVolume,
		minSwaps:         cfg.MinSwaps,
		minUniqueTraders: cfg.MinUniqueTraders,
		dryRun:           cfg.DryRun,
		now:              now,
		recycledPools:    make(map[string]struct{}),
	}
}

// Start launches the periodic scan with an immediate first tick. Calling
// Start more than once is a no-op.
func (w *Watcher) Start() {
	if w.started.Swap(true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop ends the periodic scan. It does not interrupt a tick already running;
// use Wait to block until the loop exits.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Wait blocks until the scan loop has exited.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one full scan. Concurrent calls are collapsed: if a tick is
// already running the new one is skipped and counted.
func (w *Watcher) Tick(ctx context.Context) {
	if w.running.Swap(true) {
		observability.RecordWatcherTickSkipped()
		w.log.Warn("Dead pool check already running, skipping tick")
		return
	}
	defer w.running.Store(false)

	if err := w.scan(ctx); err != nil {
		observability.RecordWatcherTick("error")
		w.log.WithField("error", err.Error()).Error("Dead pool check failed")
		return
	}
	observability.RecordWatcherTick("ok")
}

func (w *Watcher) scan(ctx context.Context) error {
	campaigns, err := w.ledger.GetMigratedCampaigns(ctx)
	if err != nil {
		return fmt.Errorf("list migrated campaigns: %w", err)
	}

	since := new(big.Int).SetInt64(w.now().UnixMilli() - w.deadWindow.Milliseconds())

	for _, campaign := range campaigns {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.checkCampaign(ctx, campaign, since); err != nil {
			w.log.WithFields(logrus.Fields{
				"campaign_id": campaign.ID,
				"error":       err.Error(),
			}).Error("Failed to check campaign pool")
		}
	}
	return nil
}

func (w *Watcher) checkCampaign(ctx context.Context, campaign *domain.Campaign, since *big.Int) error {
	pool, err := w.ledger.GetPoolForTokenPair(ctx, campaign.TokenAssetID, w.baseAssetID, w.feeTier)
	if err != nil {
		return fmt.Errorf("lookup pool: %w", err)
	}
	if pool == nil {
		return nil
	}

	swaps, err := w.ledger.GetPoolSwapsSince(ctx, pool.PoolID, since)
	if err != nil {
		return fmt.Errorf("lookup swaps for pool %s: %w", pool.PoolID, err)
	}

	activity := AggregateActivity(swaps)
	dead := w.IsDead(activity)
	observability.RecordPoolEvaluated()

	w.log.WithFields(logrus.Fields{
		"campaign_id":    campaign.ID,
		"pool_id":        pool.PoolID,
		"swap_count":     activity.SwapCount,
		"unique_traders": activity.UniqueTraders,
		"volume":         activity.TotalVolume.String(),
		"dead":           dead,
	}).Info("Evaluated pool activity")

	if !dead {
		return nil
	}
	return w.recycle(ctx, campaign.ID, pool.PoolID)
}

// recycle pulls liquidity from a dead pool at most once per pool id. The
// pool is marked recycled in both dry-run and live mode, but only after the
// gateway call succeeds; a failed call leaves it eligible for the next tick.
func (w *Watcher) recycle(ctx context.Context, campaignID, poolID string) error {
	w.mu.Lock()
	_, done := w.recycledPools[poolID]
	w.mu.Unlock()
	if done {
		return nil
	}

	mode := "live"
	if w.dryRun {
		mode = "dry_run"
	}

	if err := w.gateway.PullLiquidityForRecycle(ctx, campaignID, poolID, w.dryRun); err != nil {
		return fmt.Errorf("recycle pool %s: %w", poolID, err)
	}

	w.mu.Lock()
	w.recycledPools[poolID] = struct{}{}
	w.mu.Unlock()
	observability.RecordPoolRecycled(mode)
	w.log.WithFields(logrus.Fields{
		"campaign_id": campaignID,
		"pool_id":     poolID,
		"mode":        mode,
	}).Info("Recycled dead pool liquidity")
	return nil
}

// IsDead reports whether a pool's activity falls below every liveness
// threshold. Meeting or exceeding any single threshold keeps the pool alive.
func (w *Watcher) IsDead(activity PoolActivity) bool {
	return activity.TotalVolume.Cmp(w.minVolume) < 0 &&
		activity.SwapCount < w.minSwaps &&
		activity.UniqueTraders < w.minUniqueTraders
}

// AggregateActivity computes swap count, distinct traders, and total volume
// for a window of swap records. Volume is the sum of the absolute values of
// all four swap legs; unparseable amounts count as zero.
func AggregateActivity(swaps []*domain.SwapRecord) PoolActivity {
	traders := make(map[string]struct{}, len(swaps))
	volume := new(big.Int)

	for _, swap := range swaps {
		traders[swap.RecipientID] = struct{}{}
		for _, raw := range []string{swap.AmountAIn, swap.AmountBIn, swap.AmountAOut, swap.AmountBOut} {
			volume.Add(volume, safeAbs(raw))
		}
	}

	return PoolActivity{
		SwapCount:     len(swaps),
		UniqueTraders: len(traders),
		TotalVolume:   volume,
	}
}

func safeAbs(raw string) *big.Int {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v.Abs(v)
}
