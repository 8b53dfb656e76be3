// Package migration reconciles "campaign migrated" signals into exactly one
// pool creation per campaign.
package migration

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"reactor-watcher/internal/dex"
	"reactor-watcher/internal/domain"
	"reactor-watcher/internal/indexer"
	"reactor-watcher/internal/observability"
)

// QuoteAssetDecimals is the decimal count of the quote asset. The migration
// quote reserve is passed to the gateway in raw base units of this asset.
const QuoteAssetDecimals = 9

// ProcessorConfig configures a Processor.
type ProcessorConfig struct {
	Ledger      indexer.Client
	Gateway     dex.Gateway
	BaseAssetID string
	FeeTier     domain.FeeTier
	PriceLower  int
	PriceUpper  int
	Logger      *logrus.Logger
}

// Processor is the idempotent migration state machine. Safe for concurrent
// use; the dedup sets are a fast path, the ledger pool-existence check is the
// authoritative guard.
type Processor struct {
	ledger      indexer.Client
	gateway     dex.Gateway
	baseAssetID string
	feeTier     domain.FeeTier
	priceLower  int
	priceUpper  int
	log         *logrus.Logger

	mu                   sync.Mutex
	processedSignalIDs   map[string]struct{}
	processedCampaignIDs map[string]struct{}
}

// NewProcessor creates a migration processor with empty dedup state.
func NewProcessor(cfg ProcessorConfig) *Processor {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{
		ledger:               cfg.Ledger,
		gateway:              cfg.Gateway,
		baseAssetID:          cfg.BaseAssetID,
		feeTier:              cfg.FeeTier,
		priceLower:           cfg.PriceLower,
		priceUpper:           cfg.PriceUpper,
		log:                  log,
		processedSignalIDs:   make(map[string]struct{}),
		processedCampaignIDs: make(map[string]struct{}),
	}
}

// ProcessCampaignSignal handles one campaign status signal. Non-migration
// signals and duplicates are no-ops. Data inconsistencies (unknown campaign,
// missing migration event) are logged and dropped without marking dedup
// state. Gateway failures propagate without marking dedup state so a later
// signal can retry.
func (p *Processor) ProcessCampaignSignal(ctx context.Context, signal domain.CampaignSignal, signalID string) error {
	if signal.Status != string(domain.StatusMigrated) {
		return nil
	}

	if p.alreadyProcessed(signal.CampaignID, signalID) {
		observability.RecordSignal("duplicate")
		p.log.WithFields(logrus.Fields{
			"campaign_id": signal.CampaignID,
			"signal_id":   signalID,
		}).Debug("Skipping duplicate migration signal")
		return nil
	}

	campaign, err := p.ledger.GetCampaignByID(ctx, signal.CampaignID)
	if err != nil {
		return fmt.Errorf("resolve campaign %s: %w", signal.CampaignID, err)
	}
	if campaign == nil {
		observability.RecordSignal("unknown_campaign")
		p.log.WithField("campaign_id", signal.CampaignID).
			Warn("Campaign from migration signal not found in indexer")
		return nil
	}

	existing, err := p.ledger.GetPoolForTokenPair(ctx, campaign.TokenAssetID, p.baseAssetID, p.feeTier)
	if err != nil {
		return fmt.Errorf("check existing pool for campaign %s: %w", signal.CampaignID, err)
	}
	if existing != nil {
		p.markProcessed(signal.CampaignID, signalID)
		observability.RecordSignal("pool_exists")
		p.log.WithFields(logrus.Fields{
			"campaign_id": signal.CampaignID,
			"pool_id":     existing.PoolID,
		}).Info("Pool already exists for migrated campaign, skipping creation")
		return nil
	}

	event, err := p.ledger.GetLatestMigrationEvent(ctx, signal.CampaignID)
	if err != nil {
		return fmt.Errorf("resolve migration event for campaign %s: %w", signal.CampaignID, err)
	}
	if event == nil {
		observability.RecordSignal("missing_migration_event")
		p.log.WithField("campaign_id", signal.CampaignID).
			Warn("Migration event missing for migrated campaign")
		return nil
	}

	tokenAmount, err := ToDecimalAmount(event.TokenReserve, campaign.TokenDecimals)
	if err != nil {
		return fmt.Errorf("token reserve for campaign %s: %w", signal.CampaignID, err)
	}
	// The quote reserve passes through in base units, per the quote-decimals
	// contract.
	quoteAmount, err := ToDecimalAmount(event.BaseReserve, 0)
	if err != nil {
		return fmt.Errorf("base reserve for campaign %s: %w", signal.CampaignID, err)
	}

	if _, err := p.gateway.CreatePoolAndSeedLiquidity(ctx, dex.CreatePoolParams{
		TokenAssetID:  campaign.TokenAssetID,
		QuoteAssetID:  p.baseAssetID,
		TokenDecimals: campaign.TokenDecimals,
		QuoteDecimals: QuoteAssetDecimals,
		TokenAmount:   tokenAmount,
		QuoteAmount:   quoteAmount,
		FeeTier:       p.feeTier,
		PriceLower:    p.priceLower,
		PriceUpper:    p.priceUpper,
	}); err != nil {
		observability.RecordSignal("failed")
		return fmt.Errorf("create pool for campaign %s: %w", signal.CampaignID, err)
	}

	p.markProcessed(signal.CampaignID, signalID)
	observability.RecordSignal("created")
	observability.RecordPoolCreated()
	p.log.WithField("campaign_id", signal.CampaignID).Info("Migration signal processed successfully")
	return nil
}

func (p *Processor) alreadyProcessed(campaignID, signalID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if signalID != "" {
		if _, ok := p.processedSignalIDs[signalID]; ok {
			return true
		}
	}
	_, ok := p.processedCampaignIDs[campaignID]
	return ok
}

func (p *Processor) markProcessed(campaignID, signalID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processedCampaignIDs[campaignID] = struct{}{}
	if signalID != "" {
		p.processedSignalIDs[signalID] = struct{}{}
	}
}
