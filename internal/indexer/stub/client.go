// Package stub provides an in-memory fake of the ledger indexer client for
// tests.
package stub

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"sync"

	"reactor-watcher/internal/domain"
)

// Client is an in-memory indexer.Client. Zero value is not usable; construct
// with New.
type Client struct {
	mu sync.Mutex

	campaigns  map[string]*domain.Campaign
	migrations map[string]*domain.MigrationEvent
	pools      map[string]*domain.Pool // keyed by normalized (pair, fee)
	swaps      map[string][]*domain.SwapRecord

	// Err, when set, is returned by every query.
	Err error

	// Call counters.
	CampaignQueries  int
	MigrationQueries int
	PoolQueries      int
	SwapQueries      int
}

// New creates an empty stub client.
func New() *Client {
	return &Client{
		campaigns:  make(map[string]*domain.Campaign),
		migrations: make(map[string]*domain.MigrationEvent),
		pools:      make(map[string]*domain.Pool),
		swaps:      make(map[string][]*domain.SwapRecord),
	}
}

func pairKey(tokenAssetID, baseAssetID string, fee domain.FeeTier) string {
	pair := []string{tokenAssetID, baseAssetID}
	sort.Strings(pair)
	return strings.Join(pair, "|") + "|" + fee.String()
}

// AddCampaign registers a campaign record.
func (c *Client) AddCampaign(campaign *domain.Campaign) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.campaigns[campaign.ID] = campaign
}

// AddMigrationEvent registers the latest migration event for a campaign.
func (c *Client) AddMigrationEvent(event *domain.MigrationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.migrations[event.CampaignID] = event
}

// AddPool registers a pool, resolvable order-insensitively by its pair.
func (c *Client) AddPool(pool *domain.Pool, fee domain.FeeTier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pools[pairKey(pool.TokenA, pool.TokenB, fee)] = pool
}

// AddSwaps appends swap records for a pool.
func (c *Client) AddSwaps(poolID string, records ...*domain.SwapRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swaps[poolID] = append(c.swaps[poolID], records...)
}

// GetCampaignByID implements indexer.Client.
func (c *Client) GetCampaignByID(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CampaignQueries++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.campaigns[campaignID], nil
}

// GetMigratedCampaigns implements indexer.Client.
func (c *Client) GetMigratedCampaigns(ctx context.Context) ([]*domain.Campaign, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CampaignQueries++
	if c.Err != nil {
		return nil, c.Err
	}
	var out []*domain.Campaign
	for _, campaign := range c.campaigns {
		if campaign.Status == domain.StatusLaunched || campaign.Status == domain.StatusMigrated {
			out = append(out, campaign)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetLatestMigrationEvent implements indexer.Client.
func (c *Client) GetLatestMigrationEvent(ctx context.Context, campaignID string) (*domain.MigrationEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.MigrationQueries++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.migrations[campaignID], nil
}

// GetPoolForTokenPair implements indexer.Client.
func (c *Client) GetPoolForTokenPair(ctx context.Context, tokenAssetID, baseAssetID string, fee domain.FeeTier) (*domain.Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PoolQueries++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.pools[pairKey(tokenAssetID, baseAssetID, fee)], nil
}

// GetPoolSwapsSince implements indexer.Client. The stub ignores the timestamp
// bound; tests control the window by what they add.
func (c *Client) GetPoolSwapsSince(ctx context.Context, poolID string, fromTimestamp *big.Int) ([]*domain.SwapRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SwapQueries++
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]*domain.SwapRecord(nil), c.swaps[poolID]...), nil
}
