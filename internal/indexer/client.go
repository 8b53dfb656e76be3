// Package indexer provides read-only access to the ledger indexer's GraphQL
// API: campaign records, migration-reserve snapshots, pool creations, and
// pool swap history.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"reactor-watcher/internal/domain"
	"reactor-watcher/internal/observability"
)

// DefaultTimeout bounds a single indexer query.
const DefaultTimeout = 30 * time.Second

// SwapBatchLimit bounds a single swap-history query.
const SwapBatchLimit = 5000

// Client is the ledger query contract consumed by the migration processor and
// the dead-pool watcher. Absent records are returned as (nil, nil).
type Client interface {
	// GetCampaignByID returns the campaign with the given id, or nil.
	GetCampaignByID(ctx context.Context, campaignID string) (*domain.Campaign, error)

	// GetMigratedCampaigns returns all campaigns in status Launched or Migrated.
	GetMigratedCampaigns(ctx context.Context) ([]*domain.Campaign, error)

	// GetLatestMigrationEvent returns the campaign's most recent migration
	// event by timestamp, or nil if none is recorded yet.
	GetLatestMigrationEvent(ctx context.Context, campaignID string) (*domain.MigrationEvent, error)

	// GetPoolForTokenPair returns the pool over the given pair and fee tier,
	// order-insensitive on the pair, or nil.
	GetPoolForTokenPair(ctx context.Context, tokenAssetID, baseAssetID string, fee domain.FeeTier) (*domain.Pool, error)

	// GetPoolSwapsSince returns up to SwapBatchLimit swaps for the pool with
	// timestamp >= fromTimestamp, in ascending time order.
	GetPoolSwapsSince(ctx context.Context, poolID string, fromTimestamp *big.Int) ([]*domain.SwapRecord, error)
}

// GraphQLClient implements Client over HTTP POST against the indexer endpoint.
type GraphQLClient struct {
	endpoint string
	client   *http.Client
}

// ClientOption configures GraphQLClient.
type ClientOption func(*GraphQLClient)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *GraphQLClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *GraphQLClient) {
		c.client = client
	}
}

// NewGraphQLClient creates a new indexer client for the given endpoint.
func NewGraphQLClient(endpoint string, opts ...ClientOption) *GraphQLClient {
	c := &GraphQLClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// query posts a GraphQL document and decodes the data payload into result.
// The name labels the latency observation for this query.
func (c *GraphQLClient) query(ctx context.Context, name, doc string, variables map[string]any, result any) error {
	start := time.Now()
	defer func() {
		observability.RecordIndexerQuery(name, time.Since(start))
	}()

	body, err := json.Marshal(graphqlRequest{Query: doc, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("indexer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("indexer request failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("indexer query: %s", strings.Join(msgs, "; "))
	}
	if envelope.Data == nil {
		return fmt.Errorf("indexer returned empty data")
	}

	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

const campaignByIDQuery = `
  query CampaignById($campaignId: String!) {
    Campaign(where: { id: { _eq: $campaignId } }, limit: 1) {
      id
      status
      token_asset_id
      token_decimals
    }
  }
`

// GetCampaignByID implements Client.
func (c *GraphQLClient) GetCampaignByID(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	var data struct {
		Campaign []*domain.Campaign `json:"Campaign"`
	}
	if err := c.query(ctx, "campaign_by_id", campaignByIDQuery, map[string]any{"campaignId": campaignID}, &data); err != nil {
		return nil, err
	}
	if len(data.Campaign) == 0 {
		return nil, nil
	}
	return data.Campaign[0], nil
}

const migratedCampaignsQuery = `
  query MigratedCampaigns($statuses: [String!]!) {
    Campaign(where: { status: { _in: $statuses } }) {
      id
      status
      token_asset_id
      token_decimals
    }
  }
`

// GetMigratedCampaigns implements Client.
func (c *GraphQLClient) GetMigratedCampaigns(ctx context.Context) ([]*domain.Campaign, error) {
	var data struct {
		Campaign []*domain.Campaign `json:"Campaign"`
	}
	vars := map[string]any{
		"statuses": []string{string(domain.StatusLaunched), string(domain.StatusMigrated)},
	}
	if err := c.query(ctx, "migrated_campaigns", migratedCampaignsQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.Campaign, nil
}

const latestMigrationEventQuery = `
  query CampaignMigration($campaignId: String!) {
    Launchpad_CampaignMigratedEvent(
      where: { campaign_id: { _eq: $campaignId } }
      order_by: { timestamp: desc }
      limit: 1
    ) {
      campaign_id
      base_reserve
      token_reserve
      timestamp
      tx_id
    }
  }
`

// GetLatestMigrationEvent implements Client.
func (c *GraphQLClient) GetLatestMigrationEvent(ctx context.Context, campaignID string) (*domain.MigrationEvent, error) {
	var data struct {
		Events []*domain.MigrationEvent `json:"Launchpad_CampaignMigratedEvent"`
	}
	if err := c.query(ctx, "latest_migration_event", latestMigrationEventQuery, map[string]any{"campaignId": campaignID}, &data); err != nil {
		return nil, err
	}
	if len(data.Events) == 0 {
		return nil, nil
	}
	return data.Events[0], nil
}

const poolForTokenPairQuery = `
  query PoolByTokenPair($tokenAssetId: String!, $baseAssetId: String!, $fee: bigint!) {
    ReactorPool_CreatePoolEvent(
      where: {
        fee: { _eq: $fee }
        _or: [
          {
            token_0_asset_id: { _eq: $tokenAssetId }
            token_1_asset_id: { _eq: $baseAssetId }
          }
          {
            token_0_asset_id: { _eq: $baseAssetId }
            token_1_asset_id: { _eq: $tokenAssetId }
          }
        ]
      }
      order_by: { timestamp: desc }
      limit: 1
    ) {
      pool_id
      token_0_asset_id
      token_1_asset_id
      fee
      timestamp
    }
  }
`

// GetPoolForTokenPair implements Client.
func (c *GraphQLClient) GetPoolForTokenPair(ctx context.Context, tokenAssetID, baseAssetID string, fee domain.FeeTier) (*domain.Pool, error) {
	var data struct {
		Pools []*domain.Pool `json:"ReactorPool_CreatePoolEvent"`
	}
	vars := map[string]any{
		"tokenAssetId": tokenAssetID,
		"baseAssetId":  baseAssetID,
		"fee":          fee.String(),
	}
	if err := c.query(ctx, "pool_by_token_pair", poolForTokenPairQuery, vars, &data); err != nil {
		return nil, err
	}
	if len(data.Pools) == 0 {
		return nil, nil
	}
	return data.Pools[0], nil
}

const poolSwapsSinceQuery = `
  query PoolSwaps($poolId: String!, $fromTs: bigint!, $limit: Int!) {
    ReactorPool_SwapEvent(
      where: { pool_id: { _eq: $poolId }, timestamp: { _gte: $fromTs } }
      limit: $limit
      order_by: { timestamp: asc }
    ) {
      recipient_id
      asset_0_in
      asset_1_in
      asset_0_out
      asset_1_out
    }
  }
`

// GetPoolSwapsSince implements Client.
func (c *GraphQLClient) GetPoolSwapsSince(ctx context.Context, poolID string, fromTimestamp *big.Int) ([]*domain.SwapRecord, error) {
	var data struct {
		Swaps []*domain.SwapRecord `json:"ReactorPool_SwapEvent"`
	}
	vars := map[string]any{
		"poolId": poolID,
		"fromTs": fromTimestamp.String(),
		"limit":  SwapBatchLimit,
	}
	if err := c.query(ctx, "pool_swaps_since", poolSwapsSinceQuery, vars, &data); err != nil {
		return nil, err
	}
	return data.Swaps, nil
}
