package domain

// CampaignStatus is the lifecycle state of a token-sale campaign.
type CampaignStatus string

// Campaign lifecycle states as recorded by the ledger indexer.
const (
	StatusActive   CampaignStatus = "Active"
	StatusLaunched CampaignStatus = "Launched"
	StatusMigrated CampaignStatus = "Migrated"
	StatusDenied   CampaignStatus = "Denied"
	StatusDeleted  CampaignStatus = "Deleted"
)

// Campaign is a token-sale campaign record. Owned and mutated by the ledger
// indexer; this service only reads it.
type Campaign struct {
	ID            string         `json:"id"`
	Status        CampaignStatus `json:"status"`
	TokenAssetID  string         `json:"token_asset_id"`
	TokenDecimals int            `json:"token_decimals"`
}

// CampaignSignal is the payload of a campaign_updated push event.
type CampaignSignal struct {
	Type       string `json:"type"`
	CampaignID string `json:"campaignId"`
	Status     string `json:"status,omitempty"`
}
