package domain

// MigrationEvent is the authoritative record of the reserves moved from a
// campaign's bonding curve into the public pool at migration time. Amounts are
// unsigned integers in base units, carried as decimal strings.
type MigrationEvent struct {
	CampaignID   string `json:"campaign_id"`
	BaseReserve  string `json:"base_reserve"`
	TokenReserve string `json:"token_reserve"`
	Timestamp    string `json:"timestamp"` // Unix milliseconds, decimal string
	TxID         string `json:"tx_id"`
}
