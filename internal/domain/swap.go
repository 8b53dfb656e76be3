package domain

// SwapRecord is a single pool swap as recorded by the ledger indexer.
// Amounts are unsigned base-unit integers carried as decimal strings; the
// dead-pool watcher consumes these only in aggregate.
type SwapRecord struct {
	RecipientID string `json:"recipient_id"`
	AmountAIn   string `json:"asset_0_in"`
	AmountBIn   string `json:"asset_1_in"`
	AmountAOut  string `json:"asset_0_out"`
	AmountBOut  string `json:"asset_1_out"`
}
