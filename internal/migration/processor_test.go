package migration

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	dexstub "reactor-watcher/internal/dex/stub"
	"reactor-watcher/internal/domain"
	indexerstub "reactor-watcher/internal/indexer/stub"
)

const (
	testBaseAssetID  = "base-asset-0000000000000000000000000000000000000000000000000000"
	testTokenAssetID = "token-asset-000000000000000000000000000000000000000000000000000"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestProcessor(ledger *indexerstub.Client, gateway *dexstub.Gateway) *Processor {
	return NewProcessor(ProcessorConfig{
		Ledger:      ledger,
		Gateway:     gateway,
		BaseAssetID: testBaseAssetID,
		FeeTier:     domain.FeeTierMedium,
		PriceLower:  1,
		PriceUpper:  1000,
		Logger:      quietLogger(),
	})
}

func migratedCampaign(id string) *domain.Campaign {
	return &domain.Campaign{
		ID:            id,
		Status:        domain.StatusMigrated,
		TokenAssetID:  testTokenAssetID,
		TokenDecimals: 9,
	}
}

func migrationEvent(campaignID string) *domain.MigrationEvent {
	return &domain.MigrationEvent{
		CampaignID:   campaignID,
		BaseReserve:  "500000000000",
		TokenReserve: "2000000000000000",
		Timestamp:    "1700000000000",
		TxID:         "0xabc",
	}
}

func signal(campaignID string) domain.CampaignSignal {
	return domain.CampaignSignal{
		Type:       "campaign_updated",
		CampaignID: campaignID,
		Status:     string(domain.StatusMigrated),
	}
}

func TestProcessorIgnoresNonMigratedSignals(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	p := newTestProcessor(ledger, gateway)

	for _, status := range []domain.CampaignStatus{domain.StatusActive, domain.StatusLaunched, domain.StatusDenied} {
		s := signal("c1")
		s.Status = string(status)
		if err := p.ProcessCampaignSignal(context.Background(), s, "evt-1"); err != nil {
			t.Fatalf("unexpected error for status %s: %v", status, err)
		}
	}

	if ledger.CampaignQueries != 0 {
		t.Fatalf("non-migration signals must not hit the ledger, got %d queries", ledger.CampaignQueries)
	}
	if len(gateway.CreateCalls) != 0 {
		t.Fatalf("non-migration signals must not create pools, got %d", len(gateway.CreateCalls))
	}
}

func TestProcessorCreatesPoolOncePerCampaign(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	ledger.AddCampaign(migratedCampaign("c1"))
	ledger.AddMigrationEvent(migrationEvent("c1"))
	p := newTestProcessor(ledger, gateway)

	ids := []string{"evt-1", "evt-2", "evt-3", "evt-4", "evt-5"}
	for _, id := range ids {
		if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), id); err != nil {
			t.Fatalf("signal %s: %v", id, err)
		}
	}

	if len(gateway.CreateCalls) != 1 {
		t.Fatalf("expected exactly one pool creation, got %d", len(gateway.CreateCalls))
	}
	if ledger.CampaignQueries != 1 {
		t.Fatalf("duplicates must short-circuit before the ledger, got %d campaign queries", ledger.CampaignQueries)
	}
}

func TestProcessorDeduplicatesBySignalID(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	ledger.AddCampaign(migratedCampaign("c1"))
	ledger.AddMigrationEvent(migrationEvent("c1"))
	p := newTestProcessor(ledger, gateway)

	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-1"); err != nil {
		t.Fatal(err)
	}
	// Same frame id redelivered for a different campaign is still a duplicate.
	if err := p.ProcessCampaignSignal(context.Background(), signal("c2"), "evt-1"); err != nil {
		t.Fatal(err)
	}

	if ledger.CampaignQueries != 1 {
		t.Fatalf("redelivered frame id must not hit the ledger, got %d queries", ledger.CampaignQueries)
	}
}

func TestProcessorSeedAmounts(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	ledger.AddCampaign(migratedCampaign("c1"))
	ledger.AddMigrationEvent(migrationEvent("c1"))
	p := newTestProcessor(ledger, gateway)

	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-1"); err != nil {
		t.Fatal(err)
	}

	if len(gateway.CreateCalls) != 1 {
		t.Fatalf("expected one create, got %d", len(gateway.CreateCalls))
	}
	call := gateway.CreateCalls[0]
	if call.TokenAmount != 2_000_000 {
		t.Errorf("token amount = %v, want 2000000", call.TokenAmount)
	}
	if call.QuoteAmount != 500000000000 {
		t.Errorf("quote amount = %v, want 500000000000", call.QuoteAmount)
	}
	if call.TokenAssetID != testTokenAssetID || call.QuoteAssetID != testBaseAssetID {
		t.Errorf("wrong asset pair: %s / %s", call.TokenAssetID, call.QuoteAssetID)
	}
	if call.TokenDecimals != 9 || call.QuoteDecimals != QuoteAssetDecimals {
		t.Errorf("wrong decimals: token=%d quote=%d", call.TokenDecimals, call.QuoteDecimals)
	}
	if call.FeeTier != domain.FeeTierMedium {
		t.Errorf("fee tier = %v, want %v", call.FeeTier, domain.FeeTierMedium)
	}
	if call.PriceLower != 1 || call.PriceUpper != 1000 {
		t.Errorf("price range = [%d, %d], want [1, 1000]", call.PriceLower, call.PriceUpper)
	}
}

func TestProcessorSkipsWhenPoolExists(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	ledger.AddCampaign(migratedCampaign("c1"))
	ledger.AddMigrationEvent(migrationEvent("c1"))
	ledger.AddPool(&domain.Pool{
		PoolID: "pool-1",
		TokenA: testTokenAssetID,
		TokenB: testBaseAssetID,
	}, domain.FeeTierMedium)
	p := newTestProcessor(ledger, gateway)

	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-1"); err != nil {
		t.Fatal(err)
	}
	if len(gateway.CreateCalls) != 0 {
		t.Fatalf("existing pool must not be recreated, got %d creates", len(gateway.CreateCalls))
	}

	// Existing pool still marks the campaign processed.
	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-2"); err != nil {
		t.Fatal(err)
	}
	if ledger.CampaignQueries != 1 {
		t.Fatalf("second signal must be deduplicated, got %d campaign queries", ledger.CampaignQueries)
	}
}

func TestProcessorUnknownCampaignIsRetryable(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	p := newTestProcessor(ledger, gateway)

	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-1"); err != nil {
		t.Fatalf("unknown campaign must be dropped, not failed: %v", err)
	}
	if len(gateway.CreateCalls) != 0 {
		t.Fatal("unknown campaign must not create a pool")
	}

	// Campaign appears later; a new signal must now succeed.
	ledger.AddCampaign(migratedCampaign("c1"))
	ledger.AddMigrationEvent(migrationEvent("c1"))
	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-2"); err != nil {
		t.Fatal(err)
	}
	if len(gateway.CreateCalls) != 1 {
		t.Fatalf("expected one create after campaign appeared, got %d", len(gateway.CreateCalls))
	}
}

func TestProcessorMissingMigrationEventIsRetryable(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	ledger.AddCampaign(migratedCampaign("c1"))
	p := newTestProcessor(ledger, gateway)

	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-1"); err != nil {
		t.Fatalf("missing migration event must be dropped, not failed: %v", err)
	}
	if len(gateway.CreateCalls) != 0 {
		t.Fatal("missing migration event must not create a pool")
	}

	ledger.AddMigrationEvent(migrationEvent("c1"))
	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-2"); err != nil {
		t.Fatal(err)
	}
	if len(gateway.CreateCalls) != 1 {
		t.Fatalf("expected one create after event appeared, got %d", len(gateway.CreateCalls))
	}
}

func TestProcessorGatewayErrorIsRetryable(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	ledger.AddCampaign(migratedCampaign("c1"))
	ledger.AddMigrationEvent(migrationEvent("c1"))
	gateway.CreateErr = errors.New("engine unavailable")
	p := newTestProcessor(ledger, gateway)

	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-1"); err == nil {
		t.Fatal("gateway failure must propagate")
	}

	gateway.CreateErr = nil
	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-2"); err != nil {
		t.Fatal(err)
	}
	if len(gateway.CreateCalls) != 1 {
		t.Fatalf("expected one successful create after retry, got %d", len(gateway.CreateCalls))
	}
}

func TestProcessorLedgerErrorPropagates(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	ledger.Err = errors.New("indexer down")
	p := newTestProcessor(ledger, gateway)

	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), "evt-1"); err == nil {
		t.Fatal("ledger failure must propagate")
	}
	if len(gateway.CreateCalls) != 0 {
		t.Fatal("ledger failure must not create a pool")
	}
}

func TestProcessorEmptySignalIDStillDeduplicatesByCampaign(t *testing.T) {
	ledger := indexerstub.New()
	gateway := dexstub.New()
	ledger.AddCampaign(migratedCampaign("c1"))
	ledger.AddMigrationEvent(migrationEvent("c1"))
	p := newTestProcessor(ledger, gateway)

	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), ""); err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessCampaignSignal(context.Background(), signal("c1"), ""); err != nil {
		t.Fatal(err)
	}
	if len(gateway.CreateCalls) != 1 {
		t.Fatalf("expected one create, got %d", len(gateway.CreateCalls))
	}
}
