// Reactor watcher service: subscribes to the campaign event feed, creates and
// seeds a DEX pool once per migrated campaign, and periodically recycles
// liquidity out of dead pools.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"reactor-watcher/internal/config"
	"reactor-watcher/internal/deadpool"
	"reactor-watcher/internal/dex"
	"reactor-watcher/internal/indexer"
	"reactor-watcher/internal/migration"
	"reactor-watcher/internal/observability"
	"reactor-watcher/internal/stream"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err.Error()).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	wallet, err := dex.NewWallet(cfg.OwnerPrivateKey)
	if err != nil {
		log.WithField("error", err.Error()).Fatal("Failed to load owner wallet")
	}

	engine := dex.NewRPCEngine(cfg.ProviderURL, cfg.PoolContractID, wallet)
	gateway := dex.NewService(dex.ServiceConfig{
		Engine:         engine,
		Wallet:         wallet,
		SlippageBps:    cfg.SlippageBps,
		DeadlineBlocks: cfg.DeadlineBlocks,
		Logger:         log,
	})
	ledger := indexer.NewGraphQLClient(cfg.IndexerURL)

	processor := migration.NewProcessor(migration.ProcessorConfig{
		Ledger:      ledger,
		Gateway:     gateway,
		BaseAssetID: cfg.BaseAssetID,
		FeeTier:     cfg.FeeTier,
		PriceLower:  cfg.MigrationPriceLower,
		PriceUpper:  cfg.MigrationPriceUpper,
		Logger:      log,
	})

	subscriber := stream.NewSubscriber(stream.SubscriberConfig{
		URL:     cfg.SSEURL + "?campaignId=*",
		Handler: processor,
		Logger:  log,
	})
	subscriber.Start()

	watcher := deadpool.NewWatcher(deadpool.WatcherConfig{
		Ledger:           ledger,
		Gateway:          gateway,
		Logger:           log,
		BaseAssetID:      cfg.BaseAssetID,
		FeeTier:          cfg.FeeTier,
		Interval:         cfg.WatcherInterval,
		DeadWindow:       cfg.DeadWindow,
		MinVolume:        cfg.MinDeadVolume,
		MinSwaps:         cfg.MinDeadSwaps,
		MinUniqueTraders: cfg.MinDeadUniqueTraders,
		DryRun:           cfg.RecycleDryRun,
	})
	if cfg.WatcherEnabled {
		watcher.Start()
	} else {
		log.Info("Dead pool watcher disabled")
	}

	mux := http.NewServeMux()
	started := time.Now()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"ok":             true,
			"wallet":         gateway.Address(),
			"watcherEnabled": cfg.WatcherEnabled,
		})
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"ok":              true,
			"uptime":          time.Since(started).String(),
			"wallet":          gateway.Address(),
			"watcher_enabled": cfg.WatcherEnabled,
			"recycle_dry_run": cfg.RecycleDryRun,
		})
	})
	mux.Handle("/metrics", observability.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Reactor watcher listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("error", err.Error()).Fatal("HTTP server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.WithField("signal", sig.String()).Info("Shutting down")

	subscriber.Stop()
	if cfg.WatcherEnabled {
		watcher.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithField("error", err.Error()).Error("HTTP server shutdown failed")
	}

	subscriber.Wait()
	if cfg.WatcherEnabled {
		watcher.Wait()
	}
	log.Info("Shutdown complete")
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
