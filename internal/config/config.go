// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"reactor-watcher/internal/domain"
)

// Default values for optional settings.
const (
	DefaultPort                 = 8000
	DefaultProviderURL          = "http://fuel-core:4000/v1/graphql"
	DefaultIndexerURL           = "http://graphql-engine:8080/v1/graphql"
	DefaultSSEURL               = "http://sse-service:8000/sse"
	DefaultSlippageBps          = 100
	DefaultDeadlineBlocks       = 1000
	DefaultMigrationPriceLower  = 1
	DefaultMigrationPriceUpper  = 1000
	DefaultWatcherInterval      = 5 * time.Minute
	DefaultDeadWindow           = 5 * 24 * time.Hour
	DefaultMinDeadSwaps         = 3
	DefaultMinDeadUniqueTraders = 2
)

// DefaultMinDeadVolume is the default dead-pool volume threshold in base units.
var DefaultMinDeadVolume = big.NewInt(1_000_000_000)

// Config holds all runtime configuration for the reactor watcher.
type Config struct {
	Port        int
	ProviderURL string
	IndexerURL  string
	SSEURL      string
	LogLevel    string

	OwnerPrivateKey string
	PoolContractID  string
	BaseAssetID     string

	FeeTier             domain.FeeTier
	SlippageBps         int
	DeadlineBlocks      int
	MigrationPriceLower int
	MigrationPriceUpper int

	WatcherEnabled       bool
	WatcherInterval      time.Duration
	DeadWindow           time.Duration
	MinDeadVolume        *big.Int
	MinDeadSwaps         int
	MinDeadUniqueTraders int
	RecycleDryRun        bool
}

// Load reads configuration from the environment. Callers that want .env
// support should run godotenv.Load before calling this.
func Load() (*Config, error) {
	feeTier, err := domain.ParseFeeTier(os.Getenv("REACTOR_POOL_FEE"))
	if err != nil {
		return nil, fmt.Errorf("REACTOR_POOL_FEE: %w", err)
	}

	cfg := &Config{
		ProviderURL: getString("FUEL_PROVIDER_URL", DefaultProviderURL),
		IndexerURL:  getString("INDEXER_URL", DefaultIndexerURL),
		SSEURL:      getString("SSE_URL", DefaultSSEURL),
		LogLevel:    getString("REACTOR_LOG_LEVEL", "info"),
		FeeTier:     feeTier,
	}

	if cfg.OwnerPrivateKey, err = getRequired("REACTOR_OWNER_PRIVATE_KEY"); err != nil {
		return nil, err
	}
	if cfg.PoolContractID, err = getRequired("REACTOR_POOL_CONTRACT_ID"); err != nil {
		return nil, err
	}
	if cfg.BaseAssetID, err = getRequired("BASE_ASSET_ID"); err != nil {
		return nil, err
	}

	if cfg.Port, err = getInt("REACTOR_PORT", DefaultPort); err != nil {
		return nil, err
	}
	if cfg.SlippageBps, err = getInt("REACTOR_SLIPPAGE_BPS", DefaultSlippageBps); err != nil {
		return nil, err
	}
	if cfg.DeadlineBlocks, err = getInt("REACTOR_DEADLINE_BLOCKS", DefaultDeadlineBlocks); err != nil {
		return nil, err
	}
	if cfg.MigrationPriceLower, err = getInt("REACTOR_MIGRATION_PRICE_LOWER", DefaultMigrationPriceLower); err != nil {
		return nil, err
	}
	if cfg.MigrationPriceUpper, err = getInt("REACTOR_MIGRATION_PRICE_UPPER", DefaultMigrationPriceUpper); err != nil {
		return nil, err
	}
	if cfg.WatcherEnabled, err = getBool("REACTOR_WATCHER_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.WatcherInterval, err = getDurationMs("REACTOR_WATCHER_INTERVAL_MS", DefaultWatcherInterval); err != nil {
		return nil, err
	}
	if cfg.DeadWindow, err = getDurationMs("REACTOR_DEAD_WINDOW_MS", DefaultDeadWindow); err != nil {
		return nil, err
	}
	if cfg.MinDeadVolume, err = getBigInt("REACTOR_DEAD_MIN_VOLUME", DefaultMinDeadVolume); err != nil {
		return nil, err
	}
	if cfg.MinDeadSwaps, err = getInt("REACTOR_DEAD_MIN_SWAPS", DefaultMinDeadSwaps); err != nil {
		return nil, err
	}
	if cfg.MinDeadUniqueTraders, err = getInt("REACTOR_DEAD_MIN_UNIQUE_TRADERS", DefaultMinDeadUniqueTraders); err != nil {
		return nil, err
	}
	if cfg.RecycleDryRun, err = getBool("REACTOR_RECYCLE_DRY_RUN", true); err != nil {
		return nil, err
	}

	if cfg.SlippageBps < 0 || cfg.SlippageBps > 10_000 {
		return nil, fmt.Errorf("REACTOR_SLIPPAGE_BPS out of range [0, 10000]: %d", cfg.SlippageBps)
	}
	if cfg.MigrationPriceLower >= cfg.MigrationPriceUpper {
		return nil, fmt.Errorf("migration price range is empty: lower=%d upper=%d",
			cfg.MigrationPriceLower, cfg.MigrationPriceUpper)
	}

	return cfg, nil
}

func getString(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getRequired(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("missing required env variable: %s", name)
	}
	return v, nil
}

func getInt(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid integer env %s: %q", name, raw)
	}
	return v, nil
}

func getBigInt(name string, fallback *big.Int) (*big.Int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return new(big.Int).Set(fallback), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid bigint env %s: %q", name, raw)
	}
	return v, nil
}

func getBool(name string, fallback bool) (bool, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean env %s: %q", name, raw)
}

func getDurationMs(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid millisecond duration env %s: %q", name, raw)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
