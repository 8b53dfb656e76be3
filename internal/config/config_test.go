package config

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reactor-watcher/internal/domain"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REACTOR_OWNER_PRIVATE_KEY", "0x0101010101010101010101010101010101010101010101010101010101010101")
	t.Setenv("REACTOR_POOL_CONTRACT_ID", "0xcontract")
	t.Setenv("BASE_ASSET_ID", "0xbase")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultIndexerURL, cfg.IndexerURL)
	assert.Equal(t, DefaultSSEURL, cfg.SSEURL)
	assert.Equal(t, domain.FeeTierMedium, cfg.FeeTier)
	assert.Equal(t, DefaultSlippageBps, cfg.SlippageBps)
	assert.Equal(t, DefaultDeadlineBlocks, cfg.DeadlineBlocks)
	assert.Equal(t, 1, cfg.MigrationPriceLower)
	assert.Equal(t, 1000, cfg.MigrationPriceUpper)
	assert.True(t, cfg.WatcherEnabled)
	assert.Equal(t, 5*time.Minute, cfg.WatcherInterval)
	assert.Equal(t, 5*24*time.Hour, cfg.DeadWindow)
	assert.Equal(t, 0, cfg.MinDeadVolume.Cmp(big.NewInt(1_000_000_000)))
	assert.Equal(t, 3, cfg.MinDeadSwaps)
	assert.Equal(t, 2, cfg.MinDeadUniqueTraders)
	assert.True(t, cfg.RecycleDryRun)
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("REACTOR_POOL_CONTRACT_ID", "0xcontract")
	t.Setenv("BASE_ASSET_ID", "0xbase")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REACTOR_OWNER_PRIVATE_KEY")
}

func TestLoadFeeTierVariants(t *testing.T) {
	setRequired(t)

	tests := []struct {
		raw  string
		want domain.FeeTier
	}{
		{"", domain.FeeTierMedium},
		{"LOW", domain.FeeTierLow},
		{"medium", domain.FeeTierMedium},
		{"HIGH", domain.FeeTierHigh},
		{"500", domain.FeeTierLow},
		{"3000", domain.FeeTierMedium},
		{"10000", domain.FeeTierHigh},
	}
	for _, tt := range tests {
		t.Setenv("REACTOR_POOL_FEE", tt.raw)
		cfg, err := Load()
		require.NoError(t, err, "fee %q", tt.raw)
		assert.Equal(t, tt.want, cfg.FeeTier, "fee %q", tt.raw)
	}

	t.Setenv("REACTOR_POOL_FEE", "1234")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REACTOR_PORT", "9090")
	t.Setenv("REACTOR_SLIPPAGE_BPS", "250")
	t.Setenv("REACTOR_WATCHER_INTERVAL_MS", "60000")
	t.Setenv("REACTOR_DEAD_WINDOW_MS", "86400000")
	t.Setenv("REACTOR_DEAD_MIN_VOLUME", "5000000000")
	t.Setenv("REACTOR_WATCHER_ENABLED", "false")
	t.Setenv("REACTOR_RECYCLE_DRY_RUN", "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250, cfg.SlippageBps)
	assert.Equal(t, time.Minute, cfg.WatcherInterval)
	assert.Equal(t, 24*time.Hour, cfg.DeadWindow)
	assert.Equal(t, 0, cfg.MinDeadVolume.Cmp(big.NewInt(5_000_000_000)))
	assert.False(t, cfg.WatcherEnabled)
	assert.False(t, cfg.RecycleDryRun)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad int", "REACTOR_PORT", "abc"},
		{"bad bool", "REACTOR_WATCHER_ENABLED", "maybe"},
		{"bad bigint", "REACTOR_DEAD_MIN_VOLUME", "1e9"},
		{"bad duration", "REACTOR_WATCHER_INTERVAL_MS", "-5"},
		{"slippage too high", "REACTOR_SLIPPAGE_BPS", "10001"},
		{"slippage negative", "REACTOR_SLIPPAGE_BPS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsEmptyPriceRange(t *testing.T) {
	setRequired(t)
	t.Setenv("REACTOR_MIGRATION_PRICE_LOWER", "1000")
	t.Setenv("REACTOR_MIGRATION_PRICE_UPPER", "1000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price range")
}
