package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FeeTier is a pool fee tier in basis points * 100 (Uniswap-style notation).
type FeeTier uint32

// Supported fee tiers.
const (
	FeeTierLow    FeeTier = 500
	FeeTierMedium FeeTier = 3000
	FeeTierHigh   FeeTier = 10000
)

// ParseFeeTier parses a fee tier from its name (LOW/MEDIUM/HIGH) or numeric
// notation. Empty input defaults to MEDIUM.
func ParseFeeTier(raw string) (FeeTier, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return FeeTierMedium, nil
	}

	switch value {
	case "LOW":
		return FeeTierLow, nil
	case "MEDIUM":
		return FeeTierMedium, nil
	case "HIGH":
		return FeeTierHigh, nil
	}

	if n, err := strconv.Atoi(value); err == nil {
		switch FeeTier(n) {
		case FeeTierLow, FeeTierMedium, FeeTierHigh:
			return FeeTier(n), nil
		}
	}

	return 0, fmt.Errorf("unsupported fee tier: %q", raw)
}

// String returns the fee tier in decimal notation, as stored by the ledger.
func (f FeeTier) String() string {
	return strconv.FormatUint(uint64(f), 10)
}

// Pool identifies an on-chain liquidity pair contract instance. Created at
// most once per (TokenA, TokenB, Fee) triple by this service.
type Pool struct {
	PoolID    string `json:"pool_id"`
	TokenA    string `json:"token_0_asset_id"`
	TokenB    string `json:"token_1_asset_id"`
	Fee       string `json:"fee"`
	Timestamp string `json:"timestamp"`
}
