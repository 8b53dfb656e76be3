package migration

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// ToDecimalAmount converts an unsigned base-unit integer, carried as a
// decimal string, into a decimal amount scaled down by 10^decimals. It fails
// closed: parse failures, negative input, invalid decimals, and non-finite or
// non-positive results are all errors, never clamped.
func ToDecimalAmount(raw string, decimals int) (float64, error) {
	if decimals < 0 {
		return 0, fmt.Errorf("invalid decimals: %d", decimals)
	}

	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return 0, fmt.Errorf("invalid integer amount: %q", raw)
	}
	if value.Sign() < 0 {
		return 0, fmt.Errorf("negative amount is not allowed: %s", raw)
	}

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	integer, fractional := new(big.Int).QuoRem(value, base, new(big.Int))

	integerF, _ := new(big.Float).SetInt(integer).Float64()
	fractionalF, _ := new(big.Float).SetInt(fractional).Float64()
	baseF, _ := new(big.Float).SetInt(base).Float64()
	composed := integerF + fractionalF/baseF

	if math.IsInf(composed, 0) || math.IsNaN(composed) || composed <= 0 {
		return 0, fmt.Errorf("amount conversion failed for value=%s decimals=%d", raw, decimals)
	}
	return composed, nil
}
