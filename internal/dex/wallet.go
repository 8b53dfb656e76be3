package dex

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Wallet holds the owner signing key used for all state-changing DEX calls.
type Wallet struct {
	priv ed25519.PrivateKey
	addr string
}

// NewWallet derives a wallet from a 32-byte private key seed given as hex
// (optionally 0x-prefixed) or base58.
func NewWallet(rawKey string) (*Wallet, error) {
	seed, err := decodeKeyMaterial(rawKey)
	if err != nil {
		return nil, fmt.Errorf("parse owner private key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("owner private key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}

	pub, err := publicKeyFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	return &Wallet{
		priv: ed25519.NewKeyFromSeed(seed),
		addr: base58.Encode(pub),
	}, nil
}

// Address returns the wallet's base58-encoded public key.
func (w *Wallet) Address() string {
	return w.addr
}

// Sign returns the ed25519 signature of msg.
func (w *Wallet) Sign(msg []byte) []byte {
	return ed25519.Sign(w.priv, msg)
}

// publicKeyFromSeed derives the ed25519 public key point for a seed.
func publicKeyFromSeed(seed []byte) ([]byte, error) {
	h := sha512.Sum512(seed)
	s, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, err
	}
	return new(edwards25519.Point).ScalarBaseMult(s).Bytes(), nil
}

// ValidAssetID reports whether id decodes to a 32-byte asset identifier in
// base58 or hex notation.
func ValidAssetID(id string) bool {
	b, err := decodeKeyMaterial(id)
	return err == nil && len(b) == 32
}

func decodeKeyMaterial(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty value")
	}
	if hexStr, ok := strings.CutPrefix(raw, "0x"); ok {
		return hex.DecodeString(hexStr)
	}
	if b, err := hex.DecodeString(raw); err == nil && len(raw)%2 == 0 && len(b) >= 16 {
		return b, nil
	}
	return base58.Decode(raw)
}
