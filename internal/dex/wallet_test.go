package dex

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestNewWalletDerivesStandardPublicKey(t *testing.T) {
	seed := testSeed()
	wallet, err := NewWallet(hex.EncodeToString(seed))
	require.NoError(t, err)

	expected := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	assert.Equal(t, base58.Encode(expected), wallet.Address())
}

func TestNewWalletAcceptsKeyEncodings(t *testing.T) {
	seed := testSeed()
	hexKey := hex.EncodeToString(seed)

	plain, err := NewWallet(hexKey)
	require.NoError(t, err)

	prefixed, err := NewWallet("0x" + hexKey)
	require.NoError(t, err)
	assert.Equal(t, plain.Address(), prefixed.Address())

	b58, err := NewWallet(base58.Encode(seed))
	require.NoError(t, err)
	assert.Equal(t, plain.Address(), b58.Address())
}

func TestNewWalletRejectsBadKeys(t *testing.T) {
	for _, raw := range []string{
		"",
		"0xdeadbeef",        // too short
		"not hex not base58 0OIl",
		hex.EncodeToString(bytes.Repeat([]byte{1}, 64)), // too long
	} {
		_, err := NewWallet(raw)
		assert.Error(t, err, "key %q", raw)
	}
}

func TestWalletSign(t *testing.T) {
	seed := testSeed()
	wallet, err := NewWallet(hex.EncodeToString(seed))
	require.NoError(t, err)

	msg := []byte("pool create payload")
	sig := wallet.Sign(msg)

	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	assert.True(t, ed25519.Verify(pub, msg, sig))
	assert.False(t, ed25519.Verify(pub, []byte("tampered"), sig))
}

func TestValidAssetID(t *testing.T) {
	valid32 := hex.EncodeToString(bytes.Repeat([]byte{7}, 32))

	assert.True(t, ValidAssetID("0x"+valid32))
	assert.True(t, ValidAssetID(valid32))
	assert.True(t, ValidAssetID(base58.Encode(bytes.Repeat([]byte{7}, 32))))

	assert.False(t, ValidAssetID(""))
	assert.False(t, ValidAssetID("0xdeadbeef"))
	assert.False(t, ValidAssetID(hex.EncodeToString(bytes.Repeat([]byte{7}, 16))))
	assert.False(t, ValidAssetID("not-an-asset"))
}
