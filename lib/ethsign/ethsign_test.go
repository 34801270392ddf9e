package ethsign

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

func signPersonal(t *testing.T, message string) (wallet, sig string) {
	key, err := crypto.GenerateKey()
	assert.NoError(t, err)

	sigBytes, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	assert.NoError(t, err)
	// Wallets report V as 27/28.
	sigBytes[64] += 27

	return crypto.PubkeyToAddress(key.PublicKey).Hex(), "0x" + hex.EncodeToString(sigBytes)
}

func TestRecoverPersonalSigner(t *testing.T) {
	wallet, sig := signPersonal(t, "login to ballot-node")

	recovered, err := RecoverPersonalSigner("login to ballot-node", sig)
	assert.NoError(t, err)
	assert.Equal(t, wallet, recovered)
}

func TestRecoverHandlesRawVValue(t *testing.T) {
	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	sigBytes, err := crypto.Sign(accounts.TextHash([]byte("msg")), key)
	assert.NoError(t, err)

	// V left at 0/1, as some libraries emit it.
	recovered, err := RecoverPersonalSigner("msg", hex.EncodeToString(sigBytes))
	assert.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), recovered)
}

func TestMatches(t *testing.T) {
	wallet, sig := signPersonal(t, "prove it")

	ok, err := Matches(wallet, "prove it", sig)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Case-insensitive comparison.
	ok, err = Matches(strings.ToLower(wallet), "prove it", sig)
	assert.NoError(t, err)
	assert.True(t, ok)

	// Different message recovers a different signer.
	ok, err = Matches(wallet, "prove something else", sig)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRejectsMalformedSignature(t *testing.T) {
	_, err := RecoverPersonalSigner("msg", "0xdeadbeef")
	assert.Error(t, err)

	_, err = RecoverPersonalSigner("msg", "not-hex")
	assert.Error(t, err)
}
