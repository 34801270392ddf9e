package ethsign

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
)

// RecoverPersonalSigner recovers the 0x address that produced `sig` over the
// EIP-191 personal-sign digest of `message`. The signature is 65 bytes hex,
// with or without the 0x prefix.
func RecoverPersonalSigner(message, sig string) (string, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		return "", fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sigBytes) != 65 {
		return "", fmt.Errorf("invalid signature length: expected 65 bytes, got %d", len(sigBytes))
	}

	// Wallets emit V as 27/28; SigToPub expects 0/1.
	if sigBytes[64] != 0 && sigBytes[64] != 1 {
		sigBytes[64] -= 27
	}

	digest := accounts.TextHash([]byte(message))
	pubKey, err := crypto.SigToPub(digest, sigBytes)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key from signature: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// Matches reports whether the recovered signer equals the claimed wallet,
// compared case-insensitively since checksummed and plain hex forms differ
// only in case.
func Matches(claimedWallet, message, sig string) (bool, error) {
	recovered, err := RecoverPersonalSigner(message, sig)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(recovered, claimedWallet), nil
}
