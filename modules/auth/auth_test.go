package auth_test

import (
	"context"
	"encoding/hex"
	"os"
	"strings"
	"testing"

	"ballot-node/lib/test_utils"
	"ballot-node/modules/auth"
	"ballot-node/modules/common"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/voters"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

func newAuth(t *testing.T) (*auth.Auth, *test_utils.MockAdmins, *test_utils.MockVoters, *test_utils.MockCandidates) {
	conf := auth.NewAuthConfig()
	assert.NoError(t, conf.Init())
	t.Cleanup(func() { os.RemoveAll("data") })

	adminDb := test_utils.NewMockAdmins()
	voterDb := test_utils.NewMockVoters()
	candidateDb := test_utils.NewMockCandidates()
	return auth.New(conf, adminDb, voterDb, candidateDb), adminDb, voterDb, candidateDb
}

func TestTokenRoundTrip(t *testing.T) {
	au, _, _, _ := newAuth(t)

	token, err := au.IssueToken("abc123", "voter", "0xdeadbeef")
	assert.NoError(t, err)

	claims, err := au.VerifyToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "abc123", claims.ID)
	assert.Equal(t, "voter", claims.Role)
	assert.Equal(t, "0xdeadbeef", claims.WalletAddress)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	au, _, _, _ := newAuth(t)

	token, err := au.IssueToken("abc123", "voter", "")
	assert.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = au.VerifyToken(tampered)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, err = au.VerifyToken("not-a-jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAdminLogin(t *testing.T) {
	au, adminDb, _, _ := newAuth(t)

	hash, err := auth.HashPassword("hunter22hunter22")
	assert.NoError(t, err)
	admin, err := adminDb.Create(context.Background(), admins.CreateAdminInput{
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: hash,
		Role:         admins.RoleSuperAdmin,
	})
	assert.NoError(t, err)

	token, loggedIn, err := au.AdminLogin(context.Background(), "root", "hunter22hunter22")
	assert.NoError(t, err)
	assert.Equal(t, admin.ID, loggedIn.ID)

	claims, err := au.VerifyToken(token)
	assert.NoError(t, err)
	assert.Equal(t, admin.ID.Hex(), claims.ID)
	assert.Equal(t, string(admins.RoleSuperAdmin), claims.Role)

	// Login is recorded.
	stored, err := adminDb.GetByID(context.Background(), admin.ID)
	assert.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	_, _, err = au.AdminLogin(context.Background(), "root", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = au.AdminLogin(context.Background(), "ghost", "hunter22hunter22")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	assert.NoError(t, adminDb.SetActive(context.Background(), admin.ID, false))
	_, _, err = au.AdminLogin(context.Background(), "root", "hunter22hunter22")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestVoterWalletLogin(t *testing.T) {
	au, _, voterDb, _ := newAuth(t)

	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	wallet := crypto.PubkeyToAddress(key.PublicKey).Hex()

	voter, err := voterDb.Create(context.Background(), voters.CreateVoterInput{
		Name:          "ada",
		Age:           30,
		Gender:        common.GenderFemale,
		Email:         "ada@example.com",
		WalletAddress: wallet,
	})
	assert.NoError(t, err)

	message := "login to ballot-node at 2026-08-31"
	sigBytes, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	assert.NoError(t, err)
	sigBytes[64] += 27
	sig := "0x" + hex.EncodeToString(sigBytes)

	token, loggedIn, err := au.VoterLogin(context.Background(), wallet, message, sig)
	assert.NoError(t, err)
	assert.Equal(t, voter.ID, loggedIn.ID)

	claims, err := au.VerifyToken(token)
	assert.NoError(t, err)
	assert.Equal(t, auth.RoleVoter, claims.Role)
	assert.Equal(t, strings.ToLower(wallet), claims.WalletAddress)

	// Signature over a different message does not authenticate.
	_, _, err = au.VoterLogin(context.Background(), wallet, "another message", sig)
	assert.ErrorIs(t, err, auth.ErrSignatureMismatch)

	// A valid signature from a stranger's key fails the wallet match.
	otherKey, err := crypto.GenerateKey()
	assert.NoError(t, err)
	otherSig, err := crypto.Sign(accounts.TextHash([]byte(message)), otherKey)
	assert.NoError(t, err)
	otherSig[64] += 27
	_, _, err = au.VoterLogin(context.Background(), wallet, message, hex.EncodeToString(otherSig))
	assert.ErrorIs(t, err, auth.ErrSignatureMismatch)
}
