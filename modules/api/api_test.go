package api_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"ballot-node/lib/logger"
	"ballot-node/lib/test_utils"
	"ballot-node/modules/api"
	"ballot-node/modules/auth"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/orchestrator"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type testEnv struct {
	app         *fiber.App
	voterDb     *test_utils.MockVoters
	candidateDb *test_utils.MockCandidates
	adminDb     *test_utils.MockAdmins
	electionDb  *test_utils.MockElections
	intentDb    *test_utils.MockIntents
	gateway     *test_utils.MockGateway
	adminToken  string
}

func newTestEnv(t *testing.T) *testEnv {
	env := &testEnv{
		voterDb:     test_utils.NewMockVoters(),
		candidateDb: test_utils.NewMockCandidates(),
		adminDb:     test_utils.NewMockAdmins(),
		electionDb:  test_utils.NewMockElections(),
		intentDb:    test_utils.NewMockIntents(),
		gateway:     test_utils.NewMockGateway(),
	}

	authConf := auth.NewAuthConfig()
	assert.NoError(t, authConf.Init())
	t.Cleanup(func() { os.RemoveAll("data") })
	authService := auth.New(authConf, env.adminDb, env.voterDb, env.candidateDb)

	orch := orchestrator.New(
		env.voterDb, env.candidateDb, env.adminDb, env.electionDb, env.intentDb,
		env.gateway, logger.PrefixedLogger{Prefix: "test"},
	)

	apiConf := api.NewApiConfig()
	assert.NoError(t, apiConf.Init())

	restApi := api.New(
		apiConf, authService, orch,
		env.voterDb, env.candidateDb, env.adminDb, env.electionDb, env.gateway,
		logger.PrefixedLogger{Prefix: "test"},
	)
	assert.NoError(t, restApi.Init())
	env.app = restApi.App()

	// Seeded super admin for protected routes.
	hash, err := auth.HashPassword("hunter22hunter22")
	assert.NoError(t, err)
	_, err = env.adminDb.Create(context.Background(), admins.CreateAdminInput{
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: hash,
		Role:         admins.RoleSuperAdmin,
	})
	assert.NoError(t, err)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/admin/login", map[string]any{
		"username": "root",
		"password": "hunter22hunter22",
	}, "")
	assert.Equal(t, http.StatusOK, resp.status)
	env.adminToken = resp.data["token"].(string)
	return env
}

type response struct {
	status  int
	success bool
	message string
	data    map[string]any
	list    []any
}

func (env *testEnv) do(t *testing.T, method, path string, body any, token string) response {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	raw, err := env.app.Test(req, -1)
	assert.NoError(t, err)
	defer raw.Body.Close()

	decoded := map[string]any{}
	assert.NoError(t, json.NewDecoder(raw.Body).Decode(&decoded))

	out := response{status: raw.StatusCode}
	out.success, _ = decoded["success"].(bool)
	out.message, _ = decoded["message"].(string)
	switch d := decoded["data"].(type) {
	case map[string]any:
		out.data = d
	case []any:
		out.list = d
	}
	return out
}

func newWallet(t *testing.T) (keyHex, wallet string, sign func(message string) string) {
	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	sign = func(message string) string {
		sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
		assert.NoError(t, err)
		sig[64] += 27
		return "0x" + hex.EncodeToString(sig)
	}
	return hex.EncodeToString(crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey).Hex(), sign
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.status)
	assert.True(t, resp.success)
}

func TestVoterSignupValidation(t *testing.T) {
	env := newTestEnv(t)
	_, wallet, _ := newWallet(t)

	// Missing email.
	resp := env.do(t, http.MethodPost, "/api/v1/voters", map[string]any{
		"name":          "ada",
		"age":           30,
		"gender":        "female",
		"walletAddress": wallet,
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.False(t, resp.success)

	// Under-age.
	resp = env.do(t, http.MethodPost, "/api/v1/voters", map[string]any{
		"name":          "kid",
		"age":           12,
		"gender":        "other",
		"email":         "kid@example.com",
		"walletAddress": wallet,
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = env.do(t, http.MethodPost, "/api/v1/voters", map[string]any{
		"name":          "ada",
		"age":           30,
		"gender":        "female",
		"email":         "ada@example.com",
		"walletAddress": wallet,
	}, "")
	assert.Equal(t, http.StatusCreated, resp.status)
	assert.Equal(t, "pending", resp.data["verificationStatus"])

	// Same wallet again conflicts.
	resp = env.do(t, http.MethodPost, "/api/v1/voters", map[string]any{
		"name":          "imposter",
		"age":           33,
		"gender":        "male",
		"email":         "other@example.com",
		"walletAddress": wallet,
	}, "")
	assert.Equal(t, http.StatusConflict, resp.status)
}

func TestAuthGuards(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/voters", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = env.do(t, http.MethodGet, "/api/v1/voters", nil, "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, resp.status)

	resp = env.do(t, http.MethodGet, "/api/v1/voters", nil, env.adminToken)
	assert.Equal(t, http.StatusOK, resp.status)

	// A voter token cannot reach admin listings.
	_, wallet, sign := newWallet(t)
	resp = env.do(t, http.MethodPost, "/api/v1/voters", map[string]any{
		"name":          "ada",
		"age":           30,
		"gender":        "female",
		"email":         "ada@example.com",
		"walletAddress": wallet,
	}, "")
	assert.Equal(t, http.StatusCreated, resp.status)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/voter/login", map[string]any{
		"walletAddress": wallet,
		"message":       "login",
		"signature":     sign("login"),
	}, "")
	assert.Equal(t, http.StatusOK, resp.status)
	voterToken := resp.data["token"].(string)

	resp = env.do(t, http.MethodGet, "/api/v1/voters", nil, voterToken)
	assert.Equal(t, http.StatusForbidden, resp.status)

	resp = env.do(t, http.MethodGet, "/api/v1/voters/me", nil, voterToken)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "ada", resp.data["name"])
}

func TestWalletLoginRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	_, wallet, _ := newWallet(t)
	_, _, strangerSign := newWallet(t)

	resp := env.do(t, http.MethodPost, "/api/v1/voters", map[string]any{
		"name":          "ada",
		"age":           30,
		"gender":        "female",
		"email":         "ada@example.com",
		"walletAddress": wallet,
	}, "")
	assert.Equal(t, http.StatusCreated, resp.status)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/voter/login", map[string]any{
		"walletAddress": wallet,
		"message":       "login",
		"signature":     strangerSign("login"),
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestElectionFlowOverHttp(t *testing.T) {
	env := newTestEnv(t)

	// Deploy.
	resp := env.do(t, http.MethodPost, "/api/v1/elections", map[string]any{
		"title":         "General Election",
		"description":   "annual board vote",
		"maxCandidates": 3,
	}, env.adminToken)
	assert.Equal(t, http.StatusCreated, resp.status)
	address := resp.data["contractAddress"].(string)
	assert.Equal(t, "created", resp.data["status"])

	// Open registration.
	resp = env.do(t, http.MethodPut, "/api/v1/elections/"+address+"/status", map[string]any{
		"status": "registration_open",
	}, env.adminToken)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "registration_open", resp.data["status"])

	// Candidate: signup, verify, login, register.
	candKey, candWallet, candSign := newWallet(t)
	resp = env.do(t, http.MethodPost, "/api/v1/candidates", map[string]any{
		"name":          "alice",
		"age":           45,
		"gender":        "female",
		"email":         "alice@example.com",
		"party":         "Red",
		"walletAddress": candWallet,
	}, "")
	assert.Equal(t, http.StatusCreated, resp.status)
	candID := resp.data["id"].(string)

	resp = env.do(t, http.MethodPost, "/api/v1/candidates/"+candID+"/verify", map[string]any{
		"status": "verified",
	}, env.adminToken)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/candidate/login", map[string]any{
		"walletAddress": candWallet,
		"message":       "login",
		"signature":     candSign("login"),
	}, "")
	assert.Equal(t, http.StatusOK, resp.status)
	candToken := resp.data["token"].(string)

	resp = env.do(t, http.MethodPost, "/api/v1/elections/"+address+"/register/candidate", map[string]any{
		"signerKey": candKey,
	}, candToken)
	assert.Equal(t, http.StatusCreated, resp.status)
	candidateOnChainID := resp.data["onChainId"].(float64)

	// Voter: signup, verify, login, register.
	voterKey, voterWallet, voterSign := newWallet(t)
	resp = env.do(t, http.MethodPost, "/api/v1/voters", map[string]any{
		"name":          "ada",
		"age":           30,
		"gender":        "female",
		"email":         "ada@example.com",
		"walletAddress": voterWallet,
	}, "")
	assert.Equal(t, http.StatusCreated, resp.status)
	voterID := resp.data["id"].(string)

	resp = env.do(t, http.MethodPost, "/api/v1/voters/"+voterID+"/verify", map[string]any{
		"status": "verified",
	}, env.adminToken)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, true, resp.data["isEligible"])

	resp = env.do(t, http.MethodPost, "/api/v1/auth/voter/login", map[string]any{
		"walletAddress": voterWallet,
		"message":       "login",
		"signature":     voterSign("login"),
	}, "")
	assert.Equal(t, http.StatusOK, resp.status)
	voterToken := resp.data["token"].(string)

	resp = env.do(t, http.MethodPost, "/api/v1/elections/"+address+"/register/voter", map[string]any{
		"signerKey": voterKey,
	}, voterToken)
	assert.Equal(t, http.StatusCreated, resp.status)

	// Start voting and cast a ballot.
	for _, status := range []string{"registration_closed", "voting_active"} {
		resp = env.do(t, http.MethodPut, "/api/v1/elections/"+address+"/status", map[string]any{
			"status": status,
		}, env.adminToken)
		assert.Equal(t, http.StatusOK, resp.status)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/elections/"+address+"/vote", map[string]any{
		"candidateId": candidateOnChainID,
		"signerKey":   voterKey,
	}, voterToken)
	assert.Equal(t, http.StatusCreated, resp.status)
	assert.NotEmpty(t, resp.data["voteTxHash"])

	// Voting twice conflicts.
	resp = env.do(t, http.MethodPost, "/api/v1/elections/"+address+"/vote", map[string]any{
		"candidateId": candidateOnChainID,
		"signerKey":   voterKey,
	}, voterToken)
	assert.Equal(t, http.StatusConflict, resp.status)

	// Results are gated until announced.
	resp = env.do(t, http.MethodGet, "/api/v1/elections/"+address+"/results", nil, "")
	assert.Equal(t, http.StatusConflict, resp.status)

	resp = env.do(t, http.MethodPut, "/api/v1/elections/"+address+"/status", map[string]any{
		"status": "voting_ended",
	}, env.adminToken)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = env.do(t, http.MethodPost, "/api/v1/elections/"+address+"/announce", nil, env.adminToken)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "results_announced", resp.data["status"])

	resp = env.do(t, http.MethodGet, "/api/v1/elections/"+address+"/results", nil, "")
	assert.Equal(t, http.StatusOK, resp.status)
	winner := resp.data["winner"].(map[string]any)
	assert.Equal(t, "alice", winner["name"])
	assert.InDelta(t, 100.0, resp.data["turnoutPercentage"].(float64), 0.001)
}

func TestIllegalTransitionOverHttp(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/elections", map[string]any{
		"title":         "x-eleven",
		"maxCandidates": 2,
	}, env.adminToken)
	assert.Equal(t, http.StatusCreated, resp.status)
	address := resp.data["contractAddress"].(string)

	resp = env.do(t, http.MethodPut, "/api/v1/elections/"+address+"/status", map[string]any{
		"status": "voting_active",
	}, env.adminToken)
	assert.Equal(t, http.StatusConflict, resp.status)

	resp = env.do(t, http.MethodPut, "/api/v1/elections/"+address+"/status", map[string]any{
		"status": "definitely_not_a_status",
	}, env.adminToken)
	assert.Equal(t, http.StatusConflict, resp.status)
}
