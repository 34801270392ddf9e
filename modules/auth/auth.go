package auth

import (
	"context"
	"errors"
	"time"

	"ballot-node/lib/ethsign"
	"ballot-node/lib/utils"
	a "ballot-node/modules/aggregate"
	"ballot-node/modules/common"
	"ballot-node/modules/config"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/voters"

	"github.com/chebyrash/promise"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleVoter     = "voter"
	RoleCandidate = "candidate"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSignatureMismatch  = errors.New("signature does not match wallet")
)

type Claims struct {
	ID            string `json:"id"`
	Role          string `json:"role"`
	WalletAddress string `json:"walletAddress,omitempty"`
	jwt.RegisteredClaims
}

type Auth struct {
	conf        *config.Config[AuthConfig]
	adminDb     admins.Admins
	voterDb     voters.Voters
	candidateDb candidates.Candidates
}

var _ a.Plugin = &Auth{}

func New(conf *config.Config[AuthConfig], adminDb admins.Admins, voterDb voters.Voters, candidateDb candidates.Candidates) *Auth {
	return &Auth{
		conf:        conf,
		adminDb:     adminDb,
		voterDb:     voterDb,
		candidateDb: candidateDb,
	}
}

func (au *Auth) Init() error {
	return nil
}

func (au *Auth) Start() *promise.Promise[any] {
	return utils.PromiseResolve[any](nil)
}

func (au *Auth) Stop() error {
	return nil
}

func (au *Auth) IssueToken(id, role, walletAddress string) (string, error) {
	conf := au.conf.Get()
	now := time.Now()
	claims := Claims{
		ID:            id,
		Role:          role,
		WalletAddress: walletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(conf.TokenTTLHours) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(conf.JwtSecret))
}

func (au *Auth) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(au.conf.Get().JwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AdminLogin exchanges username+password for a bearer token carrying the
// admin's role.
func (au *Auth) AdminLogin(ctx context.Context, username, password string) (string, *admins.Admin, error) {
	admin, err := au.adminDb.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, admins.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !admin.Active {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := au.adminDb.UpdateLastLogin(ctx, admin.ID); err != nil {
		return "", nil, err
	}
	token, err := au.IssueToken(admin.ID.Hex(), string(admin.Role), "")
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// VoterLogin verifies a wallet-signed message and issues a voter token. The
// recovered signer is compared case-insensitively to the claimed wallet.
func (au *Auth) VoterLogin(ctx context.Context, wallet, message, signature string) (string, *voters.Voter, error) {
	ok, err := ethsign.Matches(wallet, message, signature)
	if err != nil || !ok {
		return "", nil, ErrSignatureMismatch
	}
	voter, err := au.voterDb.GetByWallet(ctx, wallet)
	if err != nil {
		return "", nil, err
	}
	token, err := au.IssueToken(voter.ID.Hex(), RoleVoter, common.NormalizeWallet(wallet))
	if err != nil {
		return "", nil, err
	}
	return token, voter, nil
}

func (au *Auth) CandidateLogin(ctx context.Context, wallet, message, signature string) (string, *candidates.Candidate, error) {
	ok, err := ethsign.Matches(wallet, message, signature)
	if err != nil || !ok {
		return "", nil, ErrSignatureMismatch
	}
	candidate, err := au.candidateDb.GetByWallet(ctx, wallet)
	if err != nil {
		return "", nil, err
	}
	token, err := au.IssueToken(candidate.ID.Hex(), RoleCandidate, common.NormalizeWallet(wallet))
	if err != nil {
		return "", nil, err
	}
	return token, candidate, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
