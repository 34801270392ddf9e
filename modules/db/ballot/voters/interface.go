package voters

import (
	"context"
	"errors"

	a "ballot-node/modules/aggregate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("voter not found")
	ErrWalletExists = errors.New("wallet address already registered")
	ErrNotModified  = errors.New("voter document not modified")
)

type Voters interface {
	a.Plugin
	Create(ctx context.Context, input CreateVoterInput) (*Voter, error)
	GetByWallet(ctx context.Context, wallet string) (*Voter, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Voter, error)
	List(ctx context.Context, opts ListOptions) ([]Voter, error)
	// SetVerification moves the voter between pending/verified/rejected.
	// Verifying also forces isEligible=true; rejecting leaves it untouched.
	SetVerification(ctx context.Context, id primitive.ObjectID, status VerificationStatus) (*Voter, error)
	// MarkRegisteredOnChain sets onChainId together with the flag and appends
	// the election participation entry. onChainId is set iff the flag is.
	MarkRegisteredOnChain(ctx context.Context, wallet string, onChainID uint64, entry ElectionEntry) error
	AppendVoteHistory(ctx context.Context, wallet string, entry VoteHistoryEntry) error
	UpdateProfile(ctx context.Context, wallet string, update ProfileUpdate) (*Voter, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ListOptions struct {
	VerificationStatus *VerificationStatus
	Skip               int64
	Limit              int64
}
