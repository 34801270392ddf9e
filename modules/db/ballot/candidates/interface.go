package candidates

import (
	"context"
	"errors"

	a "ballot-node/modules/aggregate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("candidate not found")
	ErrWalletExists = errors.New("wallet address already registered")
	ErrNotModified  = errors.New("candidate document not modified")
)

type Candidates interface {
	a.Plugin
	Create(ctx context.Context, input CreateCandidateInput) (*Candidate, error)
	GetByWallet(ctx context.Context, wallet string) (*Candidate, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Candidate, error)
	List(ctx context.Context, opts ListOptions) ([]Candidate, error)
	SetVerification(ctx context.Context, id primitive.ObjectID, status VerificationStatus) (*Candidate, error)
	MarkRegisteredOnChain(ctx context.Context, wallet string, onChainID uint64, entry ElectionEntry) error
	// IncrementVotes bumps votesReceived on the matching election entry.
	IncrementVotes(ctx context.Context, candidateID primitive.ObjectID, electionID primitive.ObjectID) error
	UpdateProfile(ctx context.Context, wallet string, update ProfileUpdate) (*Candidate, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ListOptions struct {
	VerificationStatus *VerificationStatus
	Skip               int64
	Limit              int64
}
