package elections

import (
	"context"
	"errors"
	"time"

	a "ballot-node/modules/aggregate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("election not found")
	ErrAddressExists     = errors.New("contract address already tracked")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrRosterConstraint  = errors.New("roster constraint violated")
	ErrAlreadyVoted      = errors.New("voter has already cast a vote")
)

type Elections interface {
	a.Plugin
	Create(ctx context.Context, input CreateElectionInput) (*Election, error)
	GetByAddress(ctx context.Context, contractAddress string) (*Election, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Election, error)
	List(ctx context.Context, opts ListOptions) ([]Election, error)
	// UpdateStatus performs a guarded transition: the update only matches if
	// the current status may legally move to `to`.
	UpdateStatus(ctx context.Context, contractAddress string, to Status) error
	// AppendCandidate admits a candidate only while the roster is below
	// maxCandidates and the candidate is not already present.
	AppendCandidate(ctx context.Context, contractAddress string, entry CandidateEntry) error
	// AppendVoter admits a voter roster entry (deduplicated on voterId) and
	// bumps totalRegisteredVoters so the counter tracks the array length.
	AppendVoter(ctx context.Context, contractAddress string, entry VoterEntry) error
	// MarkVoted flips hasVoted on the voter entry and increments the target
	// candidate's votesReceived and totalVotesCast in one update. The filter
	// requires hasVoted=false, so the flip can happen at most once.
	MarkVoted(ctx context.Context, contractAddress string, voterID primitive.ObjectID, candidateOnChainID uint64, votedAt time.Time) error
	StoreResults(ctx context.Context, contractAddress string, results []ResultEntry, winner *Winner, turnout float64, announcedAt time.Time) error
	SetEmergencyStop(ctx context.Context, contractAddress string, stop EmergencyStop) error
	UpdateDetails(ctx context.Context, contractAddress string, title, description string) error
}

type CreateElectionInput struct {
	ContractAddress      string
	Title                string
	Description          string
	MaxCandidates        int
	DeployedBy           primitive.ObjectID
	DeployTxHash         string
	RegistrationDeadline *time.Time
	StartTime            *time.Time
	EndTime              *time.Time
}

type ListOptions struct {
	Status *Status
	Skip   int64
	Limit  int64
}
