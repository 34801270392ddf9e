package chain

import (
	"context"
	"errors"
	"math/big"

	a "ballot-node/modules/aggregate"

	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrEventMissing means the transaction mined but the registration event
	// could not be found in the receipt, so no on-chain id is known.
	ErrEventMissing = errors.New("expected event missing from receipt")
	// ErrReverted means the transaction mined with a failed status. The
	// contract rejects without a reason the gateway can interpret.
	ErrReverted = errors.New("transaction reverted")
	// ErrNoBytecode means deployment was requested without contract bytecode.
	ErrNoBytecode = errors.New("contract bytecode unavailable")
)

type DeployResult struct {
	ContractAddress string
	TxHash          string
	BlockNumber     uint64
}

type RegistrationResult struct {
	OnChainID   *uint64
	TxHash      string
	BlockNumber uint64
}

type VoteResult struct {
	TxHash      string
	BlockNumber uint64
}

type TxOutcome struct {
	TxHash      string
	BlockNumber uint64
}

type ElectionInfo struct {
	Title            string
	Description      string
	VotingActive     bool
	ResultsAnnounced bool
	TotalVotes       uint64
}

type VotingStatus struct {
	Active  bool
	Stopped bool
}

type CandidateInfo struct {
	OnChainID uint64
	Name      string
	Party     string
	Votes     uint64
}

type ResultRow struct {
	OnChainID uint64
	Votes     uint64
}

// Gateway is the typed face of the remote voting contract. Every write is a
// two-step protocol: submit the transaction, then block until it is mined
// and a receipt is obtained. castVote is not idempotent on-chain; duplicate
// submission protection is the caller's responsibility.
type Gateway interface {
	a.Plugin

	Deploy(ctx context.Context, title, description, signerKey string) (*DeployResult, error)
	RegisterVoter(ctx context.Context, contractAddress, name string, age uint8, genderIndex uint8, signerKey string) (*RegistrationResult, error)
	RegisterCandidate(ctx context.Context, contractAddress, name string, age uint8, genderIndex uint8, party, manifesto, signerKey string) (*RegistrationResult, error)
	CastVote(ctx context.Context, contractAddress string, candidateOnChainID uint64, signerKey string) (*VoteResult, error)
	SetElectionDetails(ctx context.Context, contractAddress, title, description, signerKey string) (*TxOutcome, error)
	EmergencyStopVoting(ctx context.Context, contractAddress, reason, signerKey string) (*TxOutcome, error)
	AnnounceResults(ctx context.Context, contractAddress, signerKey string) (*TxOutcome, error)

	GetElectionInfo(ctx context.Context, contractAddress string) (*ElectionInfo, error)
	GetVotingStatus(ctx context.Context, contractAddress string) (*VotingStatus, error)
	GetCandidateList(ctx context.Context, contractAddress string) ([]CandidateInfo, error)
	GetResults(ctx context.Context, contractAddress string) ([]ResultRow, error)
	GetBalance(ctx context.Context, address string) (*big.Int, error)
	GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error)
	GetCurrentBlockNumber(ctx context.Context) (uint64, error)
}
