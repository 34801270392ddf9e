package test_utils

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"ballot-node/modules/chain"

	ethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type mockContract struct {
	title            string
	description      string
	votingActive     bool
	stopped          bool
	resultsAnnounced bool

	nextVoterID     uint64
	nextCandidateID uint64
	candidates      []chain.CandidateInfo
	totalVotes      uint64
}

// MockGateway simulates the voting contract in memory. Failure injection
// fields let workflow tests exercise the drift paths without a chain.
type MockGateway struct {
	NopPlugin
	mu        sync.Mutex
	nonce     uint64
	contracts map[string]*mockContract

	// Receipts holds receipts returned by GetTransactionReceipt; writes add
	// a successful receipt for their own hash.
	Receipts map[string]*types.Receipt

	// FailNextWrite makes the next mutating call return this error.
	FailNextWrite error
	// OmitRegistrationEvent makes registrations return a partial result plus
	// ErrEventMissing, as a mined transaction with an unparseable log would.
	OmitRegistrationEvent bool
}

var _ chain.Gateway = &MockGateway{}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		contracts: map[string]*mockContract{},
		Receipts:  map[string]*types.Receipt{},
	}
}

func (m *MockGateway) nextTx() (string, uint64) {
	m.nonce++
	hash := fmt.Sprintf("0x%064x", m.nonce)
	m.Receipts[hash] = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      ethCommon.HexToHash(hash),
		BlockNumber: new(big.Int).SetUint64(m.nonce),
	}
	return hash, m.nonce
}

func (m *MockGateway) takeFailure() error {
	err := m.FailNextWrite
	m.FailNextWrite = nil
	return err
}

func (m *MockGateway) contract(address string) (*mockContract, error) {
	c, ok := m.contracts[address]
	if !ok {
		return nil, fmt.Errorf("no contract at %s", address)
	}
	return c, nil
}

func (m *MockGateway) Deploy(_ context.Context, title, description, _ string) (*chain.DeployResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	hash, block := m.nextTx()
	address := fmt.Sprintf("0x%040x", m.nonce)
	m.contracts[address] = &mockContract{title: title, description: description}
	return &chain.DeployResult{
		ContractAddress: address,
		TxHash:          hash,
		BlockNumber:     block,
	}, nil
}

func (m *MockGateway) RegisterVoter(_ context.Context, contractAddress, _ string, _ uint8, _ uint8, _ string) (*chain.RegistrationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	hash, block := m.nextTx()
	if m.OmitRegistrationEvent {
		return &chain.RegistrationResult{TxHash: hash, BlockNumber: block}, chain.ErrEventMissing
	}
	c.nextVoterID++
	id := c.nextVoterID
	return &chain.RegistrationResult{OnChainID: &id, TxHash: hash, BlockNumber: block}, nil
}

func (m *MockGateway) RegisterCandidate(_ context.Context, contractAddress, name string, _ uint8, _ uint8, party, _, _ string) (*chain.RegistrationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	hash, block := m.nextTx()
	if m.OmitRegistrationEvent {
		return &chain.RegistrationResult{TxHash: hash, BlockNumber: block}, chain.ErrEventMissing
	}
	c.nextCandidateID++
	id := c.nextCandidateID
	c.candidates = append(c.candidates, chain.CandidateInfo{
		OnChainID: id,
		Name:      name,
		Party:     party,
	})
	return &chain.RegistrationResult{OnChainID: &id, TxHash: hash, BlockNumber: block}, nil
}

func (m *MockGateway) CastVote(_ context.Context, contractAddress string, candidateOnChainID uint64, _ string) (*chain.VoteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	for i := range c.candidates {
		if c.candidates[i].OnChainID == candidateOnChainID {
			hash, block := m.nextTx()
			c.candidates[i].Votes++
			c.totalVotes++
			return &chain.VoteResult{TxHash: hash, BlockNumber: block}, nil
		}
	}
	return nil, chain.ErrReverted
}

func (m *MockGateway) SetElectionDetails(_ context.Context, contractAddress, title, description, _ string) (*chain.TxOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	hash, block := m.nextTx()
	c.title = title
	c.description = description
	return &chain.TxOutcome{TxHash: hash, BlockNumber: block}, nil
}

func (m *MockGateway) EmergencyStopVoting(_ context.Context, contractAddress, _, _ string) (*chain.TxOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	hash, block := m.nextTx()
	c.stopped = true
	c.votingActive = false
	return &chain.TxOutcome{TxHash: hash, BlockNumber: block}, nil
}

func (m *MockGateway) AnnounceResults(_ context.Context, contractAddress, _ string) (*chain.TxOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	hash, block := m.nextTx()
	c.resultsAnnounced = true
	return &chain.TxOutcome{TxHash: hash, BlockNumber: block}, nil
}

func (m *MockGateway) GetElectionInfo(_ context.Context, contractAddress string) (*chain.ElectionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	return &chain.ElectionInfo{
		Title:            c.title,
		Description:      c.description,
		VotingActive:     c.votingActive,
		ResultsAnnounced: c.resultsAnnounced,
		TotalVotes:       c.totalVotes,
	}, nil
}

func (m *MockGateway) GetVotingStatus(_ context.Context, contractAddress string) (*chain.VotingStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	return &chain.VotingStatus{Active: c.votingActive, Stopped: c.stopped}, nil
}

func (m *MockGateway) GetCandidateList(_ context.Context, contractAddress string) ([]chain.CandidateInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	out := make([]chain.CandidateInfo, len(c.candidates))
	copy(out, c.candidates)
	return out, nil
}

func (m *MockGateway) GetResults(_ context.Context, contractAddress string) ([]chain.ResultRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.contract(contractAddress)
	if err != nil {
		return nil, err
	}
	rows := make([]chain.ResultRow, len(c.candidates))
	for i, cand := range c.candidates {
		rows[i] = chain.ResultRow{OnChainID: cand.OnChainID, Votes: cand.Votes}
	}
	return rows, nil
}

func (m *MockGateway) GetBalance(_ context.Context, _ string) (*big.Int, error) {
	return big.NewInt(1_000_000_000_000_000_000), nil
}

func (m *MockGateway) GetTransactionReceipt(_ context.Context, txHash string) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	receipt, ok := m.Receipts[txHash]
	if !ok {
		return nil, fmt.Errorf("receipt not found for %s", txHash)
	}
	return receipt, nil
}

func (m *MockGateway) GetCurrentBlockNumber(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonce, nil
}
