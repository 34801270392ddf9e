package test_utils

import (
	"context"
	"sync"
	"time"

	"ballot-node/modules/common"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"
	"ballot-node/modules/db/ballot/voters"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory stands-ins for the mongo-backed collections. Guarded updates
// mirror the real filter semantics so workflow tests exercise the same
// at-most-once behavior.

// ===== voters =====

type MockVoters struct {
	NopPlugin
	mu   sync.Mutex
	docs []*voters.Voter
}

var _ voters.Voters = &MockVoters{}

func NewMockVoters() *MockVoters {
	return &MockVoters{}
}

func (m *MockVoters) findByWallet(wallet string) *voters.Voter {
	wallet = common.NormalizeWallet(wallet)
	for _, v := range m.docs {
		if common.NormalizeWallet(v.WalletAddress) == wallet {
			return v
		}
	}
	return nil
}

func (m *MockVoters) Create(_ context.Context, input voters.CreateVoterInput) (*voters.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findByWallet(input.WalletAddress) != nil {
		return nil, voters.ErrWalletExists
	}
	now := time.Now().UTC()
	doc := &voters.Voter{
		ID:                 primitive.NewObjectID(),
		Name:               input.Name,
		Age:                input.Age,
		Gender:             input.Gender,
		Email:              input.Email,
		Phone:              input.Phone,
		WalletAddress:      common.NormalizeWallet(input.WalletAddress),
		VerificationStatus: voters.VerificationPending,
		Elections:          []voters.ElectionEntry{},
		VotingHistory:      []voters.VoteHistoryEntry{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.docs = append(m.docs, doc)
	copied := *doc
	return &copied, nil
}

func (m *MockVoters) GetByWallet(_ context.Context, wallet string) (*voters.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByWallet(wallet)
	if doc == nil {
		return nil, voters.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockVoters) GetByID(_ context.Context, id primitive.ObjectID) (*voters.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.docs {
		if v.ID == id {
			copied := *v
			return &copied, nil
		}
	}
	return nil, voters.ErrNotFound
}

func (m *MockVoters) List(_ context.Context, opts voters.ListOptions) ([]voters.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []voters.Voter{}
	for _, v := range m.docs {
		if opts.VerificationStatus != nil && v.VerificationStatus != *opts.VerificationStatus {
			continue
		}
		out = append(out, *v)
	}
	return paginate(out, opts.Skip, opts.Limit), nil
}

func (m *MockVoters) SetVerification(_ context.Context, id primitive.ObjectID, status voters.VerificationStatus) (*voters.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.docs {
		if v.ID == id {
			v.VerificationStatus = status
			if status == voters.VerificationVerified {
				v.IsEligible = true
			}
			v.UpdatedAt = time.Now().UTC()
			copied := *v
			return &copied, nil
		}
	}
	return nil, voters.ErrNotFound
}

func (m *MockVoters) MarkRegisteredOnChain(_ context.Context, wallet string, onChainID uint64, entry voters.ElectionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByWallet(wallet)
	if doc == nil {
		return voters.ErrNotFound
	}
	for _, e := range doc.Elections {
		if e.ElectionID == entry.ElectionID {
			return voters.ErrNotModified
		}
	}
	doc.IsRegisteredOnChain = true
	doc.OnChainID = &onChainID
	doc.Elections = append(doc.Elections, entry)
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockVoters) AppendVoteHistory(_ context.Context, wallet string, entry voters.VoteHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByWallet(wallet)
	if doc == nil {
		return voters.ErrNotFound
	}
	doc.VotingHistory = append(doc.VotingHistory, entry)
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockVoters) UpdateProfile(_ context.Context, wallet string, update voters.ProfileUpdate) (*voters.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByWallet(wallet)
	if doc == nil {
		return nil, voters.ErrNotFound
	}
	if update.Name != nil {
		doc.Name = *update.Name
	}
	if update.Email != nil {
		doc.Email = *update.Email
	}
	if update.Phone != nil {
		doc.Phone = *update.Phone
	}
	doc.UpdatedAt = time.Now().UTC()
	copied := *doc
	return &copied, nil
}

func (m *MockVoters) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.docs {
		if v.ID == id {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return voters.ErrNotFound
}

// ===== candidates =====

type MockCandidates struct {
	NopPlugin
	mu   sync.Mutex
	docs []*candidates.Candidate
}

var _ candidates.Candidates = &MockCandidates{}

func NewMockCandidates() *MockCandidates {
	return &MockCandidates{}
}

func (m *MockCandidates) findByWallet(wallet string) *candidates.Candidate {
	wallet = common.NormalizeWallet(wallet)
	for _, c := range m.docs {
		if common.NormalizeWallet(c.WalletAddress) == wallet {
			return c
		}
	}
	return nil
}

func (m *MockCandidates) Create(_ context.Context, input candidates.CreateCandidateInput) (*candidates.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findByWallet(input.WalletAddress) != nil {
		return nil, candidates.ErrWalletExists
	}
	now := time.Now().UTC()
	doc := &candidates.Candidate{
		ID:                 primitive.NewObjectID(),
		Name:               input.Name,
		Age:                input.Age,
		Gender:             input.Gender,
		Email:              input.Email,
		Phone:              input.Phone,
		Party:              input.Party,
		Manifesto:          input.Manifesto,
		WalletAddress:      common.NormalizeWallet(input.WalletAddress),
		VerificationStatus: candidates.VerificationPending,
		Elections:          []candidates.ElectionEntry{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.docs = append(m.docs, doc)
	copied := *doc
	return &copied, nil
}

func (m *MockCandidates) GetByWallet(_ context.Context, wallet string) (*candidates.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByWallet(wallet)
	if doc == nil {
		return nil, candidates.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockCandidates) GetByID(_ context.Context, id primitive.ObjectID) (*candidates.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.docs {
		if c.ID == id {
			copied := *c
			return &copied, nil
		}
	}
	return nil, candidates.ErrNotFound
}

func (m *MockCandidates) List(_ context.Context, opts candidates.ListOptions) ([]candidates.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []candidates.Candidate{}
	for _, c := range m.docs {
		if opts.VerificationStatus != nil && c.VerificationStatus != *opts.VerificationStatus {
			continue
		}
		out = append(out, *c)
	}
	return paginate(out, opts.Skip, opts.Limit), nil
}

func (m *MockCandidates) SetVerification(_ context.Context, id primitive.ObjectID, status candidates.VerificationStatus) (*candidates.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.docs {
		if c.ID == id {
			c.VerificationStatus = status
			c.UpdatedAt = time.Now().UTC()
			copied := *c
			return &copied, nil
		}
	}
	return nil, candidates.ErrNotFound
}

func (m *MockCandidates) MarkRegisteredOnChain(_ context.Context, wallet string, onChainID uint64, entry candidates.ElectionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByWallet(wallet)
	if doc == nil {
		return candidates.ErrNotFound
	}
	for _, e := range doc.Elections {
		if e.ElectionID == entry.ElectionID {
			return candidates.ErrNotModified
		}
	}
	doc.IsRegisteredOnChain = true
	doc.OnChainID = &onChainID
	doc.Elections = append(doc.Elections, entry)
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockCandidates) IncrementVotes(_ context.Context, candidateID primitive.ObjectID, electionID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.docs {
		if c.ID != candidateID {
			continue
		}
		for i := range c.Elections {
			if c.Elections[i].ElectionID == electionID {
				c.Elections[i].VotesReceived++
				c.UpdatedAt = time.Now().UTC()
				return nil
			}
		}
	}
	return candidates.ErrNotFound
}

func (m *MockCandidates) UpdateProfile(_ context.Context, wallet string, update candidates.ProfileUpdate) (*candidates.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByWallet(wallet)
	if doc == nil {
		return nil, candidates.ErrNotFound
	}
	if update.Name != nil {
		doc.Name = *update.Name
	}
	if update.Email != nil {
		doc.Email = *update.Email
	}
	if update.Phone != nil {
		doc.Phone = *update.Phone
	}
	if update.Party != nil {
		doc.Party = *update.Party
	}
	if update.Manifesto != nil {
		doc.Manifesto = *update.Manifesto
	}
	doc.UpdatedAt = time.Now().UTC()
	copied := *doc
	return &copied, nil
}

func (m *MockCandidates) Delete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.docs {
		if c.ID == id {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return candidates.ErrNotFound
}

// ===== admins =====

type MockAdmins struct {
	NopPlugin
	mu   sync.Mutex
	docs []*admins.Admin
}

var _ admins.Admins = &MockAdmins{}

func NewMockAdmins() *MockAdmins {
	return &MockAdmins{}
}

func (m *MockAdmins) Create(_ context.Context, input admins.CreateAdminInput) (*admins.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.docs {
		if a.Username == input.Username || a.Email == input.Email {
			return nil, admins.ErrUsernameExists
		}
	}
	now := time.Now().UTC()
	doc := &admins.Admin{
		ID:           primitive.NewObjectID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Permissions:  input.Permissions,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.docs = append(m.docs, doc)
	copied := *doc
	return &copied, nil
}

func (m *MockAdmins) GetByUsername(_ context.Context, username string) (*admins.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.docs {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, admins.ErrNotFound
}

func (m *MockAdmins) GetByID(_ context.Context, id primitive.ObjectID) (*admins.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.docs {
		if a.ID == id {
			copied := *a
			return &copied, nil
		}
	}
	return nil, admins.ErrNotFound
}

func (m *MockAdmins) List(_ context.Context) ([]admins.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]admins.Admin, 0, len(m.docs))
	for _, a := range m.docs {
		out = append(out, *a)
	}
	return out, nil
}

func (m *MockAdmins) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.docs)), nil
}

func (m *MockAdmins) UpdateLastLogin(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.docs {
		if a.ID == id {
			now := time.Now().UTC()
			a.LastLoginAt = &now
			return nil
		}
	}
	return admins.ErrNotFound
}

func (m *MockAdmins) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.docs {
		if a.ID == id {
			a.Active = active
			a.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return admins.ErrNotFound
}

// ===== elections =====

type MockElections struct {
	NopPlugin
	mu   sync.Mutex
	docs []*elections.Election
}

var _ elections.Elections = &MockElections{}

func NewMockElections() *MockElections {
	return &MockElections{}
}

func (m *MockElections) findByAddress(contractAddress string) *elections.Election {
	contractAddress = common.NormalizeWallet(contractAddress)
	for _, e := range m.docs {
		if common.NormalizeWallet(e.ContractAddress) == contractAddress {
			return e
		}
	}
	return nil
}

func (m *MockElections) Create(_ context.Context, input elections.CreateElectionInput) (*elections.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findByAddress(input.ContractAddress) != nil {
		return nil, elections.ErrAddressExists
	}
	now := time.Now().UTC()
	doc := &elections.Election{
		ID:                   primitive.NewObjectID(),
		ContractAddress:      input.ContractAddress,
		Title:                input.Title,
		Description:          input.Description,
		Status:               elections.StatusCreated,
		RegistrationDeadline: input.RegistrationDeadline,
		StartTime:            input.StartTime,
		EndTime:              input.EndTime,
		MaxCandidates:        input.MaxCandidates,
		DeployedBy:           input.DeployedBy,
		DeployTxHash:         input.DeployTxHash,
		Candidates:           []elections.CandidateEntry{},
		RegisteredVoters:     []elections.VoterEntry{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	m.docs = append(m.docs, doc)
	copied := *doc
	return &copied, nil
}

func (m *MockElections) GetByAddress(_ context.Context, contractAddress string) (*elections.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByAddress(contractAddress)
	if doc == nil {
		return nil, elections.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockElections) GetByID(_ context.Context, id primitive.ObjectID) (*elections.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.docs {
		if e.ID == id {
			copied := *e
			return &copied, nil
		}
	}
	return nil, elections.ErrNotFound
}

func (m *MockElections) List(_ context.Context, opts elections.ListOptions) ([]elections.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []elections.Election{}
	for _, e := range m.docs {
		if opts.Status != nil && e.Status != *opts.Status {
			continue
		}
		out = append(out, *e)
	}
	return paginate(out, opts.Skip, opts.Limit), nil
}

func (m *MockElections) UpdateStatus(_ context.Context, contractAddress string, to elections.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByAddress(contractAddress)
	if doc == nil {
		return elections.ErrNotFound
	}
	if !doc.Status.CanTransitionTo(to) {
		return elections.ErrIllegalTransition
	}
	doc.Status = to
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockElections) AppendCandidate(_ context.Context, contractAddress string, entry elections.CandidateEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByAddress(contractAddress)
	if doc == nil {
		return elections.ErrNotFound
	}
	for _, c := range doc.Candidates {
		if c.CandidateID == entry.CandidateID {
			return elections.ErrRosterConstraint
		}
	}
	if len(doc.Candidates) >= doc.MaxCandidates {
		return elections.ErrRosterConstraint
	}
	doc.Candidates = append(doc.Candidates, entry)
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockElections) AppendVoter(_ context.Context, contractAddress string, entry elections.VoterEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByAddress(contractAddress)
	if doc == nil {
		return elections.ErrNotFound
	}
	for _, v := range doc.RegisteredVoters {
		if v.VoterID == entry.VoterID {
			return elections.ErrRosterConstraint
		}
	}
	doc.RegisteredVoters = append(doc.RegisteredVoters, entry)
	doc.TotalRegisteredVoters++
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockElections) MarkVoted(_ context.Context, contractAddress string, voterID primitive.ObjectID, candidateOnChainID uint64, votedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByAddress(contractAddress)
	if doc == nil {
		return elections.ErrNotFound
	}
	var voterEntry *elections.VoterEntry
	for i := range doc.RegisteredVoters {
		if doc.RegisteredVoters[i].VoterID == voterID && !doc.RegisteredVoters[i].HasVoted {
			voterEntry = &doc.RegisteredVoters[i]
			break
		}
	}
	var candidateEntry *elections.CandidateEntry
	for i := range doc.Candidates {
		if doc.Candidates[i].OnChainID == candidateOnChainID {
			candidateEntry = &doc.Candidates[i]
			break
		}
	}
	if voterEntry == nil || candidateEntry == nil {
		return elections.ErrAlreadyVoted
	}
	voterEntry.HasVoted = true
	voterEntry.VotedAt = &votedAt
	candidateEntry.VotesReceived++
	doc.TotalVotesCast++
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockElections) StoreResults(_ context.Context, contractAddress string, results []elections.ResultEntry, winner *elections.Winner, turnout float64, announcedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByAddress(contractAddress)
	if doc == nil {
		return elections.ErrNotFound
	}
	doc.Results = results
	doc.Winner = winner
	doc.TurnoutPercentage = turnout
	doc.ResultsAnnouncedAt = &announcedAt
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockElections) SetEmergencyStop(_ context.Context, contractAddress string, stop elections.EmergencyStop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByAddress(contractAddress)
	if doc == nil {
		return elections.ErrNotFound
	}
	doc.EmergencyStop = &stop
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MockElections) UpdateDetails(_ context.Context, contractAddress string, title, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := m.findByAddress(contractAddress)
	if doc == nil {
		return elections.ErrNotFound
	}
	doc.Title = title
	doc.Description = description
	doc.Version++
	doc.UpdatedAt = time.Now().UTC()
	return nil
}

// ===== intents =====

type MockIntents struct {
	NopPlugin
	mu   sync.Mutex
	docs []*intents.Intent
}

var _ intents.Intents = &MockIntents{}

func NewMockIntents() *MockIntents {
	return &MockIntents{}
}

func (m *MockIntents) Create(_ context.Context, intent intents.Intent) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	intent.ID = primitive.NewObjectID()
	intent.Status = intents.StatusPending
	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.UpdatedAt = now
	m.docs = append(m.docs, &intent)
	return intent.ID, nil
}

func (m *MockIntents) SetTxHash(_ context.Context, id primitive.ObjectID, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.docs {
		if i.ID == id {
			i.TxHash = txHash
			i.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return intents.ErrNotFound
}

func (m *MockIntents) MarkConfirmed(_ context.Context, id primitive.ObjectID, txHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.docs {
		if i.ID == id {
			i.Status = intents.StatusConfirmed
			i.TxHash = txHash
			i.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return intents.ErrNotFound
}

func (m *MockIntents) MarkFailed(_ context.Context, id primitive.ObjectID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.docs {
		if i.ID == id {
			i.Status = intents.StatusFailed
			i.Error = reason
			i.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return intents.ErrNotFound
}

func (m *MockIntents) ListPending(_ context.Context, olderThan time.Time) ([]intents.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []intents.Intent{}
	for _, i := range m.docs {
		if i.Status == intents.StatusPending && i.CreatedAt.Before(olderThan) {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (m *MockIntents) PurgeConfirmed(_ context.Context, age time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-age)
	kept := m.docs[:0]
	var purged int64
	for _, i := range m.docs {
		if i.Status == intents.StatusConfirmed && i.UpdatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, i)
	}
	m.docs = kept
	return purged, nil
}

// All returns a snapshot for assertions.
func (m *MockIntents) All() []intents.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]intents.Intent, 0, len(m.docs))
	for _, i := range m.docs {
		out = append(out, *i)
	}
	return out
}

func paginate[T any](in []T, skip, limit int64) []T {
	if skip > 0 {
		if skip >= int64(len(in)) {
			return []T{}
		}
		in = in[skip:]
	}
	if limit > 0 && limit < int64(len(in)) {
		in = in[:limit]
	}
	return in
}
