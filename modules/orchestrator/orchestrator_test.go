package orchestrator_test

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"ballot-node/lib/logger"
	"ballot-node/lib/test_utils"
	"ballot-node/modules/chain"
	"ballot-node/modules/common"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"
	"ballot-node/modules/db/ballot/voters"
	"ballot-node/modules/orchestrator"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

type fixture struct {
	voterDb     *test_utils.MockVoters
	candidateDb *test_utils.MockCandidates
	adminDb     *test_utils.MockAdmins
	electionDb  *test_utils.MockElections
	intentDb    *test_utils.MockIntents
	gateway     *test_utils.MockGateway
	orch        *orchestrator.Orchestrator
	admin       *admins.Admin
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		voterDb:     test_utils.NewMockVoters(),
		candidateDb: test_utils.NewMockCandidates(),
		adminDb:     test_utils.NewMockAdmins(),
		electionDb:  test_utils.NewMockElections(),
		intentDb:    test_utils.NewMockIntents(),
		gateway:     test_utils.NewMockGateway(),
	}
	f.orch = orchestrator.New(
		f.voterDb, f.candidateDb, f.adminDb, f.electionDb, f.intentDb,
		f.gateway, logger.PrefixedLogger{Prefix: "test"},
	)

	admin, err := f.adminDb.Create(context.Background(), admins.CreateAdminInput{
		Username:     "root",
		Email:        "root@example.com",
		PasswordHash: "irrelevant",
		Role:         admins.RoleSuperAdmin,
	})
	assert.NoError(t, err)
	f.admin = admin
	return f
}

func newKey(t *testing.T) (keyHex, wallet string) {
	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	return hex.EncodeToString(crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func (f *fixture) newVerifiedVoter(t *testing.T, name string) (keyHex string, voter *voters.Voter) {
	keyHex, wallet := newKey(t)
	created, err := f.voterDb.Create(context.Background(), voters.CreateVoterInput{
		Name:          name,
		Age:           30,
		Gender:        common.GenderFemale,
		Email:         name + "@example.com",
		WalletAddress: wallet,
	})
	assert.NoError(t, err)
	verified, err := f.voterDb.SetVerification(context.Background(), created.ID, voters.VerificationVerified)
	assert.NoError(t, err)
	return keyHex, verified
}

func (f *fixture) newVerifiedCandidate(t *testing.T, name, party string) (keyHex string, candidate *candidates.Candidate) {
	keyHex, wallet := newKey(t)
	created, err := f.candidateDb.Create(context.Background(), candidates.CreateCandidateInput{
		Name:          name,
		Age:           45,
		Gender:        common.GenderMale,
		Email:         name + "@example.com",
		Party:         party,
		WalletAddress: wallet,
	})
	assert.NoError(t, err)
	verified, err := f.candidateDb.SetVerification(context.Background(), created.ID, candidates.VerificationVerified)
	assert.NoError(t, err)
	return keyHex, verified
}

func (f *fixture) deploy(t *testing.T, maxCandidates int) *elections.Election {
	election, err := f.orch.DeployElection(context.Background(), f.admin.ID, orchestrator.DeployParams{
		Title:         "General Election",
		Description:   "annual board vote",
		MaxCandidates: maxCandidates,
		SignerKey:     "unused-by-mock",
	})
	assert.NoError(t, err)
	assert.Equal(t, elections.StatusCreated, election.Status)
	return election
}

func (f *fixture) advance(t *testing.T, address string, to ...elections.Status) {
	for _, s := range to {
		assert.NoError(t, f.orch.TransitionStatus(context.Background(), f.admin.ID, address, s))
	}
}

func TestDeployRequiresPermission(t *testing.T) {
	f := newFixture(t)
	limited, err := f.adminDb.Create(context.Background(), admins.CreateAdminInput{
		Username:     "observer",
		Email:        "observer@example.com",
		PasswordHash: "irrelevant",
		Role:         admins.RoleElectionAdmin,
		Permissions:  []admins.Permission{admins.PermVerifyVoters},
	})
	assert.NoError(t, err)

	_, err = f.orch.DeployElection(context.Background(), limited.ID, orchestrator.DeployParams{
		Title:         "x",
		MaxCandidates: 3,
	})
	assert.ErrorIs(t, err, orchestrator.ErrForbidden)
}

func TestLifecycleTransitionGuards(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)

	// Skipping straight to voting is rejected by the guarded update.
	err := f.orch.TransitionStatus(context.Background(), f.admin.ID, election.ContractAddress, elections.StatusVotingActive)
	assert.ErrorIs(t, err, elections.ErrIllegalTransition)

	// results_announced and cancelled have dedicated workflows.
	err = f.orch.TransitionStatus(context.Background(), f.admin.ID, election.ContractAddress, elections.StatusResultsAnnounced)
	assert.True(t, orchestrator.IsPrecondition(err))

	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen, elections.StatusRegistrationClosed)
	got, err := f.electionDb.GetByAddress(context.Background(), election.ContractAddress)
	assert.NoError(t, err)
	assert.Equal(t, elections.StatusRegistrationClosed, got.Status)
}

func TestVoterRegistrationFlow(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)
	keyHex, voter := f.newVerifiedVoter(t, "ada")

	// Registration requires registration_open.
	_, err := f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, keyHex)
	assert.True(t, orchestrator.IsPrecondition(err))

	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen)
	entry, err := f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, keyHex)
	assert.NoError(t, err)
	assert.Equal(t, voter.ID, entry.VoterID)
	assert.False(t, entry.HasVoted)

	// Double registration is a precondition failure.
	_, err = f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, keyHex)
	assert.True(t, orchestrator.IsPrecondition(err))

	got, err := f.electionDb.GetByAddress(context.Background(), election.ContractAddress)
	assert.NoError(t, err)
	assert.Len(t, got.RegisteredVoters, 1)
	assert.Equal(t, int64(1), got.TotalRegisteredVoters)

	// The voter document mirrors the registration.
	stored, err := f.voterDb.GetByID(context.Background(), voter.ID)
	assert.NoError(t, err)
	assert.True(t, stored.IsRegisteredOnChain)
	assert.NotNil(t, stored.OnChainID)
}

func TestUnverifiedVoterCannotRegister(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)
	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen)

	keyHex, wallet := newKey(t)
	_, err := f.voterDb.Create(context.Background(), voters.CreateVoterInput{
		Name:          "pending-pat",
		Age:           22,
		Gender:        common.GenderOther,
		Email:         "pat@example.com",
		WalletAddress: wallet,
	})
	assert.NoError(t, err)

	_, err = f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, keyHex)
	assert.True(t, orchestrator.IsPrecondition(err))
}

func TestCandidateRosterCap(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 1)
	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen)

	keyA, _ := f.newVerifiedCandidate(t, "alice", "Red")
	keyB, _ := f.newVerifiedCandidate(t, "bob", "Blue")

	_, err := f.orch.RegisterCandidateForElection(context.Background(), election.ContractAddress, keyA)
	assert.NoError(t, err)

	_, err = f.orch.RegisterCandidateForElection(context.Background(), election.ContractAddress, keyB)
	assert.True(t, orchestrator.IsPrecondition(err))

	got, err := f.electionDb.GetByAddress(context.Background(), election.ContractAddress)
	assert.NoError(t, err)
	assert.Len(t, got.Candidates, 1)
}

func TestCastVoteExactlyOnce(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)
	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen)

	candKey, _ := f.newVerifiedCandidate(t, "alice", "Red")
	candEntry, err := f.orch.RegisterCandidateForElection(context.Background(), election.ContractAddress, candKey)
	assert.NoError(t, err)

	voterKey, voter := f.newVerifiedVoter(t, "ada")
	_, err = f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, voterKey)
	assert.NoError(t, err)

	// Voting before voting_active fails.
	_, err = f.orch.CastVote(context.Background(), election.ContractAddress, candEntry.OnChainID, voterKey)
	assert.True(t, orchestrator.IsPrecondition(err))

	f.advance(t, election.ContractAddress, elections.StatusRegistrationClosed, elections.StatusVotingActive)

	history, err := f.orch.CastVote(context.Background(), election.ContractAddress, candEntry.OnChainID, voterKey)
	assert.NoError(t, err)
	assert.NotEmpty(t, history.VoteTxHash)

	got, err := f.electionDb.GetByAddress(context.Background(), election.ContractAddress)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalVotesCast)
	assert.Equal(t, uint64(1), got.Candidates[0].VotesReceived)
	assert.True(t, got.RegisteredVoters[0].HasVoted)

	stored, err := f.voterDb.GetByID(context.Background(), voter.ID)
	assert.NoError(t, err)
	assert.Len(t, stored.VotingHistory, 1)

	// The second attempt changes nothing.
	_, err = f.orch.CastVote(context.Background(), election.ContractAddress, candEntry.OnChainID, voterKey)
	assert.True(t, orchestrator.IsPrecondition(err))

	got, err = f.electionDb.GetByAddress(context.Background(), election.ContractAddress)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalVotesCast)
	assert.Equal(t, uint64(1), got.Candidates[0].VotesReceived)
}

func TestConcurrentVotesFromSameVoter(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)
	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen)

	candKey, _ := f.newVerifiedCandidate(t, "alice", "Red")
	candEntry, err := f.orch.RegisterCandidateForElection(context.Background(), election.ContractAddress, candKey)
	assert.NoError(t, err)

	voterKey, _ := f.newVerifiedVoter(t, "ada")
	_, err = f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, voterKey)
	assert.NoError(t, err)

	f.advance(t, election.ContractAddress, elections.StatusRegistrationClosed, elections.StatusVotingActive)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, results[slot] = f.orch.CastVote(context.Background(), election.ContractAddress, candEntry.OnChainID, voterKey)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := f.electionDb.GetByAddress(context.Background(), election.ContractAddress)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), got.TotalVotesCast)
	assert.Equal(t, uint64(1), got.Candidates[0].VotesReceived)
}

func TestVoteForUnknownCandidateRejected(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)
	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen)

	voterKey, _ := f.newVerifiedVoter(t, "ada")
	_, err := f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, voterKey)
	assert.NoError(t, err)

	f.advance(t, election.ContractAddress, elections.StatusRegistrationClosed, elections.StatusVotingActive)

	_, err = f.orch.CastVote(context.Background(), election.ContractAddress, 99, voterKey)
	assert.True(t, orchestrator.IsPrecondition(err))
}

func TestAnnounceResultsRanking(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)
	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen)

	keyA, _ := f.newVerifiedCandidate(t, "alice", "Red")
	entryA, err := f.orch.RegisterCandidateForElection(context.Background(), election.ContractAddress, keyA)
	assert.NoError(t, err)
	keyB, _ := f.newVerifiedCandidate(t, "bob", "Blue")
	entryB, err := f.orch.RegisterCandidateForElection(context.Background(), election.ContractAddress, keyB)
	assert.NoError(t, err)

	voterKeys := make([]string, 3)
	for i, name := range []string{"v1", "v2", "v3"} {
		key, _ := f.newVerifiedVoter(t, name)
		_, err := f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, key)
		assert.NoError(t, err)
		voterKeys[i] = key
	}

	f.advance(t, election.ContractAddress, elections.StatusRegistrationClosed, elections.StatusVotingActive)

	// bob gets two votes, alice one.
	_, err = f.orch.CastVote(context.Background(), election.ContractAddress, entryB.OnChainID, voterKeys[0])
	assert.NoError(t, err)
	_, err = f.orch.CastVote(context.Background(), election.ContractAddress, entryB.OnChainID, voterKeys[1])
	assert.NoError(t, err)
	_, err = f.orch.CastVote(context.Background(), election.ContractAddress, entryA.OnChainID, voterKeys[2])
	assert.NoError(t, err)

	// Announcing before voting ends fails.
	_, err = f.orch.AnnounceResults(context.Background(), f.admin.ID, election.ContractAddress, "unused")
	assert.True(t, orchestrator.IsPrecondition(err))

	f.advance(t, election.ContractAddress, elections.StatusVotingEnded)

	final, err := f.orch.AnnounceResults(context.Background(), f.admin.ID, election.ContractAddress, "unused")
	assert.NoError(t, err)
	assert.Equal(t, elections.StatusResultsAnnounced, final.Status)
	assert.Len(t, final.Results, 2)
	assert.Equal(t, "bob", final.Results[0].Name)
	assert.Equal(t, uint64(2), final.Results[0].Votes)
	assert.Equal(t, 1, final.Results[0].Position)
	assert.Equal(t, "alice", final.Results[1].Name)
	assert.Equal(t, 2, final.Results[1].Position)
	assert.NotNil(t, final.Winner)
	assert.Equal(t, "bob", final.Winner.Name)
	assert.InDelta(t, 100.0, final.TurnoutPercentage, 0.001)
}

func TestEmergencyStopCancelsElection(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)
	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen, elections.StatusRegistrationClosed, elections.StatusVotingActive)

	err := f.orch.EmergencyStop(context.Background(), f.admin.ID, election.ContractAddress, "ballot tampering detected", "unused")
	assert.NoError(t, err)

	got, err := f.electionDb.GetByAddress(context.Background(), election.ContractAddress)
	assert.NoError(t, err)
	assert.Equal(t, elections.StatusCancelled, got.Status)
	assert.NotNil(t, got.EmergencyStop)
	assert.Equal(t, "ballot tampering detected", got.EmergencyStop.Reason)

	// A cancelled election cannot be stopped again or announced.
	err = f.orch.EmergencyStop(context.Background(), f.admin.ID, election.ContractAddress, "again", "unused")
	assert.True(t, orchestrator.IsPrecondition(err))
	_, err = f.orch.AnnounceResults(context.Background(), f.admin.ID, election.ContractAddress, "unused")
	assert.True(t, orchestrator.IsPrecondition(err))
}

func TestVerificationControlsEligibility(t *testing.T) {
	f := newFixture(t)
	_, wallet := newKey(t)
	created, err := f.voterDb.Create(context.Background(), voters.CreateVoterInput{
		Name:          "pending-pat",
		Age:           40,
		Gender:        common.GenderMale,
		Email:         "pat@example.com",
		WalletAddress: wallet,
	})
	assert.NoError(t, err)
	assert.False(t, created.IsEligible)

	verified, err := f.orch.VerifyVoter(context.Background(), f.admin.ID, created.ID, voters.VerificationVerified)
	assert.NoError(t, err)
	assert.True(t, verified.IsEligible)

	// Rejecting flips the status but eligibility handling stays put.
	rejected, err := f.orch.VerifyVoter(context.Background(), f.admin.ID, created.ID, voters.VerificationRejected)
	assert.NoError(t, err)
	assert.Equal(t, voters.VerificationRejected, rejected.VerificationStatus)

	_, err = f.orch.VerifyVoter(context.Background(), f.admin.ID, created.ID, "bogus")
	assert.True(t, orchestrator.IsPrecondition(err))
}

func TestRegistrationEventMissingRecordsDrift(t *testing.T) {
	f := newFixture(t)
	election := f.deploy(t, 3)
	f.advance(t, election.ContractAddress, elections.StatusRegistrationOpen)

	voterKey, _ := f.newVerifiedVoter(t, "ada")
	f.gateway.OmitRegistrationEvent = true

	_, err := f.orch.RegisterVoterForElection(context.Background(), election.ContractAddress, voterKey)
	assert.True(t, errors.Is(err, chain.ErrEventMissing))

	// No off-chain mutation happened.
	got, err := f.electionDb.GetByAddress(context.Background(), election.ContractAddress)
	assert.NoError(t, err)
	assert.Empty(t, got.RegisteredVoters)

	// The intent is failed but keeps the mined tx hash for the audit trail.
	all := f.intentDb.All()
	last := all[len(all)-1]
	assert.Equal(t, intents.PurposeRegisterVoter, last.Purpose)
	assert.Equal(t, intents.StatusFailed, last.Status)
	assert.NotEmpty(t, last.TxHash)
}

func TestRankResultsTiesAndPositions(t *testing.T) {
	roster := []elections.CandidateEntry{
		{OnChainID: 1, Name: "a", Party: "X"},
		{OnChainID: 2, Name: "b", Party: "Y"},
		{OnChainID: 3, Name: "c", Party: "Z"},
	}
	rows := []chain.ResultRow{
		{OnChainID: 1, Votes: 5},
		{OnChainID: 2, Votes: 9},
		{OnChainID: 3, Votes: 5},
	}

	ranked := orchestrator.RankResults(rows, roster)
	assert.Len(t, ranked, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Position, ranked[1].Position, ranked[2].Position})
	assert.Equal(t, "b", ranked[0].Name)
	// Stable sort: the tie keeps contract order (a before c).
	assert.Equal(t, "a", ranked[1].Name)
	assert.Equal(t, "c", ranked[2].Name)
}

func TestTurnout(t *testing.T) {
	assert.Equal(t, 0.0, orchestrator.Turnout(5, 0))
	assert.InDelta(t, 50.0, orchestrator.Turnout(1, 2), 0.001)
	assert.InDelta(t, 100.0, orchestrator.Turnout(3, 3), 0.001)
}
