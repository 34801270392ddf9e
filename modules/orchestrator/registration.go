package orchestrator

import (
	"context"
	"time"

	"ballot-node/lib/utils"
	"ballot-node/modules/chain"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"
	"ballot-node/modules/db/ballot/voters"

	"go.mongodb.org/mongo-driver/bson"
)

// RegisterVoterForElection registers a verified voter on the contract and
// mirrors the registration into the election roster and the voter document.
// The wallet is derived from the signer key, so a caller can only register
// the identity they control.
func (o *Orchestrator) RegisterVoterForElection(ctx context.Context, contractAddress, signerKey string) (*elections.VoterEntry, error) {
	wallet, err := chain.SignerAddress(signerKey)
	if err != nil {
		return nil, precondition("invalid signer key")
	}

	voter, err := o.voterDb.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if voter.VerificationStatus != voters.VerificationVerified {
		return nil, precondition("voter is not verified")
	}

	lock := o.lockFor(contractAddress)
	lock.Lock()
	defer lock.Unlock()

	election, err := o.electionDb.GetByAddress(ctx, contractAddress)
	if err != nil {
		return nil, err
	}
	if election.Status != elections.StatusRegistrationOpen {
		return nil, precondition("registration is not open (status %q)", election.Status)
	}
	already := utils.Find(election.RegisteredVoters, func(e elections.VoterEntry) bool {
		return e.VoterID == voter.ID
	})
	if already != nil {
		return nil, precondition("voter already registered for this election")
	}

	intentID, err := o.intentDb.Create(ctx, intents.Intent{
		Purpose:         intents.PurposeRegisterVoter,
		WalletAddress:   voter.WalletAddress,
		ContractAddress: election.ContractAddress,
		Payload:         bson.M{"voterId": voter.ID},
	})
	if err != nil {
		return nil, err
	}

	result, err := o.gateway.RegisterVoter(ctx, contractAddress, voter.Name, voter.Age, voter.Gender.Index(), signerKey)
	if err != nil {
		// A mined-but-unparseable registration still carries a tx hash; keep
		// it on the intent so the drift is visible.
		if result != nil && result.TxHash != "" {
			o.setTxHash(ctx, intentID, result.TxHash)
		}
		o.markFailed(ctx, intentID, err)
		return nil, err
	}
	if result.OnChainID == nil {
		o.setTxHash(ctx, intentID, result.TxHash)
		o.markFailed(ctx, intentID, chain.ErrEventMissing)
		return nil, chain.ErrEventMissing
	}
	o.setTxHash(ctx, intentID, result.TxHash)

	now := time.Now().UTC()
	entry := elections.VoterEntry{
		VoterID:      voter.ID,
		OnChainID:    *result.OnChainID,
		RegisteredAt: now,
	}
	if err := o.electionDb.AppendVoter(ctx, contractAddress, entry); err != nil {
		return nil, err
	}
	if err := o.voterDb.MarkRegisteredOnChain(ctx, voter.WalletAddress, *result.OnChainID, voters.ElectionEntry{
		ElectionID:      election.ID,
		ContractAddress: election.ContractAddress,
		RegisteredAt:    now,
	}); err != nil {
		// Roster updated, voter document not: pending intent carries the tx
		// hash so the sweep re-applies this write.
		return nil, err
	}

	if err := o.intentDb.MarkConfirmed(ctx, intentID, result.TxHash); err != nil {
		o.log.Error("confirm voter registration intent", err)
	}
	return &entry, nil
}

// RegisterCandidateForElection is the candidate-side twin, with the roster
// cap enforced both here and in the collection update filter.
func (o *Orchestrator) RegisterCandidateForElection(ctx context.Context, contractAddress, signerKey string) (*elections.CandidateEntry, error) {
	wallet, err := chain.SignerAddress(signerKey)
	if err != nil {
		return nil, precondition("invalid signer key")
	}

	candidate, err := o.candidateDb.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if candidate.VerificationStatus != candidates.VerificationVerified {
		return nil, precondition("candidate is not verified")
	}

	lock := o.lockFor(contractAddress)
	lock.Lock()
	defer lock.Unlock()

	election, err := o.electionDb.GetByAddress(ctx, contractAddress)
	if err != nil {
		return nil, err
	}
	if election.Status != elections.StatusRegistrationOpen {
		return nil, precondition("registration is not open (status %q)", election.Status)
	}
	already := utils.Find(election.Candidates, func(e elections.CandidateEntry) bool {
		return e.CandidateID == candidate.ID
	})
	if already != nil {
		return nil, precondition("candidate already registered for this election")
	}
	if len(election.Candidates) >= election.MaxCandidates {
		return nil, precondition("candidate roster is full (%d/%d)", len(election.Candidates), election.MaxCandidates)
	}

	intentID, err := o.intentDb.Create(ctx, intents.Intent{
		Purpose:         intents.PurposeRegisterCandidate,
		WalletAddress:   candidate.WalletAddress,
		ContractAddress: election.ContractAddress,
		Payload:         bson.M{"candidateId": candidate.ID},
	})
	if err != nil {
		return nil, err
	}

	result, err := o.gateway.RegisterCandidate(ctx, contractAddress, candidate.Name, candidate.Age, candidate.Gender.Index(), candidate.Party, candidate.Manifesto, signerKey)
	if err != nil {
		if result != nil && result.TxHash != "" {
			o.setTxHash(ctx, intentID, result.TxHash)
		}
		o.markFailed(ctx, intentID, err)
		return nil, err
	}
	if result.OnChainID == nil {
		o.setTxHash(ctx, intentID, result.TxHash)
		o.markFailed(ctx, intentID, chain.ErrEventMissing)
		return nil, chain.ErrEventMissing
	}
	o.setTxHash(ctx, intentID, result.TxHash)

	now := time.Now().UTC()
	entry := elections.CandidateEntry{
		CandidateID:  candidate.ID,
		OnChainID:    *result.OnChainID,
		Name:         candidate.Name,
		Party:        candidate.Party,
		RegisteredAt: now,
	}
	if err := o.electionDb.AppendCandidate(ctx, contractAddress, entry); err != nil {
		return nil, err
	}
	if err := o.candidateDb.MarkRegisteredOnChain(ctx, candidate.WalletAddress, *result.OnChainID, candidates.ElectionEntry{
		ElectionID:      election.ID,
		ContractAddress: election.ContractAddress,
		OnChainID:       *result.OnChainID,
		RegisteredAt:    now,
	}); err != nil {
		return nil, err
	}

	if err := o.intentDb.MarkConfirmed(ctx, intentID, result.TxHash); err != nil {
		o.log.Error("confirm candidate registration intent", err)
	}
	return &entry, nil
}
