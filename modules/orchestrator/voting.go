package orchestrator

import (
	"context"
	"time"

	"ballot-node/lib/utils"
	"ballot-node/modules/chain"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"
	"ballot-node/modules/db/ballot/voters"

	"go.mongodb.org/mongo-driver/bson"
)

// CastVote submits a ballot for the voter controlling signerKey. The
// election lock plus the hasVoted filter in MarkVoted make the off-chain
// accounting exactly-once: a second call for the same voter fails the
// precondition check here, and even a racing write would no-op on the
// guarded update.
func (o *Orchestrator) CastVote(ctx context.Context, contractAddress string, candidateOnChainID uint64, signerKey string) (*voters.VoteHistoryEntry, error) {
	wallet, err := chain.SignerAddress(signerKey)
	if err != nil {
		return nil, precondition("invalid signer key")
	}

	voter, err := o.voterDb.GetByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	lock := o.lockFor(contractAddress)
	lock.Lock()
	defer lock.Unlock()

	election, err := o.electionDb.GetByAddress(ctx, contractAddress)
	if err != nil {
		return nil, err
	}
	if election.Status != elections.StatusVotingActive {
		return nil, precondition("voting is not active (status %q)", election.Status)
	}

	rosterEntry := utils.Find(election.RegisteredVoters, func(e elections.VoterEntry) bool {
		return e.VoterID == voter.ID
	})
	if rosterEntry == nil {
		return nil, precondition("voter is not registered for this election")
	}
	if rosterEntry.HasVoted {
		return nil, precondition("voter has already cast a vote")
	}

	candidateEntry := utils.Find(election.Candidates, func(e elections.CandidateEntry) bool {
		return e.OnChainID == candidateOnChainID
	})
	if candidateEntry == nil {
		return nil, precondition("candidate %d is not on the ballot", candidateOnChainID)
	}

	intentID, err := o.intentDb.Create(ctx, intents.Intent{
		Purpose:         intents.PurposeCastVote,
		WalletAddress:   voter.WalletAddress,
		ContractAddress: election.ContractAddress,
		Payload: bson.M{
			"voterId":     voter.ID,
			"candidateId": candidateOnChainID,
		},
	})
	if err != nil {
		return nil, err
	}

	result, err := o.gateway.CastVote(ctx, contractAddress, candidateOnChainID, signerKey)
	if err != nil {
		o.markFailed(ctx, intentID, err)
		return nil, err
	}
	o.setTxHash(ctx, intentID, result.TxHash)

	now := time.Now().UTC()
	if err := o.electionDb.MarkVoted(ctx, contractAddress, voter.ID, candidateOnChainID, now); err != nil {
		// The vote is on-chain; the pending intent carries the tx hash so
		// the sweep re-applies the accounting.
		return nil, err
	}
	if err := o.candidateDb.IncrementVotes(ctx, candidateEntry.CandidateID, election.ID); err != nil {
		o.log.Error("increment candidate votes", candidateEntry.CandidateID, err)
	}

	historyEntry := voters.VoteHistoryEntry{
		ElectionID:      election.ID,
		ContractAddress: election.ContractAddress,
		VoteTxHash:      result.TxHash,
		VotedAt:         now,
	}
	if err := o.voterDb.AppendVoteHistory(ctx, voter.WalletAddress, historyEntry); err != nil {
		return nil, err
	}

	if err := o.intentDb.MarkConfirmed(ctx, intentID, result.TxHash); err != nil {
		o.log.Error("confirm vote intent", err)
	}
	return &historyEntry, nil
}
