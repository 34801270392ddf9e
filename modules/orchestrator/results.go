package orchestrator

import (
	"context"
	"sort"
	"time"

	"ballot-node/modules/chain"
	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnnounceResults finalizes an election: announce on-chain, pull the tallies
// back, rank them and persist the ranked results off-chain.
func (o *Orchestrator) AnnounceResults(ctx context.Context, adminID primitive.ObjectID, contractAddress, signerKey string) (*elections.Election, error) {
	if _, err := o.requireAdmin(ctx, adminID, admins.PermAnnounceResults); err != nil {
		return nil, err
	}

	lock := o.lockFor(contractAddress)
	lock.Lock()
	defer lock.Unlock()

	election, err := o.electionDb.GetByAddress(ctx, contractAddress)
	if err != nil {
		return nil, err
	}
	if election.Status != elections.StatusVotingEnded {
		return nil, precondition("results can only be announced after voting ends (status %q)", election.Status)
	}

	intentID, err := o.intentDb.Create(ctx, intents.Intent{
		Purpose:         intents.PurposeAnnounceResults,
		ContractAddress: election.ContractAddress,
	})
	if err != nil {
		return nil, err
	}

	outcome, err := o.gateway.AnnounceResults(ctx, contractAddress, signerKey)
	if err != nil {
		o.markFailed(ctx, intentID, err)
		return nil, err
	}
	o.setTxHash(ctx, intentID, outcome.TxHash)

	rows, err := o.gateway.GetResults(ctx, contractAddress)
	if err != nil {
		return nil, err
	}

	results := RankResults(rows, election.Candidates)
	var winner *elections.Winner
	if len(results) > 0 {
		winner = &elections.Winner{
			CandidateID: results[0].CandidateID,
			OnChainID:   results[0].OnChainID,
			Name:        results[0].Name,
			Votes:       results[0].Votes,
		}
	}

	turnout := Turnout(election.TotalVotesCast, election.TotalRegisteredVoters)
	announcedAt := time.Now().UTC()
	if err := o.electionDb.StoreResults(ctx, contractAddress, results, winner, turnout, announcedAt); err != nil {
		return nil, err
	}
	if err := o.electionDb.UpdateStatus(ctx, contractAddress, elections.StatusResultsAnnounced); err != nil {
		return nil, err
	}

	if err := o.intentDb.MarkConfirmed(ctx, intentID, outcome.TxHash); err != nil {
		o.log.Error("confirm results intent", err)
	}
	return o.electionDb.GetByAddress(ctx, contractAddress)
}

// RankResults orders contract tallies by descending vote count. The sort is
// stable, so ties keep the contract-returned order. Positions come out as a
// contiguous 1..N sequence.
func RankResults(rows []chain.ResultRow, roster []elections.CandidateEntry) []elections.ResultEntry {
	byOnChainID := make(map[uint64]elections.CandidateEntry, len(roster))
	for _, entry := range roster {
		byOnChainID[entry.OnChainID] = entry
	}

	ranked := make([]elections.ResultEntry, 0, len(rows))
	for _, row := range rows {
		entry := byOnChainID[row.OnChainID]
		ranked = append(ranked, elections.ResultEntry{
			CandidateID: entry.CandidateID,
			OnChainID:   row.OnChainID,
			Name:        entry.Name,
			Party:       entry.Party,
			Votes:       row.Votes,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Votes > ranked[j].Votes
	})
	for i := range ranked {
		ranked[i].Position = i + 1
	}
	return ranked
}

// Turnout computes totalVotesCast / totalRegisteredVoters as a percentage,
// zero when nobody is registered.
func Turnout(votesCast, registered int64) float64 {
	if registered == 0 {
		return 0
	}
	return float64(votesCast) / float64(registered) * 100
}
