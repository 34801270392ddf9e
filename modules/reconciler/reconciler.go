package reconciler

import (
	"context"
	"errors"
	"time"

	"ballot-node/lib/logger"
	agg "ballot-node/modules/aggregate"
	"ballot-node/modules/chain"
	"ballot-node/modules/config"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"
	"ballot-node/modules/db/ballot/voters"
	"ballot-node/modules/orchestrator"

	"github.com/chebyrash/promise"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/robfig/cron/v3"
)

// Reconciler is the sweep closing the gap between ledger and database.
// Intents left pending after their grace period mean the process died (or an
// off-chain write failed) between the ledger call and the mirror writes; the
// sweep re-applies those writes from the mined receipt, all of them guarded
// so a double application is a no-op.
type Reconciler struct {
	conf        *config.Config[ReconcilerConfig]
	descriptor  chain.ContractDescriptor
	intentDb    intents.Intents
	voterDb     voters.Voters
	candidateDb candidates.Candidates
	electionDb  elections.Elections
	gateway     chain.Gateway
	log         logger.Logger

	cron *cron.Cron
	stop chan struct{}
}

var _ agg.Plugin = &Reconciler{}

func New(
	conf *config.Config[ReconcilerConfig],
	descriptor chain.ContractDescriptor,
	intentDb intents.Intents,
	voterDb voters.Voters,
	candidateDb candidates.Candidates,
	electionDb elections.Elections,
	gateway chain.Gateway,
	log logger.Logger,
) *Reconciler {
	return &Reconciler{
		conf:        conf,
		descriptor:  descriptor,
		intentDb:    intentDb,
		voterDb:     voterDb,
		candidateDb: candidateDb,
		electionDb:  electionDb,
		gateway:     gateway,
		log:         log,
		cron:        cron.New(),
		stop:        make(chan struct{}),
	}
}

func (r *Reconciler) Init() error {
	return nil
}

func (r *Reconciler) Start() *promise.Promise[any] {
	return promise.New(func(resolve func(any), reject func(error)) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-r.stop
			cancel()
		}()

		_, err := r.cron.AddFunc(r.conf.Get().Schedule, func() {
			select {
			case <-r.stop:
				return
			default:
				go r.Sweep(ctx)
			}
		})
		if err != nil {
			reject(err)
			return
		}
		r.cron.Start()
		resolve(nil)
	})
}

func (r *Reconciler) Stop() error {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	r.cron.Stop()
	return nil
}

// Sweep processes every pending intent older than the grace period, then
// purges confirmed intents past retention.
func (r *Reconciler) Sweep(ctx context.Context) {
	conf := r.conf.Get()
	cutoff := time.Now().UTC().Add(-time.Duration(conf.GraceSeconds) * time.Second)

	pending, err := r.intentDb.ListPending(ctx, cutoff)
	if err != nil {
		r.log.Error("list pending intents", err)
		return
	}
	for _, intent := range pending {
		if err := r.ReconcileIntent(ctx, intent); err != nil {
			r.log.Error("reconcile intent", intent.ID.Hex(), intent.Purpose, err)
		}
	}

	purged, err := r.intentDb.PurgeConfirmed(ctx, time.Duration(conf.RetentionHours)*time.Hour)
	if err != nil {
		r.log.Error("purge confirmed intents", err)
	} else if purged > 0 {
		r.log.Debug("purged confirmed intents", purged)
	}
}

// ReconcileIntent resolves one stale pending intent against ledger state.
func (r *Reconciler) ReconcileIntent(ctx context.Context, intent intents.Intent) error {
	if intent.TxHash == "" {
		// The ledger call never produced a hash; nothing mined, nothing to
		// mirror.
		return r.intentDb.MarkFailed(ctx, intent.ID, "no transaction submitted")
	}

	receipt, err := r.gateway.GetTransactionReceipt(ctx, intent.TxHash)
	if err != nil {
		return r.intentDb.MarkFailed(ctx, intent.ID, "transaction not found: "+err.Error())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return r.intentDb.MarkFailed(ctx, intent.ID, "transaction reverted")
	}

	switch intent.Purpose {
	case intents.PurposeRegisterVoter:
		err = r.replayVoterRegistration(ctx, intent, receipt)
	case intents.PurposeRegisterCandidate:
		err = r.replayCandidateRegistration(ctx, intent, receipt)
	case intents.PurposeCastVote:
		err = r.replayVote(ctx, intent)
	case intents.PurposeEmergencyStop:
		err = r.replayEmergencyStop(ctx, intent)
	case intents.PurposeAnnounceResults:
		err = r.replayResults(ctx, intent)
	case intents.PurposeDeploy:
		// Deployment parameters are not carried in the intent, so an
		// untracked contract cannot be reconstructed here.
		return r.intentDb.MarkFailed(ctx, intent.ID, "deployment mined but never tracked off-chain")
	default:
		return r.intentDb.MarkFailed(ctx, intent.ID, "unknown intent purpose")
	}
	if err != nil {
		return err
	}

	r.log.Debug("repaired drift", intent.Purpose, intent.TxHash)
	return r.intentDb.MarkConfirmed(ctx, intent.ID, intent.TxHash)
}

func (r *Reconciler) replayVoterRegistration(ctx context.Context, intent intents.Intent, receipt *types.Receipt) error {
	onChainID, err := chain.ParseRegistrationEvent(r.descriptor, receipt, "VoterRegistered")
	if err != nil {
		return r.intentDb.MarkFailed(ctx, intent.ID, "registration event unparseable: "+err.Error())
	}

	voter, err := r.voterDb.GetByWallet(ctx, intent.WalletAddress)
	if err != nil {
		return err
	}
	election, err := r.electionDb.GetByAddress(ctx, intent.ContractAddress)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = r.electionDb.AppendVoter(ctx, intent.ContractAddress, elections.VoterEntry{
		VoterID:      voter.ID,
		OnChainID:    *onChainID,
		RegisteredAt: now,
	})
	if err != nil && !errors.Is(err, elections.ErrRosterConstraint) {
		return err
	}
	err = r.voterDb.MarkRegisteredOnChain(ctx, voter.WalletAddress, *onChainID, voters.ElectionEntry{
		ElectionID:      election.ID,
		ContractAddress: election.ContractAddress,
		RegisteredAt:    now,
	})
	if err != nil && !errors.Is(err, voters.ErrNotModified) {
		return err
	}
	return nil
}

func (r *Reconciler) replayCandidateRegistration(ctx context.Context, intent intents.Intent, receipt *types.Receipt) error {
	onChainID, err := chain.ParseRegistrationEvent(r.descriptor, receipt, "CandidateRegistered")
	if err != nil {
		return r.intentDb.MarkFailed(ctx, intent.ID, "registration event unparseable: "+err.Error())
	}

	candidate, err := r.candidateDb.GetByWallet(ctx, intent.WalletAddress)
	if err != nil {
		return err
	}
	election, err := r.electionDb.GetByAddress(ctx, intent.ContractAddress)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = r.electionDb.AppendCandidate(ctx, intent.ContractAddress, elections.CandidateEntry{
		CandidateID:  candidate.ID,
		OnChainID:    *onChainID,
		Name:         candidate.Name,
		Party:        candidate.Party,
		RegisteredAt: now,
	})
	if err != nil && !errors.Is(err, elections.ErrRosterConstraint) {
		return err
	}
	err = r.candidateDb.MarkRegisteredOnChain(ctx, candidate.WalletAddress, *onChainID, candidates.ElectionEntry{
		ElectionID:      election.ID,
		ContractAddress: election.ContractAddress,
		OnChainID:       *onChainID,
		RegisteredAt:    now,
	})
	if err != nil && !errors.Is(err, candidates.ErrNotModified) {
		return err
	}
	return nil
}

func (r *Reconciler) replayVote(ctx context.Context, intent intents.Intent) error {
	voter, err := r.voterDb.GetByWallet(ctx, intent.WalletAddress)
	if err != nil {
		return err
	}
	election, err := r.electionDb.GetByAddress(ctx, intent.ContractAddress)
	if err != nil {
		return err
	}
	candidateOnChainID, ok := payloadUint64(intent.Payload["candidateId"])
	if !ok {
		return r.intentDb.MarkFailed(ctx, intent.ID, "vote intent missing candidate id")
	}

	now := time.Now().UTC()
	err = r.electionDb.MarkVoted(ctx, intent.ContractAddress, voter.ID, candidateOnChainID, now)
	if err != nil && !errors.Is(err, elections.ErrAlreadyVoted) {
		return err
	}

	// Vote history is deduplicated on tx hash since the push itself carries
	// no guard.
	for _, h := range voter.VotingHistory {
		if h.VoteTxHash == intent.TxHash {
			return nil
		}
	}
	return r.voterDb.AppendVoteHistory(ctx, voter.WalletAddress, voters.VoteHistoryEntry{
		ElectionID:      election.ID,
		ContractAddress: election.ContractAddress,
		VoteTxHash:      intent.TxHash,
		VotedAt:         now,
	})
}

func (r *Reconciler) replayEmergencyStop(ctx context.Context, intent intents.Intent) error {
	election, err := r.electionDb.GetByAddress(ctx, intent.ContractAddress)
	if err != nil {
		return err
	}
	if election.Status == elections.StatusCancelled {
		return nil
	}

	reason, _ := intent.Payload["reason"].(string)
	err = r.electionDb.SetEmergencyStop(ctx, intent.ContractAddress, elections.EmergencyStop{
		Stopped:   true,
		Reason:    reason,
		StoppedAt: time.Now().UTC(),
		TxHash:    intent.TxHash,
	})
	if err != nil {
		return err
	}
	err = r.electionDb.UpdateStatus(ctx, intent.ContractAddress, elections.StatusCancelled)
	if err != nil && !errors.Is(err, elections.ErrIllegalTransition) {
		return err
	}
	return nil
}

func (r *Reconciler) replayResults(ctx context.Context, intent intents.Intent) error {
	election, err := r.electionDb.GetByAddress(ctx, intent.ContractAddress)
	if err != nil {
		return err
	}
	if election.Status == elections.StatusResultsAnnounced {
		return nil
	}

	rows, err := r.gateway.GetResults(ctx, intent.ContractAddress)
	if err != nil {
		return err
	}
	results := orchestrator.RankResults(rows, election.Candidates)
	var winner *elections.Winner
	if len(results) > 0 {
		winner = &elections.Winner{
			CandidateID: results[0].CandidateID,
			OnChainID:   results[0].OnChainID,
			Name:        results[0].Name,
			Votes:       results[0].Votes,
		}
	}
	turnout := orchestrator.Turnout(election.TotalVotesCast, election.TotalRegisteredVoters)
	if err := r.electionDb.StoreResults(ctx, intent.ContractAddress, results, winner, turnout, time.Now().UTC()); err != nil {
		return err
	}
	err = r.electionDb.UpdateStatus(ctx, intent.ContractAddress, elections.StatusResultsAnnounced)
	if err != nil && !errors.Is(err, elections.ErrIllegalTransition) {
		return err
	}
	return nil
}

// payloadUint64 copes with the integer widths bson round-trips produce.
func payloadUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		return uint64(n), true
	case int32:
		return uint64(n), true
	case int:
		return uint64(n), true
	case float64:
		return uint64(n), true
	}
	return 0, false
}
