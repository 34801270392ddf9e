package orchestrator

import (
	"context"
	"time"

	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/elections"
	"ballot-node/modules/db/ballot/intents"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DeployParams struct {
	Title                string
	Description          string
	MaxCandidates        int
	SignerKey            string
	RegistrationDeadline *time.Time
	StartTime            *time.Time
	EndTime              *time.Time
}

// DeployElection deploys a fresh voting contract and starts tracking it
// off-chain in status `created`.
func (o *Orchestrator) DeployElection(ctx context.Context, adminID primitive.ObjectID, params DeployParams) (*elections.Election, error) {
	admin, err := o.requireAdmin(ctx, adminID, admins.PermManageElections)
	if err != nil {
		return nil, err
	}
	if params.MaxCandidates <= 0 {
		return nil, precondition("maxCandidates must be positive")
	}

	intentID, err := o.intentDb.Create(ctx, intents.Intent{
		Purpose: intents.PurposeDeploy,
		Payload: bson.M{"title": params.Title},
	})
	if err != nil {
		return nil, err
	}

	deployed, err := o.gateway.Deploy(ctx, params.Title, params.Description, params.SignerKey)
	if err != nil {
		o.markFailed(ctx, intentID, err)
		return nil, err
	}

	election, err := o.electionDb.Create(ctx, elections.CreateElectionInput{
		ContractAddress:      deployed.ContractAddress,
		Title:                params.Title,
		Description:          params.Description,
		MaxCandidates:        params.MaxCandidates,
		DeployedBy:           admin.ID,
		DeployTxHash:         deployed.TxHash,
		RegistrationDeadline: params.RegistrationDeadline,
		StartTime:            params.StartTime,
		EndTime:              params.EndTime,
	})
	if err != nil {
		// Contract exists on-chain but tracking failed; leave the intent
		// pending with the hash so the sweep can surface the drift.
		o.setTxHash(ctx, intentID, deployed.TxHash)
		return nil, err
	}

	if err := o.intentDb.MarkConfirmed(ctx, intentID, deployed.TxHash); err != nil {
		o.log.Error("confirm deploy intent", err)
	}
	return election, nil
}

// TransitionStatus drives the plain lifecycle steps (open/close registration,
// start/end voting). Results announcement and cancellation have their own
// workflows.
func (o *Orchestrator) TransitionStatus(ctx context.Context, adminID primitive.ObjectID, contractAddress string, to elections.Status) error {
	if _, err := o.requireAdmin(ctx, adminID, admins.PermManageElections); err != nil {
		return err
	}
	if !to.Valid() {
		return precondition("unknown status %q", to)
	}
	if to == elections.StatusResultsAnnounced || to == elections.StatusCancelled {
		return precondition("status %q requires its dedicated operation", to)
	}

	lock := o.lockFor(contractAddress)
	lock.Lock()
	defer lock.Unlock()

	return o.electionDb.UpdateStatus(ctx, contractAddress, to)
}

// SetElectionDetails pushes a title/description change to the contract and
// mirrors it off-chain.
func (o *Orchestrator) SetElectionDetails(ctx context.Context, adminID primitive.ObjectID, contractAddress, title, description, signerKey string) error {
	if _, err := o.requireAdmin(ctx, adminID, admins.PermManageElections); err != nil {
		return err
	}
	if _, err := o.electionDb.GetByAddress(ctx, contractAddress); err != nil {
		return err
	}

	lock := o.lockFor(contractAddress)
	lock.Lock()
	defer lock.Unlock()

	outcome, err := o.gateway.SetElectionDetails(ctx, contractAddress, title, description, signerKey)
	if err != nil {
		return err
	}
	if err := o.electionDb.UpdateDetails(ctx, contractAddress, title, description); err != nil {
		o.log.Error("mirror election details", contractAddress, outcome.TxHash, err)
		return err
	}
	return nil
}

// EmergencyStop halts voting on-chain and cancels the election off-chain.
func (o *Orchestrator) EmergencyStop(ctx context.Context, adminID primitive.ObjectID, contractAddress, reason, signerKey string) error {
	admin, err := o.requireAdmin(ctx, adminID, admins.PermEmergencyStop)
	if err != nil {
		return err
	}
	election, err := o.electionDb.GetByAddress(ctx, contractAddress)
	if err != nil {
		return err
	}
	if !election.Status.CanTransitionTo(elections.StatusCancelled) {
		return precondition("election in status %q cannot be cancelled", election.Status)
	}

	lock := o.lockFor(contractAddress)
	lock.Lock()
	defer lock.Unlock()

	intentID, err := o.intentDb.Create(ctx, intents.Intent{
		Purpose:         intents.PurposeEmergencyStop,
		ContractAddress: election.ContractAddress,
		Payload:         bson.M{"reason": reason},
	})
	if err != nil {
		return err
	}

	outcome, err := o.gateway.EmergencyStopVoting(ctx, contractAddress, reason, signerKey)
	if err != nil {
		o.markFailed(ctx, intentID, err)
		return err
	}
	o.setTxHash(ctx, intentID, outcome.TxHash)

	stop := elections.EmergencyStop{
		Stopped:   true,
		Reason:    reason,
		StoppedBy: admin.ID,
		StoppedAt: time.Now().UTC(),
		TxHash:    outcome.TxHash,
	}
	if err := o.electionDb.SetEmergencyStop(ctx, contractAddress, stop); err != nil {
		return err
	}
	if err := o.electionDb.UpdateStatus(ctx, contractAddress, elections.StatusCancelled); err != nil {
		return err
	}

	if err := o.intentDb.MarkConfirmed(ctx, intentID, outcome.TxHash); err != nil {
		o.log.Error("confirm emergency stop intent", err)
	}
	return nil
}

func (o *Orchestrator) markFailed(ctx context.Context, intentID primitive.ObjectID, cause error) {
	if err := o.intentDb.MarkFailed(ctx, intentID, cause.Error()); err != nil {
		o.log.Error("mark intent failed", intentID, err)
	}
}

func (o *Orchestrator) setTxHash(ctx context.Context, intentID primitive.ObjectID, txHash string) {
	if err := o.intentDb.SetTxHash(ctx, intentID, txHash); err != nil {
		o.log.Error("record intent tx hash", intentID, err)
	}
}
