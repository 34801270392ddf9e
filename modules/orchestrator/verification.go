package orchestrator

import (
	"context"

	"ballot-node/modules/db/ballot/admins"
	"ballot-node/modules/db/ballot/candidates"
	"ballot-node/modules/db/ballot/voters"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerifyVoter moves a voter between pending/verified/rejected. Verification
// is the sole gate before on-chain registration; verifying also grants
// eligibility (handled in the collection update).
func (o *Orchestrator) VerifyVoter(ctx context.Context, adminID, voterID primitive.ObjectID, status voters.VerificationStatus) (*voters.Voter, error) {
	if _, err := o.requireAdmin(ctx, adminID, admins.PermVerifyVoters); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, precondition("unknown verification status %q", status)
	}
	return o.voterDb.SetVerification(ctx, voterID, status)
}

func (o *Orchestrator) VerifyCandidate(ctx context.Context, adminID, candidateID primitive.ObjectID, status candidates.VerificationStatus) (*candidates.Candidate, error) {
	if _, err := o.requireAdmin(ctx, adminID, admins.PermVerifyCandidates); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, precondition("unknown verification status %q", status)
	}
	return o.candidateDb.SetVerification(ctx, candidateID, status)
}
