package intents

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Purpose string

const (
	PurposeDeploy            Purpose = "deploy"
	PurposeRegisterVoter     Purpose = "register_voter"
	PurposeRegisterCandidate Purpose = "register_candidate"
	PurposeCastVote          Purpose = "cast_vote"
	PurposeAnnounceResults   Purpose = "announce_results"
	PurposeEmergencyStop     Purpose = "emergency_stop"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Intent is the write-ahead record for a ledger mutation. It is created
// before the transaction is submitted and resolved after the off-chain
// writes land, so a crash in between leaves a pending intent the reconciler
// can pick up and repair.
type Intent struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Purpose         Purpose            `bson:"purpose" json:"purpose"`
	Status          Status             `bson:"status" json:"status"`
	WalletAddress   string             `bson:"walletAddress,omitempty" json:"walletAddress,omitempty"`
	ContractAddress string             `bson:"contractAddress,omitempty" json:"contractAddress,omitempty"`
	Payload         bson.M             `bson:"payload,omitempty" json:"payload,omitempty"`
	TxHash          string             `bson:"txHash,omitempty" json:"txHash,omitempty"`
	Error           string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}
