package voters

import (
	"time"

	"ballot-node/modules/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

type Voter struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name                string             `bson:"name" json:"name"`
	Age                 uint8              `bson:"age" json:"age"`
	Gender              common.Gender      `bson:"gender" json:"gender"`
	Email               string             `bson:"email" json:"email"`
	Phone               string             `bson:"phone,omitempty" json:"phone,omitempty"`
	WalletAddress       string             `bson:"walletAddress" json:"walletAddress"`
	VerificationStatus  VerificationStatus `bson:"verificationStatus" json:"verificationStatus"`
	IsEligible          bool               `bson:"isEligible" json:"isEligible"`
	IsRegisteredOnChain bool               `bson:"isRegisteredOnChain" json:"isRegisteredOnChain"`
	OnChainID           *uint64            `bson:"onChainId,omitempty" json:"onChainId,omitempty"`
	Elections           []ElectionEntry    `bson:"elections" json:"elections"`
	VotingHistory       []VoteHistoryEntry `bson:"votingHistory" json:"votingHistory"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type ElectionEntry struct {
	ElectionID      primitive.ObjectID `bson:"electionId" json:"electionId"`
	ContractAddress string             `bson:"contractAddress" json:"contractAddress"`
	RegisteredAt    time.Time          `bson:"registeredAt" json:"registeredAt"`
}

type VoteHistoryEntry struct {
	ElectionID      primitive.ObjectID `bson:"electionId" json:"electionId"`
	ContractAddress string             `bson:"contractAddress" json:"contractAddress"`
	VoteTxHash      string             `bson:"voteTxHash" json:"voteTxHash"`
	VotedAt         time.Time          `bson:"votedAt" json:"votedAt"`
}

type CreateVoterInput struct {
	Name          string
	Age           uint8
	Gender        common.Gender
	Email         string
	Phone         string
	WalletAddress string
}

type ProfileUpdate struct {
	Name  *string
	Email *string
	Phone *string
}
