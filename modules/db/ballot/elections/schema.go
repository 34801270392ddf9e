package elections

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusCreated            Status = "created"
	StatusRegistrationOpen   Status = "registration_open"
	StatusRegistrationClosed Status = "registration_closed"
	StatusVotingActive       Status = "voting_active"
	StatusVotingEnded        Status = "voting_ended"
	StatusResultsAnnounced   Status = "results_announced"
	StatusCancelled          Status = "cancelled"
)

// legalTransitions is the lifecycle table:
// created → registration_open → registration_closed → voting_active →
// voting_ended → results_announced, with emergency stop cancelling from
// any non-terminal state.
var legalTransitions = map[Status][]Status{
	StatusCreated:            {StatusRegistrationOpen, StatusCancelled},
	StatusRegistrationOpen:   {StatusRegistrationClosed, StatusCancelled},
	StatusRegistrationClosed: {StatusVotingActive, StatusCancelled},
	StatusVotingActive:       {StatusVotingEnded, StatusCancelled},
	StatusVotingEnded:        {StatusResultsAnnounced, StatusCancelled},
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TransitionSources returns every status from which `to` is reachable.
func TransitionSources(to Status) []Status {
	sources := []Status{}
	for from, targets := range legalTransitions {
		for _, t := range targets {
			if t == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusRegistrationOpen, StatusRegistrationClosed,
		StatusVotingActive, StatusVotingEnded, StatusResultsAnnounced,
		StatusCancelled:
		return true
	}
	return false
}

type Election struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ContractAddress string             `bson:"contractAddress" json:"contractAddress"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Status          Status             `bson:"status" json:"status"`

	RegistrationDeadline *time.Time `bson:"registrationDeadline,omitempty" json:"registrationDeadline,omitempty"`
	StartTime            *time.Time `bson:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime              *time.Time `bson:"endTime,omitempty" json:"endTime,omitempty"`

	MaxCandidates int                `bson:"maxCandidates" json:"maxCandidates"`
	DeployedBy    primitive.ObjectID `bson:"deployedBy" json:"deployedBy"`
	DeployTxHash  string             `bson:"deployTxHash,omitempty" json:"deployTxHash,omitempty"`

	Candidates       []CandidateEntry `bson:"candidates" json:"candidates"`
	RegisteredVoters []VoterEntry     `bson:"registeredVoters" json:"registeredVoters"`

	TotalRegisteredVoters int64   `bson:"totalRegisteredVoters" json:"totalRegisteredVoters"`
	TotalVotesCast        int64   `bson:"totalVotesCast" json:"totalVotesCast"`
	TurnoutPercentage     float64 `bson:"turnoutPercentage" json:"turnoutPercentage"`

	Results             []ResultEntry  `bson:"results,omitempty" json:"results,omitempty"`
	Winner              *Winner        `bson:"winner,omitempty" json:"winner,omitempty"`
	ResultsAnnouncedAt  *time.Time     `bson:"resultsAnnouncedAt,omitempty" json:"resultsAnnouncedAt,omitempty"`
	EmergencyStop       *EmergencyStop `bson:"emergencyStop,omitempty" json:"emergencyStop,omitempty"`

	// Version is bumped on every roster/counter mutation so concurrent
	// writers can never silently clobber each other.
	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type CandidateEntry struct {
	CandidateID   primitive.ObjectID `bson:"candidateId" json:"candidateId"`
	OnChainID     uint64             `bson:"onChainId" json:"onChainId"`
	Name          string             `bson:"name" json:"name"`
	Party         string             `bson:"party" json:"party"`
	VotesReceived uint64             `bson:"votesReceived" json:"votesReceived"`
	RegisteredAt  time.Time          `bson:"registeredAt" json:"registeredAt"`
}

type VoterEntry struct {
	VoterID      primitive.ObjectID `bson:"voterId" json:"voterId"`
	OnChainID    uint64             `bson:"onChainId" json:"onChainId"`
	HasVoted     bool               `bson:"hasVoted" json:"hasVoted"`
	VotedAt      *time.Time         `bson:"votedAt,omitempty" json:"votedAt,omitempty"`
	RegisteredAt time.Time          `bson:"registeredAt" json:"registeredAt"`
}

type ResultEntry struct {
	CandidateID primitive.ObjectID `bson:"candidateId" json:"candidateId"`
	OnChainID   uint64             `bson:"onChainId" json:"onChainId"`
	Name        string             `bson:"name" json:"name"`
	Party       string             `bson:"party" json:"party"`
	Votes       uint64             `bson:"votes" json:"votes"`
	Position    int                `bson:"position" json:"position"`
}

type Winner struct {
	CandidateID primitive.ObjectID `bson:"candidateId" json:"candidateId"`
	OnChainID   uint64             `bson:"onChainId" json:"onChainId"`
	Name        string             `bson:"name" json:"name"`
	Votes       uint64             `bson:"votes" json:"votes"`
}

type EmergencyStop struct {
	Stopped   bool               `bson:"stopped" json:"stopped"`
	Reason    string             `bson:"reason" json:"reason"`
	StoppedBy primitive.ObjectID `bson:"stoppedBy" json:"stoppedBy"`
	StoppedAt time.Time          `bson:"stoppedAt" json:"stoppedAt"`
	TxHash    string             `bson:"txHash,omitempty" json:"txHash,omitempty"`
}
