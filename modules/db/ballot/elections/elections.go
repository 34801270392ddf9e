package elections

import (
	"context"
	"errors"
	"time"

	"ballot-node/modules/common"
	"ballot-node/modules/db"
	"ballot-node/modules/db/ballot"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type elections struct {
	*db.Collection
}

func New(d *ballot.BallotDb) Elections {
	return &elections{db.NewCollection(d.DbInstance, "elections")}
}

func (e *elections) Init() error {
	err := e.Collection.Init()
	if err != nil {
		return err
	}

	_, err = e.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "contractAddress", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (e *elections) Create(ctx context.Context, input CreateElectionInput) (*Election, error) {
	now := time.Now().UTC()
	election := Election{
		ContractAddress:      common.NormalizeWallet(input.ContractAddress),
		Title:                input.Title,
		Description:          input.Description,
		Status:               StatusCreated,
		RegistrationDeadline: input.RegistrationDeadline,
		StartTime:            input.StartTime,
		EndTime:              input.EndTime,
		MaxCandidates:        input.MaxCandidates,
		DeployedBy:           input.DeployedBy,
		DeployTxHash:         input.DeployTxHash,
		Candidates:           []CandidateEntry{},
		RegisteredVoters:     []VoterEntry{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	res, err := e.InsertOne(ctx, election)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrAddressExists
		}
		return nil, err
	}
	election.ID = res.InsertedID.(primitive.ObjectID)
	return &election, nil
}

func (e *elections) GetByAddress(ctx context.Context, contractAddress string) (*Election, error) {
	return e.findOne(ctx, bson.M{"contractAddress": common.NormalizeWallet(contractAddress)})
}

func (e *elections) GetByID(ctx context.Context, id primitive.ObjectID) (*Election, error) {
	return e.findOne(ctx, bson.M{"_id": id})
}

func (e *elections) findOne(ctx context.Context, filter bson.M) (*Election, error) {
	election := Election{}
	err := e.FindOne(ctx, filter).Decode(&election)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &election, nil
}

func (e *elections) List(ctx context.Context, opts ListOptions) ([]Election, error) {
	filter := bson.M{}
	if opts.Status != nil {
		filter["status"] = *opts.Status
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if opts.Skip > 0 {
		findOptions.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOptions.SetLimit(opts.Limit)
	}

	cursor, err := e.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []Election{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *elections) UpdateStatus(ctx context.Context, contractAddress string, to Status) error {
	res, err := e.UpdateOne(ctx,
		bson.M{
			"contractAddress": common.NormalizeWallet(contractAddress),
			"status":          bson.M{"$in": TransitionSources(to)},
		},
		bson.M{
			"$set": bson.M{
				"status":    to,
				"updatedAt": time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish unknown elections from transition violations.
		if _, err := e.GetByAddress(ctx, contractAddress); err != nil {
			return err
		}
		return ErrIllegalTransition
	}
	return nil
}

func (e *elections) AppendCandidate(ctx context.Context, contractAddress string, entry CandidateEntry) error {
	res, err := e.UpdateOne(ctx,
		bson.M{
			"contractAddress":         common.NormalizeWallet(contractAddress),
			"candidates.candidateId":  bson.M{"$ne": entry.CandidateID},
			"$expr": bson.M{
				"$lt": bson.A{bson.M{"$size": "$candidates"}, "$maxCandidates"},
			},
		},
		bson.M{
			"$push": bson.M{"candidates": entry},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
			"$inc":  bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := e.GetByAddress(ctx, contractAddress); err != nil {
			return err
		}
		return ErrRosterConstraint
	}
	return nil
}

func (e *elections) AppendVoter(ctx context.Context, contractAddress string, entry VoterEntry) error {
	res, err := e.UpdateOne(ctx,
		bson.M{
			"contractAddress":          common.NormalizeWallet(contractAddress),
			"registeredVoters.voterId": bson.M{"$ne": entry.VoterID},
		},
		bson.M{
			"$push": bson.M{"registeredVoters": entry},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
			"$inc": bson.M{
				"totalRegisteredVoters": 1,
				"version":               1,
			},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := e.GetByAddress(ctx, contractAddress); err != nil {
			return err
		}
		return ErrRosterConstraint
	}
	return nil
}

func (e *elections) MarkVoted(ctx context.Context, contractAddress string, voterID primitive.ObjectID, candidateOnChainID uint64, votedAt time.Time) error {
	res, err := e.UpdateOne(ctx,
		bson.M{
			"contractAddress": common.NormalizeWallet(contractAddress),
			"registeredVoters": bson.M{
				"$elemMatch": bson.M{
					"voterId":  voterID,
					"hasVoted": false,
				},
			},
			"candidates.onChainId": candidateOnChainID,
		},
		bson.M{
			"$set": bson.M{
				"registeredVoters.$[v].hasVoted": true,
				"registeredVoters.$[v].votedAt":  votedAt,
				"updatedAt":                      time.Now().UTC(),
			},
			"$inc": bson.M{
				"candidates.$[c].votesReceived": 1,
				"totalVotesCast":                1,
				"version":                       1,
			},
		},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{
				bson.M{"v.voterId": voterID},
				bson.M{"c.onChainId": candidateOnChainID},
			},
		}),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := e.GetByAddress(ctx, contractAddress); err != nil {
			return err
		}
		return ErrAlreadyVoted
	}
	return nil
}

func (e *elections) StoreResults(ctx context.Context, contractAddress string, results []ResultEntry, winner *Winner, turnout float64, announcedAt time.Time) error {
	res, err := e.UpdateOne(ctx,
		bson.M{"contractAddress": common.NormalizeWallet(contractAddress)},
		bson.M{
			"$set": bson.M{
				"results":            results,
				"winner":             winner,
				"turnoutPercentage":  turnout,
				"resultsAnnouncedAt": announcedAt,
				"updatedAt":          time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (e *elections) UpdateDetails(ctx context.Context, contractAddress string, title, description string) error {
	res, err := e.UpdateOne(ctx,
		bson.M{"contractAddress": common.NormalizeWallet(contractAddress)},
		bson.M{
			"$set": bson.M{
				"title":       title,
				"description": description,
				"updatedAt":   time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (e *elections) SetEmergencyStop(ctx context.Context, contractAddress string, stop EmergencyStop) error {
	res, err := e.UpdateOne(ctx,
		bson.M{"contractAddress": common.NormalizeWallet(contractAddress)},
		bson.M{
			"$set": bson.M{
				"emergencyStop": stop,
				"updatedAt":     time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
