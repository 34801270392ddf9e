package candidates

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

type candidates struct {
	*db.Collection
}

func New(d *ballot.BallotDb) Candidates {
	return &candidates{db.NewCollection(d.DbInstance, "candidates")}
}

func (c *candidates) Init() error {
	err := c.Collection.Init()
	if err != nil {
		return err
	}

	_, err = c.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "walletAddress", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (c *candidates) Create(ctx context.Context, input CreateCandidateInput) (*Candidate, error) {
	now := time.Now().UTC()
	candidate := Candidate{
		Name:               input.Name,
		Age:                input.Age,
		Gender:             input.Gender,
		Email:              input.Email,
		Phone:              input.Phone,
		Party:              input.Party,
		Manifesto:          input.Manifesto,
		WalletAddress:      common.NormalizeWallet(input.WalletAddress),
		VerificationStatus: VerificationPending,
		Elections:          []ElectionEntry{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	res, err := c.InsertOne(ctx, candidate)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrWalletExists
		}
		return nil, err
	}
	candidate.ID = res.InsertedID.(primitive.ObjectID)
	return &candidate, nil
}

func (c *candidates) GetByWallet(ctx context.Context, wallet string) (*Candidate, error) {
	return c.findOne(ctx, bson.M{"walletAddress": common.NormalizeWallet(wallet)})
}

func (c *candidates) GetByID(ctx context.Context, id primitive.ObjectID) (*Candidate, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

func (c *candidates) findOne(ctx context.Context, filter bson.M) (*Candidate, error) {
	candidate := Candidate{}
	err := c.FindOne(ctx, filter).Decode(&candidate)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &candidate, nil
}

func (c *candidates) List(ctx context.Context, opts ListOptions) ([]Candidate, error) {
	filter := bson.M{}
	if opts.VerificationStatus != nil {
		filter["verificationStatus"] = *opts.VerificationStatus
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if opts.Skip > 0 {
		findOptions.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOptions.SetLimit(opts.Limit)
	}

	cursor, err := c.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []Candidate{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *candidates) SetVerification(ctx context.Context, id primitive.ObjectID, status VerificationStatus) (*Candidate, error) {
	set := bson.M{
		"verificationStatus": status,
		"updatedAt":          time.Now().UTC(),
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	candidate := Candidate{}
	err := c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&candidate)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &candidate, nil
}

func (c *candidates) MarkRegisteredOnChain(ctx context.Context, wallet string, onChainID uint64, entry ElectionEntry) error {
	res, err := c.UpdateOne(ctx,
		bson.M{
			"walletAddress":        common.NormalizeWallet(wallet),
			"elections.electionId": bson.M{"$ne": entry.ElectionID},
		},
		bson.M{
			"$set": bson.M{
				"isRegisteredOnChain": true,
				"onChainId":           onChainID,
				"updatedAt":           time.Now().UTC(),
			},
			"$push": bson.M{"elections": entry},
		},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return ErrNotModified
	}
	return nil
}

func (c *candidates) IncrementVotes(ctx context.Context, candidateID primitive.ObjectID, electionID primitive.ObjectID) error {
	res, err := c.UpdateOne(ctx,
		bson.M{
			"_id":                  candidateID,
			"elections.electionId": electionID,
		},
		bson.M{
			"$inc": bson.M{"elections.$.votesReceived": 1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
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

func (c *candidates) UpdateProfile(ctx context.Context, wallet string, update ProfileUpdate) (*Candidate, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	if update.Party != nil {
		set["party"] = *update.Party
	}
	if update.Manifesto != nil {
		set["manifesto"] = *update.Manifesto
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	candidate := Candidate{}
	err := c.FindOneAndUpdate(ctx,
		bson.M{"walletAddress": common.NormalizeWallet(wallet)},
		bson.M{"$set": set}, opts).Decode(&candidate)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &candidate, nil
}

func (c *candidates) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
