package voters

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

type voters struct {
	*db.Collection
}

func New(d *ballot.BallotDb) Voters {
	return &voters{db.NewCollection(d.DbInstance, "voters")}
}

func (v *voters) Init() error {
	err := v.Collection.Init()
	if err != nil {
		return err
	}

	_, err = v.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "walletAddress", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (v *voters) Create(ctx context.Context, input CreateVoterInput) (*Voter, error) {
	now := time.Now().UTC()
	voter := Voter{
		Name:               input.Name,
		Age:                input.Age,
		Gender:             input.Gender,
		Email:              input.Email,
		Phone:              input.Phone,
		WalletAddress:      common.NormalizeWallet(input.WalletAddress),
		VerificationStatus: VerificationPending,
		Elections:          []ElectionEntry{},
		VotingHistory:      []VoteHistoryEntry{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	res, err := v.InsertOne(ctx, voter)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrWalletExists
		}
		return nil, err
	}
	voter.ID = res.InsertedID.(primitive.ObjectID)
	return &voter, nil
}

func (v *voters) GetByWallet(ctx context.Context, wallet string) (*Voter, error) {
	return v.findOne(ctx, bson.M{"walletAddress": common.NormalizeWallet(wallet)})
}

func (v *voters) GetByID(ctx context.Context, id primitive.ObjectID) (*Voter, error) {
	return v.findOne(ctx, bson.M{"_id": id})
}

func (v *voters) findOne(ctx context.Context, filter bson.M) (*Voter, error) {
	voter := Voter{}
	err := v.FindOne(ctx, filter).Decode(&voter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &voter, nil
}

func (v *voters) List(ctx context.Context, opts ListOptions) ([]Voter, error) {
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

	cursor, err := v.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []Voter{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (v *voters) SetVerification(ctx context.Context, id primitive.ObjectID, status VerificationStatus) (*Voter, error) {
	set := bson.M{
		"verificationStatus": status,
		"updatedAt":          time.Now().UTC(),
	}
	// Verification is the eligibility gate. Rejection does not revoke a
	// previously granted eligibility flag.
	if status == VerificationVerified {
		set["isEligible"] = true
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	voter := Voter{}
	err := v.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&voter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &voter, nil
}

func (v *voters) MarkRegisteredOnChain(ctx context.Context, wallet string, onChainID uint64, entry ElectionEntry) error {
	res, err := v.UpdateOne(ctx,
		bson.M{
			"walletAddress":         common.NormalizeWallet(wallet),
			"elections.electionId":  bson.M{"$ne": entry.ElectionID},
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

func (v *voters) AppendVoteHistory(ctx context.Context, wallet string, entry VoteHistoryEntry) error {
	res, err := v.UpdateOne(ctx,
		bson.M{"walletAddress": common.NormalizeWallet(wallet)},
		bson.M{
			"$push": bson.M{"votingHistory": entry},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
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

func (v *voters) UpdateProfile(ctx context.Context, wallet string, update ProfileUpdate) (*Voter, error) {
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

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	voter := Voter{}
	err := v.FindOneAndUpdate(ctx,
		bson.M{"walletAddress": common.NormalizeWallet(wallet)},
		bson.M{"$set": set}, opts).Decode(&voter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &voter, nil
}

func (v *voters) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := v.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
