package intents

import (
	"context"
	"time"

	"ballot-node/modules/db"
	"ballot-node/modules/db/ballot"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type intents struct {
	*db.Collection
}

func New(d *ballot.BallotDb) Intents {
	return &intents{db.NewCollection(d.DbInstance, "intents")}
}

func (i *intents) Init() error {
	err := i.Collection.Init()
	if err != nil {
		return err
	}

	_, err = i.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "createdAt", Value: 1},
		},
		Options: options.Index(),
	})
	return err
}

func (i *intents) Create(ctx context.Context, intent Intent) (primitive.ObjectID, error) {
	now := time.Now().UTC()
	intent.Status = StatusPending
	intent.CreatedAt = now
	intent.UpdatedAt = now

	res, err := i.InsertOne(ctx, intent)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (i *intents) SetTxHash(ctx context.Context, id primitive.ObjectID, txHash string) error {
	return i.update(ctx, id, bson.M{"txHash": txHash})
}

func (i *intents) MarkConfirmed(ctx context.Context, id primitive.ObjectID, txHash string) error {
	return i.update(ctx, id, bson.M{
		"status": StatusConfirmed,
		"txHash": txHash,
	})
}

func (i *intents) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error {
	return i.update(ctx, id, bson.M{
		"status": StatusFailed,
		"error":  reason,
	})
}

func (i *intents) update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	res, err := i.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (i *intents) ListPending(ctx context.Context, olderThan time.Time) ([]Intent, error) {
	cursor, err := i.Find(ctx,
		bson.M{
			"status":    StatusPending,
			"createdAt": bson.M{"$lt": olderThan},
		},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []Intent{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (i *intents) PurgeConfirmed(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)
	res, err := i.DeleteMany(ctx, bson.M{
		"status":    StatusConfirmed,
		"createdAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
