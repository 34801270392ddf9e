package admins

import (
	"context"
	"errors"
	"time"

	"ballot-node/modules/db"
	"ballot-node/modules/db/ballot"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type admins struct {
	*db.Collection
}

func New(d *ballot.BallotDb) Admins {
	return &admins{db.NewCollection(d.DbInstance, "admins")}
}

func (a *admins) Init() error {
	err := a.Collection.Init()
	if err != nil {
		return err
	}

	for _, key := range []string{"username", "email"} {
		_, err = a.Indexes().CreateOne(context.Background(), mongo.IndexModel{
			Keys:    bson.D{{Key: key, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *admins) Create(ctx context.Context, input CreateAdminInput) (*Admin, error) {
	now := time.Now().UTC()
	permissions := input.Permissions
	if input.Role == RoleSuperAdmin {
		permissions = AllPermissions
	}
	if permissions == nil {
		permissions = []Permission{}
	}
	admin := Admin{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Permissions:  permissions,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := a.InsertOne(ctx, admin)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}
	admin.ID = res.InsertedID.(primitive.ObjectID)
	return &admin, nil
}

func (a *admins) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	return a.findOne(ctx, bson.M{"username": username})
}

func (a *admins) GetByID(ctx context.Context, id primitive.ObjectID) (*Admin, error) {
	return a.findOne(ctx, bson.M{"_id": id})
}

func (a *admins) findOne(ctx context.Context, filter bson.M) (*Admin, error) {
	admin := Admin{}
	err := a.FindOne(ctx, filter).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &admin, nil
}

func (a *admins) List(ctx context.Context) ([]Admin, error) {
	cursor, err := a.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := []Admin{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *admins) Count(ctx context.Context) (int64, error) {
	return a.CountDocuments(ctx, bson.M{})
}

func (a *admins) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := a.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"lastLoginAt": now,
			"updatedAt":   now,
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (a *admins) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	res, err := a.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"active":    active,
			"updatedAt": time.Now().UTC(),
		},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
