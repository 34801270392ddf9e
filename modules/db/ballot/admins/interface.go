package admins

import (
	"context"
	"errors"

	a "ballot-node/modules/aggregate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound       = errors.New("admin not found")
	ErrUsernameExists = errors.New("username or email already taken")
)

type Admins interface {
	a.Plugin
	Create(ctx context.Context, input CreateAdminInput) (*Admin, error)
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*Admin, error)
	List(ctx context.Context) ([]Admin, error)
	Count(ctx context.Context) (int64, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error
}
