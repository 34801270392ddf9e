package intents

import (
	"context"
	"errors"
	"time"

	a "ballot-node/modules/aggregate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNotFound = errors.New("intent not found")

type Intents interface {
	a.Plugin
	Create(ctx context.Context, intent Intent) (primitive.ObjectID, error)
	SetTxHash(ctx context.Context, id primitive.ObjectID, txHash string) error
	MarkConfirmed(ctx context.Context, id primitive.ObjectID, txHash string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, reason string) error
	ListPending(ctx context.Context, olderThan time.Time) ([]Intent, error)
	PurgeConfirmed(ctx context.Context, age time.Duration) (int64, error)
}
