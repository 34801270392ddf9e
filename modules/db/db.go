package db

import (
	"context"

	"ballot-node/lib/utils"
	a "ballot-node/modules/aggregate"
	"ballot-node/modules/config"

	"github.com/chebyrash/promise"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Db interface {
	Database(name string, opts ...*options.DatabaseOptions) *mongo.Database
}

type db struct {
	conf *config.Config[DbConfig]
	*mongo.Client
}

var _ a.Plugin = &db{}
var _ Db = &db{}

func New(conf *config.Config[DbConfig]) *db {
	return &db{conf: conf}
}

// Init connects the driver. Connection happens here and not in Start so that
// plugins initialized later (database handle, collections, indexes) can rely
// on the client being available.
func (db *db) Init() error {
	ctx := context.Background()

	driver, err := mongo.Connect(ctx, options.Client().ApplyURI(db.conf.Get().DbURI))
	if err != nil {
		return err
	}
	db.Client = driver
	return nil
}

func (db *db) Start() *promise.Promise[any] {
	if err := db.Ping(context.Background(), readpref.Primary()); err != nil {
		return utils.PromiseReject[any](err)
	}
	return utils.PromiseResolve[any](nil)
}

func (db *db) Stop() error {
	if db.Client == nil {
		return nil
	}
	return db.Client.Disconnect(context.Background())
}
