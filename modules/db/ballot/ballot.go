package ballot

import (
	"context"

	a "ballot-node/modules/aggregate"
	"ballot-node/modules/config"
	"ballot-node/modules/db"

	"go.mongodb.org/mongo-driver/bson"
)

// BallotDb is the database holding all off-chain election state.
type BallotDb struct {
	*db.DbInstance
}

var _ a.Plugin = &BallotDb{}

func New(d db.Db, dbConf *config.Config[db.DbConfig]) *BallotDb {
	return &BallotDb{db.NewDbInstance(d, dbConf)}
}

// Nuke wipes every collection. Test helper only.
func (db *BallotDb) Nuke() error {
	ctx := context.Background()

	colsNames, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return err
	}

	for _, colName := range colsNames {
		_, err := db.Collection(colName).DeleteMany(ctx, bson.M{})
		if err != nil {
			return err
		}
	}

	return nil
}
